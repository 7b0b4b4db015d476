package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/frontdesk/internal/checkin"
	"github.com/diagnosis/frontdesk/internal/domain"
	"github.com/diagnosis/frontdesk/internal/query"
	"github.com/diagnosis/frontdesk/pkg/events"
	"github.com/diagnosis/frontdesk/pkg/logger"
)

var ErrSessionNotFound = errors.New("check-in session not found")

// BookingSource is the external booking/guest data source. Backed by the
// local bookings table or the PMS client, selected by config.
type BookingSource interface {
	List(ctx context.Context, limit, offset int) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) error
}

type ListBookingsInput struct {
	Limit  int
	Offset int
	Text   query.TextFilters
	Status query.StatusFilter
	Date   *domain.DateFilter
}

type FrontDeskService interface {
	ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	CreateSession(ctx context.Context) (string, *checkin.Wizard, error)
	Session(id string) (*checkin.Wizard, error)
	CloseSession(id string) error
	SubmitCheckIn(ctx context.Context, sub *checkin.Submission) error
}

type frontDeskService struct {
	source    BookingSource
	submitter checkin.Submitter
	eventBus  events.Publisher

	mu       sync.RWMutex
	sessions map[string]*checkin.Wizard
}

func New(source BookingSource, submitter checkin.Submitter, eventBus events.Publisher) FrontDeskService {
	return &frontDeskService{
		source:    source,
		submitter: submitter,
		eventBus:  eventBus,
		sessions:  make(map[string]*checkin.Wizard),
	}
}

// ListBookings fetches a page from the source and runs the in-memory filter
// pipeline over it. The pipeline is cheap enough to rerun on every keystroke
// the console sends.
func (s *frontDeskService) ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.Booking, error) {
	bookings, err := s.source.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return query.Filter(bookings, input.Text, input.Status, input.Date, time.Now())
}

func (s *frontDeskService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.source.GetByID(ctx, id)
}

// CreateSession starts an independent check-in wizard. List-mode and
// modal-mode check-ins each get their own instance; sessions never share
// state.
func (s *frontDeskService) CreateSession(ctx context.Context) (string, *checkin.Wizard, error) {
	id := uuid.NewString()
	wizard := checkin.NewWizard(s)

	s.mu.Lock()
	s.sessions[id] = wizard
	s.mu.Unlock()

	logger.InfoContext(ctx, "Check-in session created", "session_id", id)

	return id, wizard, nil
}

func (s *frontDeskService) Session(id string) (*checkin.Wizard, error) {
	s.mu.RLock()
	wizard, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return wizard, nil
}

func (s *frontDeskService) CloseSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// SubmitCheckIn is the collaborator handed to every wizard. It forwards the
// roster to the PMS, then records the checked-in marker and publishes the
// completion event. Marker and event failures are logged, never surfaced:
// the check-in itself already succeeded.
func (s *frontDeskService) SubmitCheckIn(ctx context.Context, sub *checkin.Submission) error {
	if err := s.submitter.SubmitCheckIn(ctx, sub); err != nil {
		return err
	}

	now := time.Now().UTC()

	if err := s.source.MarkCheckedIn(ctx, sub.BookingID, now); err != nil {
		logger.ErrorContext(ctx, "Failed to record checked-in marker", "error", err, "booking_id", sub.BookingID)
	}

	event := events.CheckInCompletedEvent{
		BookingID:        sub.BookingID,
		PrimaryGuestName: sub.PrimaryGuestName,
		NumberOfGuests:   sub.NumberOfGuests,
		CompletedAt:      now,
	}
	if err := s.eventBus.Publish(ctx, events.CheckInCompleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in completed event", "error", err, "booking_id", sub.BookingID)
	}

	logger.InfoContext(ctx, "Check-in completed",
		"booking_id", sub.BookingID,
		"guests", sub.NumberOfGuests,
	)

	return nil
}
