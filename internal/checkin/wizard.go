package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/diagnosis/frontdesk/internal/domain"
)

type Step string

const (
	StepBookingEntry Step = "booking_entry"
	StepGuestRoster  Step = "guest_roster"
)

// Submission is the payload handed to the external check-in collaborator
// once every guest is verified.
type Submission struct {
	BookingID        string        `json:"booking_id"`
	PrimaryGuestName string        `json:"primary_guest_name"`
	NumberOfGuests   int           `json:"number_of_guests"`
	Guests           []GuestRecord `json:"guest_details"`
}

// Submitter is the external check-in collaborator. Any rejection is opaque
// to the wizard and surfaced to the operator without retry.
type Submitter interface {
	SubmitCheckIn(ctx context.Context, sub *Submission) error
}

// Wizard drives the two-step check-in flow for one booking. Instances are
// independent; two wizards never share state. A single instance is safe for
// concurrent use, and submission is single-flight.
type Wizard struct {
	mu         sync.Mutex
	step       Step
	bookingID  string
	guestName  string
	guestCount int
	roster     *Roster
	submitting bool
	submitter  Submitter
}

func NewWizard(submitter Submitter) *Wizard {
	return &Wizard{
		step:      StepBookingEntry,
		submitter: submitter,
	}
}

// State is a point-in-time view of the wizard for the presentation layer.
type State struct {
	Step             Step          `json:"step"`
	BookingID        string        `json:"booking_id,omitempty"`
	PrimaryGuestName string        `json:"primary_guest_name,omitempty"`
	NumberOfGuests   int           `json:"number_of_guests,omitempty"`
	Guests           []GuestRecord `json:"guests,omitempty"`
	AllVerified      bool          `json:"all_verified"`
	Submitting       bool          `json:"submitting"`
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := State{
		Step:             w.step,
		BookingID:        w.bookingID,
		PrimaryGuestName: w.guestName,
		NumberOfGuests:   w.guestCount,
		Submitting:       w.submitting,
	}
	if w.roster != nil {
		s.Guests = w.roster.Guests()
		s.AllVerified = w.roster.AllVerified()
	}
	return s
}

// Begin moves from booking entry to the roster step, materializing a fresh
// roster of exactly guestCount records with guest #1 pre-seeded.
func (w *Wizard) Begin(bookingID, guestName string, guestCount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepBookingEntry {
		return fmt.Errorf("%w: check-in already in progress for booking %s", domain.ErrPreconditionFailed, w.bookingID)
	}

	bookingID = strings.TrimSpace(bookingID)
	guestName = strings.TrimSpace(guestName)

	if bookingID == "" {
		return fmt.Errorf("%w: booking id is required", domain.ErrPreconditionFailed)
	}
	if guestName == "" {
		return fmt.Errorf("%w: guest name is required", domain.ErrPreconditionFailed)
	}

	roster, err := NewRoster(guestCount, guestName)
	if err != nil {
		return err
	}

	w.bookingID = bookingID
	w.guestName = guestName
	w.guestCount = guestCount
	w.roster = roster
	w.step = StepGuestRoster

	return nil
}

// Back discards the roster entirely and returns to booking entry. Re-entering
// the roster step rebuilds it from scratch; no partial state carries over.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return domain.ErrSubmissionInFlight
	}

	w.reset()
	return nil
}

func (w *Wizard) SetGuestName(pos int, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	roster, err := w.requireRoster()
	if err != nil {
		return err
	}
	return roster.SetName(pos, name)
}

func (w *Wizard) SetGuestMobile(pos int, mobile string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	roster, err := w.requireRoster()
	if err != nil {
		return err
	}
	return roster.SetMobile(pos, mobile)
}

func (w *Wizard) VerifyGuest(pos int, origin VerifyOrigin) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	roster, err := w.requireRoster()
	if err != nil {
		return err
	}
	return roster.Verify(pos, origin)
}

func (w *Wizard) AllGuestsComplete() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.roster != nil && w.roster.AllVerified()
}

// Submit hands the finished roster to the external collaborator. Only one
// submission may be in flight per wizard; concurrent duplicates are rejected,
// not queued. On success the wizard resets to booking entry; on failure all
// entered data stays intact so the operator can retry.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()

	if w.step != StepGuestRoster {
		w.mu.Unlock()
		return fmt.Errorf("%w: nothing to submit, no roster in progress", domain.ErrPreconditionFailed)
	}
	if w.submitting {
		w.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	if !w.roster.AllVerified() {
		w.mu.Unlock()
		return fmt.Errorf("%w: not every guest is verified yet", domain.ErrPreconditionFailed)
	}

	sub := &Submission{
		BookingID:        w.bookingID,
		PrimaryGuestName: w.guestName,
		NumberOfGuests:   w.guestCount,
		Guests:           w.roster.Guests(),
	}
	w.submitting = true
	w.mu.Unlock()

	// Cleared on every path, panics included, so the gate cannot stick open.
	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	if err := w.submitter.SubmitCheckIn(ctx, sub); err != nil {
		if domain.IsSubmissionError(err) != nil {
			return err
		}
		return domain.NewSubmissionError(err.Error())
	}

	w.mu.Lock()
	w.reset()
	w.mu.Unlock()

	return nil
}

func (w *Wizard) requireRoster() (*Roster, error) {
	if w.step != StepGuestRoster || w.roster == nil {
		return nil, fmt.Errorf("%w: no roster in progress", domain.ErrPreconditionFailed)
	}
	return w.roster, nil
}

func (w *Wizard) reset() {
	w.step = StepBookingEntry
	w.bookingID = ""
	w.guestName = ""
	w.guestCount = 0
	w.roster = nil
}
