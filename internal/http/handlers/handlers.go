package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/frontdesk/internal/checkin"
	"github.com/diagnosis/frontdesk/internal/domain"
	"github.com/diagnosis/frontdesk/internal/http/response"
	"github.com/diagnosis/frontdesk/internal/query"
	"github.com/diagnosis/frontdesk/internal/service"
	"github.com/diagnosis/frontdesk/pkg/logger"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	frontDesk service.FrontDeskService
}

func New(frontDesk service.FrontDeskService) *Handlers {
	return &Handlers{frontDesk: frontDesk}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", h.ListBookings)
		r.Get("/{id}", h.GetBooking)
	})

	r.Route("/checkin/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/roster", h.BeginRoster)
			r.Delete("/roster", h.DiscardRoster)
			r.Patch("/guests/{pos}", h.UpdateGuest)
			r.Post("/guests/{pos}/verify", h.VerifyGuest)
			r.Post("/submit", h.Submit)
		})
	})
}

// GET /bookings
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	q := r.URL.Query()

	status, ok := query.ParseStatusFilter(q.Get("status"))
	if !ok {
		response.BadRequest(w, "status must be one of any, checked_in, not_checked_in")
		return
	}

	dateFilter, err := parseDateFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error(), response.CodeInvalidFilter)
		return
	}

	input := service.ListBookingsInput{
		Limit:  limit,
		Offset: offset,
		Text: query.TextFilters{
			Name:      q.Get("name"),
			FirstName: q.Get("first_name"),
			LastName:  q.Get("last_name"),
			Phone:     q.Get("phone"),
			Channel:   q.Get("channel"),
		},
		Status: status,
		Date:   dateFilter,
	}

	bookings, err := h.frontDesk.ListBookings(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			response.WriteError(w, http.StatusBadRequest, err.Error(), response.CodeInvalidFilter)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err)
		response.InternalError(w, "failed to list bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GET /bookings/{id}
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	booking, err := h.frontDesk.GetBooking(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get booking", "error", err, "booking_id", id)
		response.InternalError(w, "failed to get booking")
		return
	}
	if booking == nil {
		response.NotFound(w, "booking not found")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// POST /checkin/sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, wizard, err := h.frontDesk.CreateSession(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create check-in session", "error", err)
		response.InternalError(w, "failed to create check-in session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"state":      wizard.State(),
	})
}

// GET /checkin/sessions/{sessionID}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

// DELETE /checkin/sessions/{sessionID}
func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.frontDesk.CloseSession(chi.URLParam(r, "sessionID")); err != nil {
		response.NotFound(w, "check-in session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type beginRosterRequest struct {
	BookingID  string      `json:"booking_id"`
	GuestName  string      `json:"guest_name"`
	GuestCount json.Number `json:"guest_count"`
}

// POST /checkin/sessions/{sessionID}/roster
func (h *Handlers) BeginRoster(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	var req beginRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	// Non-numeric or non-positive guest counts block the transition.
	count, err := req.GuestCount.Int64()
	if err != nil || count <= 0 {
		response.BadRequest(w, "guest_count must be a positive integer")
		return
	}

	if err := wizard.Begin(req.BookingID, req.GuestName, int(count)); err != nil {
		writeWizardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

// DELETE /checkin/sessions/{sessionID}/roster
func (h *Handlers) DiscardRoster(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := wizard.Back(); err != nil {
		writeWizardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

type updateGuestRequest struct {
	Name   *string `json:"name,omitempty"`
	Mobile *string `json:"mobile,omitempty"`
}

// PATCH /checkin/sessions/{sessionID}/guests/{pos}
func (h *Handlers) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	pos, ok := parsePosition(w, r)
	if !ok {
		return
	}

	var req updateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if req.Name != nil {
		if err := wizard.SetGuestName(pos, *req.Name); err != nil {
			writeWizardError(w, err)
			return
		}
	}
	if req.Mobile != nil {
		if err := wizard.SetGuestMobile(pos, *req.Mobile); err != nil {
			writeWizardError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

type verifyGuestRequest struct {
	Origin string `json:"origin,omitempty"`
}

// POST /checkin/sessions/{sessionID}/guests/{pos}/verify
func (h *Handlers) VerifyGuest(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	pos, ok := parsePosition(w, r)
	if !ok {
		return
	}

	var req verifyGuestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}
	}

	origin := checkin.OriginManual
	switch req.Origin {
	case "", string(checkin.OriginManual):
	case string(checkin.OriginAuto):
		origin = checkin.OriginAuto
	default:
		response.BadRequest(w, "origin must be auto or manual")
		return
	}

	if err := wizard.VerifyGuest(pos, origin); err != nil {
		writeWizardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

// POST /checkin/sessions/{sessionID}/submit
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := wizard.Submit(r.Context()); err != nil {
		writeWizardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wizard.State())
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*checkin.Wizard, bool) {
	wizard, err := h.frontDesk.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.NotFound(w, "check-in session not found")
		return nil, false
	}
	return wizard, true
}

func writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOutOfRange):
		response.WriteError(w, http.StatusBadRequest, err.Error(), response.CodeOutOfRange)
	case errors.Is(err, domain.ErrPreconditionFailed):
		response.Conflict(w, err.Error(), response.CodePreconditionFailed)
	case errors.Is(err, domain.ErrSubmissionInFlight):
		response.Conflict(w, err.Error(), response.CodeSubmissionInFlight)
	default:
		if se := domain.IsSubmissionError(err); se != nil {
			response.WriteError(w, http.StatusBadGateway, se.Reason, response.CodeSubmissionRejected)
			return
		}
		response.InternalError(w, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 100
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parsePosition(w http.ResponseWriter, r *http.Request) (int, bool) {
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil {
		response.BadRequest(w, "guest position must be an integer")
		return 0, false
	}
	return pos, true
}

// parseDateFilter translates the console's date filter params into a
// DateFilter. The UI never re-implements comparison logic; it only names an
// op and its operands.
func parseDateFilter(r *http.Request) (*domain.DateFilter, error) {
	q := r.URL.Query()

	opParam := q.Get("date_op")
	if opParam == "" {
		return nil, nil
	}

	op, ok := domain.ParseDateFilterOp(opParam)
	if !ok {
		return nil, errors.New("unknown date_op " + strconv.Quote(opParam))
	}

	switch op {
	case domain.FilterInLast:
		count, err := strconv.Atoi(q.Get("last_count"))
		if err != nil {
			return nil, errors.New("last_count must be an integer")
		}
		unit, ok := domain.ParseRelativeUnit(q.Get("last_unit"))
		if !ok {
			return nil, errors.New("last_unit must be days or months")
		}
		return domain.NewInLast(count, unit)
	case domain.FilterBetween:
		from, err := time.Parse(dateLayout, q.Get("date_from"))
		if err != nil {
			return nil, errors.New("date_from must be YYYY-MM-DD")
		}
		to, err := time.Parse(dateLayout, q.Get("date_to"))
		if err != nil {
			return nil, errors.New("date_to must be YYYY-MM-DD")
		}
		return domain.NewBetween(from, to)
	default:
		date, err := time.Parse(dateLayout, q.Get("date"))
		if err != nil {
			return nil, errors.New("date must be YYYY-MM-DD")
		}
		f := &domain.DateFilter{Op: op, Date: date}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return f, nil
	}
}
