package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/frontdesk/internal/checkin"
	"github.com/diagnosis/frontdesk/internal/domain"
	"github.com/diagnosis/frontdesk/internal/http/handlers"
	"github.com/diagnosis/frontdesk/internal/service"
	"github.com/diagnosis/frontdesk/pkg/events"
)

// ---------- Mocks ----------

type mockSource struct {
	mu        sync.Mutex
	bookings  []domain.Booking
	checkedIn map[string]time.Time
}

func newMockSource(bookings []domain.Booking) *mockSource {
	return &mockSource{
		bookings:  bookings,
		checkedIn: make(map[string]time.Time),
	}
}

func (m *mockSource) List(_ context.Context, _, _ int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Booking, len(m.bookings))
	copy(out, m.bookings)
	return out, nil
}

func (m *mockSource) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (m *mockSource) MarkCheckedIn(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkedIn[id] = at
	return nil
}

type mockSubmitter struct {
	mu    sync.Mutex
	calls int
	last  *checkin.Submission
	err   error
}

func (m *mockSubmitter) SubmitCheckIn(_ context.Context, sub *checkin.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = sub
	return m.err
}

// ---------- Helpers ----------

func setupServer(t *testing.T, source *mockSource, submitter *mockSubmitter) *httptest.Server {
	t.Helper()

	frontDesk := service.New(source, submitter, events.NewNopEventBus())
	h := handlers.New(frontDesk)

	r := chi.NewRouter()
	r.Route("/", func(r chi.Router) {
		h.Routes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}

	var decoded map[string]interface{}
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	resp.Body.Close()
	return resp, decoded
}

func sampleBookings() []domain.Booking {
	target := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	return []domain.Booking{
		{ID: "BK-1", GuestName: "Hafiz Shaikh", FirstName: "Hafiz", LastName: "Shaikh", Phone: "9876543210", Channel: domain.ChannelOTA, TargetDate: &target, Adults: 2},
		{ID: "BK-2", GuestName: "Ayaan Khan", FirstName: "Ayaan", LastName: "Khan", Phone: "9123456789", Channel: domain.ChannelDirect, Adults: 1},
	}
}

// ---------- Tests ----------

func TestListBookingsWithNameFilter(t *testing.T) {
	srv := setupServer(t, newMockSource(sampleBookings()), &mockSubmitter{})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/bookings?name=sha", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if count, _ := body["count"].(float64); count != 1 {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestListBookingsRejectsInvalidDateFilter(t *testing.T) {
	srv := setupServer(t, newMockSource(sampleBookings()), &mockSubmitter{})

	url := srv.URL + "/bookings?date_op=between&date_from=2025-02-01&date_to=2025-01-01"
	resp, body := doJSON(t, http.MethodGet, url, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "INVALID_FILTER" {
		t.Errorf("code = %v, want INVALID_FILTER", body["code"])
	}
}

func TestGetBookingNotFound(t *testing.T) {
	srv := setupServer(t, newMockSource(sampleBookings()), &mockSubmitter{})

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/bookings/BK-404", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCheckInFlowOverHTTP(t *testing.T) {
	source := newMockSource(sampleBookings())
	submitter := &mockSubmitter{}
	srv := setupServer(t, source, submitter)

	// Open a session.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/checkin/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", resp.StatusCode)
	}
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" {
		t.Fatal("missing session_id")
	}
	base := srv.URL + "/checkin/sessions/" + sessionID

	// Step 1 -> step 2.
	resp, body = doJSON(t, http.MethodPost, base+"/roster", map[string]interface{}{
		"booking_id":  "BK-1",
		"guest_name":  "Hafiz Shaikh",
		"guest_count": 2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("begin roster status = %d, want 200: %v", resp.StatusCode, body)
	}

	// Fill and verify both guests.
	for pos := 1; pos <= 2; pos++ {
		patch := map[string]interface{}{"mobile": fmt.Sprintf("900000000%d", pos)}
		if pos > 1 {
			patch["name"] = "Second Guest"
		}
		resp, body = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/guests/%d", base, pos), patch)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("patch guest %d status = %d: %v", pos, resp.StatusCode, body)
		}

		resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/guests/%d/verify", base, pos), map[string]interface{}{"origin": "manual"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("verify guest %d status = %d: %v", pos, resp.StatusCode, body)
		}
	}

	if allVerified, _ := body["all_verified"].(bool); !allVerified {
		t.Fatal("state should report all guests verified")
	}

	// Submit.
	resp, body = doJSON(t, http.MethodPost, base+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d: %v", resp.StatusCode, body)
	}
	if step, _ := body["step"].(string); step != string(checkin.StepBookingEntry) {
		t.Errorf("step after submit = %q, want booking_entry", step)
	}

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	if submitter.calls != 1 {
		t.Fatalf("submitter calls = %d, want 1", submitter.calls)
	}
	if submitter.last.BookingID != "BK-1" || submitter.last.NumberOfGuests != 2 {
		t.Errorf("submission payload = %+v", submitter.last)
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	if _, ok := source.checkedIn["BK-1"]; !ok {
		t.Error("booking was not marked checked in after submission")
	}
}

func TestBeginRosterRejectsNonNumericGuestCount(t *testing.T) {
	srv := setupServer(t, newMockSource(sampleBookings()), &mockSubmitter{})

	_, body := doJSON(t, http.MethodPost, srv.URL+"/checkin/sessions", nil)
	base := srv.URL + "/checkin/sessions/" + body["session_id"].(string)

	for _, count := range []interface{}{"two", 0, -1} {
		resp, _ := doJSON(t, http.MethodPost, base+"/roster", map[string]interface{}{
			"booking_id":  "BK-1",
			"guest_name":  "Hafiz Shaikh",
			"guest_count": count,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("guest_count=%v status = %d, want 400", count, resp.StatusCode)
		}
	}
}

func TestVerifyIncompleteGuestConflicts(t *testing.T) {
	srv := setupServer(t, newMockSource(sampleBookings()), &mockSubmitter{})

	_, body := doJSON(t, http.MethodPost, srv.URL+"/checkin/sessions", nil)
	base := srv.URL + "/checkin/sessions/" + body["session_id"].(string)

	doJSON(t, http.MethodPost, base+"/roster", map[string]interface{}{
		"booking_id":  "BK-1",
		"guest_name":  "Hafiz Shaikh",
		"guest_count": 2,
	})

	// Guest 2 is blank.
	resp, errBody := doJSON(t, http.MethodPost, base+"/guests/2/verify", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if errBody["code"] != "PRECONDITION_FAILED" {
		t.Errorf("code = %v, want PRECONDITION_FAILED", errBody["code"])
	}

	// Position outside the roster.
	resp, errBody = doJSON(t, http.MethodPost, base+"/guests/9/verify", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if errBody["code"] != "OUT_OF_RANGE" {
		t.Errorf("code = %v, want OUT_OF_RANGE", errBody["code"])
	}
}

func TestSubmissionRejectionSurfacesReason(t *testing.T) {
	submitter := &mockSubmitter{err: domain.NewSubmissionError("room not ready")}
	srv := setupServer(t, newMockSource(sampleBookings()), submitter)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/checkin/sessions", nil)
	base := srv.URL + "/checkin/sessions/" + body["session_id"].(string)

	doJSON(t, http.MethodPost, base+"/roster", map[string]interface{}{
		"booking_id":  "BK-1",
		"guest_name":  "Hafiz Shaikh",
		"guest_count": 1,
	})
	doJSON(t, http.MethodPatch, base+"/guests/1", map[string]interface{}{"mobile": "9000000001"})
	doJSON(t, http.MethodPost, base+"/guests/1/verify", nil)

	resp, errBody := doJSON(t, http.MethodPost, base+"/submit", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if errBody["error"] != "room not ready" {
		t.Errorf("error = %v, want the PMS reason verbatim", errBody["error"])
	}

	// State survives for retry.
	resp, state := doJSON(t, http.MethodGet, base+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session status = %d", resp.StatusCode)
	}
	if step, _ := state["step"].(string); step != string(checkin.StepGuestRoster) {
		t.Errorf("step = %q, want guest_roster", step)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	srv := setupServer(t, newMockSource(nil), &mockSubmitter{})

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/checkin/sessions/nope/", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
