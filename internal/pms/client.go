// Package pms talks to the property-management system. It is both the
// check-in submission collaborator and an alternative booking source for
// desks that run without a local database.
package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/diagnosis/frontdesk/internal/checkin"
	"github.com/diagnosis/frontdesk/internal/domain"
	"github.com/diagnosis/frontdesk/pkg/logger"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type listParams struct {
	Limit  int `url:"limit,omitempty"`
	Offset int `url:"offset,omitempty"`
}

func (c *Client) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	params, err := query.Values(listParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("encode booking list params: %w", err)
	}

	url := c.baseURL + "/bookings"
	if encoded := params.Encode(); encoded != "" {
		url += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list bookings from PMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list bookings from PMS: %s", rejectionReason(resp))
	}

	var bookings []domain.Booking
	if err := json.NewDecoder(resp.Body).Decode(&bookings); err != nil {
		return nil, fmt.Errorf("decode booking list from PMS: %w", err)
	}
	return bookings, nil
}

func (c *Client) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bookings/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get booking %s from PMS: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get booking %s from PMS: %s", id, rejectionReason(resp))
	}

	var b domain.Booking
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode booking from PMS: %w", err)
	}
	return &b, nil
}

// MarkCheckedIn is a no-op here; submitting the check-in already records it
// on the PMS side.
func (c *Client) MarkCheckedIn(ctx context.Context, id string, _ time.Time) error {
	logger.DebugContext(ctx, "PMS source owns the checked-in marker, skipping local update", "booking_id", id)
	return nil
}

// SubmitCheckIn posts the finished roster. Any rejection comes back as a
// SubmissionError carrying the PMS reason verbatim.
func (c *Client) SubmitCheckIn(ctx context.Context, sub *checkin.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal check-in submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkins", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewSubmissionError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewSubmissionError(rejectionReason(resp))
	}

	return nil
}

func rejectionReason(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return resp.Status
}
