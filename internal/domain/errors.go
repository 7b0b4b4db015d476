package domain

import (
	"errors"
	"fmt"
)

// Local validation errors. These indicate caller mistakes and are never
// forwarded to the PMS or any other external collaborator.
var (
	// ErrInvalidFilter marks a malformed date filter, e.g. a between range
	// whose lower bound is after its upper bound.
	ErrInvalidFilter = errors.New("invalid date filter")

	// ErrPreconditionFailed marks a verification action attempted on a
	// guest row that is not complete yet.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrOutOfRange marks a guest position outside the roster bounds.
	ErrOutOfRange = errors.New("guest position out of range")

	// ErrSubmissionInFlight marks a duplicate submit while an earlier one
	// for the same check-in session is still pending.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// SubmissionError is the only error class surfaced to the operator. The
// reason comes verbatim from the external collaborator; the core never
// retries on its own.
type SubmissionError struct {
	Reason string
}

func NewSubmissionError(reason string) *SubmissionError {
	return &SubmissionError{Reason: reason}
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("check-in submission rejected: %s", e.Reason)
}

func IsSubmissionError(err error) *SubmissionError {
	if err == nil {
		return nil
	}

	var submissionError *SubmissionError

	if errors.As(err, &submissionError) {
		return submissionError
	}

	return nil
}
