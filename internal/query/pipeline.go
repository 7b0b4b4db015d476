package query

import (
	"strings"
	"time"
	"unicode"

	"github.com/diagnosis/frontdesk/internal/domain"
)

// StatusFilter is the three-way checked-in filter. Exactly one value is
// active at a time.
type StatusFilter string

const (
	StatusAny          StatusFilter = "any"
	StatusCheckedIn    StatusFilter = "checked_in"
	StatusNotCheckedIn StatusFilter = "not_checked_in"
)

func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case StatusAny, StatusCheckedIn, StatusNotCheckedIn:
		return StatusFilter(s), true
	case "":
		return StatusAny, true
	default:
		return "", false
	}
}

// TextFilters are independent case-insensitive substring predicates. Empty
// values pass everything through.
type TextFilters struct {
	Name      string
	FirstName string
	LastName  string
	Phone     string
	Channel   string
}

// Filter projects bookings into the view satisfying every active predicate.
// Row order is preserved and the source slice is never mutated. Rows with
// missing optional fields fail the corresponding predicate instead of
// erroring; a malformed date filter errors up front.
func Filter(bookings []domain.Booking, text TextFilters, status StatusFilter, date *domain.DateFilter, today time.Time) ([]domain.Booking, error) {
	if date != nil {
		if err := date.Validate(); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Booking, 0, len(bookings))

	for _, b := range bookings {
		if !matchesText(&b, text) {
			continue
		}
		if !matchesStatus(&b, status) {
			continue
		}
		if date != nil {
			ok, err := date.Matches(b.TargetDate, today)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, b)
	}

	return out, nil
}

func matchesText(b *domain.Booking, f TextFilters) bool {
	// The name filter spans the display name and both name parts, matching
	// how operators search ("sha" should find "Hafiz Shaikh" whichever
	// field holds it).
	if f.Name != "" &&
		!containsFold(b.GuestName, f.Name) &&
		!containsFold(b.FirstName, f.Name) &&
		!containsFold(b.LastName, f.Name) {
		return false
	}
	if f.FirstName != "" && !containsFold(b.FirstName, f.FirstName) {
		return false
	}
	if f.LastName != "" && !containsFold(b.LastName, f.LastName) {
		return false
	}
	if f.Phone != "" && !strings.Contains(digitsOf(b.Phone), digitsOf(f.Phone)) {
		return false
	}
	if f.Channel != "" && !containsFold(string(b.Channel), f.Channel) {
		return false
	}
	return true
}

func matchesStatus(b *domain.Booking, status StatusFilter) bool {
	switch status {
	case StatusCheckedIn:
		return b.CheckedIn
	case StatusNotCheckedIn:
		return !b.CheckedIn
	default:
		return true
	}
}

func containsFold(haystack, needle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// digitsOf keeps only digits so formatting differences never hide a match.
// An empty result never matches a non-empty filter.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
