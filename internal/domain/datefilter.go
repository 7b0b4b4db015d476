package domain

import (
	"fmt"
	"time"
)

// DateFilterOp selects the comparison mode of a DateFilter. Exactly one mode
// is active per filter.
type DateFilterOp string

const (
	FilterAfter      DateFilterOp = "after"
	FilterOnOrAfter  DateFilterOp = "on_or_after"
	FilterBefore     DateFilterOp = "before"
	FilterBeforeOrOn DateFilterOp = "before_or_on"
	FilterEqual      DateFilterOp = "equal"
	FilterInLast     DateFilterOp = "in_last"
	FilterBetween    DateFilterOp = "between"
)

func ParseDateFilterOp(s string) (DateFilterOp, bool) {
	switch DateFilterOp(s) {
	case FilterAfter, FilterOnOrAfter, FilterBefore, FilterBeforeOrOn, FilterEqual, FilterInLast, FilterBetween:
		return DateFilterOp(s), true
	default:
		return "", false
	}
}

type RelativeUnit string

const (
	UnitDays   RelativeUnit = "days"
	UnitMonths RelativeUnit = "months"
)

func ParseRelativeUnit(s string) (RelativeUnit, bool) {
	switch RelativeUnit(s) {
	case UnitDays, UnitMonths:
		return RelativeUnit(s), true
	default:
		return "", false
	}
}

// DateFilter is the serializable date condition evaluated against booking
// target dates. All comparisons happen at day granularity in UTC, so the
// same filter and reference day always produce the same result.
type DateFilter struct {
	Op    DateFilterOp `json:"op"`
	Date  time.Time    `json:"date,omitempty"`
	From  time.Time    `json:"from,omitempty"`
	To    time.Time    `json:"to,omitempty"`
	Count int          `json:"count,omitempty"`
	Unit  RelativeUnit `json:"unit,omitempty"`
}

func NewAfter(date time.Time) *DateFilter {
	return &DateFilter{Op: FilterAfter, Date: date}
}

func NewOnOrAfter(date time.Time) *DateFilter {
	return &DateFilter{Op: FilterOnOrAfter, Date: date}
}

func NewBefore(date time.Time) *DateFilter {
	return &DateFilter{Op: FilterBefore, Date: date}
}

func NewBeforeOrOn(date time.Time) *DateFilter {
	return &DateFilter{Op: FilterBeforeOrOn, Date: date}
}

func NewEqualTo(date time.Time) *DateFilter {
	return &DateFilter{Op: FilterEqual, Date: date}
}

func NewInLast(count int, unit RelativeUnit) (*DateFilter, error) {
	f := &DateFilter{Op: FilterInLast, Count: count, Unit: unit}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func NewBetween(from, to time.Time) (*DateFilter, error) {
	f := &DateFilter{Op: FilterBetween, From: from, To: to}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks structural soundness. It runs again inside Matches because
// filters can arrive deserialized rather than through the constructors.
func (f *DateFilter) Validate() error {
	switch f.Op {
	case FilterAfter, FilterOnOrAfter, FilterBefore, FilterBeforeOrOn, FilterEqual:
		if f.Date.IsZero() {
			return fmt.Errorf("%w: op %q requires a date", ErrInvalidFilter, f.Op)
		}
	case FilterInLast:
		if f.Count <= 0 {
			return fmt.Errorf("%w: in_last count must be positive, got %d", ErrInvalidFilter, f.Count)
		}
		if _, ok := ParseRelativeUnit(string(f.Unit)); !ok {
			return fmt.Errorf("%w: unknown relative unit %q", ErrInvalidFilter, f.Unit)
		}
	case FilterBetween:
		if f.From.IsZero() || f.To.IsZero() {
			return fmt.Errorf("%w: between requires both bounds", ErrInvalidFilter)
		}
		if dayOf(f.From).After(dayOf(f.To)) {
			return fmt.Errorf("%w: between lower bound %s is after upper bound %s",
				ErrInvalidFilter, f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
	}

	return nil
}

// Matches reports whether candidate satisfies the filter relative to today.
// A nil candidate never matches. The caller supplies today so evaluation is
// deterministic and testable without clock mocking.
func (f *DateFilter) Matches(candidate *time.Time, today time.Time) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}

	if candidate == nil {
		return false, nil
	}

	day := dayOf(*candidate)

	switch f.Op {
	case FilterAfter:
		return day.After(dayOf(f.Date)), nil
	case FilterOnOrAfter:
		return !day.Before(dayOf(f.Date)), nil
	case FilterBefore:
		return day.Before(dayOf(f.Date)), nil
	case FilterBeforeOrOn:
		return !day.After(dayOf(f.Date)), nil
	case FilterEqual:
		return day.Equal(dayOf(f.Date)), nil
	case FilterInLast:
		end := dayOf(today)
		var start time.Time
		switch f.Unit {
		case UnitDays:
			start = end.AddDate(0, 0, -f.Count)
		case UnitMonths:
			// Calendar months, not fixed 30-day blocks.
			start = end.AddDate(0, -f.Count, 0)
		}
		return !day.Before(start) && !day.After(end), nil
	case FilterBetween:
		return !day.Before(dayOf(f.From)) && !day.After(dayOf(f.To)), nil
	}

	return false, fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
}

// dayOf strips the time-of-day, pinning every comparison to UTC calendar
// days regardless of the zone the input carries.
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
