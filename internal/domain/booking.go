package domain

import "time"

type Channel string

const (
	ChannelOTA       Channel = "ota"
	ChannelDirect    Channel = "direct"
	ChannelWalkIn    Channel = "walk_in"
	ChannelCorporate Channel = "corporate"
)

// Booking is one reservation as returned by the booking data source.
// Records are immutable once fetched; filtering only produces derived views.
type Booking struct {
	ID          string     `json:"id"`
	GuestName   string     `json:"guest_name"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	Channel     Channel    `json:"channel"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Adults      int        `json:"adults"`
	Children    int        `json:"children"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TotalGuests is the declared party size used to seed a check-in roster.
func (b *Booking) TotalGuests() int {
	return b.Adults + b.Children
}
