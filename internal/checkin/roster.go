package checkin

import (
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/frontdesk/internal/domain"
)

// VerifyOrigin is an audit label only. System-initiated and operator-initiated
// verification have the identical effect.
type VerifyOrigin string

const (
	OriginAuto   VerifyOrigin = "auto"
	OriginManual VerifyOrigin = "manual"
)

// GuestRecord tracks one guest through the verification lifecycle. Positions
// are 1-based and stable for the lifetime of the roster.
type GuestRecord struct {
	Position          int          `json:"position"`
	Name              string       `json:"name"`
	Mobile            string       `json:"mobile"`
	IdentityVerified  bool         `json:"identity_verified"`
	BiometricVerified bool         `json:"biometric_verified"`
	VerifiedVia       VerifyOrigin `json:"verified_via,omitempty"`
	VerifiedAt        *time.Time   `json:"verified_at,omitempty"`
}

// RowComplete reports whether name and mobile are both filled in.
func (g *GuestRecord) RowComplete() bool {
	return strings.TrimSpace(g.Name) != "" && strings.TrimSpace(g.Mobile) != ""
}

// Verified reports whether the guest finished the whole lifecycle: complete
// row, identity derived, biometric stamped.
func (g *GuestRecord) Verified() bool {
	return g.RowComplete() && g.IdentityVerified && g.BiometricVerified && g.VerifiedAt != nil
}

// Roster is the per-guest record list materialized for one check-in run.
// It is created when the wizard enters the roster step, sized to the declared
// guest count, and discarded wholesale on reset. Identity verification is
// re-derived from row completeness after every edit, so it can never go
// stale; biometric verification only ever moves forward.
type Roster struct {
	guests []GuestRecord
}

func NewRoster(count int, primaryGuestName string) (*Roster, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: guest count must be positive, got %d", domain.ErrPreconditionFailed, count)
	}

	guests := make([]GuestRecord, count)
	for i := range guests {
		guests[i].Position = i + 1
	}
	guests[0].Name = strings.TrimSpace(primaryGuestName)

	return &Roster{guests: guests}, nil
}

func (r *Roster) Size() int {
	return len(r.guests)
}

// Guest returns a copy of the record at pos.
func (r *Roster) Guest(pos int) (GuestRecord, error) {
	g, err := r.at(pos)
	if err != nil {
		return GuestRecord{}, err
	}
	return *g, nil
}

// Guests returns a copy of all records in position order.
func (r *Roster) Guests() []GuestRecord {
	out := make([]GuestRecord, len(r.guests))
	copy(out, r.guests)
	return out
}

func (r *Roster) SetName(pos int, name string) error {
	g, err := r.at(pos)
	if err != nil {
		return err
	}

	g.Name = name
	r.deriveIdentity(g)
	return nil
}

func (r *Roster) SetMobile(pos int, mobile string) error {
	g, err := r.at(pos)
	if err != nil {
		return err
	}

	g.Mobile = mobile
	r.deriveIdentity(g)
	return nil
}

// Verify stamps biometric verification on the guest at pos. The action is
// rejected on an incomplete row and is a no-op when the guest was already
// verified, which guards against double submission of the same action.
func (r *Roster) Verify(pos int, origin VerifyOrigin) error {
	g, err := r.at(pos)
	if err != nil {
		return err
	}

	if g.BiometricVerified {
		return nil
	}

	if !g.RowComplete() {
		return fmt.Errorf("%w: guest %d needs name and mobile before verification", domain.ErrPreconditionFailed, pos)
	}

	now := time.Now().UTC()
	g.BiometricVerified = true
	g.VerifiedVia = origin
	g.VerifiedAt = &now

	return nil
}

// AllVerified reports whether every guest finished verification. It is cheap
// and re-run on every roster change.
func (r *Roster) AllVerified() bool {
	for i := range r.guests {
		if !r.guests[i].Verified() {
			return false
		}
	}
	return true
}

func (r *Roster) at(pos int) (*GuestRecord, error) {
	if pos < 1 || pos > len(r.guests) {
		return nil, fmt.Errorf("%w: position %d, roster size %d", domain.ErrOutOfRange, pos, len(r.guests))
	}
	return &r.guests[pos-1], nil
}

// deriveIdentity recomputes the identity flag from current field values.
// Clearing a field un-verifies identity immediately, even if it was set
// before; the flag is a pure function of the row, never cached state.
func (r *Roster) deriveIdentity(g *GuestRecord) {
	g.IdentityVerified = g.RowComplete()
}
