package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ParentRef is the typed link from a reservation to the record it reserves against.
// NaturalKey and Code are denormalized for display only; lookups always use Kind and ID.
type ParentRef struct {
	Kind       Kind
	ID         uuid.UUID
	Code       string
	NaturalKey string
}

// LockKey returns the mutual-exclusion key for reservations against this parent
func (p ParentRef) LockKey() string {
	return "ledger:parent:" + string(p.Kind) + ":" + p.ID.String()
}

// ParentOffer is the uniform shape every parent exposes to the allocation service,
// whether it is an inward lot or an approved reservation.
type ParentOffer struct {
	Kind       Kind
	ID         uuid.UUID
	Code       string
	NaturalKey string
	Offered    Quantity
	IssueMode  IssueMode
	CreatedAt  time.Time
}

// Ref returns the typed reference children store
func (o ParentOffer) Ref() ParentRef {
	return ParentRef{Kind: o.Kind, ID: o.ID, Code: o.Code, NaturalKey: o.NaturalKey}
}

// ChildNaturalKey is the natural key a child of this parent carries.
// Outward movements are keyed by their delivery order's code.
func (o ParentOffer) ChildNaturalKey(child Kind) string {
	if child == KindOutwardMovement {
		return o.Code
	}
	return o.NaturalKey
}
