package ledger

import (
	"fmt"
	"slices"
)

// Kind identifies one of the four record kinds in the allocation cascade
type Kind string

const (
	KindInwardLot       Kind = "inward_lot"
	KindReleaseOrder    Kind = "release_order"
	KindDeliveryOrder   Kind = "delivery_order"
	KindOutwardMovement Kind = "outward_movement"
)

var codePrefixes = map[Kind]string{
	KindInwardLot:       "INW",
	KindReleaseOrder:    "RO",
	KindDeliveryOrder:   "DO",
	KindOutwardMovement: "OUT",
}

// ParseKind converts a wire value into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", NewInvalidKindError(s)
	}
	return k, nil
}

// IsValid returns true for the four known kinds
func (k Kind) IsValid() bool {
	_, ok := codePrefixes[k]
	return ok
}

// IsReservation returns true for kinds that reserve against a parent
func (k Kind) IsReservation() bool {
	return k == KindReleaseOrder || k == KindDeliveryOrder || k == KindOutwardMovement
}

// CodePrefix returns the human code prefix, e.g. "RO"
func (k Kind) CodePrefix() string {
	return codePrefixes[k]
}

// FormatCode renders the sequential human code for a kind, e.g. RO-0001
func (k Kind) FormatCode(seq int64) string {
	return fmt.Sprintf("%s-%04d", k.CodePrefix(), seq)
}

// ParentKinds lists the kinds a reservation of this kind may reserve against.
// Delivery orders accept direct-issue inward lots in addition to release orders.
func (k Kind) ParentKinds() []Kind {
	switch k {
	case KindReleaseOrder:
		return []Kind{KindInwardLot}
	case KindDeliveryOrder:
		return []Kind{KindReleaseOrder, KindInwardLot}
	case KindOutwardMovement:
		return []Kind{KindDeliveryOrder}
	default:
		return nil
	}
}

// AcceptsParent checks that the offer may act as a parent for a child of kind k
func (k Kind) AcceptsParent(offer ParentOffer) error {
	if !slices.Contains(k.ParentKinds(), offer.Kind) {
		return NewInvalidParentKindError(k, offer.Kind)
	}
	if k == KindDeliveryOrder && offer.Kind == KindInwardLot && offer.IssueMode != IssueModeDirect {
		return NewInvalidParentKindError(k, offer.Kind).
			WithDetail("reason", "inward lot is not flagged for direct issue")
	}
	return nil
}

// ChildKinds is the inverse of ParentKinds
func (k Kind) ChildKinds() []Kind {
	var out []Kind
	for _, child := range []Kind{KindReleaseOrder, KindDeliveryOrder, KindOutwardMovement} {
		if slices.Contains(child.ParentKinds(), k) {
			out = append(out, child)
		}
	}
	return out
}
