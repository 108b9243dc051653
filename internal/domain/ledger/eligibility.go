package ledger

// OfferReason explains why a parent is offered for new reservations
type OfferReason string

const (
	OfferReasonNone               OfferReason = ""
	OfferReasonBalanceAvailable   OfferReason = "balance_available"
	OfferReasonRejectedChild      OfferReason = "rejected_child"
	OfferReasonDownstreamRejected OfferReason = "downstream_rejected"
)

// Eligibility is the outcome of the offerability check for one parent
type Eligibility struct {
	Offerable bool
	Reason    OfferReason
}

// Evaluate decides whether a parent should be selectable for a new child reservation.
//
// A parent with remaining units is offered. A parent with no remaining units is still
// offered when one of its children, or one of their children, was rejected, so the
// failed chain can be redone from the same selector. This re-offer never expires.
func Evaluate(balance Balance, children []*Reservation, downstreamRejected bool) Eligibility {
	if balance.Remaining.Primary.IsPositive() {
		return Eligibility{Offerable: true, Reason: OfferReasonBalanceAvailable}
	}
	for _, c := range children {
		if c.Status == StatusRejected {
			return Eligibility{Offerable: true, Reason: OfferReasonRejectedChild}
		}
	}
	if downstreamRejected {
		return Eligibility{Offerable: true, Reason: OfferReasonDownstreamRejected}
	}
	return Eligibility{}
}

// IsOfferable is Evaluate without the reason
func IsOfferable(balance Balance, children []*Reservation, downstreamRejected bool) bool {
	return Evaluate(balance, children, downstreamRejected).Offerable
}
