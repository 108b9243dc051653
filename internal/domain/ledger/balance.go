package ledger

import "github.com/google/uuid"

// Balance is the state of a parent derived from its offered quantity and its children.
//
// Remaining is offered minus approved children, floored at zero, and is what the ledger shows.
// Available additionally holds back pending claims and is what a new reservation may take,
// so two pending reservations can never both be admitted against the same units.
type Balance struct {
	Offered   Quantity
	Approved  Quantity
	Pending   Quantity
	Remaining Quantity
	Available Quantity
	Overdrawn bool
}

// ComputeBalance derives the balance of a parent. Only approved children reduce Remaining;
// pending children are summed separately; rejected and resubmitted children are ignored.
func ComputeBalance(offered Quantity, children []*Reservation) Balance {
	b := Balance{Offered: offered}
	for _, c := range children {
		switch {
		case c.Status.CountsAgainstParent():
			b.Approved = b.Approved.Add(c.Reserved)
		case c.Status.HoldsClaim():
			b.Pending = b.Pending.Add(c.Reserved)
		}
	}

	net := offered.Sub(b.Approved)
	b.Overdrawn = net.IsNegative()
	b.Remaining = net.FloorZero()
	b.Available = b.Remaining.Sub(b.Pending).FloorZero()
	return b
}

// RemainingBalance returns offered minus approved children, floored at zero
func RemainingBalance(offered Quantity, children []*Reservation) Quantity {
	return ComputeBalance(offered, children).Remaining
}

// ExcludingReservation drops one reservation from a child list, used when a
// reservation is resized against its own parent
func ExcludingReservation(children []*Reservation, id uuid.UUID) []*Reservation {
	out := make([]*Reservation, 0, len(children))
	for _, c := range children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
