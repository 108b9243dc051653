package ledger

// AllocationPlan is the admitted quantity for a new or revised reservation
type AllocationPlan struct {
	Reserved Quantity
	// Adjusted is set when the last-unit rule replaced the requested secondary quantity
	Adjusted bool
	Balance  Balance
}

// PlanAllocation admits a requested quantity against a freshly computed parent balance.
//
// The request is measured against Available. Taking exactly all available primary units
// forces the secondary quantity to all available secondary units so no mass is left behind.
func PlanAllocation(parentCode string, requested Quantity, balance Balance) (AllocationPlan, error) {
	if balance.Overdrawn {
		return AllocationPlan{}, NewBalanceOverdrawnError(parentCode, balance)
	}
	avail := balance.Available

	if requested.Primary.GreaterThan(avail.Primary) {
		return AllocationPlan{}, NewQuantityExceedsBalanceError(requested, balance)
	}

	if requested.Primary.Equal(avail.Primary) {
		if !avail.Secondary.IsPositive() {
			return AllocationPlan{}, NewQuantityExceedsBalanceError(requested, balance)
		}
		reserved := Quantity{Primary: requested.Primary, Secondary: avail.Secondary}
		return AllocationPlan{
			Reserved: reserved,
			Adjusted: !requested.Secondary.Equal(avail.Secondary),
			Balance:  balance,
		}, nil
	}

	if requested.Secondary.GreaterThan(avail.Secondary) {
		return AllocationPlan{}, NewQuantityExceedsBalanceError(requested, balance)
	}
	return AllocationPlan{Reserved: requested, Balance: balance}, nil
}

// CheckApproval verifies that approving r keeps its parent within the offered quantity.
// siblings are the parent's children, r included or not.
func CheckApproval(parentCode string, offered Quantity, siblings []*Reservation, r *Reservation) error {
	approved := *r
	approved.Status = StatusApproved
	children := append(ExcludingReservation(siblings, r.ID), &approved)

	if b := ComputeBalance(offered, children); b.Overdrawn {
		return NewBalanceOverdrawnError(parentCode, b)
	}
	return nil
}
