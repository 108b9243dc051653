package ledger

import "slices"

// Status is the approval state of a reservation
type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusResubmitted Status = "resubmitted"
)

// transitions reachable through the approval workflow.
// resubmitted only returns to pending through a revise, never through a transition.
var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected, StatusResubmitted},
}

// ParseStatus converts a wire value into a Status
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", NewInvalidStatusError(s)
	}
	return st, nil
}

// IsValid returns true for the four known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusResubmitted:
		return true
	}
	return false
}

// IsTerminal returns true for approved and rejected
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CountsAgainstParent reports whether the reservation reduces its parent's remaining balance
func (s Status) CountsAgainstParent() bool {
	return s == StatusApproved
}

// HoldsClaim reports whether the reservation is awaiting review and therefore
// reduces what new reservations may claim, without reducing the remaining balance
func (s Status) HoldsClaim() bool {
	return s == StatusPending
}

// CanTransitionTo returns true if the workflow allows moving from s to target
func (s Status) CanTransitionTo(target Status) bool {
	return slices.Contains(transitions[s], target)
}

// IsRevisable returns true if a reservation in this status may be edited
func (s Status) IsRevisable() bool {
	return s == StatusResubmitted
}
