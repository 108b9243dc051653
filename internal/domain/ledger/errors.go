package ledger

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error codes raised by the ledger domain
const (
	CodeParentNotFound          = "PARENT_NOT_FOUND"
	CodeReservationNotFound     = "RESERVATION_NOT_FOUND"
	CodeParentNotOfferable      = "PARENT_NOT_OFFERABLE"
	CodeInvalidParentKind       = "INVALID_PARENT_KIND"
	CodeInvalidKind             = "INVALID_KIND"
	CodeInvalidStatus           = "INVALID_STATUS"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeQuantityExceedsBalance  = "QUANTITY_EXCEEDS_BALANCE"
	CodeBalanceOverdrawn        = "BALANCE_OVERDRAWN"
	CodeMissingAttachment       = "MISSING_ATTACHMENT"
	CodeMissingRemark           = "MISSING_REMARK"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeInvalidStackAllocation  = "INVALID_STACK_ALLOCATION"
	CodeStackAllocationMismatch = "STACK_ALLOCATION_MISMATCH"
	CodeNotRevisable            = "INVALID_STATE"
)

// NewParentNotFoundError reports a parent reference that resolves to nothing
func NewParentNotFoundError(kind Kind, id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeParentNotFound,
		fmt.Sprintf("%s %s not found", kind, id)).
		WithDetail("parent_kind", string(kind)).
		WithDetail("parent_id", id.String())
}

// NewReservationNotFoundError reports an unknown reservation ID
func NewReservationNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeReservationNotFound,
		fmt.Sprintf("reservation %s not found", id)).
		WithDetail("reservation_id", id.String())
}

// NewParentNotOfferableError reports a parent the eligibility rule does not offer
func NewParentNotOfferableError(code string, remaining Quantity) *shared.DomainError {
	return shared.NewDomainError(CodeParentNotOfferable,
		fmt.Sprintf("%s has no remaining balance and is not open for re-offer", code)).
		WithDetail("parent_code", code).
		WithDetail("remaining_primary", remaining.Primary.String()).
		WithDetail("remaining_secondary", remaining.Secondary.StringFixed(SecondaryScale))
}

// NewInvalidParentKindError reports a child kind reserved against a parent kind it cannot use
func NewInvalidParentKindError(child, parent Kind) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidParentKind,
		fmt.Sprintf("%s cannot be reserved against %s", child, parent)).
		WithDetail("kind", string(child)).
		WithDetail("parent_kind", string(parent))
}

// NewInvalidKindError reports an unrecognised record kind
func NewInvalidKindError(value string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidKind, fmt.Sprintf("unknown record kind %q", value))
}

// NewInvalidStatusError reports an unrecognised status
func NewInvalidStatusError(value string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("unknown status %q", value))
}

// NewInvalidQuantityError reports a malformed or non-positive quantity
func NewInvalidQuantityError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidQuantity, message)
}

// NewQuantityExceedsBalanceError reports the request against what is available to new
// reservations. The message names the remaining balance and the part of it held by
// pending reservations, since the two differ whenever a claim awaits approval.
func NewQuantityExceedsBalanceError(requested Quantity, balance Balance) *shared.DomainError {
	msg := fmt.Sprintf("requested %s units, only %s available (%s remaining, %s pending)",
		requested.Primary.String(), balance.Available.Primary.String(),
		balance.Remaining.Primary.String(), balance.Pending.Primary.String())
	if requested.Primary.LessThanOrEqual(balance.Available.Primary) {
		msg = fmt.Sprintf("requested %s, only %s available (%s remaining, %s pending)",
			requested.Secondary.StringFixed(SecondaryScale), balance.Available.Secondary.StringFixed(SecondaryScale),
			balance.Remaining.Secondary.StringFixed(SecondaryScale), balance.Pending.Secondary.StringFixed(SecondaryScale))
	}
	return shared.NewDomainError(CodeQuantityExceedsBalance, msg).
		WithDetail("requested_primary", requested.Primary.String()).
		WithDetail("requested_secondary", requested.Secondary.StringFixed(SecondaryScale)).
		WithDetail("available_primary", balance.Available.Primary.String()).
		WithDetail("available_secondary", balance.Available.Secondary.StringFixed(SecondaryScale)).
		WithDetail("remaining_primary", balance.Remaining.Primary.String()).
		WithDetail("remaining_secondary", balance.Remaining.Secondary.StringFixed(SecondaryScale)).
		WithDetail("pending_primary", balance.Pending.Primary.String()).
		WithDetail("pending_secondary", balance.Pending.Secondary.StringFixed(SecondaryScale))
}

// NewBalanceOverdrawnError reports a parent whose approved children exceed its offer
func NewBalanceOverdrawnError(code string, balance Balance) *shared.DomainError {
	over := balance.Approved.Sub(balance.Offered)
	return shared.NewDomainError(CodeBalanceOverdrawn,
		fmt.Sprintf("%s is overdrawn by %s units and needs reconciliation", code, over.Primary.String())).
		WithDetail("parent_code", code).
		WithDetail("offered_primary", balance.Offered.Primary.String()).
		WithDetail("approved_primary", balance.Approved.Primary.String())
}

// NewMissingAttachmentError reports a reservation without documents
func NewMissingAttachmentError() *shared.DomainError {
	return shared.NewDomainError(CodeMissingAttachment, "at least one attachment is required")
}

// NewMissingRemarkError reports a status change without a remark
func NewMissingRemarkError() *shared.DomainError {
	return shared.NewDomainError(CodeMissingRemark, "a remark is required for every status change")
}

// NewInvalidTransitionError reports a status change the workflow does not allow
func NewInvalidTransitionError(from, to Status) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to)).
		WithDetail("from", string(from)).
		WithDetail("to", string(to))
}

// NewNotRevisableError reports a revise of a reservation that is not resubmitted
func NewNotRevisableError(code string, status Status) *shared.DomainError {
	return shared.NewDomainError(CodeNotRevisable,
		fmt.Sprintf("%s is %s; only resubmitted reservations can be revised", code, status)).
		WithDetail("status", string(status))
}

// NewInvalidStackAllocationError reports a malformed stack line
func NewInvalidStackAllocationError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidStackAllocation, message)
}

// NewStackAllocationMismatchError reports stacks that do not add up to the reserved units
func NewStackAllocationMismatchError(total, reserved decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodeStackAllocationMismatch,
		fmt.Sprintf("stack allocations total %s units but %s units are reserved", total.String(), reserved.String())).
		WithDetail("stack_total", total.String()).
		WithDetail("reserved_primary", reserved.String())
}
