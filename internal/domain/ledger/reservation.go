package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// AggregateTypeReservation is the aggregate type name used in events
const AggregateTypeReservation = "Reservation"

// Reservation is a release order, delivery order or outward movement:
// a quantity claimed against the remaining approved balance of its parent.
type Reservation struct {
	shared.BaseAggregateRoot
	Kind            Kind
	Code            string
	Parent          ParentRef
	NaturalKey      string
	Reserved        Quantity
	Status          Status
	StatusRemark    string
	CreatedBy       string
	StatusUpdatedBy string
	StatusUpdatedAt *time.Time
	AttachmentRefs  []string
	Stacks          []StackAllocation
	BalanceBefore   Quantity
	Revision        int

	audit []AuditEntry
}

// NewReservationParams holds everything needed to open a reservation
type NewReservationParams struct {
	Kind           Kind
	Code           string
	Parent         ParentOffer
	Reserved       Quantity
	AttachmentRefs []string
	Stacks         []StackAllocation
	BalanceBefore  Quantity
	CreatedBy      string
}

// NewReservation creates a pending reservation. Balance admission is not checked here;
// callers plan the quantity with PlanAllocation first.
func NewReservation(p NewReservationParams) (*Reservation, error) {
	if !p.Kind.IsReservation() {
		return nil, NewInvalidKindError(string(p.Kind))
	}
	if err := p.Kind.AcceptsParent(p.Parent); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.CreatedBy) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "actor is required")
	}
	if _, err := NewQuantity(p.Reserved.Primary, p.Reserved.Secondary); err != nil {
		return nil, err
	}
	refs := cleanAttachmentRefs(p.AttachmentRefs)
	if len(refs) == 0 {
		return nil, NewMissingAttachmentError()
	}
	stacks, err := checkStacks(p.Kind, p.Stacks, p.Reserved)
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              p.Kind,
		Code:              p.Code,
		Parent:            p.Parent.Ref(),
		NaturalKey:        p.Parent.ChildNaturalKey(p.Kind),
		Reserved:          p.Reserved,
		Status:            StatusPending,
		CreatedBy:         p.CreatedBy,
		AttachmentRefs:    refs,
		Stacks:            stacks,
		BalanceBefore:     p.BalanceBefore,
	}
	r.audit = append(r.audit, newAuditEntry(r, AuditActionCreated, p.CreatedBy))
	r.AddDomainEvent(NewReservationCreatedEvent(r))
	return r, nil
}

// Transition moves the reservation through the approval workflow.
// Every transition needs a remark; approved and rejected are final.
func (r *Reservation) Transition(target Status, remark, actor string) error {
	if !target.IsValid() {
		return NewInvalidStatusError(string(target))
	}
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return NewMissingRemarkError()
	}
	if !r.Status.CanTransitionTo(target) {
		return NewInvalidTransitionError(r.Status, target)
	}
	if strings.TrimSpace(actor) == "" {
		return shared.NewDomainError("INVALID_INPUT", "actor is required")
	}

	from := r.Status
	now := time.Now()
	r.Status = target
	r.StatusRemark = remark
	r.StatusUpdatedBy = actor
	r.StatusUpdatedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.audit = append(r.audit, newAuditEntry(r, AuditActionTransitioned, actor))
	r.AddDomainEvent(NewReservationTransitionedEvent(r, from))
	return nil
}

// ReviseParams carries the corrected fields of a resubmitted reservation.
// Empty AttachmentRefs or Stacks keep the existing values.
type ReviseParams struct {
	Reserved       Quantity
	AttachmentRefs []string
	Stacks         []StackAllocation
	BalanceBefore  Quantity
	Actor          string
}

// Revise corrects a resubmitted reservation and sends it back for review.
// The parent link and code never change; the previous remark stays until the next transition.
func (r *Reservation) Revise(p ReviseParams) error {
	if !r.Status.IsRevisable() {
		return NewNotRevisableError(r.Code, r.Status)
	}
	if strings.TrimSpace(p.Actor) == "" {
		return shared.NewDomainError("INVALID_INPUT", "actor is required")
	}
	if _, err := NewQuantity(p.Reserved.Primary, p.Reserved.Secondary); err != nil {
		return err
	}

	refs := cleanAttachmentRefs(p.AttachmentRefs)
	if len(refs) == 0 {
		refs = r.AttachmentRefs
	}
	if len(refs) == 0 {
		return NewMissingAttachmentError()
	}

	stackInput := p.Stacks
	if len(stackInput) == 0 {
		stackInput = r.Stacks
	}
	stacks, err := checkStacks(r.Kind, stackInput, p.Reserved)
	if err != nil {
		return err
	}

	r.Reserved = p.Reserved
	r.AttachmentRefs = refs
	r.Stacks = stacks
	r.BalanceBefore = p.BalanceBefore
	r.Status = StatusPending
	r.Revision++
	r.Touch()
	r.IncrementVersion()

	r.audit = append(r.audit, newAuditEntry(r, AuditActionRevised, p.Actor))
	r.AddDomainEvent(NewReservationRevisedEvent(r, p.Actor))
	return nil
}

// Offer exposes an approved reservation as a parent for the next cascade level
func (r *Reservation) Offer() (ParentOffer, error) {
	if r.Status != StatusApproved {
		return ParentOffer{}, NewParentNotOfferableError(r.Code, Quantity{}).
			WithDetail("reason", "parent reservation is "+string(r.Status))
	}
	return ParentOffer{
		Kind:       r.Kind,
		ID:         r.ID,
		Code:       r.Code,
		NaturalKey: r.NaturalKey,
		Offered:    r.Reserved,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// Ref returns the reservation as a parent reference
func (r *Reservation) Ref() ParentRef {
	return ParentRef{Kind: r.Kind, ID: r.ID, Code: r.Code, NaturalKey: r.NaturalKey}
}

// LockKey returns the mutual-exclusion key for status changes of this reservation
func (r *Reservation) LockKey() string {
	return ReservationLockKey(r.ID.String())
}

// ReservationLockKey builds the per-reservation lock key from an id string
func ReservationLockKey(id string) string {
	return "ledger:reservation:" + id
}

// PendingAudit returns audit entries recorded since the last ClearPendingAudit
func (r *Reservation) PendingAudit() []AuditEntry {
	return r.audit
}

// ClearPendingAudit drops recorded audit entries once persisted
func (r *Reservation) ClearPendingAudit() {
	r.audit = nil
}

func cleanAttachmentRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || slices.Contains(out, ref) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func checkStacks(kind Kind, stacks []StackAllocation, reserved Quantity) ([]StackAllocation, error) {
	if kind != KindOutwardMovement {
		if len(stacks) > 0 {
			return nil, NewInvalidStackAllocationError("only outward movements carry stack allocations")
		}
		return nil, nil
	}
	if err := ValidateStacks(stacks, reserved.Primary); err != nil {
		return nil, err
	}
	return normalizeStacks(stacks), nil
}
