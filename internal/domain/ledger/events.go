package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Ledger event type constants
const (
	EventTypeInwardLotRegistered     = "ledger.inward_lot.registered"
	EventTypeReservationCreated      = "ledger.reservation.created"
	EventTypeReservationRevised      = "ledger.reservation.revised"
	EventTypeReservationTransitioned = "ledger.reservation.transitioned"
)

// InwardLotRegisteredEvent is raised when a lot enters the ledger
type InwardLotRegisteredEvent struct {
	shared.BaseDomainEvent
	Code       string    `json:"code"`
	NaturalKey string    `json:"natural_key"`
	IssueMode  IssueMode `json:"issue_mode"`
	Offered    Quantity  `json:"offered"`
	CreatedBy  string    `json:"created_by"`
}

// NewInwardLotRegisteredEvent creates a new InwardLotRegisteredEvent
func NewInwardLotRegisteredEvent(l *InwardLot) *InwardLotRegisteredEvent {
	return &InwardLotRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInwardLotRegistered, AggregateTypeInwardLot, l.ID),
		Code:            l.Code,
		NaturalKey:      l.NaturalKey,
		IssueMode:       l.IssueMode,
		Offered:         l.Offered,
		CreatedBy:       l.CreatedBy,
	}
}

// ReservationCreatedEvent is raised when a reservation is opened against a parent
type ReservationCreatedEvent struct {
	shared.BaseDomainEvent
	Kind       Kind      `json:"kind"`
	Code       string    `json:"code"`
	ParentKind Kind      `json:"parent_kind"`
	ParentID   uuid.UUID `json:"parent_id"`
	Reserved   Quantity  `json:"reserved"`
	CreatedBy  string    `json:"created_by"`
}

// NewReservationCreatedEvent creates a new ReservationCreatedEvent
func NewReservationCreatedEvent(r *Reservation) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationCreated, AggregateTypeReservation, r.ID),
		Kind:            r.Kind,
		Code:            r.Code,
		ParentKind:      r.Parent.Kind,
		ParentID:        r.Parent.ID,
		Reserved:        r.Reserved,
		CreatedBy:       r.CreatedBy,
	}
}

// ReservationRevisedEvent is raised when a resubmitted reservation is corrected
type ReservationRevisedEvent struct {
	shared.BaseDomainEvent
	Kind      Kind     `json:"kind"`
	Code      string   `json:"code"`
	Reserved  Quantity `json:"reserved"`
	Revision  int      `json:"revision"`
	RevisedBy string   `json:"revised_by"`
}

// NewReservationRevisedEvent creates a new ReservationRevisedEvent
func NewReservationRevisedEvent(r *Reservation, actor string) *ReservationRevisedEvent {
	return &ReservationRevisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationRevised, AggregateTypeReservation, r.ID),
		Kind:            r.Kind,
		Code:            r.Code,
		Reserved:        r.Reserved,
		Revision:        r.Revision,
		RevisedBy:       actor,
	}
}

// ReservationTransitionedEvent is raised on every approval workflow step
type ReservationTransitionedEvent struct {
	shared.BaseDomainEvent
	Kind       Kind      `json:"kind"`
	Code       string    `json:"code"`
	ParentKind Kind      `json:"parent_kind"`
	ParentID   uuid.UUID `json:"parent_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Remark     string    `json:"remark"`
	Actor      string    `json:"actor"`
}

// NewReservationTransitionedEvent creates a new ReservationTransitionedEvent
func NewReservationTransitionedEvent(r *Reservation, from Status) *ReservationTransitionedEvent {
	return &ReservationTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationTransitioned, AggregateTypeReservation, r.ID),
		Kind:            r.Kind,
		Code:            r.Code,
		ParentKind:      r.Parent.Kind,
		ParentID:        r.Parent.ID,
		From:            from,
		To:              r.Status,
		Remark:          r.StatusRemark,
		Actor:           r.StatusUpdatedBy,
	}
}
