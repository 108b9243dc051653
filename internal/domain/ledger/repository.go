package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// InwardLotFilter narrows inward lot listings
type InwardLotFilter struct {
	shared.Filter
	IssueMode IssueMode
}

// ReservationFilter narrows reservation listings
type ReservationFilter struct {
	shared.Filter
	Kind   Kind
	Status Status
}

// InwardLotRepository persists inward lots
type InwardLotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InwardLot, error)
	FindAll(ctx context.Context, filter InwardLotFilter) ([]*InwardLot, int64, error)
	Save(ctx context.Context, lot *InwardLot) error
}

// ReservationRepository persists reservations of every kind
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	// FindByParent returns the children of a parent, newest first
	FindByParent(ctx context.Context, parent ParentRef) ([]*Reservation, error)
	// FindByParentIDs returns the children of many parents at once, newest first
	FindByParentIDs(ctx context.Context, parentIDs []uuid.UUID) ([]*Reservation, error)
	FindAll(ctx context.Context, filter ReservationFilter) ([]*Reservation, int64, error)
	// RejectedGrandchildParents returns which of the given parents have a rejected grandchild
	RejectedGrandchildParents(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// Create inserts a new reservation
	Create(ctx context.Context, r *Reservation) error
	// Update saves a changed reservation; the stored version must equal r.Version-1
	Update(ctx context.Context, r *Reservation) error
}

// AuditRepository stores the append-only reservation history
type AuditRepository interface {
	Append(ctx context.Context, entries ...AuditEntry) error
	FindByReservation(ctx context.Context, reservationID uuid.UUID) ([]AuditEntry, error)
}

// CodeSequence hands out per-kind monotonically increasing numbers
type CodeSequence interface {
	Next(ctx context.Context, kind Kind) (int64, error)
}
