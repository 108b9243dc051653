package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names what happened to a reservation
type AuditAction string

const (
	AuditActionCreated      AuditAction = "created"
	AuditActionRevised      AuditAction = "revised"
	AuditActionTransitioned AuditAction = "transitioned"
)

// AuditEntry is an append-only snapshot of a reservation after a change
type AuditEntry struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Action        AuditAction
	Status        Status
	Remark        string
	Reserved      Quantity
	BalanceBefore Quantity
	Actor         string
	Revision      int
	OccurredAt    time.Time
}

func newAuditEntry(r *Reservation, action AuditAction, actor string) AuditEntry {
	return AuditEntry{
		ID:            uuid.New(),
		ReservationID: r.ID,
		Action:        action,
		Status:        r.Status,
		Remark:        r.StatusRemark,
		Reserved:      r.Reserved,
		BalanceBefore: r.BalanceBefore,
		Actor:         actor,
		Revision:      r.Revision,
		OccurredAt:    r.UpdatedAt,
	}
}
