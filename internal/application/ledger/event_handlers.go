package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes every ledger event to the structured log, giving operators
// a searchable trail next to the audit table
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("ledger.audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeInwardLotRegistered,
		ledger.EventTypeReservationCreated,
		ledger.EventTypeReservationRevised,
		ledger.EventTypeReservationTransitioned,
	}
}

// Handle logs one event
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ledger.InwardLotRegisteredEvent:
		fields = append(fields,
			zap.String("code", e.Code),
			zap.String("issue_mode", string(e.IssueMode)),
			zap.String("offered", e.Offered.String()),
			zap.String("actor", e.CreatedBy))
	case *ledger.ReservationCreatedEvent:
		fields = append(fields,
			zap.String("code", e.Code),
			zap.String("parent_kind", string(e.ParentKind)),
			zap.String("parent_id", e.ParentID.String()),
			zap.String("reserved", e.Reserved.String()),
			zap.String("actor", e.CreatedBy))
	case *ledger.ReservationRevisedEvent:
		fields = append(fields,
			zap.String("code", e.Code),
			zap.Int("revision", e.Revision),
			zap.String("reserved", e.Reserved.String()),
			zap.String("actor", e.RevisedBy))
	case *ledger.ReservationTransitionedEvent:
		fields = append(fields,
			zap.String("code", e.Code),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
			zap.String("remark", e.Remark),
			zap.String("actor", e.Actor))
	}

	h.logger.Info("Ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
