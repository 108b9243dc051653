package telemetry

import (
	"context"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the ledger instruments
const MeterName = "github.com/erp/ledger"

var (
	attrKind      = attribute.Key("ledger.kind")
	attrFrom      = attribute.Key("ledger.status.from")
	attrTo        = attribute.Key("ledger.status.to")
	attrOperation = attribute.Key("ledger.operation")
	attrCode      = attribute.Key("error.code")
	attrScope     = attribute.Key("lock.scope")
)

// LedgerMetrics records ledger activity. It serves the services directly
// (lock waits, rejections) and as an event handler for completed writes.
type LedgerMetrics struct {
	lotsRegistered      *Counter
	reservationsCreated *Counter
	reservationsRevised *Counter
	transitions         *Counter
	rejections          *Counter
	lockWait            *Histogram
}

var (
	_ appledger.Metrics  = (*LedgerMetrics)(nil)
	_ shared.EventHandler = (*LedgerMetrics)(nil)
)

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	var (
		m   LedgerMetrics
		err error
	)
	if m.lotsRegistered, err = NewCounter(meter, "ledger.inward_lots.registered",
		"Inward lots registered", "{lot}"); err != nil {
		return nil, err
	}
	if m.reservationsCreated, err = NewCounter(meter, "ledger.reservations.created",
		"Reservations created per kind", "{reservation}"); err != nil {
		return nil, err
	}
	if m.reservationsRevised, err = NewCounter(meter, "ledger.reservations.revised",
		"Resubmitted reservations corrected", "{reservation}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "ledger.reservations.transitions",
		"Approval workflow transitions", "{transition}"); err != nil {
		return nil, err
	}
	if m.rejections, err = NewCounter(meter, "ledger.requests.rejected",
		"Ledger writes refused with a domain error", "{request}"); err != nil {
		return nil, err
	}
	if m.lockWait, err = NewHistogram(meter, "ledger.lock.wait",
		"Time spent waiting for the per-parent lock", "s", LockWaitBuckets...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordLockWait implements appledger.Metrics
func (m *LedgerMetrics) RecordLockWait(ctx context.Context, scope string, wait time.Duration) {
	m.lockWait.RecordDuration(ctx, wait, attrScope.String(scope))
}

// RecordRejection implements appledger.Metrics
func (m *LedgerMetrics) RecordRejection(ctx context.Context, operation, code string) {
	m.rejections.Inc(ctx, attrOperation.String(operation), attrCode.String(code))
}

// EventTypes implements shared.EventHandler
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		ledger.EventTypeInwardLotRegistered,
		ledger.EventTypeReservationCreated,
		ledger.EventTypeReservationRevised,
		ledger.EventTypeReservationTransitioned,
	}
}

// Handle implements shared.EventHandler
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.InwardLotRegisteredEvent:
		m.lotsRegistered.Inc(ctx)
	case *ledger.ReservationCreatedEvent:
		m.reservationsCreated.Inc(ctx, attrKind.String(string(e.Kind)))
	case *ledger.ReservationRevisedEvent:
		m.reservationsRevised.Inc(ctx, attrKind.String(string(e.Kind)))
	case *ledger.ReservationTransitionedEvent:
		m.transitions.Inc(ctx,
			attrKind.String(string(e.Kind)),
			attrFrom.String(string(e.From)),
			attrTo.String(string(e.To)))
	}
	return nil
}
