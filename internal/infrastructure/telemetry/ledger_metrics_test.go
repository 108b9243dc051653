package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewLedgerMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return nil
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestLedgerMetrics_RecordRejection(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRejection(ctx, "create", "EXCEEDS_AVAILABLE")
	m.RecordRejection(ctx, "create", "EXCEEDS_AVAILABLE")
	m.RecordRejection(ctx, "transition", "INVALID_TRANSITION")

	data := collect(t, reader, "ledger.requests.rejected")
	assert.Equal(t, int64(2), sumFor(t, data,
		attrOperation.String("create"), attrCode.String("EXCEEDS_AVAILABLE")))
	assert.Equal(t, int64(1), sumFor(t, data,
		attrOperation.String("transition"), attrCode.String("INVALID_TRANSITION")))
}

func TestLedgerMetrics_RecordLockWait(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLockWait(context.Background(), "release_order", 20*time.Millisecond)
	m.RecordLockWait(context.Background(), "release_order", 30*time.Millisecond)

	hist, ok := collect(t, reader, "ledger.lock.wait").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.05, dp.Sum, 1e-9)
	scope, _ := dp.Attributes.Value(attrScope)
	assert.Equal(t, "release_order", scope.AsString())
}

func TestLedgerMetrics_HandleEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	id := uuid.New()

	events := []shared.DomainEvent{
		&ledger.InwardLotRegisteredEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeInwardLotRegistered, ledger.AggregateTypeInwardLot, id),
		},
		&ledger.ReservationCreatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeReservationCreated, ledger.AggregateTypeReservation, id),
			Kind:            ledger.KindReleaseOrder,
		},
		&ledger.ReservationCreatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeReservationCreated, ledger.AggregateTypeReservation, id),
			Kind:            ledger.KindDeliveryOrder,
		},
		&ledger.ReservationRevisedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeReservationRevised, ledger.AggregateTypeReservation, id),
			Kind:            ledger.KindReleaseOrder,
		},
		&ledger.ReservationTransitionedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeReservationTransitioned, ledger.AggregateTypeReservation, id),
			Kind:            ledger.KindReleaseOrder,
			From:            ledger.StatusPending,
			To:              ledger.StatusApproved,
		},
	}
	for _, e := range events {
		require.NoError(t, m.Handle(ctx, e))
	}

	assert.Equal(t, int64(1), sumFor(t, collect(t, reader, "ledger.inward_lots.registered")))
	created := collect(t, reader, "ledger.reservations.created")
	assert.Equal(t, int64(1), sumFor(t, created, attrKind.String("release_order")))
	assert.Equal(t, int64(1), sumFor(t, created, attrKind.String("delivery_order")))
	assert.Equal(t, int64(1), sumFor(t, collect(t, reader, "ledger.reservations.revised"),
		attrKind.String("release_order")))
	assert.Equal(t, int64(1), sumFor(t, collect(t, reader, "ledger.reservations.transitions"),
		attrKind.String("release_order"), attrFrom.String("pending"), attrTo.String("approved")))
}

func TestLedgerMetrics_EventTypes(t *testing.T) {
	m, _ := newTestMetrics(t)
	assert.ElementsMatch(t, []string{
		ledger.EventTypeInwardLotRegistered,
		ledger.EventTypeReservationCreated,
		ledger.EventTypeReservationRevised,
		ledger.EventTypeReservationTransitioned,
	}, m.EventTypes())
}
