package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	tel, err := Setup(ctx, config.TelemetryConfig{
		Enabled:          false,
		MetricsEnabled:   true,
		LogsEnabled:      true,
		ProfilingEnabled: true,
		ServiceName:      "ledger-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tel.Tracer.IsEnabled())
	assert.False(t, tel.Meter.IsEnabled())
	assert.False(t, tel.Logs.IsEnabled())
	assert.False(t, tel.Profiler.IsEnabled())
	assert.False(t, tel.Tracer.SpanProfilesEnabled())

	assert.NotNil(t, tel.Meter.Meter(MeterName))
	assert.NotNil(t, tel.Tracer.Tracer("test"))
	assert.NoError(t, tel.Tracer.ForceFlush(ctx))
	assert.NoError(t, tel.Shutdown(ctx))
	assert.NoError(t, tel.Profiler.Stop(), "second stop is a no-op")
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "ledger"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{}, zap.NewNop())
	require.NoError(t, err)

	core := lp.ZapCore(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, recorded := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, min: zapcore.WarnLevel}
	log := zap.New(core).With(zap.String("component", "ledger"))

	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept too")

	require.Equal(t, 2, recorded.Len())
	for _, e := range recorded.All() {
		assert.Equal(t, "ledger", e.ContextMap()["component"])
	}
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestDBTracing_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, NewDBTracing(DBTracingConfig{}, zap.NewNop()).Register(db))
	assert.Nil(t, db.Callback().Query().Get("ledger_trace:after_query"))
}

func TestDBTracing_RecordsStatementSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	tracing := NewDBTracing(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())
	require.NoError(t, tracing.Register(db))
	assert.NotNil(t, db.Callback().Query().Get("ledger_trace:after_query"))
	assert.NotNil(t, db.Callback().Raw().Get("ledger_trace:before_raw"))

	type row struct{ N int }
	var out []row
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1 AS n").Scan(&out).Error)
	require.NoError(t, provider.ForceFlush(context.Background()))

	assert.NotEmpty(t, recorder.Ended())
}
