package telemetry

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Telemetry bundles every provider built from config.TelemetryConfig
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	DB       *DBTracing
}

// Setup builds the providers in dependency order. Span profiles are linked
// only when both tracing and profiling are on.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Telemetry, error) {
	on := cfg.Enabled
	t := &Telemetry{}
	var err error

	if t.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         on && cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeEndpoint,
		ApplicationName: cfg.ServiceName,
		AuthToken:       cfg.ProfilingAuthToken,
	}, logger); err != nil {
		return nil, err
	}

	if t.Tracer, err = NewTracerProvider(ctx, TracingConfig{
		Enabled:           on,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger); err != nil {
		return nil, errors.Join(err, t.Profiler.Stop())
	}
	if t.Profiler.IsEnabled() {
		t.Tracer.EnableSpanProfiles()
	}

	if t.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Enabled:           on && cfg.MetricsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    cfg.MetricsExportInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	if t.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Enabled:           on && cfg.LogsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	t.DB = NewDBTracing(DBTracingConfig{
		Enabled:         on && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
	}, logger)
	return t, nil
}

// Shutdown stops every provider that was started, newest first
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	return errors.Join(errs...)
}
