package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracingConfig holds database span settings
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in db.statement. Development only.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracing registers otelgorm plus a callback that flags slow statements
// and records errors on the statement span
type DBTracing struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracing creates a DBTracing
func NewDBTracing(cfg DBTracingConfig, logger *zap.Logger) *DBTracing {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	return &DBTracing{config: cfg, logger: logger}
}

// Register installs the plugin on db. Pass it to persistence.WithOpenHook.
func (t *DBTracing) Register(db *gorm.DB) error {
	if !t.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(t.config.DBName)}
	if !t.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerCallbacks(db, t.annotate); err != nil {
		return err
	}

	t.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", t.config.LogFullSQL),
		zap.Duration("slow_query_threshold", t.config.SlowQueryThresh),
	)
	return nil
}

// registerCallbacks wraps every statement processor. gorm's processor types are
// unexported, so each one is spelled out.
func registerCallbacks(db *gorm.DB, after func(*gorm.DB)) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("ledger_trace:before_create", markStart); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("ledger_trace:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("ledger_trace:before_query", markStart); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("ledger_trace:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("ledger_trace:before_update", markStart); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("ledger_trace:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("ledger_trace:before_delete", markStart); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("ledger_trace:after_delete", after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("ledger_trace:before_row", markStart); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("ledger_trace:after_row", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("ledger_trace:before_raw", markStart); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("ledger_trace:after_raw", after)
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *DBTracing) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > t.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
