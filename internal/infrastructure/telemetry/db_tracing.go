package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span instrumentation.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables in db.statement; dev only
	SlowQueryThresh time.Duration
	DBName          string
}

// DefaultDBTracingConfig returns a disabled config with a 200ms slow query threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "parcelreview",
	}
}

// DBTracingPlugin installs otelgorm and flags slow statements.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// queryStartKey holds the statement start time in the gorm instance settings
const queryStartKey = "slow_query:start"

// Register attaches the tracing callbacks to db. It is a no-op when disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// the after hooks run before otelgorm ends the span (otel:after:<op>)
	cb := db.Callback()
	steps := []error{
		cb.Create().Before("gorm:create").Register("slow_query:before_create", p.before),
		cb.Query().Before("gorm:query").Register("slow_query:before_query", p.before),
		cb.Update().Before("gorm:update").Register("slow_query:before_update", p.before),
		cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", p.before),
		cb.Row().Before("gorm:row").Register("slow_query:before_row", p.before),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("slow_query:after_create", p.after),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("slow_query:after_query", p.after),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("slow_query:after_update", p.after),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("slow_query:after_raw", p.after),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("slow_query:after_row", p.after),
	}
	if err := errors.Join(steps...); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	value, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := value.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < p.config.SlowQueryThresh {
		return
	}

	p.logger.Warn("Slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows_affected", db.Statement.RowsAffected),
	)

	if db.Statement.Context == nil {
		return
	}
	if span := trace.SpanFromContext(db.Statement.Context); span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
