package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/freely/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

// DBMetricsConfigFrom derives the database metrics config from app config.
// Query and pool metrics need both metrics export and the db switch.
func DBMetricsConfigFrom(cfg *config.Config) DBMetricsConfig {
	thresh := cfg.Telemetry.DBSlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	return DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled && cfg.Telemetry.DBMetricsEnabled,
		SlowQueryThreshold: thresh,
	}
}

// DBMetrics counts queries by operation, records their latency, counts slow
// and failed queries, and reports connection pool usage at collection time.
// It doubles as the GORM plugin that feeds the query instruments.
type DBMetrics struct {
	config DBMetricsConfig
	meter  metric.Meter
	logger *zap.Logger

	queries  *Counter
	failures *Counter
	slow     *Counter
	duration *Histogram

	poolConnections metric.Int64ObservableGauge
	poolMax         metric.Int64ObservableGauge
	registration    metric.Registration
	stopOnce        sync.Once
}

// NewDBMetrics registers the database instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	m := &DBMetrics{config: cfg, meter: meter, logger: logger}

	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounter(meter, "db_query_errors_total", "Database queries that returned an error", "{query}"); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_slow_query_total", "Database queries slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, "db_query_duration_seconds", "Database query latency", "s", DBDurationBuckets...); err != nil {
		return nil, err
	}
	if m.poolConnections, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	if m.poolMax, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections allowed by the pool"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// Register installs the query callbacks on db and starts reporting its pool.
// It is a no-op when database metrics are disabled.
func (m *DBMetrics) Register(db *gorm.DB) error {
	if !m.config.Enabled {
		m.logger.Debug("Database metrics disabled")
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := m.ObservePool(sqlDB); err != nil {
		return err
	}
	if err := db.Use(m); err != nil {
		return err
	}
	m.logger.Info("Database metrics enabled",
		zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold))
	return nil
}

// ObservePool reports sqlDB's pool statistics on every collection until Stop.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolMax, int64(stats.MaxOpenConnections))
		o.ObserveInt64(m.poolConnections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(m.poolConnections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(m.poolConnections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, m.poolConnections, m.poolMax)
	if err != nil {
		return err
	}
	m.registration = reg
	return nil
}

// Stop ends pool reporting. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		if m.registration == nil {
			return
		}
		if err := m.registration.Unregister(); err != nil {
			m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
		}
	})
}

// RecordQuery records one finished statement. Missing rows are not failures.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration, err error) {
	operation = strings.ToUpper(strings.TrimSpace(operation))
	if operation == "" {
		operation = "UNKNOWN"
	}
	op := AttrDBOperation.String(operation)

	m.queries.Inc(ctx, op)
	m.duration.RecordDuration(ctx, elapsed, op)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.failures.Inc(ctx, op)
	}
	if elapsed > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slow.Inc(ctx, op, AttrDBTable.String(table))
	}
}

// Name implements gorm.Plugin
func (m *DBMetrics) Name() string {
	return "freely:db_metrics"
}

// Initialize implements gorm.Plugin
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op        string
		operation string
		before    registerFunc
		after     registerFunc
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		operation := h.operation
		if err := h.before("db_metrics:before_"+h.op, markMetricsStart); err != nil {
			return err
		}
		if err := h.after("db_metrics:after_"+h.op, func(db *gorm.DB) { m.afterStatement(db, operation) }); err != nil {
			return err
		}
	}
	return nil
}

type dbMetricsContextKey struct{}

func markMetricsStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbMetricsContextKey{}, time.Now())
}

func (m *DBMetrics) afterStatement(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	start, ok := ctx.Value(dbMetricsContextKey{}).(time.Time)
	if !ok {
		return
	}
	if operation == "" {
		operation = statementOperation(db.Statement.SQL.String())
	}
	m.RecordQuery(ctx, operation, db.Statement.Table, time.Since(start), db.Error)
}

// statementOperation returns the leading SQL verb of a raw statement
func statementOperation(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch verb = strings.ToUpper(verb); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return verb
	}
	return "OTHER"
}
