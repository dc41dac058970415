package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold marks queries slower than this as slow
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// maxLoggedSQL caps the statement text attached to a log entry
const maxLoggedSQL = 2048

// GormLogger routes GORM statement logs to zap with the request's context
// fields attached.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	expected      []error
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero disables slow query warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithExpectedErrors adds errors that are normal query outcomes rather than
// failures. They are logged at debug level, and only in Info mode.
func WithExpectedErrors(errs ...error) GormLoggerOption {
	return func(l *GormLogger) {
		l.expected = append(l.expected, errs...)
	}
}

// NewGormLogger creates a GORM logger backed by zap. Missing rows, unique
// key conflicts and canceled requests are expected outcomes by default: the
// repositories turn them into domain errors or retry on them.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: DefaultSlowQueryThreshold,
		expected:      []error{gorm.ErrRecordNotFound, gorm.ErrDuplicatedKey, context.Canceled},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Enrich(ctx, l.logger).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Enrich(ctx, l.logger).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Enrich(ctx, l.logger).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	statement := func() []zap.Field {
		sql, rows := fc()
		if len(sql) > maxLoggedSQL {
			sql = sql[:maxLoggedSQL] + "..."
		}
		return []zap.Field{
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		}
	}

	switch {
	case err != nil && l.isExpected(err):
		if l.level >= gormlogger.Info {
			Enrich(ctx, l.logger).Debug("SQL outcome", append(statement(), zap.NamedError("outcome", err))...)
		}
	case err != nil && l.level >= gormlogger.Error:
		Enrich(ctx, l.logger).Error("SQL Error", append(statement(), zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		Enrich(ctx, l.logger).Warn("Slow SQL", append(statement(), zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		Enrich(ctx, l.logger).Debug("SQL Query", statement()...)
	}
}

func (l *GormLogger) isExpected(err error) bool {
	for _, target := range l.expected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MapGormLogLevel maps the application log level to a GORM log level.
// Statements are only traced in debug mode.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
