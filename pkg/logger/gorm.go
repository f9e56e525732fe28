package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// maxSQLLength caps logged statements so a bulk query cannot flood the log.
const maxSQLLength = 1000

// GormLogger routes GORM output through zap, tagged with the request id.
type GormLogger struct {
	log   *zap.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// gormLevels maps application log level names to GORM levels. Debug enables
// per-statement logging; anything unknown keeps only warnings and errors.
var gormLevels = map[string]gormlogger.LogLevel{
	"silent":  gormlogger.Silent,
	"error":   gormlogger.Error,
	"warn":    gormlogger.Warn,
	"warning": gormlogger.Warn,
	"info":    gormlogger.Info,
	"debug":   gormlogger.Info,
}

// NewGormLogger creates a GORM logger. A zero slowQuerySeconds disables slow query warnings.
func NewGormLogger(zapLogger *zap.Logger, slowQuerySeconds float64, logLevel string) *GormLogger {
	level, ok := gormLevels[logLevel]
	if !ok {
		level = gormlogger.Warn
	}
	return &GormLogger{
		log:   zapLogger.WithOptions(zap.AddCallerSkip(2)),
		slow:  time.Duration(slowQuerySeconds * float64(time.Second)),
		level: level,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, threshold gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < threshold {
		return
	}
	sugar := WithContext(ctx, l.log).Sugar()
	switch lvl {
	case zapcore.ErrorLevel:
		sugar.Errorf(msg, data...)
	case zapcore.WarnLevel:
		sugar.Warnf(msg, data...)
	default:
		sugar.Infof(msg, data...)
	}
}

// Trace logs one executed statement. Failed statements log at error,
// statements over the slow threshold at warn, the rest at debug.
// gorm.ErrRecordNotFound is a normal lookup miss and is not treated as a failure.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var (
		msg string
		lvl zapcore.Level
	)
	switch {
	case failed && l.level >= gormlogger.Error:
		msg, lvl = "gorm query error", zapcore.ErrorLevel
	case !failed && slow && l.level >= gormlogger.Warn:
		msg, lvl = "gorm slow query", zapcore.WarnLevel
	case !failed && l.level >= gormlogger.Info:
		msg, lvl = "gorm query", zapcore.DebugLevel
	default:
		return
	}

	sql, rows := fc()
	fields := make([]zap.Field, 0, 6)
	if len(sql) > maxSQLLength {
		sql = sql[:maxSQLLength] + "..."
		fields = append(fields, zap.Bool("sql_truncated", true))
	}
	fields = append(fields,
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	}
	if slow {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}

	WithContext(ctx, l.log).Log(lvl, msg, fields...)
}
