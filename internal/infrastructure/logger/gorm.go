package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// GormLogger adapts zap to gorm's logger.Interface for the store's SQL traffic.
type GormLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger returns a gorm logger writing under the "gorm" name.
// ErrRecordNotFound is dropped: store reads report it as an empty result.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{base: zapLogger.Named("gorm"), level: level, slow: slowThreshold}
}

// MapGormLogLevel turns a config level into a gorm level; unknown values fall back to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if lv, ok := gormLevels[level]; ok {
		return lv
	}
	return gormlogger.Warn
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...any) {
	g.printf(gormlogger.Info, zapcore.InfoLevel, msg, args)
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	g.printf(gormlogger.Warn, zapcore.WarnLevel, msg, args)
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...any) {
	g.printf(gormlogger.Error, zapcore.ErrorLevel, msg, args)
}

func (g *GormLogger) printf(min gormlogger.LogLevel, lvl zapcore.Level, msg string, args []any) {
	if g.level < min {
		return
	}
	g.base.Sugar().Logf(lvl, msg, args...)
}

// Trace logs one statement: failures at error, slow statements at warn, the rest at debug.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	took := time.Since(begin)
	stmt, rows := fc()
	fields := []zap.Field{
		zap.String("sql", stmt),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", took),
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	log := WithTraceContext(ctx, g.base)

	if err != nil {
		if g.level >= gormlogger.Error {
			log.Error("SQL Error", append(fields, zap.Error(err))...)
		}
		return
	}
	if g.slow > 0 && took > g.slow {
		if g.level >= gormlogger.Warn {
			log.Warn("Slow SQL", append(fields, zap.Duration("threshold", g.slow))...)
		}
		return
	}
	if g.level >= gormlogger.Info {
		log.Debug("SQL Query", fields...)
	}
}
