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

// DefaultSlowQueryThreshold marks spans of slower statements
const DefaultSlowQueryThreshold = 200 * time.Millisecond

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin on db, without query
// variables, plus callbacks that tag slow and failed statements
func RegisterDBTracing(db *gorm.DB, slowThreshold time.Duration, logger *zap.Logger) error {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateSpan(tx, slowThreshold) }

	// otelgorm ends its span in otel:after:<op>, so annotate before that.
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("storefront:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Before("otel:after:create").Register("storefront:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("storefront:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Before("otel:after:query").Register("storefront:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("storefront:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Before("otel:after:update").Register("storefront:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("storefront:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("storefront:after_delete", after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("storefront:before_row", before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Before("otel:after:row").Register("storefront:after_row", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("storefront:before_raw", before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("storefront:after_raw", after); err != nil {
		return err
	}

	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", slowThreshold))
	return nil
}

func annotateSpan(tx *gorm.DB, slowThreshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slowThreshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
