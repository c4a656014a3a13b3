package sales

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/telemetry"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Granted int `json:"granted"`
	Failed  int `json:"failed"`
}

// Reconciler grants entitlements for successful orders whose second write
// never landed
type Reconciler struct {
	store  store.Store
	logger *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(s store.Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: s, logger: logger}
}

// Reconcile scans successful orders and grants every missing entitlement.
// It fails only when the ledger cannot be read; per-order failures are counted.
func (r *Reconciler) Reconcile(ctx context.Context) (report ReconcileReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "sales.reconcile")
	defer func() {
		span.SetAttributes(
			attribute.Int("reconcile.scanned", report.Scanned),
			attribute.Int("reconcile.granted", report.Granted),
			attribute.Int("reconcile.failed", report.Failed),
		)
		telemetry.EndSpan(span, err)
	}()

	orders, err := r.store.GetOrders(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read orders: %w", err)
	}

	users := make(map[string]*identity.User)
	for _, o := range orders {
		if o.Status != sales.OrderStatusSuccess {
			continue
		}
		report.Scanned++

		user, ok := users[o.UserID]
		if !ok {
			if user, err = r.store.GetUserByID(ctx, o.UserID); err != nil {
				r.logger.Warn("Reconcile could not load user", zap.String("user_id", o.UserID), zap.Error(err))
				report.Failed++
				continue
			}
			users[o.UserID] = user
		}
		if user == nil {
			r.logger.Warn("Order references a missing user",
				zap.String("order_id", o.ID),
				zap.String("user_id", o.UserID),
			)
			report.Failed++
			continue
		}
		if user.Owns(o.ProductID) {
			continue
		}

		granted, err := r.store.GrantEntitlement(ctx, o.UserID, o.ProductID)
		if err != nil {
			r.logger.Error("Failed to grant entitlement",
				zap.String("order_id", o.ID),
				zap.String("user_id", o.UserID),
				zap.String("product_id", o.ProductID),
				zap.Error(err),
			)
			report.Failed++
			continue
		}
		user.Grant(o.ProductID)
		if granted {
			report.Granted++
			r.logger.Info("Entitlement granted by reconciliation",
				zap.String("order_id", o.ID),
				zap.String("user_id", o.UserID),
				zap.String("product_id", o.ProductID),
			)
		}
	}

	r.logger.Info("Reconciliation finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("granted", report.Granted),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
