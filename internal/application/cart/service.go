// Package cart keeps a per-session shopping cart in the key-value medium.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

const (
	// KeyPrefix namespaces carts in the KV
	KeyPrefix = "tallypro_cart:"
	// TTL bounds how long an untouched cart is kept
	TTL = 30 * 24 * time.Hour
)

var ErrProductInactive = shared.NewDomainError("PRODUCT_UNAVAILABLE", "This module is no longer available")

// Item is one cart line. Quantity is always 1 for modules.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Service reads and writes session carts
type Service struct {
	products store.ProductStore
	medium   kv.Store
	logger   *zap.Logger
}

// NewService creates a cart service
func NewService(products store.ProductStore, medium kv.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, medium: medium, logger: logger}
}

// Items returns the cart in insertion order
func (s *Service) Items(ctx context.Context, sessionID string) ([]Item, error) {
	raw, err := s.medium.Get(ctx, KeyPrefix+sessionID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("Discarding unreadable cart", zap.String("session_id", sessionID), zap.Error(err))
		return []Item{}, nil
	}
	return items, nil
}

// Add puts productID in the cart. Adding a product already present is a no-op.
func (s *Service) Add(ctx context.Context, sessionID, productID string) ([]Item, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if indexOf(items, productID) >= 0 {
		return items, nil
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.ErrNotFound
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	items = append(items, itemOf(product))
	return items, s.save(ctx, sessionID, items)
}

// Remove drops productID from the cart
func (s *Service) Remove(ctx context.Context, sessionID, productID string) ([]Item, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	i := indexOf(items, productID)
	if i < 0 {
		return items, nil
	}
	items = slices.Delete(items, i, i+1)
	return items, s.save(ctx, sessionID, items)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.medium.Delete(ctx, KeyPrefix+sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Contains reports whether productID is in the cart
func (s *Service) Contains(ctx context.Context, sessionID, productID string) (bool, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return indexOf(items, productID) >= 0, nil
}

// Count returns the number of cart entries
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Total is the sum of price times quantity
func (s *Service) Total(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(items), nil
}

// Total sums a cart snapshot
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (s *Service) save(ctx context.Context, sessionID string, items []Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.medium.Set(ctx, KeyPrefix+sessionID, raw, TTL); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func itemOf(p *catalog.Product) Item {
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  1,
	}
}

func indexOf(items []Item, productID string) int {
	return slices.IndexFunc(items, func(item Item) bool { return item.ProductID == productID })
}
