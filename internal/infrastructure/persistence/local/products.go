package local

import (
	"context"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

func findProduct(products []catalog.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// GetProducts returns every product, including soft-deleted ones
func (s *Store) GetProducts(ctx context.Context) ([]catalog.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load[catalog.Product](ctx, s, keyProducts)
}

// GetProduct returns nil, nil when id is unknown
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	products, err := load[catalog.Product](ctx, s, keyProducts)
	if err != nil {
		return nil, err
	}
	if i := findProduct(products, id); i >= 0 {
		return &products[i], nil
	}
	return nil, nil
}

// SubscribeProducts delivers the current snapshot once. The local medium
// has no change feed, so the returned unsubscribe does nothing.
func (s *Store) SubscribeProducts(ctx context.Context, fn func([]catalog.Product)) (store.Unsubscribe, error) {
	s.mu.RLock()
	products, err := load[catalog.Product](ctx, s, keyProducts)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	fn(products)
	return func() {}, nil
}

// AddProduct stores a new product at the head of the catalog
func (s *Store) AddProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	created := p.Clone()
	if created.ID == "" {
		created.ID = s.newID("prod")
	}
	created.UpdatedAt = s.now()
	if err := created.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := load[catalog.Product](ctx, s, keyProducts)
	if err != nil {
		return nil, err
	}
	if findProduct(products, created.ID) >= 0 {
		return nil, shared.ErrAlreadyExists
	}
	if err := save(ctx, s, keyProducts, prepend(products, *created)); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProduct replaces the stored product with the same ID
func (s *Store) UpdateProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	updated := p.Clone()
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := load[catalog.Product](ctx, s, keyProducts)
	if err != nil {
		return nil, err
	}
	i := findProduct(products, updated.ID)
	if i < 0 {
		return nil, shared.ErrNotFound
	}
	products[i] = *updated
	if err := save(ctx, s, keyProducts, products); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct marks the product inactive
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := load[catalog.Product](ctx, s, keyProducts)
	if err != nil {
		return err
	}
	i := findProduct(products, id)
	if i < 0 {
		return shared.ErrNotFound
	}
	products[i].Deactivate()
	return save(ctx, s, keyProducts, products)
}
