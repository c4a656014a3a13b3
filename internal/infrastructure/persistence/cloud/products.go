package cloud

import (
	"context"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

// GetProducts returns every product, newest first, including soft-deleted ones
func (s *Store) GetProducts(ctx context.Context) ([]catalog.Product, error) {
	var rows []ProductModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, nil
}

// GetProduct returns nil, nil when id is unknown
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var row ProductModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// SubscribeProducts delivers the catalog now and after every change
func (s *Store) SubscribeProducts(ctx context.Context, fn func([]catalog.Product)) (store.Unsubscribe, error) {
	return subscribe(ctx, s, CollectionProducts, s.GetProducts, fn)
}

// AddProduct inserts p, assigning an id when it has none
func (s *Store) AddProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	created := p.Clone()
	if created.ID == "" {
		created.ID = newID()
	}
	now := s.now()
	created.UpdatedAt = now
	if err := created.Validate(); err != nil {
		return nil, err
	}

	model := ProductModelFromDomain(created)
	model.CreatedAt = now
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrAlreadyExists
		}
		return nil, err
	}
	s.publish(ctx, CollectionProducts)
	return model.ToDomain(), nil
}

// UpdateProduct replaces the editable fields of the product with the same id
func (s *Store) UpdateProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	updated := p.Clone()
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	model := ProductModelFromDomain(updated)
	result := s.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", updated.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}
	s.publish(ctx, CollectionProducts)
	return s.GetProduct(ctx, updated.ID)
}

// DeleteProduct clears the active flag
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": false, "updated_at": s.now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	s.publish(ctx, CollectionProducts)
	return nil
}
