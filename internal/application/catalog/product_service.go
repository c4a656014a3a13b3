// Package catalog holds the product catalog use cases.
package catalog

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

// ProductService serves the storefront catalog and its administration
type ProductService struct {
	store  store.Store
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(s store.Store, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{store: s, logger: logger}
}

// ListActive returns the products visible to customers
func (s *ProductService) ListActive(ctx context.Context) ([]catalog.Product, error) {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ActiveOnly(products), nil
}

// ListAll returns every product including soft-deleted ones
func (s *ProductService) ListAll(ctx context.Context) ([]catalog.Product, error) {
	return s.store.GetProducts(ctx)
}

// Get returns a product. Soft-deleted products are hidden unless
// includeInactive is set.
func (s *ProductService) Get(ctx context.Context, id string, includeInactive bool) (*catalog.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || (!product.Active && !includeInactive) {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

// Subscribe streams catalog snapshots to fn until the returned function is called
func (s *ProductService) Subscribe(ctx context.Context, activeOnly bool, fn func([]catalog.Product)) (store.Unsubscribe, error) {
	return s.store.SubscribeProducts(ctx, func(products []catalog.Product) {
		if activeOnly {
			products = catalog.ActiveOnly(products)
		}
		fn(products)
	})
}

// Create adds a product. Name, price and category are required.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*catalog.Product, error) {
	if in.Name == nil || in.Price == nil || in.Category == nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Name, price and category are required")
	}
	product := &catalog.Product{Features: []string{}, Active: true}
	in.apply(product)
	product.UpdatedAt = time.Now().UTC()

	created, err := s.store.AddProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("product_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Update applies a partial edit
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*catalog.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.ErrNotFound
	}
	in.apply(product)
	product.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product updated", zap.String("product_id", id))
	return updated, nil
}

// Delete hides a product from the storefront. Owners keep their entitlement.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deactivated", zap.String("product_id", id))
	return nil
}

// Upload stores a file and, when in.ProductID is set, attaches it to the
// product as its module or demo file
func (s *ProductService) Upload(ctx context.Context, in UploadInput, r io.Reader, progress store.ProgressFunc) (string, *catalog.Product, error) {
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		return "", nil, shared.NewDomainError("INVALID_FILE", "File name cannot be empty")
	}

	var product *catalog.Product
	if in.ProductID != "" {
		p, err := s.store.GetProduct(ctx, in.ProductID)
		if err != nil {
			return "", nil, err
		}
		if p == nil {
			return "", nil, shared.ErrNotFound
		}
		product = p
	}

	url, err := s.store.UploadFile(ctx, name, in.ContentType, r, in.Size, progress)
	if err != nil {
		return "", nil, err
	}
	if product == nil {
		return url, nil, nil
	}

	switch in.Kind {
	case FileKindDemo:
		product.DemoFileName = name
		product.DemoFileURL = url
	default:
		product.FileName = name
		product.FileURL = url
		product.FileSize = in.Size
	}
	product.UpdatedAt = time.Now().UTC()
	updated, err := s.store.UpdateProduct(ctx, product)
	if err != nil {
		return url, nil, err
	}
	s.logger.Info("Product file attached",
		zap.String("product_id", product.ID),
		zap.String("kind", string(in.Kind)),
		zap.String("file", name),
	)
	return url, updated, nil
}
