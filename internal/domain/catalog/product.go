package catalog

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallypro/storefront/internal/domain/shared"
)

// Category groups modules on the storefront
type Category string

const (
	CategoryReports               Category = "Reports"
	CategoryInvoicing             Category = "Invoicing"
	CategoryGeneral               Category = "General"
	CategoryInventoryManagement   Category = "Inventory Management"
	CategoryOutstandingManagement Category = "Outstanding Management"
	CategoryAlertsAndControls     Category = "Alerts & Controls"
	CategoryStatutory             Category = "Statutory"
	CategorySecurity              Category = "Security"
	CategoryImportUtility         Category = "Import Utility"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryReports,
	CategoryInvoicing,
	CategoryGeneral,
	CategoryInventoryManagement,
	CategoryOutstandingManagement,
	CategoryAlertsAndControls,
	CategoryStatutory,
	CategorySecurity,
	CategoryImportUtility,
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	return slices.Contains(Categories, c)
}

// LicenseType is the optional licensing model of a module
type LicenseType string

const (
	LicenseSingleUser LicenseType = "Single User"
	LicenseMultiUser  LicenseType = "Multi User"
	LicenseLifetime   LicenseType = "Lifetime"
)

// IsValid reports whether l is empty or a known license type
func (l LicenseType) IsValid() bool {
	switch l {
	case "", LicenseSingleUser, LicenseMultiUser, LicenseLifetime:
		return true
	}
	return false
}

// Product is a purchasable add-on module
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     Category        `json:"category"`
	DemoURL      string          `json:"demoUrl"`
	ImageURL     string          `json:"imageUrl"`
	YouTubeURL   string          `json:"youtubeUrl,omitempty"`
	Features     []string        `json:"features"`
	Active       bool            `json:"active"`
	Version      string          `json:"version,omitempty"`
	LicenseType  LicenseType     `json:"licenseType,omitempty"`
	FileName     string          `json:"fileName,omitempty"`
	FileURL      string          `json:"fileUrl,omitempty"`
	FileSize     int64           `json:"fileSize,omitempty"`
	DemoFileName string          `json:"demoFileName,omitempty"`
	DemoFileURL  string          `json:"demoFileUrl,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewProduct creates an active product
func NewProduct(id, name, description string, price decimal.Decimal, category Category) (*Product, error) {
	p := &Product{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Category:    category,
		Features:    make([]string, 0),
		Active:      true,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants an administrator edit must keep
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(p.Name) > 200 {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if !p.Category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", "Unknown category: "+string(p.Category))
	}
	if !p.LicenseType.IsValid() {
		return shared.NewDomainError("INVALID_LICENSE", "Unknown license type: "+string(p.LicenseType))
	}
	return nil
}

// MinorUnits returns the price in paise as the gateway expects
func (p *Product) MinorUnits() int64 {
	return ToMinorUnits(p.Price)
}

// Deactivate soft-deletes the product. Orders keep referencing it.
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Features = slices.Clone(p.Features)
	if c.Features == nil {
		c.Features = make([]string, 0)
	}
	return &c
}

// ActiveOnly filters out soft-deleted products, keeping order
func ActiveOnly(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// ToMinorUnits converts a rupee amount to paise, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
