package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/tallypro/storefront/internal/domain/catalog"
)

// ProductInput is an administrator's product form. Nil fields are left
// unchanged on update.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *catalog.Category
	DemoURL     *string
	ImageURL    *string
	YouTubeURL  *string
	Features    []string
	Version     *string
	LicenseType *catalog.LicenseType
	Active      *bool
}

// apply copies the set fields onto p
func (in ProductInput) apply(p *catalog.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.DemoURL != nil {
		p.DemoURL = *in.DemoURL
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.YouTubeURL != nil {
		p.YouTubeURL = *in.YouTubeURL
	}
	if in.Features != nil {
		p.Features = in.Features
	}
	if in.Version != nil {
		p.Version = *in.Version
	}
	if in.LicenseType != nil {
		p.LicenseType = *in.LicenseType
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
}

// FileKind selects which product file an upload replaces
type FileKind string

const (
	FileKindModule FileKind = "module"
	FileKindDemo   FileKind = "demo"
)

// UploadInput describes a file upload
type UploadInput struct {
	ProductID   string
	Kind        FileKind
	FileName    string
	ContentType string
	Size        int64
}
