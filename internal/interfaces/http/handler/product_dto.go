package handler

import (
	"github.com/shopspring/decimal"

	appcatalog "github.com/tallypro/storefront/internal/application/catalog"
	"github.com/tallypro/storefront/internal/domain/catalog"
)

// ProductRequest is the admin product form. Omitted fields are unchanged on update.
type ProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	DemoURL     *string          `json:"demoUrl" binding:"omitempty,url"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,url"`
	YouTubeURL  *string          `json:"youtubeUrl" binding:"omitempty,url"`
	Features    []string         `json:"features" binding:"omitempty,max=50,dive,max=200"`
	Version     *string          `json:"version" binding:"omitempty,max=20"`
	LicenseType *string          `json:"licenseType"`
	Active      *bool            `json:"active"`
}

func (r ProductRequest) toInput() appcatalog.ProductInput {
	in := appcatalog.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		DemoURL:     r.DemoURL,
		ImageURL:    r.ImageURL,
		YouTubeURL:  r.YouTubeURL,
		Features:    r.Features,
		Version:     r.Version,
		Active:      r.Active,
	}
	if r.Category != nil {
		category := catalog.Category(*r.Category)
		in.Category = &category
	}
	if r.LicenseType != nil {
		license := catalog.LicenseType(*r.LicenseType)
		in.LicenseType = &license
	}
	return in
}

// UploadResponse reports a stored file
type UploadResponse struct {
	URL     string           `json:"url"`
	Product *catalog.Product `json:"product,omitempty"`
}
