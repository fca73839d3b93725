package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
)

// ProductDTO represents the listing payload returned to clients.
type ProductDTO struct {
	ID           uuid.UUID        `json:"id"`
	SKU          string           `json:"sku"`
	Title        string           `json:"title"`
	Description  *string          `json:"description,omitempty"`
	QualityGrade string           `json:"quality_grade"`
	Unit         string           `json:"unit"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	MinBulkQty   int              `json:"min_bulk_qty"`
	AvailableQty int              `json:"available_qty"`
	HarvestDate  *time.Time       `json:"harvest_date,omitempty"`
	IsActive     bool             `json:"is_active"`
	Farmer       FarmerSummaryDTO `json:"farmer"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// FarmerSummaryDTO surfaces limited seller data for listing responses.
type FarmerSummaryDTO struct {
	FarmerID uuid.UUID `json:"farmer_id"`
	FullName string    `json:"full_name"`
	FarmName *string   `json:"farm_name,omitempty"`
	Region   *string   `json:"region,omitempty"`
}

// ProductSummary is the compact listing shape used by browse, wishlist and
// cart read paths.
type ProductSummary struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Title        string          `json:"title"`
	QualityGrade string          `json:"quality_grade"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	MinBulkQty   int             `json:"min_bulk_qty"`
	AvailableQty int             `json:"available_qty"`
	HarvestDate  *time.Time      `json:"harvest_date,omitempty"`
	FarmerID     uuid.UUID       `json:"farmer_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductPagination is the cursor envelope shared by listing endpoints.
type ProductPagination struct {
	Total   int    `json:"total"`
	Current string `json:"current,omitempty"`
	Next    string `json:"next,omitempty"`
}

// ProductListResult bundles a page of summaries with its cursors.
type ProductListResult struct {
	Items      []ProductSummary  `json:"items"`
	Pagination ProductPagination `json:"pagination"`
}

// NewProductDTO builds a DTO from the persisted model and farmer summary.
func NewProductDTO(product *models.Product, farmer *FarmerSummary) *ProductDTO {
	dto := &ProductDTO{
		ID:           product.ID,
		SKU:          product.SKU,
		Title:        product.Title,
		Description:  product.Description,
		QualityGrade: string(product.QualityGrade),
		Unit:         product.Unit,
		UnitPrice:    product.UnitPrice,
		MinBulkQty:   product.MinBulkQty,
		AvailableQty: product.AvailableQty,
		HarvestDate:  product.HarvestDate,
		IsActive:     product.IsActive,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
	if farmer != nil {
		dto.Farmer = FarmerSummaryDTO{
			FarmerID: farmer.FarmerID,
			FullName: farmer.FullName,
			FarmName: farmer.FarmName,
			Region:   farmer.Region,
		}
	}
	return dto
}

// NewProductSummary maps the persisted model into its compact shape.
func NewProductSummary(product *models.Product) ProductSummary {
	return ProductSummary{
		ID:           product.ID,
		SKU:          product.SKU,
		Title:        product.Title,
		QualityGrade: string(product.QualityGrade),
		Unit:         product.Unit,
		UnitPrice:    product.UnitPrice,
		MinBulkQty:   product.MinBulkQty,
		AvailableQty: product.AvailableQty,
		HarvestDate:  product.HarvestDate,
		FarmerID:     product.FarmerID,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}
