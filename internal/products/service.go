package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/pagination"
)

// Service exposes farmer listing management and buyer browse operations.
type Service interface {
	CreateProduct(ctx context.Context, farmerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, farmerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeactivateProduct(ctx context.Context, farmerID, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ProductListResult, error)
	ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductSummary, error)
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	SKU          string
	Title        string
	Description  *string
	QualityGrade enums.QualityGrade
	Unit         string
	UnitPrice    decimal.Decimal
	MinBulkQty   int
	AvailableQty int
	HarvestDate  *time.Time
	IsActive     bool
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Title        *string
	Description  *string
	QualityGrade *enums.QualityGrade
	Unit         *string
	UnitPrice    *decimal.Decimal
	MinBulkQty   *int
	AvailableQty *int
	HarvestDate  *time.Time
	IsActive     *bool
}

type farmerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo    *Repository
	farmers farmerLoader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, farmers farmerLoader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository required")
	}
	if farmers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "farmer loader required")
	}
	return &service{repo: repo, farmers: farmers}, nil
}

// CreateProduct validates the payload and persists a new listing for the farmer.
func (s *service) CreateProduct(ctx context.Context, farmerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := s.ensureFarmer(ctx, farmerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.SKU) == "" || strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and title are required")
	}
	if input.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if input.MinBulkQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum bulk quantity must be positive")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot be negative")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "kg"
	}
	grade := input.QualityGrade
	if grade == "" {
		grade = enums.QualityGradeStandard
	}

	record := &models.Product{
		ID:           uuid.New(),
		FarmerID:     farmerID,
		SKU:          strings.TrimSpace(input.SKU),
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		QualityGrade: grade,
		Unit:         unit,
		UnitPrice:    input.UnitPrice,
		MinBulkQty:   input.MinBulkQty,
		AvailableQty: input.AvailableQty,
		HarvestDate:  input.HarvestDate,
		IsActive:     input.IsActive,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return s.loadDTO(ctx, created)
}

// UpdateProduct applies the provided mutations to a listing the farmer owns.
func (s *service) UpdateProduct(ctx context.Context, farmerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	record, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		record.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		record.Description = input.Description
	}
	if input.QualityGrade != nil {
		record.QualityGrade = *input.QualityGrade
	}
	if input.Unit != nil && strings.TrimSpace(*input.Unit) != "" {
		record.Unit = strings.TrimSpace(*input.Unit)
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
		}
		record.UnitPrice = *input.UnitPrice
	}
	if input.MinBulkQty != nil {
		if *input.MinBulkQty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum bulk quantity must be positive")
		}
		record.MinBulkQty = *input.MinBulkQty
	}
	if input.AvailableQty != nil {
		if *input.AvailableQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot be negative")
		}
		record.AvailableQty = *input.AvailableQty
	}
	if input.HarvestDate != nil {
		record.HarvestDate = input.HarvestDate
	}
	if input.IsActive != nil {
		record.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.loadDTO(ctx, updated)
}

// DeactivateProduct removes the listing from buyer browse.
func (s *service) DeactivateProduct(ctx context.Context, farmerID, productID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, farmerID, productID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

// GetProduct returns the listing detail with its farmer card.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	record, err := s.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.loadDTO(ctx, record)
}

// ListProducts returns a cursor page of active listings for buyers.
func (s *service) ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ProductListResult, error) {
	rows, nextCursor, err := s.repo.ListActive(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductSummary, 0, len(rows))
	for i := range rows {
		items = append(items, NewProductSummary(&rows[i]))
	}
	return &ProductListResult{
		Items: items,
		Pagination: ProductPagination{
			Total:   len(items),
			Current: params.Cursor,
			Next:    nextCursor,
		},
	}, nil
}

// ListFarmerProducts returns every listing the farmer owns, active or not.
func (s *service) ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductSummary, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id required")
	}
	rows, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer products")
	}
	items := make([]ProductSummary, 0, len(rows))
	for i := range rows {
		items = append(items, NewProductSummary(&rows[i]))
	}
	return items, nil
}

// ProductByID loads the raw model for downstream services.
func (s *service) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return record, nil
}

func (s *service) ownedProduct(ctx context.Context, farmerID, productID uuid.UUID) (*models.Product, error) {
	if farmerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id and product id required")
	}
	record, err := s.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if record.FarmerID != farmerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another farmer")
	}
	return record, nil
}

func (s *service) ensureFarmer(ctx context.Context, farmerID uuid.UUID) error {
	if farmerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "farmer id required")
	}
	user, err := s.farmers.FindByID(ctx, farmerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "farmer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farmer")
	}
	if user.Role != enums.UserRoleFarmer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listings can only be created by farmers")
	}
	if user.KYCStatus != enums.KYCStatusVerified {
		return pkgerrors.New(pkgerrors.CodeForbidden, "identity verification required before listing")
	}
	return nil
}

func (s *service) loadDTO(ctx context.Context, record *models.Product) (*ProductDTO, error) {
	farmer, err := s.repo.FarmerSummaryByID(ctx, record.FarmerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farmer summary")
	}
	return NewProductDTO(record, farmer), nil
}
