package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/api/middleware"
	"github.com/felipecardoza/agrolink-backend/api/responses"
	"github.com/felipecardoza/agrolink-backend/api/validators"
	productsvc "github.com/felipecardoza/agrolink-backend/internal/products"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/pagination"
)

type createProductRequest struct {
	SKU          string  `json:"sku" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Description  *string `json:"description,omitempty"`
	QualityGrade string  `json:"quality_grade,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	UnitPrice    string  `json:"unit_price" validate:"required"`
	MinBulkQty   int     `json:"min_bulk_qty" validate:"required,min=1"`
	AvailableQty int     `json:"available_qty" validate:"required,min=0"`
	HarvestDate  *string `json:"harvest_date,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (p createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(p.UnitPrice))
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}

	harvest, err := parseOptionalDate(p.HarvestDate)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	isActive := true
	if p.IsActive != nil {
		isActive = *p.IsActive
	}

	return productsvc.CreateProductInput{
		SKU:          p.SKU,
		Title:        p.Title,
		Description:  p.Description,
		QualityGrade: enums.QualityGrade(p.QualityGrade),
		Unit:         p.Unit,
		UnitPrice:    price,
		MinBulkQty:   p.MinBulkQty,
		AvailableQty: p.AvailableQty,
		HarvestDate:  harvest,
		IsActive:     isActive,
	}, nil
}

type updateProductRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	QualityGrade *string `json:"quality_grade,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	UnitPrice    *string `json:"unit_price,omitempty"`
	MinBulkQty   *int    `json:"min_bulk_qty,omitempty"`
	AvailableQty *int    `json:"available_qty,omitempty"`
	HarvestDate  *string `json:"harvest_date,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (p updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Title:        p.Title,
		Description:  p.Description,
		Unit:         p.Unit,
		MinBulkQty:   p.MinBulkQty,
		AvailableQty: p.AvailableQty,
		IsActive:     p.IsActive,
	}

	if p.QualityGrade != nil {
		grade := enums.QualityGrade(*p.QualityGrade)
		input.QualityGrade = &grade
	}
	if p.UnitPrice != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*p.UnitPrice))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
		}
		input.UnitPrice = &price
	}

	harvest, err := parseOptionalDate(p.HarvestDate)
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}
	input.HarvestDate = harvest

	return input, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func farmerFromContext(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return uid, nil
}

// FarmerCreateProduct handles listing creation for verified farmers.
func FarmerCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := farmerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), uid, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// FarmerUpdateProduct applies a partial update to an owned listing.
func FarmerUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := farmerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), uid, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// FarmerDeactivateProduct retires a listing from the marketplace.
func FarmerDeactivateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := farmerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.DeactivateProduct(r.Context(), uid, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// FarmerListProducts returns the farmer's own listings, active or not.
func FarmerListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := farmerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListFarmerProducts(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// ListProducts returns the public marketplace catalog with optional filters.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := listFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), filters, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetProduct returns one listing with its farmer summary.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func listFiltersFromQuery(r *http.Request) (productsvc.ListFilters, error) {
	filters := productsvc.ListFilters{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("quality_grade")); raw != "" {
		grade := enums.QualityGrade(raw)
		if !grade.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid quality grade")
		}
		filters.QualityGrade = &grade
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("unit")); raw != "" {
		filters.Unit = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_min")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_min")
		}
		filters.PriceMin = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_max")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_max")
		}
		filters.PriceMax = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("farmer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farmer_id")
		}
		filters.FarmerID = &id
	}

	return filters, nil
}
