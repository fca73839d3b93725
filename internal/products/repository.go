package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	"github.com/felipecardoza/agrolink-backend/pkg/pagination"
)

// Repository wires together product listing persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create persists a new listing.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists the full listing row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Deactivate hides the listing from buyers without losing history.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustAvailableQty decrements available quantity, refusing oversell.
func (r *Repository) AdjustAvailableQty(ctx context.Context, id uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND available_qty + ? >= 0", id, delta).
		Update("available_qty", gorm.Expr("available_qty + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByFarmer returns every listing owned by the farmer, newest first.
func (r *Repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	QualityGrade *enums.QualityGrade `json:"quality_grade,omitempty"`
	Unit         *string             `json:"unit,omitempty"`
	PriceMin     *decimal.Decimal    `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal    `json:"price_max,omitempty"`
	FarmerID     *uuid.UUID          `json:"farmer_id,omitempty"`
	Query        string              `json:"q,omitempty"`
}

// ListActive returns a cursor page of active listings for buyers.
func (r *Repository) ListActive(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Product, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true)

	if filters.QualityGrade != nil {
		query = query.Where("quality_grade = ?", *filters.QualityGrade)
	}
	if filters.Unit != nil {
		query = query.Where("unit = ?", *filters.Unit)
	}
	if filters.PriceMin != nil {
		query = query.Where("unit_price >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		query = query.Where("unit_price <= ?", *filters.PriceMax)
	}
	if filters.FarmerID != nil {
		query = query.Where("farmer_id = ?", *filters.FarmerID)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("title LIKE ?", "%"+q+"%")
	}

	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

// FarmerSummary exposes the minimal farmer data used by product read paths.
type FarmerSummary struct {
	FarmerID uuid.UUID `gorm:"column:farmer_id"`
	FullName string    `gorm:"column:full_name"`
	FarmName *string   `gorm:"column:farm_name"`
	Region   *string   `gorm:"column:region"`
	MemberAt time.Time `gorm:"column:member_at"`
}

const farmerSummaryQuery = `
SELECT u.id AS farmer_id,
       u.first_name || ' ' || u.last_name AS full_name,
       u.farm_name,
       u.region,
       u.created_at AS member_at
FROM users u
WHERE u.id = ?
`

// FarmerSummaryByID loads the seller card shown alongside a listing.
func (r *Repository) FarmerSummaryByID(ctx context.Context, farmerID uuid.UUID) (*FarmerSummary, error) {
	var summary FarmerSummary
	if err := r.db.WithContext(ctx).Raw(farmerSummaryQuery, farmerID).Scan(&summary).Error; err != nil {
		return nil, err
	}
	if summary.FarmerID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &summary, nil
}
