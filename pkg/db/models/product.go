package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// Product represents a farmer's bulk produce listing.
type Product struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID     uuid.UUID          `gorm:"column:farmer_id;type:uuid;not null;index:products_farmer_id_idx"`
	SKU          string             `gorm:"column:sku;not null"`
	Title        string             `gorm:"column:title;not null"`
	Description  *string            `gorm:"column:description"`
	QualityGrade enums.QualityGrade `gorm:"column:quality_grade;type:quality_grade;not null;default:'standard'"`
	Unit         string             `gorm:"column:unit;not null;default:'kg'"`
	UnitPrice    decimal.Decimal    `gorm:"column:unit_price;type:numeric(12,2);not null"`
	MinBulkQty   int                `gorm:"column:min_bulk_qty;not null;default:100"`
	AvailableQty int                `gorm:"column:available_qty;not null;default:0"`
	HarvestDate  *time.Time         `gorm:"column:harvest_date"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
