package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// Negotiation is the bilateral bargaining record between a buyer and a
// farmer over a single listing. InitialPrice snapshots the listing price at
// creation; FinalPrice is set only on acceptance. Terminal rows are kept.
type Negotiation struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index:negotiations_product_id_idx"`
	BuyerID       uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index:negotiations_buyer_id_idx"`
	FarmerID      uuid.UUID               `gorm:"column:farmer_id;type:uuid;not null;index:negotiations_farmer_id_idx"`
	Quantity      int                     `gorm:"column:quantity;not null"`
	InitialPrice  decimal.Decimal         `gorm:"column:initial_price;type:numeric(12,2);not null"`
	OfferedPrice  decimal.Decimal         `gorm:"column:offered_price;type:numeric(12,2);not null"`
	CounterPrice  *decimal.Decimal        `gorm:"column:counter_price;type:numeric(12,2)"`
	FinalPrice    *decimal.Decimal        `gorm:"column:final_price;type:numeric(12,2)"`
	Status        enums.NegotiationStatus `gorm:"column:status;type:negotiation_status;not null;default:'pending'"`
	Notes         *string                 `gorm:"column:notes"`
	FloorPrice    *decimal.Decimal        `gorm:"column:floor_price;type:numeric(12,2)"`
	TargetPrice   *decimal.Decimal        `gorm:"column:target_price;type:numeric(12,2)"`
	PriceSource   *string                 `gorm:"column:price_source"`
	PriceVerified bool                    `gorm:"column:price_verified;not null;default:false"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
