package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem persists a product-level snapshot tied to a CartRecord. When the
// line originates from an accepted negotiation, NegotiationID points at it and
// UnitPrice carries the negotiated final price.
type CartItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID        uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index:cart_items_cart_id_idx"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	FarmerID      uuid.UUID       `gorm:"column:farmer_id;type:uuid;not null"`
	NegotiationID *uuid.UUID      `gorm:"column:negotiation_id;type:uuid"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineSubtotal  decimal.Decimal `gorm:"column:line_subtotal;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
