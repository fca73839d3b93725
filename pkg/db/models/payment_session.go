package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// PaymentSession mirrors a provider checkout session for a buyer's cart.
type PaymentSession struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID                  `gorm:"column:cart_id;type:uuid;not null;index:payment_sessions_cart_id_idx"`
	BuyerID           uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null;index:payment_sessions_buyer_id_idx"`
	ProviderSessionID string                     `gorm:"column:provider_session_id;not null;uniqueIndex:payment_sessions_provider_session_key"`
	CheckoutURL       string                     `gorm:"column:checkout_url;not null"`
	Amount            decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency             `gorm:"column:currency;type:currency;not null;default:'usd'"`
	Status            enums.PaymentSessionStatus `gorm:"column:status;type:payment_session_status;not null;default:'pending'"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
