package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// SettlementEvent records an immutable money lifecycle event tied to a
// negotiation. Events are append-only.
type SettlementEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NegotiationID uuid.UUID                 `gorm:"column:negotiation_id;type:uuid;not null;index:settlement_events_negotiation_id_idx"`
	BuyerID       uuid.UUID                 `gorm:"column:buyer_id;type:uuid;not null"`
	FarmerID      uuid.UUID                 `gorm:"column:farmer_id;type:uuid;not null"`
	ActorUserID   uuid.UUID                 `gorm:"column:actor_user_id;type:uuid;not null"`
	Type          enums.SettlementEventType `gorm:"column:type;type:settlement_event_type;not null"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	Metadata      json.RawMessage           `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
