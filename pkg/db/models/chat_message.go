package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a persisted negotiation chat message. ClientRef carries the
// sender-assigned provisional id so echoes can supersede optimistic copies.
type ChatMessage struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NegotiationID uuid.UUID `gorm:"column:negotiation_id;type:uuid;not null;index:chat_messages_negotiation_id_idx;uniqueIndex:chat_messages_negotiation_client_ref_key"`
	SenderID      uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Body          string    `gorm:"column:body;type:text;not null"`
	ClientRef     string    `gorm:"column:client_ref;not null;uniqueIndex:chat_messages_negotiation_client_ref_key"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
