package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// NegotiationScope identifies the slice of negotiations a session observes:
// all negotiations where the user participates on the given side.
type NegotiationScope struct {
	Role   enums.UserRole
	UserID uuid.UUID
}

// NegotiationHandler receives the full current result set for a negotiation
// feed. Every delivery is a complete snapshot, never a delta.
type NegotiationHandler func(negotiations []models.Negotiation)

// MessageHandler receives the full current result set for a message feed.
type MessageHandler func(messages []models.ChatMessage)

// ErrorHandler receives feed errors. Delivery of an error does not cancel
// the subscription.
type ErrorHandler func(err error)

// Subscription is a live feed handle. Unsubscribe stops all further
// deliveries to the handlers; it is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// Store is the remote backend contract the session layer coordinates
// against: negotiation and message writes plus snapshot-based live feeds.
type Store interface {
	CreateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error)
	UpdateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error)
	GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
	SendMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error)
	SubscribeNegotiations(ctx context.Context, scope NegotiationScope, onData NegotiationHandler, onError ErrorHandler) (Subscription, error)
	SubscribeMessages(ctx context.Context, negotiationIDs []uuid.UUID, onData MessageHandler, onError ErrorHandler) (Subscription, error)
}
