package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// Service defines operations that record settlement events.
type Service interface {
	RecordEvent(ctx context.Context, input RecordSettlementEventInput) (*models.SettlementEvent, error)
	RecordAcceptance(ctx context.Context, negotiation models.Negotiation, actorID uuid.UUID) error
	HasEvent(ctx context.Context, negotiationID uuid.UUID, eventType enums.SettlementEventType) (bool, error)
}

type service struct {
	repo Repository
}

// RecordSettlementEventInput captures the immutable data a settlement event requires.
type RecordSettlementEventInput struct {
	NegotiationID uuid.UUID                 `json:"negotiation_id"`
	BuyerID       uuid.UUID                 `json:"buyer_id"`
	FarmerID      uuid.UUID                 `json:"farmer_id"`
	ActorUserID   uuid.UUID                 `json:"actor_user_id"`
	Type          enums.SettlementEventType `json:"type"`
	Amount        decimal.Decimal           `json:"amount"`
	Metadata      json.RawMessage           `json:"metadata"`
}

// NewService wires a settlement service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, input RecordSettlementEventInput) (*models.SettlementEvent, error) {
	if input.NegotiationID == uuid.Nil {
		return nil, fmt.Errorf("negotiation id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("buyer id is required")
	}
	if input.FarmerID == uuid.Nil {
		return nil, fmt.Errorf("farmer id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid settlement event type %q", input.Type)
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("settlement amount must not be negative")
	}

	event := &models.SettlementEvent{
		NegotiationID: input.NegotiationID,
		BuyerID:       input.BuyerID,
		FarmerID:      input.FarmerID,
		ActorUserID:   input.ActorUserID,
		Type:          input.Type,
		Amount:        input.Amount,
		Metadata:      input.Metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordAcceptance writes the offer_accepted event for a freshly accepted
// negotiation. The total is final price times quantity.
func (s *service) RecordAcceptance(ctx context.Context, negotiation models.Negotiation, actorID uuid.UUID) error {
	if negotiation.FinalPrice == nil {
		return fmt.Errorf("accepted negotiation is missing a final price")
	}

	total := negotiation.FinalPrice.Mul(decimal.NewFromInt(int64(negotiation.Quantity)))
	metadata, err := json.Marshal(map[string]any{
		"quantity":    negotiation.Quantity,
		"final_price": negotiation.FinalPrice.String(),
	})
	if err != nil {
		return fmt.Errorf("encoding settlement metadata: %w", err)
	}

	_, err = s.RecordEvent(ctx, RecordSettlementEventInput{
		NegotiationID: negotiation.ID,
		BuyerID:       negotiation.BuyerID,
		FarmerID:      negotiation.FarmerID,
		ActorUserID:   actorID,
		Type:          enums.SettlementEventOfferAccepted,
		Amount:        total,
		Metadata:      metadata,
	})
	return err
}

func (s *service) HasEvent(ctx context.Context, negotiationID uuid.UUID, eventType enums.SettlementEventType) (bool, error) {
	if negotiationID == uuid.Nil {
		return false, fmt.Errorf("negotiation id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid settlement event type %q", eventType)
	}

	events, err := s.repo.ListByNegotiationID(ctx, negotiationID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}
