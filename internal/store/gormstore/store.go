package gormstore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/internal/store"
	"github.com/felipecardoza/agrolink-backend/pkg/db"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

// Store implements the remote-store contract over GORM. Writes commit to the
// database and then fan out fresh snapshots to every open feed whose scope
// covers the change. An optional changefeed publisher mirrors local commits
// to other instances.
type Store struct {
	db        *db.Client
	logg      *logger.Logger
	feeds     *feedRegistry
	publisher ChangePublisher
}

var _ store.Store = (*Store)(nil)

// New wires a gorm-backed store.
func New(client *db.Client, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	return &Store{
		db:    client,
		logg:  logg,
		feeds: newFeedRegistry(),
	}, nil
}

// CreateNegotiation persists a new negotiation and notifies matching feeds.
func (s *Store) CreateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error) {
	if negotiation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation required")
	}
	if err := s.db.DB().WithContext(ctx).Create(negotiation).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "create negotiation")
	}
	s.changed(ctx, ChangeEvent{
		Kind:          ChangeKindNegotiation,
		NegotiationID: negotiation.ID,
		BuyerID:       negotiation.BuyerID,
		FarmerID:      negotiation.FarmerID,
	})
	return negotiation, nil
}

// UpdateNegotiation saves the negotiation and notifies matching feeds.
func (s *Store) UpdateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error) {
	if negotiation == nil || negotiation.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "persisted negotiation required")
	}
	result := s.db.DB().WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ?", negotiation.ID).
		Updates(map[string]any{
			"quantity":      negotiation.Quantity,
			"offered_price": negotiation.OfferedPrice,
			"counter_price": negotiation.CounterPrice,
			"final_price":   negotiation.FinalPrice,
			"status":        negotiation.Status,
			"notes":         negotiation.Notes,
		})
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, result.Error, "update negotiation")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
	}
	s.changed(ctx, ChangeEvent{
		Kind:          ChangeKindNegotiation,
		NegotiationID: negotiation.ID,
		BuyerID:       negotiation.BuyerID,
		FarmerID:      negotiation.FarmerID,
	})
	return negotiation, nil
}

// GetNegotiation loads a negotiation by id.
func (s *Store) GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}
	var negotiation models.Negotiation
	err := s.db.DB().WithContext(ctx).First(&negotiation, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get negotiation")
	}
	return &negotiation, nil
}

// SendMessage appends a chat message. A replayed client ref inside the same
// negotiation returns the already-persisted row instead of a duplicate.
func (s *Store) SendMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error) {
	if message == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}
	if message.NegotiationID == uuid.Nil || message.ClientRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id and client ref required")
	}

	if err := s.db.DB().WithContext(ctx).Create(message).Error; err != nil {
		if db.IsUniqueViolation(err, "chat_messages_negotiation_client_ref_key") || db.IsUniqueViolation(err, "") {
			var existing models.ChatMessage
			lookupErr := s.db.DB().WithContext(ctx).
				First(&existing, "negotiation_id = ? AND client_ref = ?", message.NegotiationID, message.ClientRef).Error
			if lookupErr == nil {
				return &existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "send message")
	}

	s.changed(ctx, ChangeEvent{
		Kind:          ChangeKindMessage,
		NegotiationID: message.NegotiationID,
	})
	return message, nil
}

func (s *Store) negotiationsForScope(ctx context.Context, scope store.NegotiationScope) ([]models.Negotiation, error) {
	query := s.db.DB().WithContext(ctx).Order("created_at DESC")
	switch scope.Role {
	case enums.UserRoleBuyer:
		query = query.Where("buyer_id = ?", scope.UserID)
	case enums.UserRoleFarmer:
		query = query.Where("farmer_id = ?", scope.UserID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown scope role")
	}

	var negotiations []models.Negotiation
	if err := query.Find(&negotiations).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubscription, err, "query negotiation feed")
	}
	return negotiations, nil
}

func (s *Store) messagesForNegotiations(ctx context.Context, ids []uuid.UUID) ([]models.ChatMessage, error) {
	if len(ids) == 0 {
		return []models.ChatMessage{}, nil
	}
	var messages []models.ChatMessage
	err := s.db.DB().WithContext(ctx).
		Where("negotiation_id IN ?", ids).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubscription, err, "query message feed")
	}
	return messages, nil
}
