package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// Repository persists provider checkout sessions.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a freshly opened checkout session.
func (r *Repository) Create(ctx context.Context, record *models.PaymentSession) (*models.PaymentSession, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateStatus moves the mirrored session to the given state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentSessionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByProviderSessionID loads the mirrored row for a provider session id.
func (r *Repository) FindByProviderSessionID(ctx context.Context, providerSessionID string) (*models.PaymentSession, error) {
	var record models.PaymentSession
	err := r.db.WithContext(ctx).
		First(&record, "provider_session_id = ?", providerSessionID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByBuyer returns the buyer's sessions, newest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.PaymentSession, error) {
	var rows []models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
