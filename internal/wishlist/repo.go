package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	products "github.com/felipecardoza/agrolink-backend/internal/products"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, buyerID, productID uuid.UUID) error {
	if buyerID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, buyer_id, product_id) VALUES (?, ?, ?) ON CONFLICT (buyer_id, product_id) DO NOTHING`, uuid.New(), buyerID, productID).
		Error
}

// RemoveItem deletes the buyer-product save if it exists.
func (r *Repository) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// RemoveByBuyer clears every save for the buyer.
func (r *Repository) RemoveByBuyer(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns a paginated list of saved listings for a buyer.
func (r *Repository) ListItems(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistItemsPageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	cursorValue := strings.TrimSpace(cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return WishlistItemsPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("buyer_id = ?", buyerID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var saves []models.WishlistItem
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&saves).
		Error
	if err != nil {
		return WishlistItemsPageDTO{}, err
	}

	nextCursor := ""
	if len(saves) > normalizedLimit {
		saves = saves[:normalizedLimit]
		last := saves[len(saves)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	items := make([]WishlistItemDTO, 0, len(saves))
	for _, save := range saves {
		var listing models.Product
		if err := r.db.WithContext(ctx).First(&listing, "id = ?", save.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return WishlistItemsPageDTO{}, err
		}
		items = append(items, WishlistItemDTO{
			Product:   products.NewProductSummary(&listing),
			CreatedAt: save.CreatedAt,
		})
	}

	totalCount, err := r.countItems(ctx, buyerID)
	if err != nil {
		return WishlistItemsPageDTO{}, err
	}

	return WishlistItemsPageDTO{
		Items: items,
		Pagination: products.ProductPagination{
			Total:   int(totalCount),
			Current: cursorValue,
			Next:    nextCursor,
		},
	}, nil
}

// ListItemIDs returns only the product IDs a buyer has saved.
func (r *Repository) ListItemIDs(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistIDsDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	cursorValue := strings.TrimSpace(cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return WishlistIDsDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("buyer_id = ?", buyerID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var saves []models.WishlistItem
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&saves).
		Error
	if err != nil {
		return WishlistIDsDTO{}, err
	}

	nextCursor := ""
	if len(saves) > normalizedLimit {
		saves = saves[:normalizedLimit]
		last := saves[len(saves)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	ids := make([]uuid.UUID, 0, len(saves))
	for _, save := range saves {
		ids = append(ids, save.ProductID)
	}

	totalCount, err := r.countItems(ctx, buyerID)
	if err != nil {
		return WishlistIDsDTO{}, err
	}

	return WishlistIDsDTO{
		ProductIDs: ids,
		Pagination: products.ProductPagination{
			Total:   int(totalCount),
			Current: cursorValue,
			Next:    nextCursor,
		},
	}, nil
}

func (r *Repository) countItems(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}
