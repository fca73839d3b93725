package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem links a buyer to a saved listing.
type WishlistItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index:wishlist_items_buyer_id_idx;uniqueIndex:wishlist_items_buyer_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:wishlist_items_product_id_idx;uniqueIndex:wishlist_items_buyer_product_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
