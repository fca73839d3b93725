package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	products "github.com/felipecardoza/agrolink-backend/internal/products"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

type buyerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  *products.Repository
	Users        buyerLoader
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistItemsPageDTO, error)
	GetWishlistIDs(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistIDsDTO, error)
	AddItem(ctx context.Context, buyerID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) error
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	productRepo  *products.Repository
	users        buyerLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wishlist repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repo is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user loader is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		productRepo:  params.ProductRepo,
		users:        params.Users,
	}, nil
}

// GetWishlist returns the paginated wishlist for a buyer.
func (s *service) GetWishlist(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistItemsPageDTO, error) {
	if err := s.ensureBuyer(ctx, buyerID); err != nil {
		return WishlistItemsPageDTO{}, err
	}
	return s.wishlistRepo.ListItems(ctx, buyerID, cursor, limit)
}

// GetWishlistIDs returns saved product IDs for the buyer.
func (s *service) GetWishlistIDs(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (WishlistIDsDTO, error) {
	if err := s.ensureBuyer(ctx, buyerID); err != nil {
		return WishlistIDsDTO{}, err
	}
	return s.wishlistRepo.ListItemIDs(ctx, buyerID, cursor, limit)
}

// AddItem ensures the listing exists and saves it for the buyer.
func (s *service) AddItem(ctx context.Context, buyerID, productID uuid.UUID) error {
	if err := s.ensureBuyer(ctx, buyerID); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return s.wishlistRepo.AddItem(ctx, buyerID, productID)
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) error {
	if err := s.ensureBuyer(ctx, buyerID); err != nil {
		return err
	}
	return s.wishlistRepo.RemoveItem(ctx, buyerID, productID)
}

// Clear removes every save for the buyer (session boundary).
func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	return s.wishlistRepo.RemoveByBuyer(ctx, buyerID)
}

func (s *service) ensureBuyer(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	user, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "buyer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	if user.Role != enums.UserRoleBuyer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "wishlist access is restricted to buyers")
	}
	return nil
}
