package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type negotiationLoader interface {
	GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
}

// Service exposes cart operations and the checkout value gate.
type Service interface {
	UpsertItem(ctx context.Context, buyerID uuid.UUID, input UpsertItemInput) (*models.CartRecord, error)
	Get(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
	EnsureCheckoutAllowed(cart *models.CartRecord) error
}

// UpsertItemInput stages one product line. When NegotiationID is set the
// line is priced from the accepted negotiation rather than the listing.
type UpsertItemInput struct {
	ProductID     uuid.UUID
	Quantity      int
	NegotiationID *uuid.UUID
}

type service struct {
	repo         CartRepository
	tx           txRunner
	products     productLoader
	negotiations negotiationLoader
	minCartValue decimal.Decimal
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, negotiations negotiationLoader, minCartValue decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product loader required")
	}
	if negotiations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "negotiation loader required")
	}
	if minCartValue.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "minimum cart value must be positive")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		products:     products,
		negotiations: negotiations,
		minCartValue: minCartValue,
	}, nil
}

// UpsertItem prices and stages a line, creating the cart when needed.
func (s *service) UpsertItem(ctx context.Context, buyerID uuid.UUID, input UpsertItemInput) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.ProductByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	quantity := input.Quantity
	unitPrice := product.UnitPrice
	var negotiationID *uuid.UUID

	if input.NegotiationID != nil {
		negotiation, err := s.negotiations.GetNegotiation(ctx, *input.NegotiationID)
		if err != nil {
			return nil, err
		}
		if negotiation.BuyerID != buyerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "negotiation belongs to another buyer")
		}
		if negotiation.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation covers a different product")
		}
		if negotiation.Status != enums.NegotiationStatusAccepted || negotiation.FinalPrice == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted negotiations can price a cart line")
		}
		unitPrice = *negotiation.FinalPrice
		quantity = negotiation.Quantity
		negotiationID = &negotiation.ID
	}

	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByBuyer(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if record == nil {
			record, err = repo.Create(ctx, &models.CartRecord{ID: uuid.New(), BuyerID: buyerID})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
		}

		qty := decimal.NewFromInt(int64(quantity))
		item := &models.CartItem{
			ID:            uuid.New(),
			CartID:        record.ID,
			ProductID:     product.ID,
			FarmerID:      product.FarmerID,
			NegotiationID: negotiationID,
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			LineSubtotal:  unitPrice.Mul(qty),
		}
		if err := repo.UpsertItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, buyerID)
}

// Get loads the buyer's cart; an absent cart reads as empty.
func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if record == nil {
		return &models.CartRecord{BuyerID: buyerID, Items: []models.CartItem{}}, nil
	}
	return record, nil
}

// RemoveItem drops a line and returns the remaining cart.
func (s *service) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return record, nil
	}
	if err := s.repo.DeleteItem(ctx, record.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, buyerID)
}

// Clear removes the buyer's cart entirely (session boundary).
func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if err := s.repo.DeleteByBuyer(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// EnsureCheckoutAllowed applies the minimum cart value gate at the point of
// the checkout action.
func (s *service) EnsureCheckoutAllowed(cart *models.CartRecord) error {
	if cart == nil || len(cart.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	total := Total(cart)
	if total.LessThan(s.minCartValue) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart total below checkout minimum").
			WithDetails(map[string]any{
				"cart_total":     total.String(),
				"min_cart_value": s.minCartValue.String(),
			})
	}
	return nil
}

// Total sums the cart's line subtotals.
func Total(cart *models.CartRecord) decimal.Decimal {
	total := decimal.Zero
	if cart == nil {
		return total
	}
	for _, item := range cart.Items {
		total = total.Add(item.LineSubtotal)
	}
	return total
}
