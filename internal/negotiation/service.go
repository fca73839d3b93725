package negotiation

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

// Service owns negotiation lifecycle operations against the remote store.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Negotiation, error)
	Counter(ctx context.Context, params CounterParams) (*models.Negotiation, error)
	Respond(ctx context.Context, params RespondParams) (*models.Negotiation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
}

type remoteStore interface {
	CreateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error)
	UpdateNegotiation(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error)
	GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
}

type productLoader interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type settlementRecorder interface {
	RecordAcceptance(ctx context.Context, negotiation models.Negotiation, actorID uuid.UUID) error
	HasEvent(ctx context.Context, negotiationID uuid.UUID, eventType enums.SettlementEventType) (bool, error)
}

type service struct {
	store       remoteStore
	products    productLoader
	settlements settlementRecorder
	logg        *logger.Logger
	minBulkQty  int
}

// CreateParams opens a pending negotiation from a buyer offer.
type CreateParams struct {
	BuyerID      uuid.UUID
	ProductID    uuid.UUID
	Quantity     int
	OfferedPrice decimal.Decimal
	Notes        *string
}

// CounterParams revises the price on the table.
type CounterParams struct {
	NegotiationID uuid.UUID
	ActorID       uuid.UUID
	ActorRole     enums.UserRole
	NewPrice      decimal.Decimal
	Notes         *string
}

// RespondParams closes the negotiation with a terminal decision.
type RespondParams struct {
	NegotiationID uuid.UUID
	ActorID       uuid.UUID
	Decision      Decision
}

// NewService wires negotiation dependencies.
func NewService(store remoteStore, products productLoader, settlements settlementRecorder, logg *logger.Logger, minBulkQty int) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "negotiation store required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product loader required")
	}
	if settlements == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settlement recorder required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if minBulkQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "minimum bulk quantity must be positive")
	}
	return &service{
		store:       store,
		products:    products,
		settlements: settlements,
		logg:        logg,
		minBulkQty:  minBulkQty,
	}, nil
}

// Create validates the bulk-quantity gate and opens a pending negotiation.
// Validation failures produce no remote state change.
func (s *service) Create(ctx context.Context, params CreateParams) (*models.Negotiation, error) {
	if params.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if params.Quantity < s.minBulkQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity below bulk minimum").
			WithDetails(map[string]any{"min_bulk_qty": s.minBulkQty})
	}
	if params.OfferedPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offered price must be positive")
	}

	product, err := s.products.ProductByID(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if params.Quantity < product.MinBulkQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity below listing minimum").
			WithDetails(map[string]any{"min_bulk_qty": product.MinBulkQty})
	}

	negotiation := &models.Negotiation{
		ProductID:    product.ID,
		BuyerID:      params.BuyerID,
		FarmerID:     product.FarmerID,
		Quantity:     params.Quantity,
		InitialPrice: product.UnitPrice,
		OfferedPrice: params.OfferedPrice,
		Status:       enums.NegotiationStatusPending,
		Notes:        params.Notes,
	}
	return s.store.CreateNegotiation(ctx, negotiation)
}

// Counter applies a price revision by either party. The write is not
// optimistic; a remote failure leaves prior state untouched.
func (s *service) Counter(ctx context.Context, params CounterParams) (*models.Negotiation, error) {
	if params.NewPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter price must be positive")
	}

	negotiation, err := s.store.GetNegotiation(ctx, params.NegotiationID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(*negotiation, params.ActorID, params.ActorRole); err != nil {
		return nil, err
	}

	next, err := ApplyCounter(*negotiation, params.ActorRole, params.NewPrice, params.Notes)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateNegotiation(ctx, &next)
}

// Respond moves the negotiation to a terminal state. Acceptance emits a
// settlement event; a recording failure is logged and never rolls back the
// already-committed transition.
func (s *service) Respond(ctx context.Context, params RespondParams) (*models.Negotiation, error) {
	negotiation, err := s.store.GetNegotiation(ctx, params.NegotiationID)
	if err != nil {
		return nil, err
	}
	if params.ActorID != negotiation.BuyerID && params.ActorID != negotiation.FarmerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a negotiation participant")
	}

	next, err := ApplyResponse(*negotiation, params.Decision)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateNegotiation(ctx, &next)
	if err != nil {
		return nil, err
	}

	if params.Decision == DecisionAccept {
		s.recordAcceptanceOnce(ctx, *updated, params.ActorID)
	}
	return updated, nil
}

// recordAcceptanceOnce writes the offer_accepted event unless one already
// exists for the negotiation. Recording is best-effort: failures are logged,
// never propagated.
func (s *service) recordAcceptanceOnce(ctx context.Context, negotiation models.Negotiation, actorID uuid.UUID) {
	warnCtx := s.logg.WithNegotiationID(ctx, negotiation.ID.String())

	recorded, err := s.settlements.HasEvent(ctx, negotiation.ID, enums.SettlementEventOfferAccepted)
	if err != nil {
		s.logg.Warn(s.logg.WithField(warnCtx, "error", err.Error()), "settlement dedup check failed")
	}
	if recorded {
		return
	}

	if recErr := s.settlements.RecordAcceptance(ctx, negotiation, actorID); recErr != nil {
		s.logg.Warn(s.logg.WithField(warnCtx, "error", recErr.Error()), "settlement recording failed")
	}
}

// Get loads one negotiation.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	return s.store.GetNegotiation(ctx, id)
}

func requireParticipant(negotiation models.Negotiation, actorID uuid.UUID, role enums.UserRole) error {
	switch role {
	case enums.UserRoleBuyer:
		if negotiation.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not the negotiation buyer")
		}
	case enums.UserRoleFarmer:
		if negotiation.FarmerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not the negotiation farmer")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown actor role")
	}
	return nil
}
