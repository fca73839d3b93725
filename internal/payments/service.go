package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/felipecardoza/agrolink-backend/internal/cart"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

type productLoader interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// SessionDTO mirrors a provider checkout session for API consumers.
type SessionDTO struct {
	SessionID   string                     `json:"session_id"`
	CheckoutURL string                     `json:"checkout_url"`
	Amount      decimal.Decimal            `json:"amount"`
	Currency    enums.Currency             `json:"currency"`
	Status      enums.PaymentSessionStatus `json:"status"`
}

// Service is the payment gateway: it opens provider checkout sessions for a
// buyer's cart and mirrors their status locally.
type Service interface {
	CreateCheckoutSession(ctx context.Context, buyerID uuid.UUID, record *models.CartRecord) (*SessionDTO, error)
	GetSessionStatus(ctx context.Context, providerSessionID string) (*SessionDTO, error)
}

// ServiceParams groups dependencies for the payment gateway.
type ServiceParams struct {
	Repo     *Repository
	Client   CheckoutSessionClient
	Products productLoader
	Config   config.StripeConfig
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	client   CheckoutSessionClient
	products productLoader
	cfg      config.StripeConfig
	logg     *logger.Logger
}

// NewService builds the gateway. A nil Client is allowed so the rest of the
// application keeps working when payment credentials are absent; every
// payment operation then fails fast without a network call.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment session repository required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product loader required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Repo,
		client:   params.Client,
		products: params.Products,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

// CreateCheckoutSession opens a provider session covering the full cart.
func (s *service) CreateCheckoutSession(ctx context.Context, buyerID uuid.UUID, record *models.CartRecord) (*SessionDTO, error) {
	if s.client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment provider credentials are not configured")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if record == nil || record.ID == uuid.Nil || len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if record.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another buyer")
	}

	currency := string(enums.CurrencyUSD)
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(record.Items))
	for _, item := range record.Items {
		listing, err := s.products.ProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(item.UnitPrice)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(listing.Title),
				},
			},
		})
	}

	methods := make([]string, 0, 2)
	for _, method := range enums.AllowedPaymentMethodTypes() {
		methods = append(methods, string(method))
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.cfg.SuccessURL),
		CancelURL:          stripe.String(s.cfg.CancelURL),
		PaymentMethodTypes: stripe.StringSlice(methods),
		LineItems:          lineItems,
		Metadata: map[string]string{
			"cart_id":  record.ID.String(),
			"buyer_id": buyerID.String(),
		},
	}

	created, err := s.client.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	total := cart.Total(record)
	mirrored := &models.PaymentSession{
		ID:                uuid.New(),
		CartID:            record.ID,
		BuyerID:           buyerID,
		ProviderSessionID: created.ID,
		CheckoutURL:       created.URL,
		Amount:            total,
		Currency:          enums.CurrencyUSD,
		Status:            enums.PaymentSessionStatusPending,
	}
	if _, err := s.repo.Create(ctx, mirrored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment session")
	}

	return &SessionDTO{
		SessionID:   created.ID,
		CheckoutURL: created.URL,
		Amount:      total,
		Currency:    enums.CurrencyUSD,
		Status:      enums.PaymentSessionStatusPending,
	}, nil
}

// GetSessionStatus resolves the provider session state. Retrieval failures
// read as a failed payment rather than an error so callers always get a
// terminal answer.
func (s *service) GetSessionStatus(ctx context.Context, providerSessionID string) (*SessionDTO, error) {
	if s.client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment provider credentials are not configured")
	}
	if providerSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	mirrored, err := s.repo.FindByProviderSessionID(ctx, providerSessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}
	if mirrored == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}

	remote, err := s.client.Retrieve(ctx, providerSessionID, nil)
	status := enums.PaymentSessionStatusFailed
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout session retrieval failed")
	} else {
		status = mapSessionStatus(remote.Status)
	}

	if status != mirrored.Status {
		if updateErr := s.repo.UpdateStatus(ctx, mirrored.ID, status); updateErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", updateErr.Error()), "payment session status update failed")
		}
	}

	return &SessionDTO{
		SessionID:   mirrored.ProviderSessionID,
		CheckoutURL: mirrored.CheckoutURL,
		Amount:      mirrored.Amount,
		Currency:    mirrored.Currency,
		Status:      status,
	}, nil
}

func mapSessionStatus(status stripe.CheckoutSessionStatus) enums.PaymentSessionStatus {
	switch status {
	case stripe.CheckoutSessionStatusComplete:
		return enums.PaymentSessionStatusCompleted
	case stripe.CheckoutSessionStatusExpired:
		return enums.PaymentSessionStatusCancelled
	case stripe.CheckoutSessionStatusOpen:
		return enums.PaymentSessionStatusPending
	default:
		return enums.PaymentSessionStatusFailed
	}
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
