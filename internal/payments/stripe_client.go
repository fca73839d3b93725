package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/felipecardoza/agrolink-backend/pkg/stripe"
)

// CheckoutSessionClient exposes the subset of Stripe operations required by
// the payment gateway.
type CheckoutSessionClient interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
}

type stripeClientWrapper struct {
	api *stripe.Client
}

// NewStripeClient wraps the provided Stripe client so the gateway can be
// tested. A nil client yields a nil wrapper; the gateway treats that as
// "payments unconfigured" and never touches the network.
func NewStripeClient(api *pkgstripe.Client) CheckoutSessionClient {
	raw := api.API()
	if raw == nil {
		return nil
	}
	return &stripeClientWrapper{api: raw}
}

func (w *stripeClientWrapper) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return w.api.V1CheckoutSessions.Create(ctx, params)
}

func (w *stripeClientWrapper) Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionRetrieveParams{}
	}
	return w.api.V1CheckoutSessions.Retrieve(ctx, id, params)
}
