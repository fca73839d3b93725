package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/internal/cart"
	"github.com/felipecardoza/agrolink-backend/internal/chat"
	"github.com/felipecardoza/agrolink-backend/internal/livesync"
	"github.com/felipecardoza/agrolink-backend/internal/negotiation"
	"github.com/felipecardoza/agrolink-backend/internal/payments"
	"github.com/felipecardoza/agrolink-backend/internal/store"
	"github.com/felipecardoza/agrolink-backend/internal/wishlist"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/metrics"
)

// Identity names the authenticated user a session belongs to.
type Identity struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	KYCStatus enums.KYCStatus
}

type sendLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ControllerParams groups the dependencies of one live session.
type ControllerParams struct {
	Identity     Identity
	Store        store.Store
	Negotiations negotiation.Service
	Carts        cart.Service
	Wishlists    wishlist.Service
	Payments     payments.Service
	Limiter      sendLimiter
	Logger       *logger.Logger
	Metrics      *metrics.SyncMetrics
}

const (
	messageSendLimit  = 30
	messageSendWindow = time.Minute
)

// Controller owns one authenticated session: the live feeds, the local
// working set, and the gated write paths. A session survives until SignOut
// or SwitchRole tears it down.
type Controller struct {
	identity    Identity
	container   *Container
	coordinator *livesync.Coordinator
	pipeline    *chat.Pipeline

	negotiations negotiation.Service
	carts        cart.Service
	wishlists    wishlist.Service
	payments     payments.Service
	limiter      sendLimiter
	logg         *logger.Logger

	feedCtx context.Context

	errMu      sync.Mutex
	feedErrors map[livesync.Feed]FeedError
}

// FeedError is the last classified error surfaced by a feed. Feed errors are
// non-fatal; the session exposes them so clients can show degraded state.
type FeedError struct {
	Category livesync.ErrorCategory `json:"category"`
	Message  string                 `json:"message"`
	At       time.Time              `json:"at"`
}

// NewController wires a session controller. Limiter and Metrics may be nil.
func NewController(params ControllerParams) (*Controller, error) {
	if params.Identity.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session identity required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote store required")
	}
	if params.Negotiations == nil || params.Carts == nil || params.Wishlists == nil || params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "negotiation, cart, wishlist and payment services required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	ctrl := &Controller{
		identity:     params.Identity,
		container:    NewContainer(),
		negotiations: params.Negotiations,
		carts:        params.Carts,
		wishlists:    params.Wishlists,
		payments:     params.Payments,
		limiter:      params.Limiter,
		logg:         params.Logger,
		feedCtx:      context.Background(),
		feedErrors:   map[livesync.Feed]FeedError{},
	}

	pipeline, err := chat.NewPipeline(ctrl.container, params.Store, params.Logger, params.Metrics)
	if err != nil {
		return nil, err
	}
	ctrl.pipeline = pipeline

	coordinator, err := livesync.NewCoordinator(params.Store, livesync.Handlers{
		OnNegotiations: ctrl.onNegotiations,
		OnMessages:     ctrl.onMessages,
		OnError:        ctrl.onFeedError,
	}, params.Logger, params.Metrics)
	if err != nil {
		return nil, err
	}
	ctrl.coordinator = coordinator

	return ctrl, nil
}

// Identity returns the session's authenticated identity.
func (c *Controller) Identity() Identity {
	return c.identity
}

// Start opens the negotiation feed for the session's scope.
func (c *Controller) Start(ctx context.Context) error {
	c.feedCtx = context.WithoutCancel(ctx)
	return c.coordinator.Start(ctx, store.NegotiationScope{
		Role:   c.identity.Role,
		UserID: c.identity.UserID,
	})
}

func (c *Controller) onNegotiations(negotiations []models.Negotiation) {
	c.container.Apply(NegotiationSnapshotReceived{Negotiations: negotiations})
	if err := c.coordinator.EnsureMessageScope(c.feedCtx, c.container.NegotiationIDs()); err != nil {
		c.logg.Warn(c.logg.WithField(c.feedCtx, "error", err.Error()), "message feed reconcile failed")
	}
}

func (c *Controller) onMessages(messages []models.ChatMessage) {
	c.container.Apply(MessageSnapshotReceived{Messages: messages})
}

func (c *Controller) onFeedError(feed livesync.Feed, category livesync.ErrorCategory, err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.feedErrors[feed] = FeedError{
		Category: category,
		Message:  err.Error(),
		At:       time.Now().UTC(),
	}
}

// FeedErrors returns the last surfaced error per feed.
func (c *Controller) FeedErrors() map[livesync.Feed]FeedError {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	out := make(map[livesync.Feed]FeedError, len(c.feedErrors))
	for feed, fe := range c.feedErrors {
		out[feed] = fe
	}
	return out
}

// OpenNegotiation starts a pending negotiation from a buyer offer. Requires
// the buyer role and a verified identity.
func (c *Controller) OpenNegotiation(ctx context.Context, productID uuid.UUID, quantity int, offeredPrice decimal.Decimal, notes *string) (*models.Negotiation, error) {
	if c.identity.Role != enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers open negotiations")
	}
	if err := c.requireVerified(); err != nil {
		return nil, err
	}
	created, err := c.negotiations.Create(ctx, negotiation.CreateParams{
		BuyerID:      c.identity.UserID,
		ProductID:    productID,
		Quantity:     quantity,
		OfferedPrice: offeredPrice,
		Notes:        notes,
	})
	if err != nil {
		return nil, err
	}
	c.container.Apply(NegotiationTransitioned{Negotiation: *created})
	return created, nil
}

// CounterOffer revises the price on the table from the session's side.
func (c *Controller) CounterOffer(ctx context.Context, negotiationID uuid.UUID, newPrice decimal.Decimal, notes *string) (*models.Negotiation, error) {
	updated, err := c.negotiations.Counter(ctx, negotiation.CounterParams{
		NegotiationID: negotiationID,
		ActorID:       c.identity.UserID,
		ActorRole:     c.identity.Role,
		NewPrice:      newPrice,
		Notes:         notes,
	})
	if err != nil {
		return nil, err
	}
	c.container.Apply(NegotiationTransitioned{Negotiation: *updated})
	return updated, nil
}

// Respond closes the negotiation with accept or reject.
func (c *Controller) Respond(ctx context.Context, negotiationID uuid.UUID, decision negotiation.Decision) (*models.Negotiation, error) {
	updated, err := c.negotiations.Respond(ctx, negotiation.RespondParams{
		NegotiationID: negotiationID,
		ActorID:       c.identity.UserID,
		Decision:      decision,
	})
	if err != nil {
		return nil, err
	}
	c.container.Apply(NegotiationTransitioned{Negotiation: *updated})
	return updated, nil
}

// SendMessage pushes an optimistic chat message into the negotiation.
func (c *Controller) SendMessage(ctx context.Context, negotiationID uuid.UUID, body string) (uuid.UUID, error) {
	if c.limiter != nil {
		allowed, _, err := c.limiter.FixedWindowAllow(ctx, "chat:"+c.identity.UserID.String(), messageSendLimit, messageSendWindow)
		if err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "send rate check failed")
		} else if !allowed {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeRateLimit, "message rate limit exceeded")
		}
	}
	return c.pipeline.Send(ctx, negotiationID, c.identity.UserID, body)
}

// RetryMessage re-attempts a failed message.
func (c *Controller) RetryMessage(ctx context.Context, messageID uuid.UUID) error {
	return c.pipeline.Retry(ctx, messageID)
}

// Negotiations returns the session's visible negotiation set.
func (c *Controller) Negotiations() []models.Negotiation {
	return c.container.Negotiations()
}

// Messages returns the merged message view for one negotiation.
func (c *Controller) Messages(negotiationID uuid.UUID) []chat.Message {
	return c.container.Messages(negotiationID)
}

// Cart returns the buyer's current cart.
func (c *Controller) Cart(ctx context.Context) (*models.CartRecord, error) {
	return c.carts.Get(ctx, c.identity.UserID)
}

// UpsertCartItem stages a line in the buyer's cart.
func (c *Controller) UpsertCartItem(ctx context.Context, input cart.UpsertItemInput) (*models.CartRecord, error) {
	if c.identity.Role != enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers hold carts")
	}
	return c.carts.UpsertItem(ctx, c.identity.UserID, input)
}

// Checkout applies the checkout gates and opens a provider payment session.
func (c *Controller) Checkout(ctx context.Context) (*payments.SessionDTO, error) {
	if c.identity.Role != enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers check out")
	}
	if err := c.requireVerified(); err != nil {
		return nil, err
	}
	record, err := c.carts.Get(ctx, c.identity.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.carts.EnsureCheckoutAllowed(record); err != nil {
		return nil, err
	}
	return c.payments.CreateCheckoutSession(ctx, c.identity.UserID, record)
}

// SaveListing adds a product to the buyer's wishlist.
func (c *Controller) SaveListing(ctx context.Context, productID uuid.UUID) error {
	return c.wishlists.AddItem(ctx, c.identity.UserID, productID)
}

// UnsaveListing removes a product from the buyer's wishlist.
func (c *Controller) UnsaveListing(ctx context.Context, productID uuid.UUID) error {
	return c.wishlists.RemoveItem(ctx, c.identity.UserID, productID)
}

// SignOut is the session boundary: feeds torn down, then all session state
// cleared. Local state is always cleared even when persistence cleanup
// reports an error.
func (c *Controller) SignOut(ctx context.Context) error {
	c.coordinator.Teardown()
	c.container.Apply(SessionCleared{})
	c.errMu.Lock()
	c.feedErrors = map[livesync.Feed]FeedError{}
	c.errMu.Unlock()

	var errs []error
	if err := c.carts.Clear(ctx, c.identity.UserID); err != nil {
		errs = append(errs, err)
	}
	if err := c.wishlists.Clear(ctx, c.identity.UserID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SwitchRole tears the session down and reopens it under the new identity.
func (c *Controller) SwitchRole(ctx context.Context, identity Identity) error {
	if identity.UserID != c.identity.UserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "role switch keeps the same user")
	}
	if !identity.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if err := c.SignOut(ctx); err != nil {
		return err
	}
	c.identity = identity
	return c.Start(ctx)
}

func (c *Controller) requireVerified() error {
	if c.identity.KYCStatus != enums.KYCStatusVerified {
		return pkgerrors.New(pkgerrors.CodeForbidden, "identity verification required")
	}
	return nil
}
