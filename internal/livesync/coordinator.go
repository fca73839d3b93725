package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/internal/store"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/metrics"
)

// Feed names the two feed kinds a session holds.
type Feed string

const (
	FeedNegotiations Feed = "negotiations"
	FeedMessages     Feed = "messages"
)

type subscriber interface {
	SubscribeNegotiations(ctx context.Context, scope store.NegotiationScope, onData store.NegotiationHandler, onError store.ErrorHandler) (store.Subscription, error)
	SubscribeMessages(ctx context.Context, negotiationIDs []uuid.UUID, onData store.MessageHandler, onError store.ErrorHandler) (store.Subscription, error)
}

// Handlers receive feed output. OnError is called with a classified
// category; an error never cancels its feed.
type Handlers struct {
	OnNegotiations func(negotiations []models.Negotiation)
	OnMessages     func(messages []models.ChatMessage)
	OnError        func(feed Feed, category ErrorCategory, err error)
}

// Coordinator holds exactly one negotiation feed and one message feed per
// session, re-opening the message feed only when its id-set scope changes.
type Coordinator struct {
	store    subscriber
	handlers Handlers
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics

	// rebuildMu serializes message-feed rebuilds so two scope changes can
	// never leave more than one feed open.
	rebuildMu sync.Mutex

	mu             sync.Mutex
	generation     uint64
	negotiationSub store.Subscription
	messageSub     store.Subscription
	messageScope   MessageScope
}

// NewCoordinator wires a subscription coordinator. Metrics may be nil.
func NewCoordinator(remote subscriber, handlers Handlers, logg *logger.Logger, syncMetrics *metrics.SyncMetrics) (*Coordinator, error) {
	if remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote store required")
	}
	if handlers.OnNegotiations == nil || handlers.OnMessages == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "negotiation and message handlers required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Coordinator{
		store:    remote,
		handlers: handlers,
		logg:     logg,
		metrics:  syncMetrics,
	}, nil
}

// Start opens the negotiation feed for the session's scope. Any previously
// open feeds are torn down first.
func (c *Coordinator) Start(ctx context.Context, scope store.NegotiationScope) error {
	c.Teardown()

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	sub, err := c.store.SubscribeNegotiations(ctx, scope,
		func(negotiations []models.Negotiation) {
			if !c.current(gen) {
				return
			}
			c.handlers.OnNegotiations(negotiations)
		},
		func(err error) {
			if !c.current(gen) {
				return
			}
			c.surfaceError(ctx, FeedNegotiations, err)
		},
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSubscription, err, "open negotiation feed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// Torn down while subscribing.
		sub.Unsubscribe()
		return nil
	}
	c.negotiationSub = sub
	return nil
}

// EnsureMessageScope reconciles the message feed against the negotiation
// ids currently visible. If the unordered set is unchanged the existing
// feed is kept; otherwise the old feed is closed and a new one opened.
func (c *Coordinator) EnsureMessageScope(ctx context.Context, negotiationIDs []uuid.UUID) error {
	next := NewMessageScope(negotiationIDs)

	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	c.mu.Lock()
	if c.messageSub != nil && c.messageScope.Equal(next) {
		c.mu.Unlock()
		c.metrics.IncFeedSkipped()
		return nil
	}
	previous := c.messageSub
	c.messageSub = nil
	gen := c.generation
	c.mu.Unlock()

	if previous != nil {
		previous.Unsubscribe()
	}

	started := time.Now()
	sub, err := c.store.SubscribeMessages(ctx, next.IDs(),
		func(messages []models.ChatMessage) {
			if !c.current(gen) {
				return
			}
			c.handlers.OnMessages(messages)
		},
		func(err error) {
			if !c.current(gen) {
				return
			}
			c.surfaceError(ctx, FeedMessages, err)
		},
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSubscription, err, "open message feed")
	}

	c.metrics.IncFeedRebuilt()
	c.metrics.ObserveRebuildDuration(string(FeedMessages), time.Since(started))

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		sub.Unsubscribe()
		return nil
	}
	if c.messageSub != nil {
		c.messageSub.Unsubscribe()
	}
	c.messageSub = sub
	c.messageScope = next
	return nil
}

// Teardown closes both feeds and stops delivery to the old callbacks. It is
// the session-boundary operation: safe to call repeatedly, always atomic.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	c.generation++
	negotiationSub := c.negotiationSub
	messageSub := c.messageSub
	c.negotiationSub = nil
	c.messageSub = nil
	c.messageScope = nil
	c.mu.Unlock()

	if negotiationSub != nil {
		negotiationSub.Unsubscribe()
	}
	if messageSub != nil {
		messageSub.Unsubscribe()
	}
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Coordinator) surfaceError(ctx context.Context, feed Feed, err error) {
	category := Classify(err)
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
		"feed":     string(feed),
		"category": string(category),
		"error":    err.Error(),
	}), "live feed error")
	if c.handlers.OnError != nil {
		c.handlers.OnError(feed, category, err)
	}
}
