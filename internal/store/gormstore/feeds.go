package gormstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/internal/store"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

// SubscribeNegotiations opens a live negotiation feed for the scope. The
// current result set is delivered immediately, then again after every write
// that touches the scope. Deliveries are always full snapshots.
func (s *Store) SubscribeNegotiations(ctx context.Context, scope store.NegotiationScope, onData store.NegotiationHandler, onError store.ErrorHandler) (store.Subscription, error) {
	if onData == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "data handler required")
	}
	if scope.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope user id required")
	}

	feed := &negotiationFeed{
		scope:   scope,
		onData:  onData,
		onError: onError,
	}
	s.feeds.addNegotiationFeed(feed)

	go s.refreshNegotiationFeed(context.WithoutCancel(ctx), feed)
	return feed, nil
}

// SubscribeMessages opens a live message feed over the unordered set of
// negotiation ids. An empty set is valid and delivers empty snapshots.
func (s *Store) SubscribeMessages(ctx context.Context, negotiationIDs []uuid.UUID, onData store.MessageHandler, onError store.ErrorHandler) (store.Subscription, error) {
	if onData == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "data handler required")
	}

	idSet := make(map[uuid.UUID]struct{}, len(negotiationIDs))
	ids := make([]uuid.UUID, 0, len(negotiationIDs))
	for _, id := range negotiationIDs {
		if _, seen := idSet[id]; seen {
			continue
		}
		idSet[id] = struct{}{}
		ids = append(ids, id)
	}

	feed := &messageFeed{
		ids:     ids,
		idSet:   idSet,
		onData:  onData,
		onError: onError,
	}
	s.feeds.addMessageFeed(feed)

	go s.refreshMessageFeed(context.WithoutCancel(ctx), feed)
	return feed, nil
}

func (s *Store) changed(ctx context.Context, event ChangeEvent) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "changefeed publish failed")
		}
	}
	s.fanout(context.WithoutCancel(ctx), event)
}

// ApplyRemoteChange pushes fresh snapshots to local feeds affected by an
// event that originated on another instance.
func (s *Store) ApplyRemoteChange(ctx context.Context, event ChangeEvent) {
	s.fanout(context.WithoutCancel(ctx), event)
}

func (s *Store) fanout(ctx context.Context, event ChangeEvent) {
	switch event.Kind {
	case ChangeKindNegotiation:
		for _, feed := range s.feeds.negotiationFeedsFor(event) {
			go s.refreshNegotiationFeed(ctx, feed)
		}
	case ChangeKindMessage:
		for _, feed := range s.feeds.messageFeedsFor(event.NegotiationID) {
			go s.refreshMessageFeed(ctx, feed)
		}
	}
}

func (s *Store) refreshNegotiationFeed(ctx context.Context, feed *negotiationFeed) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.closed {
		return
	}

	negotiations, err := s.negotiationsForScope(ctx, feed.scope)
	if err != nil {
		if feed.onError != nil {
			feed.onError(err)
		}
		return
	}
	feed.onData(negotiations)
}

func (s *Store) refreshMessageFeed(ctx context.Context, feed *messageFeed) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.closed {
		return
	}

	messages, err := s.messagesForNegotiations(ctx, feed.ids)
	if err != nil {
		if feed.onError != nil {
			feed.onError(err)
		}
		return
	}
	feed.onData(messages)
}

type negotiationFeed struct {
	scope   store.NegotiationScope
	onData  store.NegotiationHandler
	onError store.ErrorHandler

	mu       sync.Mutex
	closed   bool
	registry *feedRegistry
	id       uint64
}

// Unsubscribe stops all further deliveries. Safe to call repeatedly.
func (f *negotiationFeed) Unsubscribe() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if f.registry != nil {
		f.registry.removeNegotiationFeed(f.id)
	}
}

type messageFeed struct {
	ids     []uuid.UUID
	idSet   map[uuid.UUID]struct{}
	onData  store.MessageHandler
	onError store.ErrorHandler

	mu       sync.Mutex
	closed   bool
	registry *feedRegistry
	id       uint64
}

// Unsubscribe stops all further deliveries. Safe to call repeatedly.
func (f *messageFeed) Unsubscribe() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if f.registry != nil {
		f.registry.removeMessageFeed(f.id)
	}
}

type feedRegistry struct {
	mu           sync.Mutex
	nextID       uint64
	negotiations map[uint64]*negotiationFeed
	messages     map[uint64]*messageFeed
}

func newFeedRegistry() *feedRegistry {
	return &feedRegistry{
		negotiations: map[uint64]*negotiationFeed{},
		messages:     map[uint64]*messageFeed{},
	}
}

func (r *feedRegistry) addNegotiationFeed(feed *negotiationFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	feed.id = r.nextID
	feed.registry = r
	r.negotiations[feed.id] = feed
}

func (r *feedRegistry) addMessageFeed(feed *messageFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	feed.id = r.nextID
	feed.registry = r
	r.messages[feed.id] = feed
}

func (r *feedRegistry) removeNegotiationFeed(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.negotiations, id)
}

func (r *feedRegistry) removeMessageFeed(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, id)
}

func (r *feedRegistry) negotiationFeedsFor(event ChangeEvent) []*negotiationFeed {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*negotiationFeed, 0, len(r.negotiations))
	for _, feed := range r.negotiations {
		if feed.scope.UserID == event.BuyerID || feed.scope.UserID == event.FarmerID {
			matches = append(matches, feed)
		}
	}
	return matches
}

func (r *feedRegistry) messageFeedsFor(negotiationID uuid.UUID) []*messageFeed {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*messageFeed, 0, len(r.messages))
	for _, feed := range r.messages {
		if _, ok := feed.idSet[negotiationID]; ok {
			matches = append(matches, feed)
		}
	}
	return matches
}
