package session

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

func testRegistry(t *testing.T) (*Registry, *fakeSessionStore) {
	t.Helper()
	remote := &fakeSessionStore{}
	registry, err := NewRegistry(func(identity Identity) (*Controller, error) {
		return NewController(ControllerParams{
			Identity:     identity,
			Store:        remote,
			Negotiations: &fakeNegotiationService{},
			Carts:        &fakeCartService{},
			Wishlists:    &fakeWishlistService{},
			Payments:     &fakePaymentService{},
			Logger:       logger.New(logger.Options{ServiceName: "registry-test"}),
		})
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry, remote
}

func TestStartSessionReplacesPrevious(t *testing.T) {
	registry, remote := testRegistry(t)
	identity := verifiedBuyer()

	first, err := registry.StartSession(context.Background(), identity)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	remote.pushNegotiations([]models.Negotiation{{ID: uuid.New()}})
	if len(first.Negotiations()) != 1 {
		t.Fatal("first session should receive the snapshot")
	}

	second, err := registry.StartSession(context.Background(), identity)
	if err != nil {
		t.Fatalf("StartSession (replacement): %v", err)
	}
	if first == second {
		t.Fatal("replacement should produce a fresh controller")
	}
	if len(first.Negotiations()) != 0 {
		t.Fatal("replaced session state should be cleared")
	}

	current, ok := registry.Get(identity.UserID)
	if !ok || current != second {
		t.Fatal("registry should track the replacement controller")
	}
}

func TestStartSessionTearsDownPreviousBeforeSubscribing(t *testing.T) {
	registry, remote := testRegistry(t)
	identity := verifiedBuyer()

	if _, err := registry.StartSession(context.Background(), identity); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	remote.mu.Lock()
	firstFeed := remote.negotiationFeeds[0]
	remote.mu.Unlock()

	var overlapped bool
	remote.onSubscribeNegotiations = func() {
		if !firstFeed.closed {
			overlapped = true
		}
	}

	if _, err := registry.StartSession(context.Background(), identity); err != nil {
		t.Fatalf("StartSession (replacement): %v", err)
	}
	if overlapped {
		t.Fatal("previous negotiation feed was still open when the replacement subscribed")
	}
}

func TestEndSessionForgetsController(t *testing.T) {
	registry, _ := testRegistry(t)
	identity := verifiedBuyer()

	if _, err := registry.StartSession(context.Background(), identity); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := registry.EndSession(context.Background(), identity.UserID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, ok := registry.Get(identity.UserID); ok {
		t.Fatal("ended session should be forgotten")
	}
	if err := registry.EndSession(context.Background(), identity.UserID); err != nil {
		t.Fatalf("EndSession on unknown user should be a no-op, got %v", err)
	}
}
