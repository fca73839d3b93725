package gormstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/felipecardoza/agrolink-backend/internal/store"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/db"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

var storeSeq int

func newTestStore(t *testing.T) *Store {
	t.Helper()
	storeSeq++
	cfg := config.DBConfig{
		DSN:    fmt.Sprintf("file:gormstore%d?mode=memory&cache=shared", storeSeq),
		Driver: "sqlite",
	}
	client, err := db.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(
		&models.Negotiation{},
		&models.ChatMessage{},
	))

	s, err := New(client, nil)
	require.NoError(t, err)
	return s
}

func seedNegotiation(t *testing.T, s *Store, buyerID, farmerID uuid.UUID) *models.Negotiation {
	t.Helper()
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		BuyerID:      buyerID,
		FarmerID:     farmerID,
		Quantity:     150,
		InitialPrice: decimal.NewFromInt(450),
		OfferedPrice: decimal.NewFromInt(420),
		Status:       enums.NegotiationStatusPending,
	}
	created, err := s.CreateNegotiation(context.Background(), negotiation)
	require.NoError(t, err)
	return created
}

func waitForNegotiations(t *testing.T, ch <-chan []models.Negotiation) []models.Negotiation {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for negotiation snapshot")
		return nil
	}
}

func waitForMessages(t *testing.T, ch <-chan []models.ChatMessage) []models.ChatMessage {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message snapshot")
		return nil
	}
}

func TestSubscribeNegotiationsDeliversSnapshots(t *testing.T) {
	s := newTestStore(t)
	buyerID := uuid.New()
	farmerID := uuid.New()

	snapshots := make(chan []models.Negotiation, 8)
	sub, err := s.SubscribeNegotiations(context.Background(), store.NegotiationScope{
		Role:   enums.UserRoleBuyer,
		UserID: buyerID,
	}, func(negotiations []models.Negotiation) {
		snapshots <- negotiations
	}, nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, waitForNegotiations(t, snapshots))

	created := seedNegotiation(t, s, buyerID, farmerID)

	snapshot := waitForNegotiations(t, snapshots)
	require.Len(t, snapshot, 1)
	require.Equal(t, created.ID, snapshot[0].ID)

	// A negotiation outside the scope must not reach this feed.
	seedNegotiation(t, s, uuid.New(), farmerID)
	select {
	case unexpected := <-snapshots:
		require.Len(t, unexpected, 1)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	s := newTestStore(t)
	buyerID := uuid.New()

	snapshots := make(chan []models.Negotiation, 8)
	sub, err := s.SubscribeNegotiations(context.Background(), store.NegotiationScope{
		Role:   enums.UserRoleBuyer,
		UserID: buyerID,
	}, func(negotiations []models.Negotiation) {
		snapshots <- negotiations
	}, nil)
	require.NoError(t, err)

	waitForNegotiations(t, snapshots)
	sub.Unsubscribe()

	seedNegotiation(t, s, buyerID, uuid.New())
	select {
	case <-snapshots:
		t.Fatal("received snapshot after unsubscribe")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSubscribeMessagesScopedToNegotiationSet(t *testing.T) {
	s := newTestStore(t)
	buyerID := uuid.New()
	farmerID := uuid.New()
	inScope := seedNegotiation(t, s, buyerID, farmerID)
	outOfScope := seedNegotiation(t, s, buyerID, farmerID)

	snapshots := make(chan []models.ChatMessage, 8)
	sub, err := s.SubscribeMessages(context.Background(), []uuid.UUID{inScope.ID}, func(messages []models.ChatMessage) {
		snapshots <- messages
	}, nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, waitForMessages(t, snapshots))

	_, err = s.SendMessage(context.Background(), &models.ChatMessage{
		ID:            uuid.New(),
		NegotiationID: inScope.ID,
		SenderID:      buyerID,
		Body:          "can you do 400 per ton?",
		ClientRef:     uuid.NewString(),
	})
	require.NoError(t, err)

	snapshot := waitForMessages(t, snapshots)
	require.Len(t, snapshot, 1)
	require.Equal(t, inScope.ID, snapshot[0].NegotiationID)

	_, err = s.SendMessage(context.Background(), &models.ChatMessage{
		ID:            uuid.New(),
		NegotiationID: outOfScope.ID,
		SenderID:      farmerID,
		Body:          "different thread",
		ClientRef:     uuid.NewString(),
	})
	require.NoError(t, err)

	select {
	case snapshot := <-snapshots:
		t.Fatalf("feed received out-of-scope message snapshot: %v", snapshot)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSendMessageReplayedClientRefReturnsExisting(t *testing.T) {
	s := newTestStore(t)
	negotiation := seedNegotiation(t, s, uuid.New(), uuid.New())

	clientRef := uuid.NewString()
	first, err := s.SendMessage(context.Background(), &models.ChatMessage{
		ID:            uuid.New(),
		NegotiationID: negotiation.ID,
		SenderID:      negotiation.BuyerID,
		Body:          "offer stands",
		ClientRef:     clientRef,
	})
	require.NoError(t, err)

	second, err := s.SendMessage(context.Background(), &models.ChatMessage{
		ID:            uuid.New(),
		NegotiationID: negotiation.ID,
		SenderID:      negotiation.BuyerID,
		Body:          "offer stands",
		ClientRef:     clientRef,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestUpdateNegotiationNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateNegotiation(context.Background(), &models.Negotiation{
		ID:           uuid.New(),
		Quantity:     100,
		OfferedPrice: decimal.NewFromInt(10),
		Status:       enums.NegotiationStatusPending,
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetNegotiation(t *testing.T) {
	s := newTestStore(t)
	created := seedNegotiation(t, s, uuid.New(), uuid.New())

	got, err := s.GetNegotiation(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = s.GetNegotiation(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
