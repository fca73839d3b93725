package session

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/internal/chat"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

func provisionalMessage(negotiationID uuid.UUID, status enums.MessageDeliveryStatus) chat.Message {
	return chat.Message{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		SenderID:      uuid.New(),
		Body:          "hello",
		Status:        status,
		Provisional:   true,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestSnapshotRetainsUnresolvedProvisionals(t *testing.T) {
	container := NewContainer()
	negotiationID := uuid.New()

	sending := provisionalMessage(negotiationID, enums.MessageDeliveryStatusSending)
	failed := provisionalMessage(negotiationID, enums.MessageDeliveryStatusFailed)
	confirmed := provisionalMessage(negotiationID, enums.MessageDeliveryStatusSent)
	container.InsertMessage(sending)
	container.InsertMessage(failed)
	container.InsertMessage(confirmed)

	container.Apply(MessageSnapshotReceived{Messages: []models.ChatMessage{{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		SenderID:      uuid.New(),
		Body:          "from the other side",
		ClientRef:     uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}}})

	view := container.Messages(negotiationID)
	if len(view) != 3 {
		t.Fatalf("expected remote + sending + failed = 3 messages, got %d", len(view))
	}
	if _, ok := container.MessageByID(confirmed.ID); ok {
		t.Fatal("confirmed provisional should be dropped by the snapshot")
	}
	if _, ok := container.MessageByID(sending.ID); !ok {
		t.Fatal("sending provisional must survive the snapshot")
	}
	if _, ok := container.MessageByID(failed.ID); !ok {
		t.Fatal("failed provisional must survive the snapshot")
	}
}

func TestSnapshotEchoSupersedesProvisional(t *testing.T) {
	container := NewContainer()
	negotiationID := uuid.New()

	sending := provisionalMessage(negotiationID, enums.MessageDeliveryStatusSending)
	container.InsertMessage(sending)

	// Remote echo carries the provisional id as its client ref.
	container.Apply(MessageSnapshotReceived{Messages: []models.ChatMessage{{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		SenderID:      sending.SenderID,
		Body:          sending.Body,
		ClientRef:     sending.ID.String(),
		CreatedAt:     time.Now().UTC(),
	}}})

	if _, ok := container.MessageByID(sending.ID); ok {
		t.Fatal("echoed provisional should be superseded")
	}
	view := container.Messages(negotiationID)
	if len(view) != 1 {
		t.Fatalf("expected exactly the remote copy, got %d messages", len(view))
	}
	if view[0].Provisional {
		t.Fatal("surviving message should be the canonical remote record")
	}
}

func TestNegotiationSnapshotReplacesWholesale(t *testing.T) {
	container := NewContainer()
	first := models.Negotiation{ID: uuid.New()}
	second := models.Negotiation{ID: uuid.New()}

	container.Apply(NegotiationSnapshotReceived{Negotiations: []models.Negotiation{first, second}})
	if !container.NegotiationKnown(first.ID) || !container.NegotiationKnown(second.ID) {
		t.Fatal("both negotiations should be visible")
	}

	container.Apply(NegotiationSnapshotReceived{Negotiations: []models.Negotiation{second}})
	if container.NegotiationKnown(first.ID) {
		t.Fatal("negotiation dropped by the snapshot should no longer be known")
	}
}

func TestNegotiationTransitionedUpserts(t *testing.T) {
	container := NewContainer()
	negotiation := models.Negotiation{ID: uuid.New(), Status: enums.NegotiationStatusPending}

	container.Apply(NegotiationTransitioned{Negotiation: negotiation})
	if !container.NegotiationKnown(negotiation.ID) {
		t.Fatal("transitioned negotiation should become visible immediately")
	}

	negotiation.Status = enums.NegotiationStatusAccepted
	container.Apply(NegotiationTransitioned{Negotiation: negotiation})
	visible := container.Negotiations()
	if len(visible) != 1 {
		t.Fatalf("expected 1 negotiation, got %d", len(visible))
	}
	if visible[0].Status != enums.NegotiationStatusAccepted {
		t.Fatalf("status = %s, want accepted", visible[0].Status)
	}
}

func TestSessionClearedWipesEverything(t *testing.T) {
	container := NewContainer()
	negotiationID := uuid.New()
	container.Apply(NegotiationSnapshotReceived{Negotiations: []models.Negotiation{{ID: negotiationID}}})
	container.InsertMessage(provisionalMessage(negotiationID, enums.MessageDeliveryStatusFailed))

	container.Apply(SessionCleared{})

	if container.NegotiationKnown(negotiationID) {
		t.Fatal("negotiations should be cleared")
	}
	if got := container.Messages(negotiationID); len(got) != 0 {
		t.Fatalf("messages should be cleared, got %d", len(got))
	}
}
