package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/internal/chat"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// Event is a state transition applied to the session container. All state
// changes, whether user actions or feed deliveries, funnel through Apply so
// the container only ever mutates under one lock.
type Event interface {
	isEvent()
}

// MessageSent inserts a provisional outbound message.
type MessageSent struct {
	Message chat.Message
}

// MessageResolved changes a provisional message's delivery status.
type MessageResolved struct {
	ID     uuid.UUID
	Status enums.MessageDeliveryStatus
}

// MessageDropped removes a provisional message outright.
type MessageDropped struct {
	ID uuid.UUID
}

// NegotiationSnapshotReceived replaces the visible negotiation set wholesale.
type NegotiationSnapshotReceived struct {
	Negotiations []models.Negotiation
}

// MessageSnapshotReceived replaces the remote message set wholesale and
// reconciles provisional records against it.
type MessageSnapshotReceived struct {
	Messages []models.ChatMessage
}

// NegotiationTransitioned upserts a single negotiation after a local write,
// ahead of the next feed delivery.
type NegotiationTransitioned struct {
	Negotiation models.Negotiation
}

// SessionCleared wipes all session state (sign-out, role switch).
type SessionCleared struct{}

func (MessageSent) isEvent()                 {}
func (MessageResolved) isEvent()             {}
func (MessageDropped) isEvent()              {}
func (NegotiationSnapshotReceived) isEvent() {}
func (MessageSnapshotReceived) isEvent()     {}
func (NegotiationTransitioned) isEvent()     {}
func (SessionCleared) isEvent()              {}

// Container holds one authenticated session's working set: the visible
// negotiations, the remote chat messages, and the provisional messages the
// pipeline is still resolving.
type Container struct {
	mu             sync.Mutex
	negotiations   []models.Negotiation
	negotiationIdx map[uuid.UUID]int
	remote         []chat.Message
	provisional    map[uuid.UUID]chat.Message
}

// NewContainer builds an empty session container.
func NewContainer() *Container {
	c := &Container{}
	c.reset()
	return c
}

// Apply runs one reducer step.
func (c *Container) Apply(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case MessageSent:
		c.provisional[e.Message.ID] = e.Message
	case MessageResolved:
		if message, ok := c.provisional[e.ID]; ok {
			message.Status = e.Status
			c.provisional[e.ID] = message
		}
	case MessageDropped:
		delete(c.provisional, e.ID)
	case NegotiationSnapshotReceived:
		c.negotiations = append([]models.Negotiation(nil), e.Negotiations...)
		c.negotiationIdx = make(map[uuid.UUID]int, len(c.negotiations))
		for i, negotiation := range c.negotiations {
			c.negotiationIdx[negotiation.ID] = i
		}
	case MessageSnapshotReceived:
		c.reconcileMessages(e.Messages)
	case NegotiationTransitioned:
		if i, ok := c.negotiationIdx[e.Negotiation.ID]; ok {
			c.negotiations[i] = e.Negotiation
		} else {
			c.negotiationIdx[e.Negotiation.ID] = len(c.negotiations)
			c.negotiations = append(c.negotiations, e.Negotiation)
		}
	case SessionCleared:
		c.reset()
	}
}

// reconcileMessages replaces the remote set and drops every provisional
// record the snapshot supersedes: confirmed sends, plus any provisional whose
// client ref already appears remotely. Unresolved `sending` and retryable
// `failed` records survive the replacement.
func (c *Container) reconcileMessages(snapshot []models.ChatMessage) {
	c.remote = make([]chat.Message, 0, len(snapshot))
	echoed := make(map[string]struct{}, len(snapshot))
	for _, message := range snapshot {
		echoed[message.ClientRef] = struct{}{}
		c.remote = append(c.remote, chat.Message{
			ID:            message.ID,
			NegotiationID: message.NegotiationID,
			SenderID:      message.SenderID,
			Body:          message.Body,
			Status:        enums.MessageDeliveryStatusSent,
			CreatedAt:     message.CreatedAt,
		})
	}
	for id, message := range c.provisional {
		if _, superseded := echoed[id.String()]; superseded || message.Status == enums.MessageDeliveryStatusSent {
			delete(c.provisional, id)
		}
	}
}

func (c *Container) reset() {
	c.negotiations = nil
	c.negotiationIdx = map[uuid.UUID]int{}
	c.remote = nil
	c.provisional = map[uuid.UUID]chat.Message{}
}

// InsertMessage implements chat.State.
func (c *Container) InsertMessage(message chat.Message) {
	c.Apply(MessageSent{Message: message})
}

// SetMessageStatus implements chat.State. It reports whether the message was
// still present; completions landing after teardown are no-ops.
func (c *Container) SetMessageStatus(id uuid.UUID, status enums.MessageDeliveryStatus) bool {
	c.mu.Lock()
	_, ok := c.provisional[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.Apply(MessageResolved{ID: id, Status: status})
	return true
}

// RemoveMessage implements chat.State.
func (c *Container) RemoveMessage(id uuid.UUID) bool {
	c.mu.Lock()
	_, ok := c.provisional[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.Apply(MessageDropped{ID: id})
	return true
}

// MessageByID implements chat.State.
func (c *Container) MessageByID(id uuid.UUID) (chat.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	message, ok := c.provisional[id]
	return message, ok
}

// NegotiationKnown implements chat.State.
func (c *Container) NegotiationKnown(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.negotiationIdx[id]
	return ok
}

// Negotiations returns the visible negotiation set in feed order.
func (c *Container) Negotiations() []models.Negotiation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Negotiation(nil), c.negotiations...)
}

// NegotiationIDs returns the visible negotiation ids.
func (c *Container) NegotiationIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.negotiations))
	for _, negotiation := range c.negotiations {
		ids = append(ids, negotiation.ID)
	}
	return ids
}

// Messages returns the merged remote and provisional view for a negotiation,
// oldest first.
func (c *Container) Messages(negotiationID uuid.UUID) []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]chat.Message, 0, len(c.remote))
	for _, message := range c.remote {
		if message.NegotiationID == negotiationID {
			out = append(out, message)
		}
	}
	for _, message := range c.provisional {
		if message.NegotiationID == negotiationID {
			provisional := message
			provisional.Provisional = true
			out = append(out, provisional)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
