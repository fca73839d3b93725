package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/metrics"
)

// Message is a session-local chat record. Provisional messages carry a
// locally generated id until the remote echo supersedes them.
type Message struct {
	ID            uuid.UUID
	NegotiationID uuid.UUID
	SenderID      uuid.UUID
	Body          string
	Status        enums.MessageDeliveryStatus
	Provisional   bool
	CreatedAt     time.Time
}

// State is the local message collection the pipeline mutates. The bool
// returns report whether the target still exists; a completion landing after
// teardown or reconciliation must become a no-op.
type State interface {
	InsertMessage(message Message)
	SetMessageStatus(id uuid.UUID, status enums.MessageDeliveryStatus) bool
	RemoveMessage(id uuid.UUID) bool
	MessageByID(id uuid.UUID) (Message, bool)
	NegotiationKnown(id uuid.UUID) bool
}

type remoteSender interface {
	SendMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error)
}

// Pipeline implements optimistic message delivery: insert locally as
// `sending` before the network, resolve to `sent` or a visibly retryable
// `failed`. At most one outstanding write per message id.
type Pipeline struct {
	state   State
	remote  remoteSender
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// NewPipeline wires the message pipeline. Metrics may be nil.
func NewPipeline(state State, remote remoteSender, logg *logger.Logger, syncMetrics *metrics.SyncMetrics) (*Pipeline, error) {
	if state == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "message state required")
	}
	if remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote sender required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Pipeline{
		state:    state,
		remote:   remote,
		logg:     logg,
		metrics:  syncMetrics,
		inflight: map[uuid.UUID]struct{}{},
	}, nil
}

// Send inserts a provisional `sending` message before any network call,
// then issues the remote write. The provisional id is returned in both
// outcomes; on failure the message stays visible as `failed`.
func (p *Pipeline) Send(ctx context.Context, negotiationID, senderID uuid.UUID, body string) (uuid.UUID, error) {
	if negotiationID == uuid.Nil || senderID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation and sender ids required")
	}
	if strings.TrimSpace(body) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	if !p.state.NegotiationKnown(negotiationID) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not in scope")
	}

	message := Message{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		SenderID:      senderID,
		Body:          body,
		Status:        enums.MessageDeliveryStatusSending,
		Provisional:   true,
		CreatedAt:     time.Now().UTC(),
	}
	p.state.InsertMessage(message)

	if !p.acquire(message.ID) {
		return message.ID, nil
	}
	defer p.release(message.ID)

	if err := p.write(ctx, message); err != nil {
		p.state.SetMessageStatus(message.ID, enums.MessageDeliveryStatusFailed)
		p.metrics.IncMessageFailed()
		return message.ID, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "message write failed")
	}

	p.state.SetMessageStatus(message.ID, enums.MessageDeliveryStatusSent)
	p.metrics.IncMessageSent()
	return message.ID, nil
}

// Retry re-attempts a failed message. On success the provisional record is
// removed outright; the remote echo supplies the canonical one. A retry
// already in flight for the same id is a no-op.
func (p *Pipeline) Retry(ctx context.Context, messageID uuid.UUID) error {
	message, ok := p.state.MessageByID(messageID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	if message.Status != enums.MessageDeliveryStatusFailed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only failed messages can be retried")
	}
	if !p.state.NegotiationKnown(message.NegotiationID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "negotiation no longer known")
	}

	if !p.acquire(messageID) {
		return nil
	}
	defer p.release(messageID)

	// Re-check under the in-flight guard; a concurrent retry may have
	// already resolved the message.
	message, ok = p.state.MessageByID(messageID)
	if !ok || message.Status != enums.MessageDeliveryStatusFailed {
		return nil
	}

	p.state.SetMessageStatus(messageID, enums.MessageDeliveryStatusSending)

	if err := p.write(ctx, message); err != nil {
		p.state.SetMessageStatus(messageID, enums.MessageDeliveryStatusFailed)
		p.metrics.IncMessageFailed()
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "message retry failed")
	}

	p.state.RemoveMessage(messageID)
	p.metrics.IncMessageRetried()
	return nil
}

func (p *Pipeline) write(ctx context.Context, message Message) error {
	_, err := p.remote.SendMessage(ctx, &models.ChatMessage{
		NegotiationID: message.NegotiationID,
		SenderID:      message.SenderID,
		Body:          message.Body,
		ClientRef:     message.ID.String(),
	})
	return err
}

func (p *Pipeline) acquire(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}
