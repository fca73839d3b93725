package gormstore

import (
	"context"
	"encoding/json"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

// ChangeKind tags the entity a change event refers to.
type ChangeKind string

const (
	ChangeKindNegotiation ChangeKind = "negotiation"
	ChangeKindMessage     ChangeKind = "message"
)

// ChangeEvent describes a committed write, carrying enough scope hints to
// find the feeds it affects without re-reading the row.
type ChangeEvent struct {
	Kind          ChangeKind `json:"kind"`
	NegotiationID uuid.UUID  `json:"negotiation_id"`
	BuyerID       uuid.UUID  `json:"buyer_id,omitempty"`
	FarmerID      uuid.UUID  `json:"farmer_id,omitempty"`
}

// ChangePublisher mirrors local commits to other instances.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// AttachPublisher enables cross-instance change publication. May only be
// called before the store starts serving traffic.
func (s *Store) AttachPublisher(publisher ChangePublisher) {
	s.publisher = publisher
}

// PubsubPublisher adapts a Pub/Sub publisher to the ChangePublisher contract.
type PubsubPublisher struct {
	publisher *pubsubv2.Publisher
}

// NewPubsubPublisher wraps the given Pub/Sub publisher handle.
func NewPubsubPublisher(publisher *pubsubv2.Publisher) (*PubsubPublisher, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pubsub publisher required")
	}
	return &PubsubPublisher{publisher: publisher}, nil
}

// Publish serializes the event and blocks until the broker accepts it.
func (p *PubsubPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode change event")
	}
	result := p.publisher.Publish(ctx, &pubsubv2.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish change event")
	}
	return nil
}

// Listen consumes remote change events from the subscriber and applies them
// to local feeds. Blocks until ctx is cancelled or Receive fails.
func (s *Store) Listen(ctx context.Context, subscriber *pubsubv2.Subscriber) error {
	if subscriber == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "pubsub subscriber required")
	}
	return subscriber.Receive(ctx, func(msgCtx context.Context, msg *pubsubv2.Message) {
		var event ChangeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(msgCtx, "error", err.Error()), "dropping malformed change event")
			}
			msg.Ack()
			return
		}
		s.ApplyRemoteChange(msgCtx, event)
		msg.Ack()
	})
}
