package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

// ControllerFactory builds a controller for a freshly authenticated identity.
type ControllerFactory func(identity Identity) (*Controller, error)

// Registry tracks the live session controller per user. Logging in again
// replaces the previous session after tearing it down.
type Registry struct {
	factory ControllerFactory

	// startMu serializes session starts so a replaced controller is fully
	// torn down before its successor opens feeds.
	startMu sync.Mutex

	mu       sync.Mutex
	sessions map[uuid.UUID]*Controller
}

// NewRegistry builds an empty session registry.
func NewRegistry(factory ControllerFactory) (*Registry, error) {
	if factory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "controller factory required")
	}
	return &Registry{
		factory:  factory,
		sessions: map[uuid.UUID]*Controller{},
	}, nil
}

// StartSession opens a session for the identity, replacing any existing one.
// The replaced session is torn down before the new one subscribes so a user
// never holds two live feeds.
func (r *Registry) StartSession(ctx context.Context, identity Identity) (*Controller, error) {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.mu.Lock()
	previous := r.sessions[identity.UserID]
	delete(r.sessions, identity.UserID)
	r.mu.Unlock()

	if previous != nil {
		previous.coordinator.Teardown()
		previous.container.Apply(SessionCleared{})
	}

	ctrl, err := r.factory(identity)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[identity.UserID] = ctrl
	r.mu.Unlock()
	return ctrl, nil
}

// Get returns the live controller for the user, if any.
func (r *Registry) Get(userID uuid.UUID) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctrl, ok := r.sessions[userID]
	return ctrl, ok
}

// EndSession signs the user's session out and forgets it.
func (r *Registry) EndSession(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	ctrl := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	return ctrl.SignOut(ctx)
}
