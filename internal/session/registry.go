// Package session keeps one payment orchestrator per client checkout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenhatah/hotspot_pay/internal/payment"
)

var (
	// ErrNotFound is returned for unknown, expired or foreign session ids.
	ErrNotFound = errors.New("session not found")
)

// Factory builds the orchestrator for a new session.
type Factory func(id string, target payment.Target) (*payment.Orchestrator, error)

// Session is a checkout owned by one client.
type Session struct {
	ID           string
	ClientID     string
	Target       payment.Target
	Orchestrator *payment.Orchestrator
	CreatedAt    time.Time
}

type entry struct {
	Session
	lastSeen time.Time
}

// Registry stores live sessions in memory, at most one per client. Opening a
// new session closes the client's previous one. Sessions idle for longer than
// the TTL are removed by Sweep unless a confirmation is still running.
type Registry struct {
	factory Factory
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	byClient map[string]string
}

// NewRegistry constructs a registry.
func NewRegistry(factory Factory, ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
		byClient: make(map[string]string),
	}
}

// Create opens a session for clientID paying for target. Any previous
// session of the same client is closed, cancelling its pending re-check.
func (r *Registry) Create(clientID string, target payment.Target) (Session, error) {
	id := uuid.NewString()
	orch, err := r.factory(id, target)
	if err != nil {
		return Session{}, err
	}

	now := r.now()
	s := Session{ID: id, ClientID: clientID, Target: target, Orchestrator: orch, CreatedAt: now}

	r.mu.Lock()
	prev, hadPrev := r.sessions[r.byClient[clientID]]
	if hadPrev {
		delete(r.sessions, prev.ID)
	}
	r.sessions[id] = &entry{Session: s, lastSeen: now}
	r.byClient[clientID] = id
	r.mu.Unlock()

	if hadPrev {
		prev.Orchestrator.Close()
		r.logger.Info("session superseded",
			slog.String("session_id", prev.ID),
			slog.String("superseded_by", id),
		)
	}
	r.logger.Info("session created",
		slog.String("session_id", id),
		slog.String("router_name", target.Name),
		slog.String("location", target.Location),
	)
	return s, nil
}

// Get returns the session if it belongs to clientID and marks it active.
func (r *Registry) Get(id, clientID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok || e.ClientID != clientID {
		return Session{}, ErrNotFound
	}
	e.lastSeen = r.now()
	return e.Session, nil
}

// Discard closes and removes the session.
func (r *Registry) Discard(id, clientID string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.ClientID != clientID {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.removeLocked(e)
	r.mu.Unlock()

	e.Orchestrator.Close()
	r.logger.Info("session discarded", slog.String("session_id", id))
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes idle sessions and returns how many were closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*entry
	for _, e := range r.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if e.Orchestrator.Snapshot().State == payment.StateConfirming {
			continue
		}
		expired = append(expired, e)
		r.removeLocked(e)
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.Orchestrator.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("idle sessions evicted", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes every session. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.byClient = make(map[string]string)
	r.mu.Unlock()

	for _, e := range sessions {
		e.Orchestrator.Close()
	}
}

func (r *Registry) removeLocked(e *entry) {
	delete(r.sessions, e.ID)
	if r.byClient[e.ClientID] == e.ID {
		delete(r.byClient, e.ClientID)
	}
}
