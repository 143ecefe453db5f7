// ABOUTME: In-memory registry of live chat sessions keyed by user identity
// ABOUTME: Supports attach/detach and best-effort fan-out to every session

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Session is one live duplex connection bound to a single user identity.
// Implementations must be safe for concurrent Send calls.
type Session interface {
	// ID uniquely identifies the session within the registry.
	ID() string
	// Send writes one serialized payload to the session's transport.
	Send(ctx context.Context, payload []byte) error
}

// Registry tracks zero or more live sessions per user identity and fans
// payloads out to them. It holds the only shared mutable state of the
// chat core; all methods are safe for concurrent use. Lifetime is tied
// to the process - nothing is persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[string]Session
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[uuid.UUID]map[string]Session),
		logger:   logger.With("component", "registry"),
	}
}

// Register adds a session to the identity's set. It returns true if the
// session was newly added, false if that exact session was already
// registered for the identity.
func (r *Registry) Register(identity uuid.UUID, sess Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		set = make(map[string]Session)
		r.sessions[identity] = set
	}
	if _, exists := set[sess.ID()]; exists {
		return false
	}
	set[sess.ID()] = sess

	r.logger.Debug("session registered",
		"identity", identity,
		"session_id", sess.ID(),
		"sessions", len(set))
	return true
}

// Unregister removes a session from the identity's set. It returns true
// iff the identity and session both matched; an absent identity or
// session is a normal outcome, not an error.
func (r *Registry) Unregister(identity uuid.UUID, sess Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		return false
	}
	if _, exists := set[sess.ID()]; !exists {
		return false
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(r.sessions, identity)
	}

	r.logger.Debug("session unregistered",
		"identity", identity,
		"session_id", sess.ID())
	return true
}

// SendTo serializes payload once and delivers it to every session of the
// identity. It returns false when the identity has no registered sessions
// and true otherwise, regardless of whether individual transport writes
// succeed. Write failures are logged and swallowed; a dead session is
// cleaned up by its own connection lifecycle, not here.
func (r *Registry) SendTo(ctx context.Context, identity uuid.UUID, payload any) bool {
	targets := r.snapshot(identity)
	if len(targets) == 0 {
		return false
	}

	// The return value reports session presence only; a serialization
	// failure is swallowed like any other delivery failure.
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("payload serialization failed", "error", err, "identity", identity)
		return true
	}
	r.fanOut(ctx, targets, data)
	return true
}

// Broadcast delivers payload to every session of every identity,
// best-effort.
func (r *Registry) Broadcast(ctx context.Context, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("payload serialization failed", "error", err)
		return
	}

	r.mu.RLock()
	targets := make([]Session, 0, len(r.sessions))
	for _, set := range r.sessions {
		for _, sess := range set {
			targets = append(targets, sess)
		}
	}
	r.mu.RUnlock()

	r.fanOut(ctx, targets, data)
}

// snapshot copies the identity's session set under the read lock so the
// fan-out itself runs without holding it.
func (r *Registry) snapshot(identity uuid.UUID) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[identity]
	if !ok {
		return nil
	}
	targets := make([]Session, 0, len(set))
	for _, sess := range set {
		targets = append(targets, sess)
	}
	return targets
}

func (r *Registry) fanOut(ctx context.Context, targets []Session, data []byte) {
	for _, sess := range targets {
		if err := sess.Send(ctx, data); err != nil {
			// One broken transport must not block delivery to the rest.
			r.logger.Debug("session send failed",
				"session_id", sess.ID(),
				"error", err)
		}
	}
}
