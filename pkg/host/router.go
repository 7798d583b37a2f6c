package host

import (
	"log/slog"
	"sync"

	"github.com/safehost-dev/safehost/pkg/protocol"
)

// RawEvent is one inbound message event from the page's listening surface,
// before any decoding.
type RawEvent struct {
	// Origin is the sender's declared origin string.
	Origin string

	// Data is the raw message body.
	Data []byte
}

// Router is the registry mapping slot identifiers to sessions, plus the
// single shared dispatch entry point that demultiplexes inbound envelopes.
//
// One router serves every slot on a page: the browser event surface is
// process-wide, so per-slot filtering happens after decode, by sentinel, not
// by listener identity. The router is constructed explicitly; there is no
// lazily installed listener or hidden module flag.
//
// Registry entries are created at session construction and never removed;
// registry lifetime equals page lifetime.
type Router struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     *Config
	logger  *slog.Logger
	metrics *Metrics
}

// NewRouter creates a router. A nil config uses DefaultConfig; a nil logger
// uses slog.Default; a nil metrics disables instrumentation.
func NewRouter(cfg *Config, logger *slog.Logger, metrics *Metrics) *Router {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "message_router")

	if cfg.TrustedOrigin == "" {
		logger.Warn("no trusted origin configured, all inbound events will be dropped")
	}

	return &Router{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// NewSession constructs a session for slotID and registers it. The session
// enters REGISTERED synchronously; identity tokens come from the configured
// random source.
func (r *Router) NewSession(slotID string, collab Collaborators) *Session {
	s := &Session{
		slotID:     slotID,
		endpointID: r.cfg.Rand(),
		uid:        r.cfg.Rand(),
		state:      StateConstructed,
		collab:     collab,
		cfg:        r.cfg,
		logger:     r.logger.With("component", "host_session", "slot_id", slotID),
		metrics:    r.metrics,
	}
	s.negotiator = &SizeNegotiator{session: s}

	r.Register(s)
	return s
}

// Register inserts a session into the registry keyed by its slot identifier.
// Idempotent: an existing entry is left untouched.
func (r *Router) Register(s *Session) {
	r.mu.Lock()
	if _, exists := r.sessions[s.slotID]; exists {
		r.mu.Unlock()
		r.logger.Debug("slot already registered", "slot_id", s.slotID)
		return
	}
	r.sessions[s.slotID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	s.mu.Lock()
	if s.state == StateConstructed {
		s.state = StateRegistered
	}
	s.mu.Unlock()

	r.metrics.SessionRegistered()
	r.logger.Debug("session registered", "slot_id", s.slotID, "sessions", count)
}

// Lookup returns the session for slotID, or nil. Lookup failure is a
// recoverable condition for callers: warn and drop, never fatal.
func (r *Router) Lookup(slotID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[slotID]
}

// Len returns the number of registered sessions.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Dispatch routes one inbound raw event. Foreign origins, unparseable data,
// and unknown slot identifiers are dropped without a response.
func (r *Router) Dispatch(evt RawEvent) {
	if evt.Origin != r.cfg.TrustedOrigin {
		r.metrics.Drop(DropReasonOrigin)
		r.logger.Debug("event from untrusted origin dropped", "origin", evt.Origin)
		return
	}

	env, err := protocol.DecodeEnvelope(evt.Data)
	if err != nil {
		r.metrics.Drop(DropReasonDecode)
		r.logger.Debug("unparseable event dropped", "error", err)
		return
	}

	// A top-level sentinel marks a handshake message; everything else
	// carries the sentinel inside the payload.
	if env.IsHandshake() {
		s := r.Lookup(env.Sentinel)
		if s == nil {
			r.metrics.Drop(DropReasonUnknownSlot)
			r.logger.Warn("handshake for unknown slot dropped", "slot_id", env.Sentinel)
			return
		}
		r.metrics.Dispatched(protocol.ServiceConnect)
		s.HandleHandshake(env)
		return
	}

	msg, err := protocol.DecodeMessage(env.Service, []byte(env.Payload))
	if err != nil {
		r.metrics.Drop(DropReasonDecode)
		r.logger.Debug("unparseable payload dropped", "service", env.Service, "error", err)
		return
	}

	s := r.Lookup(msg.Slot())
	if s == nil {
		r.metrics.Drop(DropReasonUnknownSlot)
		r.logger.Warn("message for unknown slot dropped",
			"slot_id", msg.Slot(),
			"service", env.Service)
		return
	}

	r.metrics.Dispatched(env.Service)
	s.ProcessMessage(msg)
}
