package host

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/safehost-dev/safehost/pkg/geometry"
	"github.com/safehost-dev/safehost/pkg/protocol"
)

// Session errors.
var (
	// ErrFrameUnavailable signals that the creative iframe's content window
	// was not available when a send was attempted. This is a fatal
	// precondition: the operation is aborted, there is no safe continuation.
	ErrFrameUnavailable = errors.New("host: iframe content window unavailable")
)

// State is a session's position in the protocol lifecycle.
type State int

const (
	// StateConstructed is the zero state before registry insertion.
	StateConstructed State = iota

	// StateRegistered means the session is in the registry and awaiting the
	// channel handshake.
	StateRegistered

	// StateChannelEstablished means the channel is set, the frame is bound,
	// and standard messages are processed.
	StateChannelEstablished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateRegistered:
		return "Registered"
	case StateChannelEstablished:
		return "ChannelEstablished"
	default:
		return "Unknown"
	}
}

// Session is the per-slot protocol state machine. A session lives for the
// page lifetime; there is no teardown state.
type Session struct {
	// Immutable after construction.
	slotID     string
	endpointID uint32
	uid        uint32

	mu              sync.Mutex
	state           State
	channel         string
	frame           Frame
	geom            *geometry.Geometry
	initialHeight   int
	initialWidth    int
	initialCaptured bool
	unsubscribe     func()

	collab     Collaborators
	negotiator *SizeNegotiator
	cfg        *Config
	logger     *slog.Logger
	metrics    *Metrics
}

// SlotID returns the slot identifier the session is keyed by.
func (s *Session) SlotID() string {
	return s.slotID
}

// UID returns the request-correlation token echoed in payloads.
func (s *Session) UID() uint32 {
	return s.uid
}

// EndpointID returns the identity token stamped on outbound envelopes.
func (s *Session) EndpointID() uint32 {
	return s.endpointID
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channel returns the negotiated channel token, empty before establishment.
func (s *Session) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// CurrentGeometry returns a copy of the last computed geometry snapshot.
// ok is false before the first geometry push.
func (s *Session) CurrentGeometry() (geom geometry.Geometry, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.geom == nil {
		return geometry.Geometry{}, false
	}
	return *s.geom, true
}

// InitialSize returns the collapse target captured from the creative's
// registration-complete notification. ok is false until then.
func (s *Session) InitialSize() (height, width int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialHeight, s.initialWidth, s.initialCaptured
}

// HandleHandshake processes a channel-establishment message. The channel is
// set at most once; later handshakes are no-ops. On establishment the frame
// is bound, the visibility subscription starts, and the initial connect
// envelope is sent.
func (s *Session) HandleHandshake(env *protocol.Envelope) {
	s.mu.Lock()
	if s.state == StateChannelEstablished {
		established := s.channel
		s.mu.Unlock()
		s.logger.Debug("duplicate handshake ignored",
			"channel", env.Channel,
			"established_channel", established)
		return
	}
	if env.Channel == "" {
		s.mu.Unlock()
		s.logger.Warn("handshake without channel value dropped")
		return
	}

	frame, ok := s.collab.Slot.Frame()
	if !ok {
		// The slot element must have materialized its iframe before the
		// creative can hand-shake; a missing content window is a fatal
		// precondition and the establishment is aborted.
		s.mu.Unlock()
		s.logger.Error("handshake aborted", "error", ErrFrameUnavailable)
		return
	}

	s.channel = env.Channel
	s.frame = frame
	s.state = StateChannelEstablished
	s.mu.Unlock()

	s.logger.Info("channel established", "channel", env.Channel)

	if s.collab.Visibility != nil {
		cancel := s.collab.Visibility.Subscribe(s.PushGeometry)
		s.mu.Lock()
		s.unsubscribe = cancel
		s.mu.Unlock()
	}

	s.sendConnect()
}

// ProcessMessage dispatches a standard (post-handshake) message. Messages
// arriving before channel establishment are dropped, not queued; the session
// keeps routing normally once established.
func (s *Session) ProcessMessage(msg protocol.Message) {
	s.mu.Lock()
	established := s.state == StateChannelEstablished
	s.mu.Unlock()

	if !established {
		s.logger.Debug("message before channel establishment dropped",
			"state", s.State().String())
		return
	}

	switch m := msg.(type) {
	case *protocol.CreativeGeometryUpdate:
		s.negotiator.HandleFluidResize(m)
	case *protocol.ExpandRequest:
		s.negotiator.HandleExpand(m)
	case *protocol.CollapseRequest:
		s.negotiator.HandleCollapse(m)
	case *protocol.RegisterDone:
		s.captureInitialSize(m)
	case *protocol.UnknownMessage:
		s.logger.Debug("unrecognized service ignored", "service", m.Service)
	}
}

// captureInitialSize records the collapse target from register_done. The
// size is captured once; repeats are ignored. No response is sent.
func (s *Session) captureInitialSize(done *protocol.RegisterDone) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialCaptured {
		s.logger.Debug("initial size already captured, register_done ignored")
		return
	}
	s.initialHeight = done.Height
	s.initialWidth = done.Width
	s.initialCaptured = true
	s.logger.Debug("initial size captured",
		"height", done.Height,
		"width", done.Width)
}

// PushGeometry translates a visibility observation, caches the snapshot, and
// posts a geometry_update envelope to the creative.
func (s *Session) PushGeometry(obs geometry.Observation) {
	geom := geometry.Translate(obs)

	s.mu.Lock()
	s.geom = &geom
	s.mu.Unlock()

	text, err := geom.Serialize()
	if err != nil {
		s.logger.Error("geometry serialize failed", "error", err)
		return
	}

	payload, err := protocol.EncodePayload(&protocol.GeometryUpdate{
		UID:         s.uid,
		NewGeometry: text,
	})
	if err != nil {
		s.logger.Error("geometry payload encode failed", "error", err)
		return
	}

	s.send(protocol.ServiceGeometryUpdate, payload)
}

// sendConnect posts the initial envelope over the freshly established
// channel.
func (s *Session) sendConnect() {
	notice := &protocol.ConnectNotice{UID: s.uid}
	if geom, ok := s.CurrentGeometry(); ok {
		if text, err := geom.Serialize(); err == nil {
			notice.Geometry = text
		}
	}

	payload, err := protocol.EncodePayload(notice)
	if err != nil {
		s.logger.Error("connect payload encode failed", "error", err)
		return
	}
	s.send(protocol.ServiceConnect, payload)
}

// send composes an outbound envelope and posts it to the creative window.
func (s *Session) send(svc protocol.Service, payload string) error {
	s.mu.Lock()
	channel := s.channel
	frame := s.frame
	s.mu.Unlock()

	if frame == nil {
		s.logger.Error("send aborted", "service", svc, "error", ErrFrameUnavailable)
		return ErrFrameUnavailable
	}

	data, err := protocol.EncodeEnvelope(&protocol.Envelope{
		Channel:  channel,
		Endpoint: s.endpointID,
		Payload:  payload,
		Service:  svc,
	})
	if err != nil {
		s.logger.Error("envelope encode failed", "service", svc, "error", err)
		return err
	}

	if err := frame.Post(data); err != nil {
		s.logger.Warn("envelope post failed", "service", svc, "error", err)
		return err
	}

	s.metrics.Sent(svc)
	return nil
}

// frameSetSize mirrors the slot element's dimensions onto the bound frame.
func (s *Session) frameSetSize(height, width int) {
	s.mu.Lock()
	frame := s.frame
	s.mu.Unlock()

	if frame == nil {
		s.logger.Error("frame size update aborted", "error", ErrFrameUnavailable)
		return
	}
	frame.SetSize(height, width)
}

// fireImpression consumes and fires the pending delayed-impression URL, if
// any.
func (s *Session) fireImpression() {
	if s.collab.Impressions == nil {
		return
	}
	url, ok := s.collab.Impressions.TakePending()
	if !ok {
		return
	}
	if s.cfg.ImpressionPing == nil {
		s.logger.Debug("impression ping not configured, URL consumed", "url", url)
		return
	}
	s.cfg.ImpressionPing(url)
}

// collapseTarget returns the size a collapse should restore. Falls back to
// the element's current size when register_done never arrived.
func (s *Session) collapseTarget() (height, width int) {
	s.mu.Lock()
	captured := s.initialCaptured
	h, w := s.initialHeight, s.initialWidth
	s.mu.Unlock()

	if !captured {
		s.logger.Warn("collapse requested before register_done, using current size")
		return s.collab.Slot.Size()
	}
	return h, w
}
