package host

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/safehost-dev/safehost/pkg/geometry"
	"github.com/safehost-dev/safehost/pkg/protocol"
)

const (
	testOrigin     = "https://creatives.example.test"
	testHostOrigin = "https://publisher.example.test"
)

// stubFrame records envelopes posted to the creative window.
type stubFrame struct {
	mu      sync.Mutex
	height  int
	width   int
	postErr error
	posted  []*protocol.Envelope
}

func (f *stubFrame) SetSize(height, width int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height, f.width = height, width
}

func (f *stubFrame) Post(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		return err
	}
	f.posted = append(f.posted, env)
	return nil
}

func (f *stubFrame) envelopes() []*protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*protocol.Envelope, len(f.posted))
	copy(out, f.posted)
	return out
}

func (f *stubFrame) last() *protocol.Envelope {
	envs := f.envelopes()
	if len(envs) == 0 {
		return nil
	}
	return envs[len(envs)-1]
}

func (f *stubFrame) size() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, f.width
}

// stubSlot is a scriptable slot element. AttemptResize completes
// synchronously: with resizeErr when set, otherwise applying the target
// dimensions unless applyResize is false (simulating a page that reported
// success without the element actually changing).
type stubSlot struct {
	mu          sync.Mutex
	height      int
	width       int
	frame       *stubFrame
	frameReady  bool
	resizeErr   error
	applyResize bool
	resizeCalls [][2]int
	resetCalls  int
}

func newStubSlot(height, width int) *stubSlot {
	return &stubSlot{
		height:      height,
		width:       width,
		frame:       &stubFrame{},
		frameReady:  true,
		applyResize: true,
	}
}

func (s *stubSlot) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, s.width
}

func (s *stubSlot) AttemptResize(height, width int, done func(error)) {
	s.mu.Lock()
	s.resizeCalls = append(s.resizeCalls, [2]int{height, width})
	if s.resizeErr != nil {
		err := s.resizeErr
		s.mu.Unlock()
		done(err)
		return
	}
	if s.applyResize {
		s.height, s.width = height, width
	}
	s.mu.Unlock()
	done(nil)
}

func (s *stubSlot) ResetPendingResize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetCalls++
}

func (s *stubSlot) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.frameReady {
		return nil, false
	}
	return s.frame, true
}

func (s *stubSlot) calls() [][2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]int, len(s.resizeCalls))
	copy(out, s.resizeCalls)
	return out
}

// stubObserver is a hand-cranked visibility observer.
type stubObserver struct {
	mu   sync.Mutex
	fn   func(geometry.Observation)
	subs int
}

func (o *stubObserver) Subscribe(fn func(geometry.Observation)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fn = fn
	o.subs++
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.fn = nil
	}
}

func (o *stubObserver) observe(obs geometry.Observation) {
	o.mu.Lock()
	fn := o.fn
	o.mu.Unlock()
	if fn != nil {
		fn(obs)
	}
}

func (o *stubObserver) subscriptions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.subs
}

// stubImpressions holds one pending impression URL.
type stubImpressions struct {
	mu  sync.Mutex
	url string
}

func (i *stubImpressions) TakePending() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.url == "" {
		return "", false
	}
	url := i.url
	i.url = ""
	return url, true
}

func (i *stubImpressions) set(url string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.url = url
}

// sequentialRand returns a deterministic token source for tests.
func sequentialRand() func() uint32 {
	var n uint32
	return func() uint32 {
		n++
		return n
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	cfg := &Config{
		TrustedOrigin: testOrigin,
		HostOrigin:    testHostOrigin,
		Rand:          sequentialRand(),
	}
	return NewRouter(cfg, slog.Default(), nil)
}

func handshakeEvent(t *testing.T, slotID, channel string) RawEvent {
	t.Helper()
	data, err := json.Marshal(&protocol.Envelope{
		Channel:  channel,
		Sentinel: slotID,
		Service:  protocol.ServiceConnect,
	})
	if err != nil {
		t.Fatalf("marshal handshake: %v", err)
	}
	return RawEvent{Origin: testOrigin, Data: data}
}

func standardEvent(t *testing.T, svc protocol.Service, payload any) RawEvent {
	t.Helper()
	text, err := protocol.EncodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	data, err := protocol.EncodeEnvelope(&protocol.Envelope{
		Channel:  "chan-test",
		Endpoint: 99,
		Payload:  text,
		Service:  svc,
	})
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return RawEvent{Origin: testOrigin, Data: data}
}

// establish creates a registered session and completes its handshake.
func establish(t *testing.T, r *Router, slotID string, slot *stubSlot, collab Collaborators) *Session {
	t.Helper()
	if collab.Slot == nil {
		collab.Slot = slot
	}
	s := r.NewSession(slotID, collab)
	r.Dispatch(handshakeEvent(t, slotID, "chan-test"))
	if s.State() != StateChannelEstablished {
		t.Fatalf("session state after handshake = %v, want ChannelEstablished", s.State())
	}
	return s
}

func testObservation() geometry.Observation {
	return geometry.Observation{
		RootBounds:         geometry.Rect{Top: 0, Right: 1024, Bottom: 768, Left: 0},
		BoundingClientRect: geometry.Rect{Top: 100, Right: 428, Bottom: 350, Left: 128},
		StyleZIndex:        "auto",
	}
}
