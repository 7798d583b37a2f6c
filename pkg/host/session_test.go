package host

import (
	"encoding/json"
	"testing"

	"github.com/safehost-dev/safehost/pkg/protocol"
)

func TestHandshakeEstablishesChannel(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	obs := &stubObserver{}
	s := r.NewSession("slot_1", Collaborators{Slot: slot, Visibility: obs})

	r.Dispatch(handshakeEvent(t, "slot_1", "chan-7f"))

	if s.State() != StateChannelEstablished {
		t.Fatalf("state = %v, want ChannelEstablished", s.State())
	}
	if s.Channel() != "chan-7f" {
		t.Errorf("channel = %q, want %q", s.Channel(), "chan-7f")
	}
	if obs.subscriptions() != 1 {
		t.Errorf("visibility subscriptions = %d, want 1", obs.subscriptions())
	}

	envs := slot.frame.envelopes()
	if len(envs) != 1 {
		t.Fatalf("posted envelopes = %d, want 1 connect", len(envs))
	}
	connect := envs[0]
	if connect.Service != protocol.ServiceConnect {
		t.Errorf("service = %q, want connect", connect.Service)
	}
	if connect.Channel != "chan-7f" {
		t.Errorf("connect channel = %q, want %q", connect.Channel, "chan-7f")
	}
	if connect.Endpoint != s.EndpointID() {
		t.Errorf("connect endpoint = %d, want %d", connect.Endpoint, s.EndpointID())
	}
}

func TestChannelSetAtMostOnce(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	s := r.NewSession("slot_1", Collaborators{Slot: slot})

	r.Dispatch(handshakeEvent(t, "slot_1", "chan-first"))
	r.Dispatch(handshakeEvent(t, "slot_1", "chan-second"))

	if s.Channel() != "chan-first" {
		t.Errorf("channel = %q, want the first handshake's value", s.Channel())
	}
	if got := len(slot.frame.envelopes()); got != 1 {
		t.Errorf("connect envelopes = %d, want 1: duplicate handshake must be a no-op", got)
	}
}

func TestHandshakeWithoutChannelDropped(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	s := r.NewSession("slot_1", Collaborators{Slot: slot})

	r.Dispatch(handshakeEvent(t, "slot_1", ""))

	if s.State() != StateRegistered {
		t.Errorf("state = %v, want Registered", s.State())
	}
}

func TestHandshakeWithoutFrameAborts(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	slot.frameReady = false
	s := r.NewSession("slot_1", Collaborators{Slot: slot})

	r.Dispatch(handshakeEvent(t, "slot_1", "chan-1"))

	if s.State() != StateRegistered {
		t.Errorf("state = %v, want Registered: establishment must abort without a frame", s.State())
	}
	if s.Channel() != "" {
		t.Errorf("channel = %q, want empty", s.Channel())
	}

	// The iframe materializes later; the next handshake succeeds.
	slot.frameReady = true
	r.Dispatch(handshakeEvent(t, "slot_1", "chan-2"))
	if s.State() != StateChannelEstablished {
		t.Errorf("state after retry = %v, want ChannelEstablished", s.State())
	}
}

func TestStandardMessagesDroppedUntilEstablished(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	r.NewSession("slot_1", Collaborators{Slot: slot})

	expand := &protocol.ExpandRequest{Sentinel: "slot_1", ExpandBottom: 50}

	// Before the handshake: routed but not processed.
	r.Dispatch(standardEvent(t, protocol.ServiceExpandRequest, expand))
	if got := len(slot.calls()); got != 0 {
		t.Fatalf("resize calls before establishment = %d, want 0", got)
	}

	// After the handshake the same message is processed normally: the
	// session is not poisoned by early traffic.
	r.Dispatch(handshakeEvent(t, "slot_1", "chan-1"))
	r.Dispatch(standardEvent(t, protocol.ServiceExpandRequest, expand))
	if got := len(slot.calls()); got != 1 {
		t.Errorf("resize calls after establishment = %d, want 1", got)
	}
}

func TestGeometryPush(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	obs := &stubObserver{}
	s := establish(t, r, "slot_1", slot, Collaborators{Visibility: obs})

	obs.observe(testObservation())

	geom, ok := s.CurrentGeometry()
	if !ok {
		t.Fatal("CurrentGeometry() not set after observation")
	}
	if geom.AllowedExpansion != testObservation().RootBounds {
		t.Errorf("AllowedExpansion = %+v, want root bounds", geom.AllowedExpansion)
	}

	env := slot.frame.last()
	if env == nil || env.Service != protocol.ServiceGeometryUpdate {
		t.Fatalf("last envelope = %+v, want geometry_update", env)
	}

	var upd protocol.GeometryUpdate
	if err := json.Unmarshal([]byte(env.Payload), &upd); err != nil {
		t.Fatalf("geometry_update payload decode: %v", err)
	}
	if upd.UID != s.UID() {
		t.Errorf("payload uid = %d, want %d", upd.UID, s.UID())
	}
	wantGeom, err := geom.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	if upd.NewGeometry != wantGeom {
		t.Errorf("newGeometry = %q, want %q", upd.NewGeometry, wantGeom)
	}
}

func TestGeometryCacheLastWriteWins(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	obs := &stubObserver{}
	s := establish(t, r, "slot_1", slot, Collaborators{Visibility: obs})

	first := testObservation()
	obs.observe(first)

	second := testObservation()
	second.BoundingClientRect.Top = 500
	second.BoundingClientRect.Bottom = 750
	obs.observe(second)

	geom, ok := s.CurrentGeometry()
	if !ok {
		t.Fatal("CurrentGeometry() not set")
	}
	if geom.WindowCoords.Top != 500 {
		t.Errorf("cached geometry top = %v, want the latest observation's 500", geom.WindowCoords.Top)
	}
}

func TestRegisterDoneCapturesInitialSizeOnce(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	s := establish(t, r, "slot_1", slot, Collaborators{})
	posted := len(slot.frame.envelopes())

	r.Dispatch(standardEvent(t, protocol.ServiceRegisterDone, &protocol.RegisterDone{
		Sentinel: "slot_1", Height: 250, Width: 300,
	}))
	r.Dispatch(standardEvent(t, protocol.ServiceRegisterDone, &protocol.RegisterDone{
		Sentinel: "slot_1", Height: 600, Width: 400,
	}))

	h, w, ok := s.InitialSize()
	if !ok {
		t.Fatal("InitialSize() not captured")
	}
	if h != 250 || w != 300 {
		t.Errorf("initial size = %dx%d, want first capture 250x300", h, w)
	}
	if got := len(slot.frame.envelopes()); got != posted {
		t.Errorf("register_done produced %d envelopes, want 0", got-posted)
	}
}

func TestUnknownServiceIsNoOp(t *testing.T) {
	r := newTestRouter(t)
	slot := newStubSlot(250, 300)
	establish(t, r, "slot_1", slot, Collaborators{})
	posted := len(slot.frame.envelopes())

	r.Dispatch(RawEvent{
		Origin: testOrigin,
		Data:   []byte(`{"c":"chan-test","i":9,"s":"telemetry_blob","p":"{\"sentinel\":\"slot_1\"}"}`),
	})

	if got := len(slot.calls()); got != 0 {
		t.Errorf("resize calls = %d, want 0", got)
	}
	if got := len(slot.frame.envelopes()); got != posted {
		t.Errorf("unknown service produced %d envelopes, want 0", got-posted)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConstructed, "Constructed"},
		{StateRegistered, "Registered"},
		{StateChannelEstablished, "ChannelEstablished"},
		{State(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
