package bridge

import (
	"sync"

	"github.com/safehost-dev/safehost/pkg/geometry"
	"github.com/safehost-dev/safehost/pkg/host"
)

// slotProxy stands in for one page-side placement. The real element lives in
// the browser; the proxy caches its last known state and turns capability
// calls into shim commands.
type slotProxy struct {
	conn   *Conn
	slotID string

	mu         sync.Mutex
	height     int
	width      int
	frameReady bool
	impression string
	observer   func(geometry.Observation)
}

var (
	_ host.SlotElement        = (*slotProxy)(nil)
	_ host.Frame              = (*slotProxy)(nil)
	_ host.VisibilityObserver = (*slotProxy)(nil)
	_ host.ImpressionSource   = (*slotProxy)(nil)
)

// Size returns the element's last reported dimensions.
func (p *slotProxy) Size() (height, width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height, p.width
}

// AttemptResize relays the resize to the shim. done fires when the shim
// reports the outcome, the send fails, or the round trip times out.
func (p *slotProxy) AttemptResize(height, width int, done func(error)) {
	p.conn.attemptResize(p, height, width, done)
}

// ResetPendingResize tells the shim to abandon a resize whose reported
// outcome did not take effect.
func (p *slotProxy) ResetPendingResize() {
	if err := p.conn.send(&shimMessage{Kind: kindResetResize, Slot: p.slotID}); err != nil {
		p.conn.logger.Warn("reset_resize send failed", "slot", p.slotID, "error", err)
	}
}

// Frame returns the proxy as the creative iframe surface once the shim has
// reported the iframe ready.
func (p *slotProxy) Frame() (host.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.frameReady {
		return nil, false
	}
	return p, true
}

// SetSize mirrors the element's dimensions onto the iframe via the shim.
func (p *slotProxy) SetSize(height, width int) {
	if err := p.conn.send(&shimMessage{
		Kind:   kindFrameSize,
		Slot:   p.slotID,
		Height: height,
		Width:  width,
	}); err != nil {
		p.conn.logger.Warn("frame_size send failed", "slot", p.slotID, "error", err)
	}
}

// Post delivers an encoded envelope to the creative window via the shim.
func (p *slotProxy) Post(data []byte) error {
	return p.conn.send(&shimMessage{
		Kind: kindPost,
		Slot: p.slotID,
		Data: data,
	})
}

// Subscribe registers fn to receive relayed visibility observations.
func (p *slotProxy) Subscribe(fn func(geometry.Observation)) func() {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.observer = nil
		p.mu.Unlock()
	}
}

// TakePending returns and clears the stored impression URL.
func (p *slotProxy) TakePending() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.impression == "" {
		return "", false
	}
	url := p.impression
	p.impression = ""
	return url, true
}

func (p *slotProxy) setFrameReady() {
	p.mu.Lock()
	p.frameReady = true
	p.mu.Unlock()
}

func (p *slotProxy) setSize(height, width int) {
	p.mu.Lock()
	p.height, p.width = height, width
	p.mu.Unlock()
}

func (p *slotProxy) storeImpression(url string) {
	p.mu.Lock()
	p.impression = url
	p.mu.Unlock()
}

func (p *slotProxy) notify(obs geometry.Observation) {
	p.mu.Lock()
	fn := p.observer
	p.mu.Unlock()
	if fn != nil {
		fn(obs)
	}
}
