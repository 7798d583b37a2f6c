package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/safehost-dev/safehost/pkg/host"
)

// Connection errors.
var (
	// ErrConnClosed signals a send or resize attempted after the connection
	// closed.
	ErrConnClosed = errors.New("bridge: connection closed")

	// ErrResizeTimeout signals a resize whose result never came back from
	// the shim within the configured window.
	ErrResizeTimeout = errors.New("bridge: resize result timed out")
)

// pendingResize tracks one in-flight resize round trip to the shim.
type pendingResize struct {
	proxy  *slotProxy
	height int
	width  int
	done   func(error)
	timer  *time.Timer
}

// Conn is one shim connection: one publisher page. It owns the page's
// host.Router and the slot proxies that stand in for the page-side
// capabilities.
type Conn struct {
	id     string
	ws     *websocket.Conn
	cfg    *Config
	logger *slog.Logger
	router *host.Router

	// writeMu serializes WebSocket writes.
	writeMu sync.Mutex

	mu      sync.Mutex
	slots   map[string]*slotProxy
	pending map[uint64]*pendingResize
	nextSeq uint64
	closed  bool
	done    chan struct{}

	onClose func(*Conn)
}

func newConn(ws *websocket.Conn, cfg *Config, logger *slog.Logger, metrics *host.Metrics, onClose func(*Conn)) *Conn {
	id := uuid.NewString()
	c := &Conn{
		id:      id,
		ws:      ws,
		cfg:     cfg,
		logger:  logger.With("component", "bridge_conn", "conn_id", id),
		slots:   make(map[string]*slotProxy),
		pending: make(map[uint64]*pendingResize),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	c.router = host.NewRouter(cfg.Host, c.logger, metrics)
	return c
}

// ID returns the connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// Router returns the connection's host router.
func (c *Conn) Router() *host.Router {
	return c.router
}

// Start starts the connection loops.
func (c *Conn) Start() {
	go c.ReadLoop()
	go c.WriteLoop()
}

// ReadLoop continuously reads shim messages from the WebSocket connection.
// It blocks until the connection is closed or an error occurs.
func (c *Conn) ReadLoop() {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}

		var msg shimMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("shim message decode error", "error", err)
			continue
		}

		c.handle(&msg)
	}
}

// WriteLoop handles periodic heartbeats. It runs until the connection is
// closed.
func (c *Conn) WriteLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Error("ping error", "error", err)
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// handle dispatches one decoded shim message.
func (c *Conn) handle(msg *shimMessage) {
	switch msg.Kind {
	case kindRegisterSlot:
		c.handleRegisterSlot(msg)

	case kindFrameReady:
		if p := c.lookupSlot(msg); p != nil {
			p.setFrameReady()
		}

	case kindObservation:
		p := c.lookupSlot(msg)
		if p == nil {
			return
		}
		if msg.Observation == nil {
			c.logger.Warn("observation message without observation body", "slot", msg.Slot)
			return
		}
		p.notify(*msg.Observation)

	case kindImpression:
		if p := c.lookupSlot(msg); p != nil {
			p.storeImpression(msg.URL)
		}

	case kindSize:
		if p := c.lookupSlot(msg); p != nil {
			p.setSize(msg.Height, msg.Width)
		}

	case kindResizeResult:
		c.completeResize(msg)

	case kindCreative:
		c.router.Dispatch(host.RawEvent{Origin: msg.Origin, Data: msg.Data})

	default:
		c.logger.Warn("unknown shim message kind", "kind", msg.Kind)
	}
}

// handleRegisterSlot creates the slot proxy and its session, then returns
// the registration attributes the shim writes onto the iframe element.
func (c *Conn) handleRegisterSlot(msg *shimMessage) {
	if msg.Slot == "" {
		c.logger.Warn("register_slot without slot identifier dropped")
		return
	}

	c.mu.Lock()
	if _, exists := c.slots[msg.Slot]; exists {
		c.mu.Unlock()
		c.logger.Debug("slot already registered", "slot", msg.Slot)
		return
	}
	p := &slotProxy{
		conn:   c,
		slotID: msg.Slot,
		height: msg.Height,
		width:  msg.Width,
	}
	c.slots[msg.Slot] = p
	c.mu.Unlock()

	sess := c.router.NewSession(msg.Slot, host.Collaborators{
		Slot:        p,
		Visibility:  p,
		Impressions: p,
	})

	if err := c.send(&shimMessage{
		Kind:       kindRegistered,
		Slot:       msg.Slot,
		Attributes: sess.RegistrationAttributes(),
	}); err != nil {
		c.logger.Error("registration reply failed", "slot", msg.Slot, "error", err)
	}
}

// lookupSlot resolves the message's slot proxy, logging a warning on miss.
func (c *Conn) lookupSlot(msg *shimMessage) *slotProxy {
	c.mu.Lock()
	p := c.slots[msg.Slot]
	c.mu.Unlock()

	if p == nil {
		c.logger.Warn("shim message for unknown slot dropped",
			"kind", msg.Kind,
			"slot", msg.Slot)
	}
	return p
}

// attemptResize starts one resize round trip: a resize command goes out with
// a sequence number, and the matching resize_result completes it. The done
// callback fires exactly once, on result, send failure, or timeout.
func (c *Conn) attemptResize(p *slotProxy, height, width int, done func(error)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		done(ErrConnClosed)
		return
	}
	c.nextSeq++
	seq := c.nextSeq
	pr := &pendingResize{proxy: p, height: height, width: width, done: done}
	c.pending[seq] = pr
	pr.timer = time.AfterFunc(c.cfg.ResizeTimeout, func() {
		if pr := c.takePending(seq); pr != nil {
			pr.done(ErrResizeTimeout)
		}
	})
	c.mu.Unlock()

	err := c.send(&shimMessage{
		Kind:   kindResize,
		Slot:   p.slotID,
		Seq:    seq,
		Height: height,
		Width:  width,
	})
	if err != nil {
		if pr := c.takePending(seq); pr != nil {
			pr.done(err)
		}
	}
}

// takePending removes and returns the in-flight resize for seq, stopping its
// timeout. Returns nil when the resize already completed.
func (c *Conn) takePending(seq uint64) *pendingResize {
	c.mu.Lock()
	pr := c.pending[seq]
	delete(c.pending, seq)
	c.mu.Unlock()

	if pr != nil && pr.timer != nil {
		pr.timer.Stop()
	}
	return pr
}

// completeResize finishes the resize round trip for a resize_result message.
// On success the proxy caches the shim's reported dimensions, falling back
// to the requested target when the shim omits them.
func (c *Conn) completeResize(msg *shimMessage) {
	pr := c.takePending(msg.Seq)
	if pr == nil {
		c.logger.Debug("resize result without pending resize", "seq", msg.Seq)
		return
	}

	if msg.Error != "" {
		pr.done(fmt.Errorf("bridge: shim resize failed: %s", msg.Error))
		return
	}

	height, width := msg.Height, msg.Width
	if height == 0 && width == 0 {
		height, width = pr.height, pr.width
	}
	pr.proxy.setSize(height, width)
	pr.done(nil)
}

// send serializes and writes one shim message.
func (c *Conn) send(msg *shimMessage) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down: pending resizes fail with ErrConnClosed
// and the socket is closed. Idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	pending := c.pending
	c.pending = make(map[uint64]*pendingResize)
	c.mu.Unlock()

	for _, pr := range pending {
		if pr.timer != nil {
			pr.timer.Stop()
		}
		pr.done(ErrConnClosed)
	}

	c.ws.Close()
	c.logger.Info("connection closed")

	if c.onClose != nil {
		c.onClose(c)
	}
}
