package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safehost-dev/safehost/internal/middleware"
	"github.com/safehost-dev/safehost/pkg/host"
)

// Bridge is the HTTP/WebSocket server that shims connect to.
type Bridge struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *host.Metrics

	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu    sync.Mutex
	conns map[string]*Conn
}

// New creates a bridge. A nil logger uses slog.Default; a nil metrics
// disables host instrumentation.
func New(cfg *Config, logger *slog.Logger, metrics *host.Metrics) *Bridge {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		cfg:     cfg,
		logger:  logger.With("component", "bridge"),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		conns: make(map[string]*Conn),
	}
}

// Handler returns the bridge's HTTP handler: the shim WebSocket endpoint
// plus health and metrics routes.
func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenTelemetry(
		middleware.WithRequestFilter(func(req *http.Request) bool {
			return req.URL.Path != "/healthz" && req.URL.Path != "/metrics"
		}),
	))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/safeframe/ws", b.HandleWebSocket)

	return r
}

// HandleWebSocket upgrades one shim connection and starts its loops.
func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(ws, b.cfg, b.logger, b.metrics, b.removeConn)

	b.mu.Lock()
	b.conns[conn.ID()] = conn
	count := len(b.conns)
	b.mu.Unlock()

	b.logger.Info("shim connected",
		"conn_id", conn.ID(),
		"remote", r.RemoteAddr,
		"connections", count)

	conn.Start()
}

func (b *Bridge) removeConn(c *Conn) {
	b.mu.Lock()
	delete(b.conns, c.ID())
	b.mu.Unlock()
}

// ConnCount returns the number of live shim connections.
func (b *Bridge) ConnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Run starts the server and blocks until shutdown.
func (b *Bridge) Run() error {
	b.httpServer = &http.Server{
		Addr:    b.cfg.Address,
		Handler: b.Handler(),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("bridge starting", "address", b.cfg.Address)
		errCh <- b.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		b.logger.Info("shutting down...")
		return b.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server: shim connections close first,
// then the HTTP listener drains.
func (b *Bridge) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ShutdownTimeout)
	defer cancel()

	b.mu.Lock()
	conns := make([]*Conn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	if b.httpServer != nil {
		if err := b.httpServer.Shutdown(ctx); err != nil {
			b.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	b.logger.Info("bridge shutdown complete")
	return nil
}
