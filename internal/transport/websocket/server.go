// Package websocket delivers queued narration to connected clients.
//
// Clients connect to the configured path with ?entity=<id>. The server
// assigns a handle, binds it in the identity directory for the lifetime of
// the socket, and a flush loop drains the outbox into the addressed
// connections.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/identity"
	"github.com/frontierstation/damagecast/internal/queue"
	"github.com/frontierstation/damagecast/pkg/core"
	"github.com/frontierstation/damagecast/pkg/streaming"
)

const (
	instrumentationName = "github.com/frontierstation/damagecast/internal/transport/websocket"

	defaultFlushInterval = 50 * time.Millisecond
	defaultWriteTimeout  = 10 * time.Second
)

// Server owns client sessions and the outbox flush loop.
type Server struct {
	cfg    config.TransportConfig
	dir    *identity.Directory
	outbox *queue.Queue[streaming.Outbound]
	logger *slog.Logger

	upgrader   ws.Upgrader
	nextHandle atomic.Uint64

	mu    sync.RWMutex
	conns map[core.Handle]*connection
	wg    sync.WaitGroup

	delivered     metric.Int64Counter
	undeliverable metric.Int64Counter
}

// NewServer creates a server. Uses the global OTel meter (no-op if not
// configured).
func NewServer(cfg config.TransportConfig, dir *identity.Directory, outbox *queue.Queue[streaming.Outbound], logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	s := &Server{
		cfg:    cfg,
		dir:    dir,
		outbox: outbox,
		logger: logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[core.Handle]*connection),
	}

	m := otel.Meter(instrumentationName)
	var err error
	s.delivered, err = m.Int64Counter(
		"transport.messages.delivered",
		metric.WithDescription("Messages handed to a client connection"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivered counter: %w", err)
	}
	s.undeliverable, err = m.Int64Counter(
		"transport.messages.undeliverable",
		metric.WithDescription("Messages dropped at flush time"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating undeliverable counter: %w", err)
	}
	return s, nil
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	return mux
}

// Connections returns the number of open client sessions.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("entity")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid entity %q", raw), http.StatusBadRequest)
		return
	}
	entity := core.EntityID(id)

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "entity", entity, "error", err)
		return
	}

	handle := core.Handle(s.nextHandle.Add(1))
	c := newConnection(handle, entity, wsConn, s.cfg.WriteTimeout, s.logger)
	s.register(c)
	defer s.unregister(c)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()

	welcome, err := streaming.ServerMessage{
		Type:    streaming.TypeWelcome,
		Payload: streaming.WelcomePayload{Handle: handle, Entity: entity},
	}.Marshal()
	if err == nil {
		c.send(welcome)
	}

	c.readLoop()
}

func (s *Server) register(c *connection) {
	s.mu.Lock()
	s.conns[c.handle] = c
	s.mu.Unlock()

	previous, replaced := s.dir.Connect(c.entity, c.handle)
	if replaced {
		// one session per entity; the newest wins
		s.mu.RLock()
		old := s.conns[previous]
		s.mu.RUnlock()
		if old != nil {
			old.close()
		}
	}
	s.logger.Info("Client connected", "handle", c.handle, "entity", c.entity, "replaced", replaced)
}

func (s *Server) unregister(c *connection) {
	s.dir.Disconnect(c.handle)
	s.mu.Lock()
	delete(s.conns, c.handle)
	s.mu.Unlock()
	c.close()
	s.logger.Info("Client disconnected", "handle", c.handle, "entity", c.entity)
}

// Flush drains the outbox and hands every message to its connection.
// Messages for handles that are gone by now are dropped.
func (s *Server) Flush(ctx context.Context) int {
	items := s.outbox.Drain()
	if len(items) == 0 {
		return 0
	}

	delivered := 0
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, out := range items {
		c, ok := s.conns[out.Handle]
		if !ok {
			s.undeliverable.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "disconnected")))
			continue
		}
		data, err := out.Message.Marshal()
		if err != nil {
			s.logger.Error("Failed to encode message", "handle", out.Handle, "error", err)
			s.undeliverable.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "encode")))
			continue
		}
		if !c.send(data) {
			s.undeliverable.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "backpressure")))
			continue
		}
		delivered++
	}
	s.delivered.Add(ctx, int64(delivered))
	return delivered
}

// RunFlush flushes the outbox every interval until ctx is done.
func (s *Server) RunFlush(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// ListenAndServe serves clients and flushes the outbox until ctx is done,
// then closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpSrv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		s.RunFlush(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("WebSocket server listening", "addr", s.cfg.ListenAddr, "path", s.cfg.Path)
		errCh <- httpSrv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	cancel()

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer stop()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = fmt.Errorf("shutdown websocket server: %w", shutdownErr)
	}
	<-flushDone
	s.Close()
	return err
}

// Close ends every session and waits for their writers to finish.
func (s *Server) Close() {
	s.mu.RLock()
	for _, c := range s.conns {
		c.close()
	}
	s.mu.RUnlock()
	s.wg.Wait()
}
