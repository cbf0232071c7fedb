// Package metrics runs the operator health/metrics HTTP+WebSocket surface
// (spec §7: "sends, recvs, errs, reconnects, fg_sends emitted every ~30s").
// It is the teacher's dashboard (internal/api: a gorilla/websocket Hub
// broadcasting DashboardEvent snapshots to connected operators) adapted
// from position/fill events to ingest-core health counters: one snapshot
// struct, one hub, one ticker pushing it out instead of a stream of
// per-fill events.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/holaplex-labs/indexer-core/internal/broker"
	"github.com/holaplex-labs/indexer-core/internal/config"
	"github.com/holaplex-labs/indexer-core/internal/ingest"
	"github.com/holaplex-labs/indexer-core/internal/writer"
)

// Snapshot is the health payload broadcast to dashboard clients and served
// at /api/snapshot, naming exactly the counters spec §7 requires.
type Snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Recvs      int64     `json:"recvs"`
	Sends      int64     `json:"sends"`
	Errs       int64     `json:"errs"`
	FgSends    int64     `json:"fg_sends"`
	Reconnects int64     `json:"reconnects"`
	PoolTotal  int32     `json:"pool_total_conns"`
	PoolIdle   int32     `json:"pool_idle_conns"`
}

// Server runs the HTTP/WebSocket health surface described in spec §7.
type Server struct {
	core   *ingest.Core
	conn   *broker.Conn
	gw     *writer.Gateway
	cfg    config.MetricsConfig
	hub    *hub
	server *http.Server
	logger *slog.Logger
}

// NewServer builds a Server polling core/conn/gw for its counters.
func NewServer(core *ingest.Core, conn *broker.Conn, gw *writer.Gateway, cfg config.MetricsConfig, logger *slog.Logger) *Server {
	h := newHub(logger)
	s := &Server{
		core:   core,
		conn:   conn,
		gw:     gw,
		cfg:    cfg,
		hub:    h,
		logger: logger.With("component", "metrics.server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) snapshot() Snapshot {
	stat := s.gw.Stats()
	return Snapshot{
		Timestamp:  time.Now(),
		Recvs:      s.core.Counters.Recvs.Load(),
		Sends:      s.core.Counters.Sends.Load(),
		Errs:       s.core.Counters.Errs.Load(),
		FgSends:    s.core.Counters.FgSends.Load(),
		Reconnects: s.conn.Reconnects(),
		PoolTotal:  stat.TotalConns(),
		PoolIdle:   stat.IdleConns(),
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		s.logger.Error("encode snapshot failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := newClient(s.hub, conn)
	if data, err := json.Marshal(s.snapshot()); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}
}

// Run starts the emit ticker, the hub, and the HTTP listener, blocking
// until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		<-ctx.Done()
		return nil
	}

	go s.hub.run()
	go s.emitLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) emitLoop(ctx context.Context) {
	interval := s.cfg.EmitInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.broadcast(s.snapshot())
		}
	}
}

// hub fans a snapshot out to every connected websocket client, the same
// register/unregister/broadcast shape as the teacher's dashboard Hub
// (internal/api/server.go), narrowed to a single message type.
type hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast_ chan []byte
	mu         sync.RWMutex
	logger     *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast_: make(chan []byte, 64),
		logger:     logger.With("component", "metrics.hub"),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast_:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *hub) broadcast(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("marshal snapshot failed", "error", err)
		return
	}
	select {
	case h.broadcast_ <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping snapshot")
	}
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func newClient(h *hub, conn *websocket.Conn) *client {
	c := &client{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
