// Package channel carries envelopes between the host process and foreground
// consoles over a websocket.
package channel

import (
	"context"
	"errors"
	"fmt"
	"medreminder/internal/application/dto"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Handler applies one received envelope.
type Handler func(ctx context.Context, env dto.Envelope) error

const (
	outboxSize = 32
	maxPending = 64
)

type peer struct {
	conn *websocket.Conn
	out  chan dto.Envelope
}

// Hub is the host side of the channel. It broadcasts to every connected
// foreground and queues forwarded clicks while none is connected.
type Hub struct {
	log logger.Logger

	mu       sync.Mutex
	handler  Handler
	onDetach func()
	peers    map[*peer]struct{}
	pending  []dto.Envelope
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		log:   log,
		peers: make(map[*peer]struct{}),
	}
}

// SetHandler sets the function applied to every message from a foreground.
// It is set after construction because the handler's owner needs the hub.
func (h *Hub) SetHandler(fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = fn
}

// OnDetach sets the function called when the last foreground disconnects.
func (h *Hub) OnDetach(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDetach = fn
}

// Clients returns the number of connected foregrounds.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Send broadcasts env. It fails with ErrChannelClosed when nobody is connected.
func (h *Hub) Send(ctx context.Context, env dto.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.peers) == 0 {
		return appErrors.ErrChannelClosed
	}
	h.broadcastLocked(env)
	return nil
}

// Forward broadcasts env, or queues it for the next foreground to connect.
func (h *Hub) Forward(ctx context.Context, env dto.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.peers) > 0 {
		h.broadcastLocked(env)
		return nil
	}
	if len(h.pending) >= maxPending {
		h.pending = h.pending[1:]
	}
	h.pending = append(h.pending, env)
	h.log.Debug(fmt.Sprintf("No foreground connected, queued %s", env.Type))
	return nil
}

func (h *Hub) broadcastLocked(env dto.Envelope) {
	for p := range h.peers {
		select {
		case p.out <- env:
		default:
			h.log.Warn(fmt.Sprintf("Foreground outbox full, dropped %s", env.Type))
		}
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Websocket upgrade failed: %v", err))
		return
	}
	h.Serve(r.Context(), conn)
}

// Serve runs one foreground connection. It returns when the connection ends.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := &peer{conn: conn, out: make(chan dto.Envelope, outboxSize)}
	h.attach(p)
	h.log.Info("Foreground connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, p)
		cancel()
	}()

	h.readLoop(ctx, p)
	cancel()
	<-done

	h.detach(p)
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Info("Foreground disconnected")
}

func (h *Hub) attach(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = struct{}{}
	for _, env := range h.pending {
		select {
		case p.out <- env:
		default:
		}
	}
	h.pending = nil
}

func (h *Hub) detach(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	last := len(h.peers) == 0
	onDetach := h.onDetach
	h.mu.Unlock()
	if last && onDetach != nil {
		onDetach()
	}
}

func (h *Hub) readLoop(ctx context.Context, p *peer) {
	for {
		var env dto.Envelope
		if err := wsjson.Read(ctx, p.conn, &env); err != nil {
			if !isClosed(err) && ctx.Err() == nil {
				h.log.Warn(fmt.Sprintf("Websocket read failed: %v", err))
			}
			return
		}
		h.mu.Lock()
		handler := h.handler
		h.mu.Unlock()
		if handler == nil {
			continue
		}
		if err := handler(ctx, env); err != nil {
			h.log.Warn(fmt.Sprintf("Failed to handle %s: %v", env.Type, err))
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, p *peer) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-p.out:
			if err := wsjson.Write(ctx, p.conn, env); err != nil {
				if ctx.Err() == nil {
					h.log.Warn(fmt.Sprintf("Websocket write failed: %v", err))
				}
				return
			}
		}
	}
}

func isClosed(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled)
}
