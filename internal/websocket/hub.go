package websocket

import (
	"context"
	"sync"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/notify"
)

// Event types pushed to dashboard clients.
const (
	TypeAlerts       = "alerts"
	TypeNotice       = "notice"
	TypeConnectivity = "connectivity"
	TypeHistory      = "history"
)

// stateTypes carry full state; only the newest of each needs to reach clients.
var stateTypes = []string{TypeConnectivity, TypeAlerts, TypeHistory}

// Message defines the generic structure for WS communication
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
	mu         sync.RWMutex
	done       chan struct{}

	// snapshot produces the messages a newly connected client starts with.
	snapshot func() []Message

	pendingMu sync.Mutex
	pending   map[string]Message
	wake      chan struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log.With("hub"),
		done:       make(chan struct{}),
		pending:    make(map[string]Message),
		wake:       make(chan struct{}, 1),
	}
}

// SetSnapshot sets the initial state sent to each new client.
func (h *Hub) SetSnapshot(fn func() []Message) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// Run starts the hub logic in a goroutine. It listens for context cancellation for clean shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Dashboard hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("Dashboard hub shutting down...")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Dashboard client connected. Total: %d", n)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.deliver(message)
		case <-h.wake:
			for _, message := range h.takePending() {
				h.deliver(message)
			}
		}
	}
}

func (h *Hub) deliver(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func isState(msgType string) bool {
	for _, t := range stateTypes {
		if t == msgType {
			return true
		}
	}
	return false
}

func (h *Hub) takePending() []Message {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	out := make([]Message, 0, len(h.pending))
	for _, t := range stateTypes {
		if m, ok := h.pending[t]; ok {
			out = append(out, m)
			delete(h.pending, t)
		}
	}
	return out
}

// Broadcast queues a message for all connected clients without blocking.
// State events replace any undelivered event of the same type, so clients
// always end on the newest state. Notices are dropped when the hub is
// backed up, as is any other type.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	msg := Message{Type: msgType, Payload: payload}
	if isState(msgType) {
		h.pendingMu.Lock()
		h.pending[msgType] = msg
		h.pendingMu.Unlock()
		select {
		case h.wake <- struct{}{}:
		default:
		}
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("Hub backlog full, dropping %s event", msgType)
	}
}

// Notify pushes an operator notice to the dashboards.
func (h *Hub) Notify(n notify.Notice) {
	h.Broadcast(TypeNotice, n)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) initialMessages() []Message {
	h.mu.RLock()
	fn := h.snapshot
	h.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn()
}
