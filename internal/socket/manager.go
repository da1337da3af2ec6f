// Package socket owns the hospital's duplex WebSocket session with the backend.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("socket not connected")

type Options struct {
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	return o
}

// link is one physical socket. A Manager replaces its link on reconnect;
// goroutines bound to an old link only ever clean up that link.
type link struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func (l *link) stop() {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

func (l *link) write(messageType int, data []byte, wait time.Duration) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(wait))
	return l.conn.WriteMessage(messageType, data)
}

type Manager struct {
	urlFor func(sessionID string) string
	opts   Options
	dialer *websocket.Dialer
	log    *logger.Logger

	mu        sync.Mutex
	link      *link
	sessionID string
	onMessage func(models.Frame)
	onStatus  func(bool)
}

// NewManager builds a manager that dials urlFor(sessionID) on Connect.
func NewManager(urlFor func(string) string, opts Options, log *logger.Logger) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		urlFor: urlFor,
		opts:   opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		log: log.With("socket"),
	}
}

// SetOnMessage replaces the frame callback.
func (m *Manager) SetOnMessage(fn func(models.Frame)) {
	m.mu.Lock()
	m.onMessage = fn
	m.mu.Unlock()
}

// SetOnStatusChange replaces the connectivity callback.
func (m *Manager) SetOnStatusChange(fn func(connected bool)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link != nil
}

func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Connect opens the socket for sessionID, tearing down any socket already held.
func (m *Manager) Connect(ctx context.Context, sessionID string) error {
	if m.Connected() {
		m.Disconnect()
	}

	url := m.urlFor(sessionID)
	m.log.Info("Connecting to %s", url)

	conn, _, err := m.dialer.DialContext(ctx, url, nil)
	if err != nil {
		m.log.Error("Dial failed: %v", err)
		m.notifyStatus(false)
		return fmt.Errorf("dial %s: %w", url, err)
	}

	conn.SetReadLimit(m.opts.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
		return nil
	})

	l := &link{conn: conn, done: make(chan struct{})}

	m.mu.Lock()
	old := m.link
	m.link = l
	m.sessionID = sessionID
	m.mu.Unlock()
	if old != nil {
		old.stop()
	}

	m.log.Info("Connected as hospital %s", sessionID)
	m.notifyStatus(true)

	go m.readLoop(l)
	go m.pingLoop(l)
	return nil
}

// Disconnect closes the socket if one is held and always reports false.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	l := m.link
	m.link = nil
	m.mu.Unlock()

	if l != nil {
		l.stop()
		m.log.Info("Disconnected")
	}
	m.notifyStatus(false)
}

// Send writes an envelope addressed to a user. Messages are never queued:
// when no socket is open the message is dropped and ErrNotConnected returned.
func (m *Manager) Send(recipientID, content string) error {
	m.mu.Lock()
	l := m.link
	sessionID := m.sessionID
	m.mu.Unlock()

	if l == nil {
		m.log.Warn("Dropping message to %s: not connected", recipientID)
		return ErrNotConnected
	}

	data, err := json.Marshal(models.Envelope{
		SenderType:    models.PartyHospital,
		SenderID:      sessionID,
		RecipientType: models.PartyUser,
		RecipientID:   recipientID,
		Content:       content,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := l.write(websocket.TextMessage, data, m.opts.WriteWait); err != nil {
		return fmt.Errorf("send to %s: %w", recipientID, err)
	}
	return nil
}

func (m *Manager) readLoop(l *link) {
	defer func() {
		if m.release(l) {
			m.log.Warn("Connection closed by remote")
			m.notifyStatus(false)
		}
	}()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					m.log.Error("Read error: %v", err)
				}
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.log.Warn("Protocol error, skipping frame: %v", err)
			continue
		}
		m.dispatch(frame)
	}
}

func (m *Manager) pingLoop(l *link) {
	ticker := time.NewTicker(m.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if err := l.write(websocket.PingMessage, nil, m.opts.WriteWait); err != nil {
				m.log.Debug("Ping failed: %v", err)
				return
			}
		}
	}
}

// release clears the current handle if it still belongs to l.
func (m *Manager) release(l *link) bool {
	m.mu.Lock()
	current := m.link == l
	if current {
		m.link = nil
	}
	m.mu.Unlock()
	l.stop()
	return current
}

func (m *Manager) dispatch(frame models.Frame) {
	m.mu.Lock()
	fn := m.onMessage
	m.mu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Message handler panic: %v", r)
		}
	}()
	fn(frame)
}

func (m *Manager) notifyStatus(connected bool) {
	m.mu.Lock()
	fn := m.onStatus
	m.mu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Status handler panic: %v", r)
		}
	}()
	fn(connected)
}
