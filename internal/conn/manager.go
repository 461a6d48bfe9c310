package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrRetriesExhausted = errors.New("reconnection attempts exhausted")
)

const (
	// MaxAttempts caps RetryPolicy.Attempts.
	MaxAttempts = 10

	sendBufferSize  = 16
	eventBufferSize = 64
	writeTimeout    = 3 * time.Second
	helloTimeout    = 5 * time.Second
)

type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: MaxAttempts, Delay: time.Second}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Attempts < 1 || p.Attempts > MaxAttempts {
		p.Attempts = MaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = time.Second
	}
	return p
}

// Event is what the manager reports to its consumer. Gen identifies the
// connection an event belongs to; it grows by one on every successful dial.
type Event interface{ isConnEvent() }

type Connected struct {
	Gen uint64
	ID  string
}

type Message struct {
	Gen      uint64
	Envelope protocol.Envelope
}

type Lost struct {
	Gen uint64
	Err error
}

// GaveUp is the last event a manager emits: every attempt failed and the
// client stays disconnected until something restarts it.
type GaveUp struct{ Err error }

func (Connected) isConnEvent() {}
func (Message) isConnEvent()   {}
func (Lost) isConnEvent()      {}
func (GaveUp) isConnEvent()    {}

type link struct {
	gen  uint64
	id   string
	conn *websocket.Conn
	send chan protocol.Envelope
}

// Manager owns the single websocket to the game server and keeps it alive.
type Manager struct {
	endpoint string
	policy   RetryPolicy
	log      *zap.Logger
	events   chan Event

	mu   sync.Mutex
	link *link
	gen  uint64
}

func NewManager(endpoint string, policy RetryPolicy, log *zap.Logger) *Manager {
	return &Manager{
		endpoint: endpoint,
		policy:   policy.normalize(),
		log:      log.Named("conn"),
		events:   make(chan Event, eventBufferSize),
	}
}

func (m *Manager) Events() <-chan Event { return m.events }

// Identity is the id the server assigned to the live connection, or "" when
// disconnected. It changes on every reconnect.
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link == nil {
		return ""
	}
	return m.link.id
}

// Send queues env on the live connection without blocking.
func (m *Manager) Send(env protocol.Envelope) error {
	m.mu.Lock()
	l := m.link
	m.mu.Unlock()
	if l == nil {
		return ErrNotConnected
	}
	select {
	case l.send <- env:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Run connects and reconnects until ctx is done or the retry budget of a
// single reconnection cycle is spent.
func (m *Manager) Run(ctx context.Context) error {
	reconnecting := false
	for {
		c, id, err := m.dialWithRetry(ctx, reconnecting)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Error("giving up on server", zap.String("endpoint", m.endpoint), zap.Error(err))
			m.emit(ctx, GaveUp{Err: err})
			return err
		}

		l := m.attach(c, id)
		m.log.Info("connected", zap.String("id", id), zap.Uint64("gen", l.gen))
		m.emit(ctx, Connected{Gen: l.gen, ID: id})

		err = m.serve(ctx, l)
		m.detach(l)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn("connection lost", zap.Uint64("gen", l.gen), zap.Error(err))
		m.emit(ctx, Lost{Gen: l.gen, Err: err})
		reconnecting = true
	}
}

func (m *Manager) dialWithRetry(ctx context.Context, waitFirst bool) (*websocket.Conn, string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.policy.Attempts; attempt++ {
		if attempt > 1 || waitFirst {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(m.policy.Delay):
			}
		}

		c, id, err := m.dial(ctx)
		if err == nil {
			return c, id, nil
		}
		lastErr = err
		m.log.Debug("dial failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, m.policy.Attempts, lastErr)
}

// dial opens the websocket and waits for the server's identity frame.
func (m *Manager) dial(ctx context.Context) (*websocket.Conn, string, error) {
	dctx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	c, _, err := websocket.Dial(dctx, m.endpoint, nil)
	if err != nil {
		return nil, "", err
	}

	_, data, err := c.Read(dctx)
	if err != nil {
		c.CloseNow()
		return nil, "", fmt.Errorf("read identity: %w", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.Close(websocket.StatusPolicyViolation, "bad identity frame")
		return nil, "", fmt.Errorf("read identity: %w", err)
	}
	hello, err := protocol.DecodeHello(env)
	if err != nil {
		c.Close(websocket.StatusPolicyViolation, "bad identity frame")
		return nil, "", err
	}
	return c, hello.ID, nil
}

func (m *Manager) attach(c *websocket.Conn, id string) *link {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	l := &link{gen: m.gen, id: id, conn: c, send: make(chan protocol.Envelope, sendBufferSize)}
	m.link = l
	return l
}

func (m *Manager) detach(l *link) {
	m.mu.Lock()
	if m.link == l {
		m.link = nil
	}
	m.mu.Unlock()
	_ = l.conn.Close(websocket.StatusNormalClosure, "bye")
}

// serve runs the read and write pumps of one connection until either fails.
func (m *Manager) serve(ctx context.Context, l *link) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.readPump(gctx, l) })
	g.Go(func() error { return m.writePump(gctx, l) })
	return g.Wait()
}

func (m *Manager) readPump(ctx context.Context, l *link) error {
	for {
		_, data, err := l.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return fmt.Errorf("server closed connection: %w", err)
			}
			return err
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if !m.emit(ctx, Message{Gen: l.gen, Envelope: env}) {
			return ctx.Err()
		}
	}
}

func (m *Manager) writePump(ctx context.Context, l *link) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-l.send:
			payload, err := json.Marshal(env)
			if err != nil {
				m.log.Error("dropping unencodable frame", zap.String("type", string(env.Type)), zap.Error(err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = l.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return fmt.Errorf("write %s: %w", env.Type, err)
			}
		}
	}
}

func (m *Manager) emit(ctx context.Context, ev Event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
