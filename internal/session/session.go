package session

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/impostor-client/internal/conn"
	"github.com/DoyleJ11/impostor-client/internal/engine"
	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/DoyleJ11/impostor-client/internal/store"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrConnectionLost = errors.New("connection lost before acknowledgment")
	ErrEmptyName      = errors.New("player name is required")
	ErrEmptyRoomCode  = errors.New("room code is required")
)

// RejectedError is a server refusal carried by an acknowledgment.
type RejectedError struct {
	Op      protocol.MessageType
	Message string
}

func (e *RejectedError) Error() string {
	return string(e.Op) + " rejected: " + e.Message
}

// Transport is the connection the session talks through. *conn.Manager
// satisfies it.
type Transport interface {
	Send(env protocol.Envelope) error
	Events() <-chan conn.Event
}

// Tokens is the part of store.TokenStore the session needs.
type Tokens interface {
	Load(ctx context.Context) (store.Token, error)
	Save(ctx context.Context, tok store.Token) error
	Delete(ctx context.Context) error
}

type Config struct {
	RoleRevealDelay   time.Duration
	ResumeSettleDelay time.Duration
	ShortNotice       time.Duration
	LongNotice        time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoleRevealDelay:   5 * time.Second,
		ResumeSettleDelay: 500 * time.Millisecond,
		ShortNotice:       3 * time.Second,
		LongNotice:        5 * time.Second,
	}
}

const (
	inboxSize    = 64
	storeTimeout = 2 * time.Second
)

type Msg interface{ isSessionMsg() }

type createRoom struct {
	name  string
	reply chan ackResult
}

type joinRoom struct {
	code  string
	name  string
	reply chan ackResult
}

type command struct {
	cmd   engine.Command
	reply chan error
}

type leave struct{ reply chan error }

type showNotice struct {
	message string
	long    bool
}

type clearNotice struct{}

type getView struct{ reply chan View }

type subscribe struct {
	buf   int
	reply chan subscription
}

type unsubscribe struct{ id int }

type timerFired struct {
	timer engine.Timer
	gen   uint64
}

type noticeExpired struct{ gen uint64 }

func (createRoom) isSessionMsg()    {}
func (joinRoom) isSessionMsg()      {}
func (command) isSessionMsg()       {}
func (leave) isSessionMsg()         {}
func (showNotice) isSessionMsg()    {}
func (clearNotice) isSessionMsg()   {}
func (getView) isSessionMsg()       {}
func (subscribe) isSessionMsg()     {}
func (unsubscribe) isSessionMsg()   {}
func (timerFired) isSessionMsg()    {}
func (noticeExpired) isSessionMsg() {}

type ackResult struct {
	roomCode string
	err      error
}

type subscription struct {
	id int
	ch chan View
}

// Session is the client core. Every inbound event and every local command
// is handled on one goroutine, so none of the fields below need locking.
type Session struct {
	inbox     chan Msg
	transport Transport
	tokens    Tokens
	cfg       Config
	log       *zap.Logger

	state     engine.State
	version   uint64 // bumped on every visible change
	published uint64
	gen       uint64 // generation of the live connection
	gaveUp    bool
	epoch     int
	pending   map[string]pendingAck

	timers   map[engine.Timer]*timerHandle
	timerGen uint64
	notice   *Notice
	noticeT  *time.Timer
	noticeG  uint64

	subs    map[int]chan View
	nextSub int

	upper cases.Caser

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, t Transport, tokens Tokens, cfg Config, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, inboxSize),
		transport: t,
		tokens:    tokens,
		cfg:       cfg,
		log:       log.Named("session"),
		state:     engine.NewState(),
		pending:   make(map[string]pendingAck),
		timers:    make(map[engine.Timer]*timerHandle),
		subs:      make(map[int]chan View),
		upper:     cases.Upper(language.Und),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	events := s.transport.Events()
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleConn(ev)

		case m := <-s.inbox:
			s.handle(m)
		}
		s.publish()
	}
}

func (s *Session) handleConn(ev conn.Event) {
	switch ev := ev.(type) {
	case conn.Connected:
		s.gen = ev.Gen
		s.gaveUp = false
		s.apply(engine.Connected{ID: ev.ID})
		s.resume()

	case conn.Message:
		if ev.Gen != s.gen {
			s.log.Debug("dropping frame from superseded connection",
				zap.Uint64("gen", ev.Gen), zap.Uint64("current", s.gen), zap.String("type", string(ev.Envelope.Type)))
			return
		}
		s.handleFrame(ev.Envelope)

	case conn.Lost:
		if ev.Gen != s.gen {
			return
		}
		s.apply(engine.Disconnected{})
		s.failPending(ErrConnectionLost)

	case conn.GaveUp:
		s.gaveUp = true
		s.apply(engine.Disconnected{})
		s.failPending(ErrConnectionLost)
	}
}

func (s *Session) handleFrame(env protocol.Envelope) {
	if env.Type == protocol.EventAck {
		s.resolveAck(env)
		return
	}

	in, err := protocol.Decode(env)
	if err != nil {
		s.log.Warn("ignoring inbound frame", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}
	if tu, ok := in.(engine.TurnUpdated); ok {
		s.log.Info("turn", zap.String("player", tu.CurrentPlayerName))
	}
	s.apply(in)
}

func (s *Session) handle(m Msg) {
	switch msg := m.(type) {
	case createRoom:
		s.createRoom(msg)
	case joinRoom:
		s.joinRoom(msg)
	case command:
		msg.reply <- s.command(msg.cmd)
	case leave:
		s.leave()
		msg.reply <- nil
	case showNotice:
		s.setNotice(msg.message, msg.long)
	case clearNotice:
		s.clearNotice()
	case getView:
		msg.reply <- s.view()
	case subscribe:
		s.nextSub++
		ch := make(chan View, max(msg.buf, 1))
		s.subs[s.nextSub] = ch
		ch <- s.view()
		msg.reply <- subscription{id: s.nextSub, ch: ch}
	case unsubscribe:
		if ch, ok := s.subs[msg.id]; ok {
			close(ch)
			delete(s.subs, msg.id)
		}
	case timerFired:
		s.fireTimer(msg)
	case noticeExpired:
		if msg.gen == s.noticeG {
			s.notice = nil
			s.version++
		}
	}
}

// apply feeds one input through the engine and runs what it asks for.
func (s *Session) apply(in engine.Input) {
	next, effects := engine.Apply(s.state, in)
	s.state = next
	s.version++
	for _, e := range effects {
		s.run(e)
	}
}

func (s *Session) run(e engine.Effect) {
	switch e := e.(type) {
	case engine.CancelTimers:
		s.cancelTimers()
	case engine.ArmTimer:
		s.armTimer(e.Timer)
	case engine.SaveToken:
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		if err := s.tokens.Save(ctx, store.Token{RoomCode: e.RoomCode, PlayerName: e.PlayerName}); err != nil {
			s.log.Error("saving resume token", zap.Error(err))
		}
	case engine.DeleteToken:
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		if err := s.tokens.Delete(ctx); err != nil {
			s.log.Error("deleting resume token", zap.Error(err))
		}
	case engine.Notify:
		s.setNotice(e.Message, e.Long)
	case engine.Reload:
		s.epoch++
	case engine.Unexpected:
		s.log.Warn("out-of-phase event",
			zap.String("event", e.Event), zap.Stringer("from", e.From), zap.Stringer("to", e.To), zap.Bool("dropped", e.Dropped))
	}
}

// publish pushes the current view to every subscriber. A subscriber that
// cannot keep up is dropped.
func (s *Session) publish() {
	if len(s.subs) == 0 || s.version == s.published {
		return
	}
	s.published = s.version
	v := s.view()
	for id, ch := range s.subs {
		select {
		case ch <- v:
		default:
			s.log.Debug("dropping slow subscriber", zap.Int("id", id))
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	s.cancelTimers()
	if s.noticeT != nil {
		s.noticeT.Stop()
	}
	s.failPending(ErrClosed)
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}
