package session

import (
	"context"

	"github.com/DoyleJ11/impostor-client/internal/engine"
)

// enqueue hands m to the loop, giving up when ctx ends or the session closes.
func (s *Session) enqueue(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-s.done:
		var zero T
		return zero, ErrClosed
	}
}

// CreateRoom asks the server for a new room and waits for its answer. On
// success the client is in the waiting phase and the returned code is stored
// for resuming.
func (s *Session) CreateRoom(ctx context.Context, playerName string) (string, error) {
	reply := make(chan ackResult, 1)
	if err := s.enqueue(ctx, createRoom{name: playerName, reply: reply}); err != nil {
		return "", err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return "", err
	}
	return res.roomCode, res.err
}

func (s *Session) JoinRoom(ctx context.Context, roomCode, playerName string) error {
	reply := make(chan ackResult, 1)
	if err := s.enqueue(ctx, joinRoom{code: roomCode, name: playerName, reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res.err
}

func (s *Session) do(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := s.enqueue(ctx, command{cmd: cmd, reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res
}

func (s *Session) UpdateSettings(ctx context.Context, settings engine.Settings) error {
	return s.do(ctx, engine.Command{Type: engine.CmdUpdateSettings, Settings: settings})
}

func (s *Session) StartGame(ctx context.Context) error {
	return s.do(ctx, engine.Command{Type: engine.CmdStartGame})
}

func (s *Session) StartVoting(ctx context.Context) error {
	return s.do(ctx, engine.Command{Type: engine.CmdStartVoting})
}

// AdvanceTurn passes the turn on. Only the player at the head of the turn
// order may call it.
func (s *Session) AdvanceTurn(ctx context.Context) error {
	return s.do(ctx, engine.Command{Type: engine.CmdNextTurn})
}

// Vote casts this round's vote. The local has-voted flag flips at once and
// is corrected by the next room snapshot.
func (s *Session) Vote(ctx context.Context, playerID string) error {
	return s.do(ctx, engine.Command{Type: engine.CmdVote, Target: playerID})
}

func (s *Session) RestartGame(ctx context.Context) error {
	return s.do(ctx, engine.Command{Type: engine.CmdRestartGame})
}

// Leave exits the room, forgets the resume token and returns to the lobby.
func (s *Session) Leave(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.enqueue(ctx, leave{reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res
}

// ShowNotice displays a presentation-layer message, such as a form error.
func (s *Session) ShowNotice(ctx context.Context, message string) error {
	return s.enqueue(ctx, showNotice{message: message, long: true})
}

func (s *Session) ClearNotice(ctx context.Context) error {
	return s.enqueue(ctx, clearNotice{})
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.enqueue(ctx, getView{reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

// Subscribe returns a channel that receives the current view and then a new
// one after every change. The channel is closed when the subscriber falls
// more than buf views behind, when cancel is called or when the session
// closes.
func (s *Session) Subscribe(ctx context.Context, buf int) (<-chan View, func(), error) {
	reply := make(chan subscription, 1)
	if err := s.enqueue(ctx, subscribe{buf: buf, reply: reply}); err != nil {
		return nil, nil, err
	}
	sub, err := await(ctx, s, reply)
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		_ = s.enqueue(context.Background(), unsubscribe{id: sub.id})
	}
	return sub.ch, cancel, nil
}

// Close stops the loop, fails outstanding requests and closes subscriber
// channels.
func (s *Session) Close() error {
	s.cancel()
	<-s.done
	return nil
}
