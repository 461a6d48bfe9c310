package session

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/DoyleJ11/impostor-client/internal/engine"
	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// pendingAck is an acknowledged request waiting for its answer. reply is nil
// for requests the session issues on its own (resume).
type pendingAck struct {
	op       protocol.MessageType
	gen      uint64
	roomCode string
	name     string
	reply    chan ackResult
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (s *Session) normalizeRoomCode(code string) string {
	return s.upper.String(strings.TrimSpace(code))
}

func (s *Session) createRoom(msg createRoom) {
	name := normalizeName(msg.name)
	if name == "" {
		s.setNotice("Enter your name", true)
		msg.reply <- ackResult{err: ErrEmptyName}
		return
	}

	p := pendingAck{op: protocol.CmdCreateRoom, name: name, reply: msg.reply}
	if err := s.request(p, protocol.CreateRoomRequest{PlayerName: name}); err != nil {
		s.setNotice(err.Error(), true)
		msg.reply <- ackResult{err: err}
	}
}

func (s *Session) joinRoom(msg joinRoom) {
	code := s.normalizeRoomCode(msg.code)
	name := normalizeName(msg.name)
	if name == "" || code == "" {
		s.setNotice("Fill in every field", true)
		err := ErrEmptyName
		if code == "" {
			err = ErrEmptyRoomCode
		}
		msg.reply <- ackResult{err: err}
		return
	}

	p := pendingAck{op: protocol.CmdJoinRoom, roomCode: code, name: name, reply: msg.reply}
	if err := s.request(p, protocol.MembershipRequest{RoomCode: code, PlayerName: name}); err != nil {
		s.setNotice(err.Error(), true)
		msg.reply <- ackResult{err: err}
	}
}

// request sends an acknowledged request and parks it until its ack arrives
// or its connection goes away.
func (s *Session) request(p pendingAck, payload any) error {
	id := uuid.NewString()
	env, err := protocol.New(p.op, id, payload)
	if err != nil {
		return err
	}
	if err := s.transport.Send(env); err != nil {
		return err
	}
	p.gen = s.gen
	s.pending[id] = p
	return nil
}

func (s *Session) resolveAck(env protocol.Envelope) {
	p, ok := s.pending[env.ID]
	if !ok {
		s.log.Debug("ack with no pending request", zap.String("id", env.ID))
		return
	}
	delete(s.pending, env.ID)

	switch p.op {
	case protocol.CmdCreateRoom:
		var ack protocol.CreateRoomAck
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			s.reject(p, "malformed acknowledgment")
			return
		}
		if !ack.Success {
			s.reject(p, ack.Error)
			return
		}
		s.apply(engine.RoomEntered{RoomCode: ack.RoomCode, PlayerName: p.name, IsAdmin: true})
		p.reply <- ackResult{roomCode: ack.RoomCode}

	case protocol.CmdJoinRoom:
		var ack protocol.JoinRoomAck
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			s.reject(p, "malformed acknowledgment")
			return
		}
		if !ack.Success {
			s.reject(p, ack.Error)
			return
		}
		s.apply(engine.RoomEntered{RoomCode: p.roomCode, PlayerName: p.name, IsAdmin: ack.IsAdmin})
		p.reply <- ackResult{roomCode: p.roomCode}

	case protocol.CmdReconnectToRoom:
		s.finishResume(p, env.Payload)
	}
}

func (s *Session) reject(p pendingAck, reason string) {
	s.log.Info("request rejected", zap.String("op", string(p.op)), zap.String("reason", reason))
	s.apply(engine.Rejected{Reason: reason})
	if p.reply != nil {
		p.reply <- ackResult{err: &RejectedError{Op: p.op, Message: reason}}
	}
}

func (s *Session) failPending(err error) {
	for id, p := range s.pending {
		delete(s.pending, id)
		if p.reply != nil {
			p.reply <- ackResult{err: err}
		}
	}
}

// command sends a fire-and-forget request after the local guards pass. Its
// effect comes back later as ordinary inbound events.
func (s *Session) command(cmd engine.Command) error {
	if err := engine.Check(s.state, cmd); err != nil {
		// Without a room the command is a silent no-op.
		if !errors.Is(err, engine.ErrNoRoom) {
			s.setNotice(err.Error(), true)
		}
		return err
	}

	var payload any = protocol.RoomRequest{RoomCode: s.state.RoomCode}
	switch cmd.Type {
	case engine.CmdUpdateSettings:
		payload = protocol.UpdateSettingsRequest{RoomCode: s.state.RoomCode, Settings: cmd.Settings}
	case engine.CmdVote:
		payload = protocol.VoteRequest{RoomCode: s.state.RoomCode, VotedPlayerID: cmd.Target}
	}

	if err := s.send(protocol.MessageType(cmd.Type), payload); err != nil {
		s.setNotice(err.Error(), true)
		return err
	}

	switch cmd.Type {
	case engine.CmdVote:
		s.apply(engine.VoteSubmitted{Target: cmd.Target})
	case engine.CmdRestartGame:
		s.apply(engine.Restarted{})
	}
	return nil
}

func (s *Session) leave() {
	if s.state.InRoom() {
		err := s.send(protocol.MessageType(engine.CmdLeaveGame), protocol.RoomRequest{RoomCode: s.state.RoomCode})
		if err != nil {
			s.log.Warn("leave-game not delivered", zap.Error(err))
		}
	}
	s.apply(engine.Left{})
}

func (s *Session) send(t protocol.MessageType, payload any) error {
	env, err := protocol.New(t, "", payload)
	if err != nil {
		return err
	}
	return s.transport.Send(env)
}
