package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DoyleJ11/impostor-client/internal/engine"
	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/DoyleJ11/impostor-client/internal/store"
	"go.uber.org/zap"
)

// resume tries once, per connect, to restore the stored room membership.
func (s *Session) resume() {
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	tok, err := s.tokens.Load(ctx)
	if errors.Is(err, store.ErrNoToken) {
		return
	}
	if err != nil {
		s.log.Error("loading resume token", zap.Error(err))
		return
	}

	s.log.Info("resuming", zap.String("room", tok.RoomCode), zap.String("player", tok.PlayerName))
	p := pendingAck{op: protocol.CmdReconnectToRoom, roomCode: tok.RoomCode, name: tok.PlayerName}
	req := protocol.MembershipRequest{RoomCode: tok.RoomCode, PlayerName: tok.PlayerName}
	if err := s.request(p, req); err != nil {
		s.log.Warn("resume request not sent", zap.Error(err))
	}
}

func (s *Session) finishResume(p pendingAck, payload json.RawMessage) {
	var ack protocol.ReconnectAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		ack = protocol.ReconnectAck{Error: "malformed acknowledgment"}
	}

	if !ack.Success {
		s.log.Info("resume rejected", zap.String("room", p.roomCode), zap.String("reason", ack.Error))
		s.apply(engine.ResumeRejected{Reason: ack.Error})
		return
	}

	s.log.Info("resumed", zap.String("room", p.roomCode), zap.String("gameState", ack.GameState))
	s.apply(engine.Resumed{
		RoomCode:         p.roomCode,
		PlayerName:       p.name,
		IsAdmin:          ack.IsAdmin,
		TurnOrder:        ack.TurnOrder,
		CurrentTurnIndex: ack.CurrentTurnIndex,
		GameState:        ack.GameState,
		Role:             ack.Role,
	})
}
