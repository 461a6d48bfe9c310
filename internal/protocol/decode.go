package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/impostor-client/internal/engine"
)

type decoder func(json.RawMessage) (engine.Input, error)

// inbound is the dispatch table for server events that feed the engine.
// connected and ack frames are handled by the transport and session.
var inbound = map[MessageType]decoder{
	EventRoomUpdate: func(raw json.RawMessage) (engine.Input, error) {
		var room engine.RoomSnapshot
		err := json.Unmarshal(raw, &room)
		return engine.RoomUpdated{Room: room}, err
	},
	EventRoleAssigned: func(raw json.RawMessage) (engine.Input, error) {
		var role engine.RoleAssignment
		err := json.Unmarshal(raw, &role)
		return engine.RoleAssigned{Role: role}, err
	},
	EventGameStarted: func(raw json.RawMessage) (engine.Input, error) {
		var p GameStartedEvent
		err := json.Unmarshal(raw, &p)
		return engine.GameStarted{TurnOrder: p.TurnOrder, CurrentTurnIndex: p.CurrentTurnIndex}, err
	},
	EventTurnUpdated: func(raw json.RawMessage) (engine.Input, error) {
		var p TurnUpdatedEvent
		err := json.Unmarshal(raw, &p)
		return engine.TurnUpdated{TurnOrder: p.TurnOrder, CurrentPlayerName: p.CurrentPlayerName}, err
	},
	EventGamePaused: func(raw json.RawMessage) (engine.Input, error) {
		var p GamePausedEvent
		err := json.Unmarshal(raw, &p)
		return engine.GamePaused{IsPaused: p.IsPaused}, err
	},
	EventVotingStarted: func(raw json.RawMessage) (engine.Input, error) {
		var room engine.RoomSnapshot
		err := json.Unmarshal(raw, &room)
		return engine.VotingStarted{Room: room}, err
	},
	EventVotingTie: func(raw json.RawMessage) (engine.Input, error) {
		var p VotingTieEvent
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(p.TiedPlayers))
		for _, tp := range p.TiedPlayers {
			names = append(names, tp.Name)
		}
		return engine.VotingTie{Names: names}, nil
	},
	EventGameEnded: func(raw json.RawMessage) (engine.Input, error) {
		var res engine.GameResult
		err := json.Unmarshal(raw, &res)
		return engine.GameEnded{Result: res}, err
	},
	EventError: func(raw json.RawMessage) (engine.Input, error) {
		var p ErrorEvent
		err := json.Unmarshal(raw, &p)
		return engine.ServerError{Message: p.Message}, err
	},
	EventPlayerDisconnected: func(raw json.RawMessage) (engine.Input, error) {
		var p PlayerEvent
		err := json.Unmarshal(raw, &p)
		return engine.PlayerDisconnected{Name: p.PlayerName}, err
	},
	EventPlayerLeft: func(raw json.RawMessage) (engine.Input, error) {
		var p PlayerEvent
		err := json.Unmarshal(raw, &p)
		return engine.PlayerLeft{Name: p.PlayerName}, err
	},
}

// Decode turns an inbound server event into an engine input.
func Decode(env Envelope) (engine.Input, error) {
	dec, ok := inbound[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
	raw := env.Payload
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	in, err := dec(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return in, nil
}

// DecodeHello reads the connection identity frame.
func DecodeHello(env Envelope) (Hello, error) {
	var h Hello
	if env.Type != EventConnected {
		return h, fmt.Errorf("%w: want %s, got %s", ErrUnknownType, EventConnected, env.Type)
	}
	if err := json.Unmarshal(env.Payload, &h); err != nil {
		return h, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if h.ID == "" {
		return h, fmt.Errorf("decode %s: empty connection id", env.Type)
	}
	return h, nil
}
