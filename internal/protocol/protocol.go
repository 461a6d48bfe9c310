package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/impostor-client/internal/engine"
)

var ErrUnknownType = errors.New("unknown message type")

type MessageType string

// Server -> client.
const (
	EventConnected          MessageType = "connected"
	EventAck                MessageType = "ack"
	EventRoomUpdate         MessageType = "room-update"
	EventRoleAssigned       MessageType = "role-assigned"
	EventGameStarted        MessageType = "game-started"
	EventTurnUpdated        MessageType = "turn-updated"
	EventGamePaused         MessageType = "game-paused"
	EventVotingStarted      MessageType = "voting-started"
	EventVotingTie          MessageType = "voting-tie"
	EventGameEnded          MessageType = "game-ended"
	EventError              MessageType = "error"
	EventPlayerDisconnected MessageType = "player-disconnected"
	EventPlayerLeft         MessageType = "player-left"
)

// Client -> server. The fire-and-forget names match engine.CommandType.
const (
	CmdCreateRoom      MessageType = "create-room"
	CmdJoinRoom        MessageType = "join-room"
	CmdReconnectToRoom MessageType = "reconnect-to-room"
)

// Envelope is one websocket text frame. ID is set on acknowledged requests
// and echoed back on the matching ack frame.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func New(t MessageType, id string, payload any) (Envelope, error) {
	env := Envelope{Type: t, ID: id}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	env.Payload = b
	return env, nil
}

// ---------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

// MembershipRequest is the body of join-room and reconnect-to-room.
type MembershipRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type UpdateSettingsRequest struct {
	RoomCode string          `json:"roomCode"`
	Settings engine.Settings `json:"settings"`
}

type VoteRequest struct {
	RoomCode      string `json:"roomCode"`
	VotedPlayerID string `json:"votedPlayerId"`
}

// ---------------------------------------------------------------------
// Acks
// ---------------------------------------------------------------------

type CreateRoomAck struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type JoinRoomAck struct {
	Success bool   `json:"success"`
	IsAdmin bool   `json:"isAdmin"`
	Error   string `json:"error,omitempty"`
}

type ReconnectAck struct {
	Success          bool                   `json:"success"`
	IsAdmin          bool                   `json:"isAdmin"`
	TurnOrder        []string               `json:"turnOrder,omitempty"`
	CurrentTurnIndex int                    `json:"currentTurnIndex,omitempty"`
	GameState        string                 `json:"gameState,omitempty"`
	Role             *engine.RoleAssignment `json:"role,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// ---------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------

type Hello struct {
	ID string `json:"id"`
}

type GameStartedEvent struct {
	TurnOrder        []string `json:"turnOrder"`
	CurrentTurnIndex int      `json:"currentTurnIndex"`
}

type TurnUpdatedEvent struct {
	TurnOrder         []string `json:"turnOrder"`
	CurrentPlayerName string   `json:"currentPlayerName"`
}

type GamePausedEvent struct {
	IsPaused bool `json:"isPaused"`
}

type TiedPlayer struct {
	Name string `json:"name"`
}

type VotingTieEvent struct {
	TiedPlayers []TiedPlayer `json:"tiedPlayers"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type PlayerEvent struct {
	PlayerName string `json:"playerName"`
}
