package engine

import (
	"maps"
	"slices"
)

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
	HasVoted bool   `json:"hasVoted"`
	VotedFor string `json:"votedFor,omitempty"`
}

type Settings struct {
	ImpostorCount      int  `json:"impostorCount"`
	RoundDuration      int  `json:"roundDuration"`
	ImpostorCanSeeHint bool `json:"impostorCanSeeHint"`
}

// RoomSnapshot is the full room state the server pushes on every change.
// It is replaced wholesale, never patched.
type RoomSnapshot struct {
	RoomCode         string         `json:"roomCode"`
	Players          []Player       `json:"players"`
	Settings         Settings       `json:"settings"`
	TurnOrder        []string       `json:"turnOrder,omitempty"`
	CurrentTurnIndex int            `json:"currentTurnIndex"`
	GameState        string         `json:"gameState,omitempty"`
	VoteCounts       map[string]int `json:"voteCounts,omitempty"`
}

func (r RoomSnapshot) Clone() RoomSnapshot {
	r.Players = slices.Clone(r.Players)
	r.TurnOrder = slices.Clone(r.TurnOrder)
	r.VoteCounts = maps.Clone(r.VoteCounts)
	return r
}

// Player looks up a player by connection identifier.
func (r RoomSnapshot) Player(id string) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// RoleAssignment is the local player's role for the current round. Word is
// empty for impostors; Hint is only set for impostors when the room allows it.
type RoleAssignment struct {
	IsImpostor bool   `json:"isImpostor"`
	Word       string `json:"word,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

type VotedOut struct {
	Name       string `json:"name"`
	IsImpostor bool   `json:"isImpostor"`
}

type GameResult struct {
	ImpostorFound  bool           `json:"impostorFound"`
	Impostors      []string       `json:"impostors"`
	VotedOutPlayer *VotedOut      `json:"votedOutPlayer,omitempty"`
	VoteCounts     map[string]int `json:"voteCounts,omitempty"`
	Word           string         `json:"word"`
}

func (g GameResult) Clone() GameResult {
	g.Impostors = slices.Clone(g.Impostors)
	g.VoteCounts = maps.Clone(g.VoteCounts)
	if g.VotedOutPlayer != nil {
		v := *g.VotedOutPlayer
		g.VotedOutPlayer = &v
	}
	return g
}

// State is everything the client knows about its room membership. Values
// held by State are never mutated in place: Apply swaps in fresh copies.
type State struct {
	Phase            Phase
	SelfID           string
	Connected        bool
	RoomCode         string
	PlayerName       string
	IsAdmin          bool
	Room             *RoomSnapshot
	Role             *RoleAssignment
	Result           *GameResult
	TurnOrder        []string
	CurrentTurnIndex int
	TurnAnnouncement string
	IsPaused         bool
	HasVoted         bool
	VotedFor         string
}

// Clone returns a State that shares no memory with s.
func (s State) Clone() State {
	if s.Room != nil {
		r := s.Room.Clone()
		s.Room = &r
	}
	if s.Role != nil {
		role := *s.Role
		s.Role = &role
	}
	if s.Result != nil {
		res := s.Result.Clone()
		s.Result = &res
	}
	s.TurnOrder = slices.Clone(s.TurnOrder)
	return s
}

// InRoom reports whether the client holds a room membership.
func (s State) InRoom() bool { return s.RoomCode != "" }
