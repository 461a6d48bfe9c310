package engine

import (
	"fmt"
	"slices"
	"strings"
)

type Timer string

const (
	TimerRoleReveal   Timer = "role-reveal"
	TimerResumeSettle Timer = "resume-settle"
)

// Input is anything that can move the client state: inbound server events,
// acknowledgment outcomes, local commands and timer fires.
type Input interface{ isInput() }

type Connected struct{ ID string }

type Disconnected struct{}

type RoomUpdated struct{ Room RoomSnapshot }

type RoleAssigned struct{ Role RoleAssignment }

type GameStarted struct {
	TurnOrder        []string
	CurrentTurnIndex int
}

type TurnUpdated struct {
	TurnOrder         []string
	CurrentPlayerName string
}

type GamePaused struct{ IsPaused bool }

type VotingStarted struct{ Room RoomSnapshot }

type VotingTie struct{ Names []string }

type GameEnded struct{ Result GameResult }

type ServerError struct{ Message string }

type PlayerDisconnected struct{ Name string }

type PlayerLeft struct{ Name string }

// RoomEntered is a successful create-room or join-room acknowledgment.
type RoomEntered struct {
	RoomCode   string
	PlayerName string
	IsAdmin    bool
}

// Resumed is a successful reconnect-to-room acknowledgment.
type Resumed struct {
	RoomCode         string
	PlayerName       string
	IsAdmin          bool
	TurnOrder        []string
	CurrentTurnIndex int
	GameState        string
	Role             *RoleAssignment
}

type ResumeRejected struct{ Reason string }

type Rejected struct{ Reason string }

type VoteSubmitted struct{ Target string }

type Restarted struct{}

type Left struct{}

type TimerFired struct{ Timer Timer }

func (Connected) isInput()          {}
func (Disconnected) isInput()       {}
func (RoomUpdated) isInput()        {}
func (RoleAssigned) isInput()       {}
func (GameStarted) isInput()        {}
func (TurnUpdated) isInput()        {}
func (GamePaused) isInput()         {}
func (VotingStarted) isInput()      {}
func (VotingTie) isInput()          {}
func (GameEnded) isInput()          {}
func (ServerError) isInput()        {}
func (PlayerDisconnected) isInput() {}
func (PlayerLeft) isInput()         {}
func (RoomEntered) isInput()        {}
func (Resumed) isInput()            {}
func (ResumeRejected) isInput()     {}
func (Rejected) isInput()           {}
func (VoteSubmitted) isInput()      {}
func (Restarted) isInput()          {}
func (Left) isInput()               {}
func (TimerFired) isInput()         {}

// Effect is work Apply asks the caller to perform. Apply itself does no I/O.
type Effect interface{ isEffect() }

// ArmTimer starts (or restarts) the named timer.
type ArmTimer struct{ Timer Timer }

// CancelTimers stops every pending phase timer.
type CancelTimers struct{}

type SaveToken struct {
	RoomCode   string
	PlayerName string
}

type DeleteToken struct{}

// Notify shows a transient notice. Long notices stay up longer than short ones.
type Notify struct {
	Message string
	Long    bool
}

// Reload tells the presentation layer to drop whatever it was showing.
type Reload struct{}

// Unexpected reports an event that does not fit the phase table. Dropped is
// set when the event was ignored instead of applied.
type Unexpected struct {
	Event   string
	From    Phase
	To      Phase
	Dropped bool
}

func (ArmTimer) isEffect()     {}
func (CancelTimers) isEffect() {}
func (SaveToken) isEffect()    {}
func (DeleteToken) isEffect()  {}
func (Notify) isEffect()       {}
func (Reload) isEffect()       {}
func (Unexpected) isEffect()   {}

// Apply folds one input into s and returns the new state plus the effects
// the caller must run. s is not modified.
func Apply(s State, in Input) (State, []Effect) {
	switch in := in.(type) {
	case Connected:
		s.SelfID = in.ID
		s.Connected = true
		return s, nil

	case Disconnected:
		s.Connected = false
		return s, nil

	case RoomUpdated:
		return applySnapshot(s, in.Room), nil

	case RoleAssigned:
		if !s.InRoom() {
			return s, []Effect{Unexpected{Event: "role-assigned", From: s.Phase, To: PhaseRoleReveal, Dropped: true}}
		}
		role := in.Role
		s.Role = &role
		next, effects := force(s, PhaseRoleReveal, "role-assigned")
		return next, append(effects, ArmTimer{Timer: TimerRoleReveal})

	case GameStarted:
		s.TurnOrder = slices.Clone(in.TurnOrder)
		s.CurrentTurnIndex = in.CurrentTurnIndex
		return s, nil

	case TurnUpdated:
		s.TurnOrder = slices.Clone(in.TurnOrder)
		s.TurnAnnouncement = in.CurrentPlayerName
		return s, nil

	case GamePaused:
		s.IsPaused = in.IsPaused
		return s, nil

	case VotingStarted:
		if !s.InRoom() {
			return s, []Effect{Unexpected{Event: "voting-started", From: s.Phase, To: PhaseVoting, Dropped: true}}
		}
		return force(applySnapshot(s, in.Room), PhaseVoting, "voting-started")

	case VotingTie:
		msg := fmt.Sprintf("Tie! Vote between: %s", strings.Join(in.Names, ", "))
		return s, []Effect{Notify{Message: msg, Long: true}}

	case GameEnded:
		if !s.InRoom() {
			return s, []Effect{Unexpected{Event: "game-ended", From: s.Phase, To: PhaseEnded, Dropped: true}}
		}
		res := in.Result.Clone()
		s.Result = &res
		return force(s, PhaseEnded, "game-ended")

	case ServerError:
		return s, []Effect{Notify{Message: in.Message, Long: true}}

	case Rejected:
		return s, []Effect{Notify{Message: in.Reason, Long: true}}

	case PlayerDisconnected:
		return s, []Effect{Notify{Message: in.Name + " disconnected temporarily"}}

	case PlayerLeft:
		return s, []Effect{Notify{Message: in.Name + " left the game"}}

	case RoomEntered:
		s.RoomCode = in.RoomCode
		s.PlayerName = in.PlayerName
		s.IsAdmin = in.IsAdmin
		next, effects := force(s, PhaseWaiting, "room-entered")
		return next, append(effects, SaveToken{RoomCode: in.RoomCode, PlayerName: in.PlayerName})

	case Resumed:
		return resume(s, in)

	case ResumeRejected:
		// The room is gone on the server; nothing held for it is valid.
		next := NewState()
		next.SelfID = s.SelfID
		next.Connected = s.Connected
		return next, []Effect{CancelTimers{}, DeleteToken{}, Reload{}, Notify{Message: in.Reason, Long: true}}

	case VoteSubmitted:
		s.HasVoted = true
		s.VotedFor = in.Target
		return s, nil

	case Restarted:
		s.Phase = PhaseWaiting
		s.Role = nil
		s.Result = nil
		s.TurnOrder = nil
		s.CurrentTurnIndex = 0
		s.TurnAnnouncement = ""
		s.IsPaused = false
		s.HasVoted = false
		s.VotedFor = ""
		return s, []Effect{CancelTimers{}}

	case Left:
		next := NewState()
		next.SelfID = s.SelfID
		next.Connected = s.Connected
		return next, []Effect{CancelTimers{}, DeleteToken{}, Reload{}}

	case TimerFired:
		// Competing transitions cancel pending timers, so a fire that gets
		// here is still current.
		s.Phase = PhasePlaying
		return s, nil
	}
	return s, nil
}

// force moves s to the given phase regardless of where it is. The server is
// authoritative, so transitions outside the table are applied and reported.
func force(s State, to Phase, event string) (State, []Effect) {
	effects := []Effect{CancelTimers{}}
	if s.Phase != to && !s.Phase.CanTransitionTo(to) {
		effects = append(effects, Unexpected{Event: event, From: s.Phase, To: to})
	}
	s.Phase = to
	return s, effects
}

func resume(s State, in Resumed) (State, []Effect) {
	s.RoomCode = in.RoomCode
	s.PlayerName = in.PlayerName
	s.IsAdmin = in.IsAdmin
	if len(in.TurnOrder) > 0 {
		s.TurnOrder = slices.Clone(in.TurnOrder)
		s.CurrentTurnIndex = in.CurrentTurnIndex
	}

	if in.GameState == GameStateStarted && in.Role != nil {
		role := *in.Role
		s.Role = &role
		// The phase flips once the settle timer fires so the next room
		// snapshot lands before the playing view renders.
		return s, []Effect{CancelTimers{}, ArmTimer{Timer: TimerResumeSettle}}
	}

	s.Phase = DerivePhase(in.GameState)
	return s, []Effect{CancelTimers{}}
}
