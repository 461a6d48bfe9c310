package engine

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseWaiting    Phase = "waiting"
	PhaseRoleReveal Phase = "role-reveal"
	PhasePlaying    Phase = "playing"
	PhaseVoting     Phase = "voting"
	PhaseEnded      Phase = "ended"
)

// Server-reported game states carried by the reconnect acknowledgment.
const (
	GameStateStarted = "started"
	GameStateVoting  = "voting"
	GameStateEnded   = "ended"
)

var transitions = map[Phase][]Phase{
	PhaseLobby:      {PhaseWaiting},
	PhaseWaiting:    {PhaseRoleReveal},
	PhaseRoleReveal: {PhasePlaying},
	PhasePlaying:    {PhaseVoting},
	PhaseVoting:     {PhaseEnded},
	PhaseEnded:      {PhaseWaiting},
}

func (p Phase) String() string { return string(p) }

// CanTransitionTo reports whether moving from p to target is one of the
// transitions the phase table expects. Leaving to lobby is always allowed.
func (p Phase) CanTransitionTo(target Phase) bool {
	if target == PhaseLobby {
		return true
	}
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// DerivePhase maps the game state reported on resume to the phase the
// client should show. "started" is handled by the caller because it depends
// on whether role data came with it.
func DerivePhase(gameState string) Phase {
	switch gameState {
	case GameStateVoting:
		return PhaseVoting
	case GameStateEnded:
		return PhaseEnded
	default:
		return PhaseWaiting
	}
}

func NewState() State {
	return State{Phase: PhaseLobby}
}
