package engine

// Turn describes the head of the turn order. Resolved is false when the
// head does not match any player in the current snapshot, which happens
// briefly when turn data and the player list arrive in separate events.
type Turn struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Resolved bool   `json:"resolved"`
}

// ActiveTurn returns the player whose turn it is. ok is false when there is
// no turn order at all.
func ActiveTurn(s State) (turn Turn, ok bool) {
	if len(s.TurnOrder) == 0 {
		return Turn{}, false
	}
	turn.PlayerID = s.TurnOrder[0]
	if s.Room != nil {
		if p, found := s.Room.Player(turn.PlayerID); found {
			turn.Name = p.Name
			turn.Resolved = true
		}
	}
	return turn, true
}

func IsMyTurn(s State) bool {
	turn, ok := ActiveTurn(s)
	return ok && s.SelfID != "" && turn.PlayerID == s.SelfID
}
