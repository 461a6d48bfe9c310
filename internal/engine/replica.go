package engine

import "slices"

// applySnapshot replaces the stored room with a private copy of room and
// re-derives everything that depends on it.
func applySnapshot(s State, room RoomSnapshot) State {
	snap := room.Clone()
	s.Room = &snap

	// A missing self entry leaves the admin flag alone.
	if me, ok := snap.Player(s.SelfID); ok {
		s.IsAdmin = me.IsAdmin
	}

	// Snapshots do not always carry turn data.
	if len(snap.TurnOrder) > 0 {
		s.TurnOrder = slices.Clone(snap.TurnOrder)
		s.CurrentTurnIndex = snap.CurrentTurnIndex
	}

	return reconcileVote(s)
}
