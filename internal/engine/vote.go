package engine

// reconcileVote overrides the local vote flags with what the snapshot says
// about this client. An optimistic vote never outlives the next snapshot.
func reconcileVote(s State) State {
	s.HasVoted = false
	s.VotedFor = ""
	if s.Room == nil {
		return s
	}
	if me, ok := s.Room.Player(s.SelfID); ok && me.HasVoted {
		s.HasVoted = true
		s.VotedFor = me.VotedFor
	}
	return s
}

// VoteProgress returns how many players in the snapshot have voted.
func VoteProgress(s State) (voted, total int) {
	if s.Room == nil {
		return 0, 0
	}
	for _, p := range s.Room.Players {
		if p.HasVoted {
			voted++
		}
	}
	return voted, len(s.Room.Players)
}
