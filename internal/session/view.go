package session

import (
	"time"

	"github.com/DoyleJ11/impostor-client/internal/engine"
)

type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// View is the read-only projection handed to the presentation layer. It
// shares no memory with the session.
type View struct {
	Epoch            int                    `json:"epoch"`
	Connected        bool                   `json:"connected"`
	GaveUp           bool                   `json:"gaveUp"`
	ConnectionID     string                 `json:"connectionId,omitempty"`
	Phase            engine.Phase           `json:"phase"`
	RoomCode         string                 `json:"roomCode,omitempty"`
	PlayerName       string                 `json:"playerName,omitempty"`
	IsAdmin          bool                   `json:"isAdmin"`
	Room             *engine.RoomSnapshot   `json:"room,omitempty"`
	Role             *engine.RoleAssignment `json:"role,omitempty"`
	Result           *engine.GameResult     `json:"result,omitempty"`
	TurnOrder        []string               `json:"turnOrder"`
	CurrentTurnIndex int                    `json:"currentTurnIndex"`
	ActiveTurn       *engine.Turn           `json:"activeTurn,omitempty"`
	IsMyTurn         bool                   `json:"isMyTurn"`
	TurnAnnouncement string                 `json:"turnAnnouncement,omitempty"`
	IsPaused         bool                   `json:"isPaused"`
	HasVoted         bool                   `json:"hasVoted"`
	VotedFor         string                 `json:"votedFor,omitempty"`
	VotesCast        int                    `json:"votesCast"`
	TotalPlayers     int                    `json:"totalPlayers"`
	Notice           *Notice                `json:"notice,omitempty"`
}

func (s *Session) view() View {
	st := s.state.Clone()
	v := View{
		Epoch:            s.epoch,
		Connected:        st.Connected,
		GaveUp:           s.gaveUp,
		ConnectionID:     st.SelfID,
		Phase:            st.Phase,
		RoomCode:         st.RoomCode,
		PlayerName:       st.PlayerName,
		IsAdmin:          st.IsAdmin,
		Room:             st.Room,
		Role:             st.Role,
		Result:           st.Result,
		TurnOrder:        st.TurnOrder,
		CurrentTurnIndex: st.CurrentTurnIndex,
		IsMyTurn:         engine.IsMyTurn(st),
		TurnAnnouncement: st.TurnAnnouncement,
		IsPaused:         st.IsPaused,
		HasVoted:         st.HasVoted,
		VotedFor:         st.VotedFor,
	}
	if turn, ok := engine.ActiveTurn(st); ok {
		v.ActiveTurn = &turn
	}
	v.VotesCast, v.TotalPlayers = engine.VoteProgress(st)
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	return v
}
