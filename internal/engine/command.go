package engine

import "errors"

var ErrNoRoom = errors.New("not in a room")
var ErrWrongTurn = errors.New("not your turn")
var ErrAlreadyVoted = errors.New("already voted this round")
var ErrNoVoteTarget = errors.New("no player selected")

type CommandType string

const (
	CmdUpdateSettings CommandType = "update-settings"
	CmdStartGame      CommandType = "start-game"
	CmdStartVoting    CommandType = "start-voting"
	CmdNextTurn       CommandType = "next-turn"
	CmdVote           CommandType = "vote"
	CmdRestartGame    CommandType = "restart-game"
	CmdLeaveGame      CommandType = "leave-game"
)

type Command struct {
	Type     CommandType
	Target   string
	Settings Settings
}

// Check runs the local guards for a fire-and-forget command. The server
// still has the final say; these only avoid sending requests that cannot
// succeed.
func Check(s State, cmd Command) error {
	if !s.InRoom() {
		return ErrNoRoom
	}

	switch cmd.Type {
	case CmdNextTurn:
		if !IsMyTurn(s) {
			return ErrWrongTurn
		}
	case CmdVote:
		if cmd.Target == "" {
			return ErrNoVoteTarget
		}
		if s.HasVoted {
			return ErrAlreadyVoted
		}
	}
	return nil
}
