// Package protocol is the wire format spoken with the game server. Every
// websocket text frame is one JSON Envelope:
//
//	{"type": string, "id": string?, "payload": object?}
//
// The first frame the server sends is "connected" carrying the connection
// identity. Acknowledged requests carry an id that the server echoes on one
// "ack" frame.
//
// Client -> Server
//
//	create-room        (ack)  playerName: string
//	join-room          (ack)  roomCode: string, playerName: string
//	reconnect-to-room  (ack)  roomCode: string, playerName: string
//	update-settings           roomCode, settings: {impostorCount, roundDuration, impostorCanSeeHint}
//	start-game                roomCode
//	start-voting              roomCode
//	next-turn                 roomCode
//	vote                      roomCode, votedPlayerId: string
//	restart-game              roomCode
//	leave-game                roomCode
//
// Server -> Client
//
//	connected            id: string
//	ack                  success: bool, error?: string, plus per-request fields
//	room-update          full room snapshot
//	role-assigned        isImpostor: bool, word?: string, hint?: string
//	game-started         turnOrder: string[], currentTurnIndex: number
//	turn-updated         turnOrder: string[], currentPlayerName: string
//	game-paused          isPaused: bool
//	voting-started       full room snapshot
//	voting-tie           tiedPlayers: [{name}]
//	game-ended           impostorFound, impostors[], votedOutPlayer?, voteCounts?, word
//	error                message: string
//	player-disconnected  playerName: string
//	player-left          playerName: string
package protocol
