package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/impostor-client/internal/conn"
	"github.com/DoyleJ11/impostor-client/internal/engine"
	"github.com/DoyleJ11/impostor-client/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Session is the command and query surface the handlers drive.
// *session.Session satisfies it.
type Session interface {
	CreateRoom(ctx context.Context, playerName string) (string, error)
	JoinRoom(ctx context.Context, roomCode, playerName string) error
	UpdateSettings(ctx context.Context, settings engine.Settings) error
	StartGame(ctx context.Context) error
	StartVoting(ctx context.Context) error
	AdvanceTurn(ctx context.Context) error
	Vote(ctx context.Context, playerID string) error
	RestartGame(ctx context.Context) error
	Leave(ctx context.Context) error
	ShowNotice(ctx context.Context, message string) error
	ClearNotice(ctx context.Context) error
	View(ctx context.Context) (session.View, error)
	Subscribe(ctx context.Context, buf int) (<-chan session.View, func(), error)
}

type playerRequest struct {
	PlayerName string `json:"playerName"`
}

type voteRequest struct {
	PlayerID string `json:"playerId"`
}

type noticeRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func GetState(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.View(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func CreateRoom(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		if !decode(w, r, &req) {
			return
		}
		code, err := s.CreateRoom(r.Context(), req.PlayerName)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			RoomCode string `json:"roomCode"`
		}{RoomCode: code})
	}
}

func JoinRoom(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.JoinRoom(r.Context(), chi.URLParam(r, "code"), req.PlayerName); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func UpdateSettings(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var settings engine.Settings
		if !decode(w, r, &settings) {
			return
		}
		reply(w, log, s.UpdateSettings(r.Context(), settings))
	}
}

func CastVote(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		if !decode(w, r, &req) {
			return
		}
		reply(w, log, s.Vote(r.Context(), req.PlayerID))
	}
}

func ShowNotice(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req noticeRequest
		if !decode(w, r, &req) {
			return
		}
		reply(w, log, s.ShowNotice(r.Context(), req.Message))
	}
}

// Action adapts a body-less session call such as StartGame.
func Action(call func(context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply(w, log, call(r.Context()))
	}
}

func reply(w http.ResponseWriter, log *zap.Logger, err error) {
	if err != nil {
		writeError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func statusFor(err error) int {
	var rejected *session.RejectedError
	switch {
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrEmptyName),
		errors.Is(err, session.ErrEmptyRoomCode),
		errors.Is(err, engine.ErrNoVoteTarget):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoRoom),
		errors.Is(err, engine.ErrWrongTurn),
		errors.Is(err, engine.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, conn.ErrNotConnected),
		errors.Is(err, conn.ErrSendBufferFull),
		errors.Is(err, session.ErrConnectionLost),
		errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	msg := err.Error()
	var rejected *session.RejectedError
	if errors.As(err, &rejected) {
		msg = rejected.Message
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
