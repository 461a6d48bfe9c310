package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestTimeout bounds command routes, including the wait for a server
// acknowledgment.
const requestTimeout = 10 * time.Second

func SetupRoutes(s Session, log *zap.Logger) http.Handler {
	log = log.Named("http")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", Healthz)
	r.Get("/events", Events(s, log))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/state", GetState(s, log))

		// Membership
		r.Post("/rooms", CreateRoom(s, log))
		r.Post("/rooms/{code}/join", JoinRoom(s, log))
		r.Post("/leave", Action(s.Leave, log))

		// Room and game commands
		r.Put("/settings", UpdateSettings(s, log))
		r.Post("/game/start", Action(s.StartGame, log))
		r.Post("/game/restart", Action(s.RestartGame, log))
		r.Post("/voting/start", Action(s.StartVoting, log))
		r.Post("/turn/next", Action(s.AdvanceTurn, log))
		r.Post("/vote", CastVote(s, log))

		r.Post("/notice", ShowNotice(s, log))
		r.Delete("/notice", Action(s.ClearNotice, log))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
