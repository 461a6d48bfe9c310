package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

const (
	eventView   = "view"
	streamQueue = 16
)

// Events streams a view after every session change as Server-Sent Events.
// The stream ends when the client goes away or the session drops it.
func Events(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		views, cancel, err := s.Subscribe(r.Context(), streamQueue)
		if err != nil {
			writeError(w, log, err)
			return
		}
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case v, ok := <-views:
				if !ok {
					log.Debug("view stream closed by session")
					return
				}
				data, err := json.Marshal(v)
				if err != nil {
					log.Error("encoding view", zap.Error(err))
					return
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventView, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
