package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/ielts-listening/internal/sync"
)

type EventSource interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /admin/events?after=0&limit=100
// Pages through the event log for replication to another site.
func ListEventsHandler(src EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, err := strconv.ParseInt(q.Get("after"), 10, 64)
		if err != nil && q.Get("after") != "" {
			http.Error(w, "bad after", http.StatusBadRequest)
			return
		}
		list, err := src.Since(r.Context(), after, parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
