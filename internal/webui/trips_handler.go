package webui

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/render"
	"github.com/busfinder/busfinder/internal/schedule"
	"github.com/busfinder/busfinder/internal/screen"
)

// tripsHandler is a stateless lookup. The response format follows the
// Accept header: JSON, an HTML fragment of cards, or plain text.
func (webUI *WebUI) tripsHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	params := r.URL.Query()

	timeParam := params.Get("time")
	if timeParam != "" && !validClockParam(timeParam) {
		http.Error(w, screen.InvalidTimeMessage, http.StatusBadRequest)
		return
	}

	q := schedule.NewQuery(params.Get("departure"), params.Get("destination"), timeParam)
	trips, err := webUI.Schedules.Fetch(r.Context(), q)
	if err != nil {
		logging.LogError(logger, "Error fetching schedules", err, slog.String("query", q.Encode()))
		http.Error(w, "Schedule lookup failed", http.StatusBadGateway)
		return
	}
	schedule.SortByArrival(trips)

	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "application/json"):
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trips); err != nil {
			logging.LogError(logger, "failed to encode trips", err)
		}
	case strings.Contains(accept, "text/html"):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := webUI.templates.ExecuteTemplate(w, "cards", render.Cards(trips)); err != nil {
			logging.LogError(logger, "failed to execute cards template", err)
		}
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := render.WriteText(w, render.Cards(trips)); err != nil {
			logging.LogError(logger, "failed to write trips", err)
		}
	}
}

// validClockParam accepts "<hours>:<minutes>" under the same rules as
// confirming a time on the screen.
func validClockParam(v string) bool {
	hours, minutes, ok := strings.Cut(v, ":")
	return ok && screen.ValidTime(hours, minutes)
}
