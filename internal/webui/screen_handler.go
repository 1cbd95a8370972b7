package webui

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/render"
	"github.com/busfinder/busfinder/internal/screen"
)

type screenPage struct {
	Form         screen.FormState
	SelectedTime string
	Cards        []render.Card
	FetchError   string
	Flash        []string
}

func (webUI *WebUI) screenHandler(w http.ResponseWriter, r *http.Request) {
	sess := webUI.sessions.lookup(w, r)
	snap := sess.screen.Snapshot()

	page := screenPage{
		Form:         snap.Form,
		SelectedTime: render.SelectedTime(snap.Form.ConfirmedTime),
		Cards:        render.Cards(snap.Trips),
		FetchError:   snap.FetchError,
		Flash:        sess.takeFlash(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webUI.templates.ExecuteTemplate(w, "screen.html", page); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to execute screen template", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// screenActionHandler applies the posted fields, runs the requested action
// and redirects back to the screen.
func (webUI *WebUI) screenActionHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sess := webUI.sessions.lookup(w, r)
	s := sess.screen

	if v, ok := r.PostForm["start"]; ok {
		s.SetStart(v[0])
	}
	if v, ok := r.PostForm["destination"]; ok {
		s.SetDestination(v[0])
	}
	if v, ok := r.PostForm["hours"]; ok {
		s.SetHour(v[0])
	}
	if v, ok := r.PostForm["minutes"]; ok {
		s.SetMinute(v[0])
	}

	switch action := r.PostForm.Get("action"); action {
	case "confirm":
		// the notification is already queued for the next render
		_ = s.Confirm()
	case "submit":
		err := s.Submit(r.Context())
		switch {
		case err == nil:
		case errors.Is(err, screen.ErrStale), errors.Is(err, screen.ErrClosed):
			logger.Debug("submit superseded", slog.String("reason", err.Error()))
		default:
			logger.Warn("schedule lookup failed", slog.String("error", err.Error()))
		}
	case "":
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
