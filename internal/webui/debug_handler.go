package webui

import (
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/busfinder/busfinder/internal/appconf"
	"github.com/busfinder/busfinder/internal/logging"
)

type debugData struct {
	Title string
	Pre   string
}

// debugHandler dumps every live session. Not available in production.
func (webUI *WebUI) debugHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	data := debugData{
		Title: "Sessions",
		Pre:   spew.Sdump(webUI.sessions.Snapshots()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webUI.templates.ExecuteTemplate(w, "debug.html", data); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to execute debug template", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
