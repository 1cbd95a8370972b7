// Package webui serves the lookup screen as server-rendered HTML. Every
// browser session owns one screen.Screen for as long as the session lives.
package webui

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/busfinder/busfinder/internal/app"
	"github.com/busfinder/busfinder/internal/middleware"
)

const staticMaxAge = time.Hour

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type WebUI struct {
	*app.Application
	sessions  *SessionStore
	templates *template.Template
}

// New parses the templates and starts the session sweeper. Call Stop to
// release the sessions.
func New(application *app.Application) (*WebUI, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	webUI := &WebUI{
		Application: application,
		templates:   tmpl,
	}
	webUI.sessions = NewSessionStore(application.Config.SessionTTL, application.Clock, application.NewScreen, application.Logger)

	return webUI, nil
}

// Routes registers the web screen routes on mux.
func (webUI *WebUI) Routes(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFS, "static")

	noStore := middleware.CacheControl(0)

	mux.Handle("GET /{$}", noStore(http.HandlerFunc(webUI.screenHandler)))
	mux.Handle("POST /{$}", noStore(http.HandlerFunc(webUI.screenActionHandler)))
	mux.Handle("GET /trips", noStore(http.HandlerFunc(webUI.tripsHandler)))
	mux.HandleFunc("GET /debug", webUI.debugHandler)
	mux.Handle("GET /healthz", noStore(http.HandlerFunc(webUI.healthHandler)))
	mux.Handle("GET /static/", middleware.CacheControl(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServerFS(static))))
	if webUI.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(webUI.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Handler returns a mux with all routes registered.
func (webUI *WebUI) Handler() http.Handler {
	mux := http.NewServeMux()
	webUI.Routes(mux)
	return mux
}

// Sessions exposes the session store.
func (webUI *WebUI) Sessions() *SessionStore {
	return webUI.sessions
}

// Stop stops the session sweeper and closes every open screen.
func (webUI *WebUI) Stop() {
	webUI.sessions.Stop()
}
