package app

import (
	"log/slog"

	"github.com/busfinder/busfinder/internal/appconf"
	"github.com/busfinder/busfinder/internal/clock"
	"github.com/busfinder/busfinder/internal/metrics"
	"github.com/busfinder/busfinder/internal/schedule"
	"github.com/busfinder/busfinder/internal/screen"
)

// Application holds the dependencies shared by the front ends.
type Application struct {
	Config    appconf.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Schedules *schedule.Client
	Clock     clock.Clock
}

// NewScreen opens a lookup screen wired to the application's schedule
// client, logger and metrics.
func (app *Application) NewScreen(notifier screen.Notifier) *screen.Screen {
	return screen.New(app.Schedules, notifier, app.Logger, app.Metrics)
}
