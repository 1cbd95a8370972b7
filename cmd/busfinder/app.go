package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/busfinder/busfinder/internal/app"
	"github.com/busfinder/busfinder/internal/appconf"
	"github.com/busfinder/busfinder/internal/clock"
	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/metrics"
	"github.com/busfinder/busfinder/internal/middleware"
	"github.com/busfinder/busfinder/internal/schedule"
	"github.com/busfinder/busfinder/internal/webui"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// BuildApplication wires the shared dependencies. Logs go to logOut, as
// text in development and JSON otherwise.
func BuildApplication(cfg appconf.Config, logOut io.Writer) (*app.Application, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	logger := logging.New(logOut, cfg.Env != appconf.Development, cfg.Verbose)
	m := metrics.New()

	client := schedule.NewClient(schedule.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	}, m, logger)

	return &app.Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Schedules: client,
		Clock:     clock.RealClock{},
	}, nil
}

// Services are the long-running parts behind the HTTP server.
type Services struct {
	WebUI       *webui.WebUI
	RateLimiter *middleware.RateLimiter
}

// Shutdown stops the session sweeper and the rate limiter cleanup.
func (s *Services) Shutdown() {
	s.WebUI.Stop()
	s.RateLimiter.Stop()
}

// CreateServer builds the HTTP server with the full middleware chain.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *Services) {
	webUI, err := webui.New(coreApp)
	if err != nil {
		// templates are embedded; a parse failure is a build defect
		panic(err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Second, coreApp.Clock)

	mux := http.NewServeMux()
	webUI.Routes(mux)

	var handler http.Handler = mux
	handler = limiter.Handler(handler)
	handler = middleware.Metrics(coreApp.Metrics)(handler)
	handler = middleware.RequestLogging(coreApp.Logger)(handler)
	handler = middleware.RequestID(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, &Services{WebUI: webUI, RateLimiter: limiter}
}

// Run serves until ctx is done, then shuts the server down gracefully.
func Run(ctx context.Context, srv *http.Server, services *Services, logger *slog.Logger) error {
	defer services.Shutdown()

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			logging.LogError(logger, "server error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "shutting_down_server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server shutdown error", err)
		return err
	}

	logging.LogOperation(logger, "server_exited")
	return nil
}
