package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/busfinder/busfinder/internal/appconf"
	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/render"
	"github.com/busfinder/busfinder/internal/screen"
	"github.com/busfinder/busfinder/internal/tui"
)

// NewCLI returns the busfinder command tree.
func NewCLI() *cli.App {
	return &cli.App{
		Name:  "busfinder",
		Usage: "look up bus schedules between two stops",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"f"},
				Usage:   "path to a JSON or YAML configuration file",
				EnvVars: []string{"BUSFINDER_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "API server port",
				Value:   appconf.Default().Port,
				EnvVars: []string{"BUSFINDER_PORT"},
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "environment (development|test|production)",
				Value:   "development",
				EnvVars: []string{"BUSFINDER_ENV"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "schedule API endpoint the query string is appended to",
				Value:   appconf.DefaultBaseURL,
				EnvVars: []string{"BUSFINDER_BASE_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "schedule API request timeout",
				Value:   appconf.Default().RequestTimeout,
				EnvVars: []string{"BUSFINDER_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "requests per second per client, -1 disables limiting",
				Value:   appconf.Default().RateLimit,
				EnvVars: []string{"BUSFINDER_RATE_LIMIT"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
				EnvVars: []string{"BUSFINDER_VERBOSE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			tuiCommand(),
			lookupCommand(),
		},
	}
}

// configFromContext starts from the defaults, applies the config file if
// one was given and then every flag that was set explicitly.
func configFromContext(c *cli.Context) (appconf.Config, error) {
	cfg := appconf.Default()

	if path := c.String("config"); path != "" {
		fileCfg, err := appconf.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg.ToAppConfig()
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("env") {
		env, err := appconf.EnvFlagToEnvironment(c.String("env"))
		if err != nil {
			return cfg, err
		}
		cfg.Env = env
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("timeout") {
		cfg.RequestTimeout = c.Duration("timeout")
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Int("rate-limit")
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}

	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the lookup screen over HTTP",
		Action: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}

			coreApp, err := BuildApplication(cfg, os.Stdout)
			if err != nil {
				return err
			}

			srv, services := CreateServer(coreApp, cfg)
			return Run(c.Context, srv, services, coreApp.Logger)
		},
	}
}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "run the lookup screen in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs to this file (the terminal is owned by the screen)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}

			var logOut io.Writer = io.Discard
			if path := c.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer logging.SafeCloseWithLogging(f, nil, "log file")
				logOut = f
			}

			coreApp, err := BuildApplication(cfg, logOut)
			if err != nil {
				return err
			}

			model := tui.New(c.Context, coreApp.NewScreen, cfg.ToastDuration)
			defer model.Screen().Close()

			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(c.Context)).Run()
			return err
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "print the buses between two stops",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "start location", Required: true},
			&cli.StringFlag{Name: "to", Usage: "destination", Required: true},
			&cli.StringFlag{Name: "time", Usage: "departure time as HH:MM"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}

			coreApp, err := BuildApplication(cfg, os.Stderr)
			if err != nil {
				return err
			}

			return Lookup(c.Context, coreApp.NewScreen, c.App.Writer, c.String("from"), c.String("to"), c.String("time"))
		},
	}
}

// Lookup drives a screen through one confirm-and-submit cycle and writes the
// resulting cards to w. An empty at leaves the time unconfirmed.
func Lookup(ctx context.Context, open func(screen.Notifier) *screen.Screen, w io.Writer, from, to, at string) error {
	s := open(nil)
	defer s.Close()

	s.SetStart(from)
	s.SetDestination(to)

	if at != "" {
		hours, minutes, _ := strings.Cut(at, ":")
		if !s.SetHour(hours) || !s.SetMinute(minutes) || s.Confirm() != nil {
			return fmt.Errorf("%w %q: %s", screen.ErrInvalidTime, at, screen.InvalidTimeMessage)
		}
	}

	if err := s.Submit(ctx); err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	snap := s.Snapshot()
	if line := render.SelectedTime(snap.Form.ConfirmedTime); line != "" {
		fmt.Fprintf(w, "%s\n\n", line)
	}
	cards := render.Cards(snap.Trips)
	if len(cards) == 0 {
		fmt.Fprintln(w, "No buses found.")
		return nil
	}
	return render.WriteText(w, cards)
}
