// Package appconf holds the runtime configuration of busfinder.
package appconf

import (
	"fmt"
	"strings"
	"time"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a textual environment name to an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", env)
	}
}

// DefaultBaseURL is the schedule query endpoint used when none is configured.
const DefaultBaseURL = "https://busapi.amithv.xyz/api/v1/schedules?"

// Config holds everything the commands need to build an Application.
type Config struct {
	Port           int
	Env            Environment
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
	RateLimit      int
	SessionTTL     time.Duration
	ToastDuration  time.Duration
	Verbose        bool
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Port:           4000,
		Env:            Development,
		BaseURL:        DefaultBaseURL,
		RequestTimeout: 30 * time.Second,
		UserAgent:      "busfinder (+https://busapi.amithv.xyz)",
		RateLimit:      10,
		SessionTTL:     30 * time.Minute,
		ToastDuration:  3500 * time.Millisecond,
	}
}
