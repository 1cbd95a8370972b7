package appconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a configuration file. Both JSON and
// YAML files use the same keys.
type FileConfig struct {
	Port                  int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Env                   string `json:"env" yaml:"env" validate:"omitempty,oneof=development dev test production prod"`
	BaseURL               string `json:"base-url" yaml:"base-url" validate:"omitempty,url"`
	RequestTimeoutSeconds int    `json:"request-timeout-seconds" yaml:"request-timeout-seconds" validate:"gte=0"`
	UserAgent             string `json:"user-agent" yaml:"user-agent"`
	RateLimit             int    `json:"rate-limit" yaml:"rate-limit" validate:"gte=0"`
	SessionTTLMinutes     int    `json:"session-ttl-minutes" yaml:"session-ttl-minutes" validate:"gte=0"`
	ToastMilliseconds     int    `json:"toast-ms" yaml:"toast-ms" validate:"gte=0"`
	Verbose               bool   `json:"verbose" yaml:"verbose"`
}

// LoadFromFile reads and validates a configuration file. Files ending in
// .yml or .yaml are parsed as YAML, everything else as JSON.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ToAppConfig overlays the values present in the file on top of Default().
// Zero values in the file keep the defaults.
func (f *FileConfig) ToAppConfig() Config {
	cfg := Default()

	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if env, err := EnvFlagToEnvironment(f.Env); err == nil && f.Env != "" {
		cfg.Env = env
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.RequestTimeoutSeconds != 0 {
		cfg.RequestTimeout = time.Duration(f.RequestTimeoutSeconds) * time.Second
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.RateLimit != 0 {
		cfg.RateLimit = f.RateLimit
	}
	if f.SessionTTLMinutes != 0 {
		cfg.SessionTTL = time.Duration(f.SessionTTLMinutes) * time.Minute
	}
	if f.ToastMilliseconds != 0 {
		cfg.ToastDuration = time.Duration(f.ToastMilliseconds) * time.Millisecond
	}
	cfg.Verbose = f.Verbose

	return cfg
}
