/*
Package configs is responsible for loading and validating the realtime client's configuration.

Settings are read from environment variables: the backend endpoint and reconnection policy,
typing and authentication windows, the session identity, the local control API and the
optional presence mirror and event relay.
*/
package configs

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// KnownTransports lists the transport names that may appear in RT_TRANSPORTS.
var KnownTransports = []string{"websocket"}

// AppConfig contains all configuration parameters required for the client to run.
type AppConfig struct {
	// General Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Channel Settings
	Endpoint             string        `env:"RT_ENDPOINT" envDefault:"ws://localhost:8080/realtime"`
	MaxReconnectAttempts int           `env:"RT_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay       time.Duration `env:"RT_RECONNECT_DELAY" envDefault:"1s"`
	Transports           []string      `env:"RT_TRANSPORTS" envDefault:"websocket" envSeparator:","`
	TypingWindow         time.Duration `env:"RT_TYPING_WINDOW" envDefault:"3s"`
	AuthTimeout          time.Duration `env:"RT_AUTH_TIMEOUT" envDefault:"5s"`

	// Session Settings
	SessionToken       string `env:"SESSION_TOKEN"`
	SessionUserID      int64  `env:"SESSION_USER_ID"`
	SessionDisplayName string `env:"SESSION_DISPLAY_NAME"`
	JWTSecret          string `env:"JWT_SECRET"`

	// Control API Settings
	ControlPort    int      `env:"CONTROL_PORT" envDefault:"8090"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Presence Mirror Settings
	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	RedisPresenceKey string `env:"REDIS_PRESENCE_KEY" envDefault:"hzrealtime:presence:online"`

	// Event Relay Settings
	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"hzrealtime.events"`
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads, normalizes and validates the configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize trims list values and validates every setting.
func (c *AppConfig) normalize() error {
	c.Transports = trimList(c.Transports)
	c.AllowedOrigins = trimList(c.AllowedOrigins)

	// --- Channel Settings ---
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid RT_ENDPOINT: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("RT_ENDPOINT must use ws:// or wss://, got %q", c.Endpoint)
	}

	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("RT_MAX_RECONNECT_ATTEMPTS must not be negative, got %d", c.MaxReconnectAttempts)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RT_RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay)
	}

	if len(c.Transports) == 0 {
		return fmt.Errorf("RT_TRANSPORTS must name at least one transport")
	}
	for _, name := range c.Transports {
		if !slices.Contains(KnownTransports, name) {
			return fmt.Errorf("unknown transport %q in RT_TRANSPORTS (known: %s)", name, strings.Join(KnownTransports, ","))
		}
	}

	if c.TypingWindow <= 0 {
		return fmt.Errorf("RT_TYPING_WINDOW must be positive, got %s", c.TypingWindow)
	}

	if c.AuthTimeout < 0 {
		return fmt.Errorf("RT_AUTH_TIMEOUT must not be negative, got %s", c.AuthTimeout)
	}

	// --- Session Settings ---
	if c.SessionToken == "" && c.SessionUserID <= 0 {
		return fmt.Errorf("either SESSION_TOKEN or SESSION_USER_ID is required")
	}

	if !c.IsDevelopment() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", c.Environment)
	}

	// --- Control API Settings ---
	if slices.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("ALLOWED_ORIGINS must list explicit origins, \"*\" is not accepted")
	}

	if c.ControlPort < 1024 || c.ControlPort > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.ControlPort, 1024, 65535)
	}

	return nil
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
