package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the relay daemon.
// Note: the vault passphrase is never part of the config - use ReadPassword()
type Config struct {
	Port       string `envconfig:"PORT" default:"8080"`
	ListenHost string `envconfig:"LISTEN_HOST" default:"127.0.0.1"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogFile   string `envconfig:"LOG_FILE"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"leveldb"`
	StorePath    string `envconfig:"STORE_PATH" default:"./data"`

	Auth0Domain      string        `envconfig:"AUTH0_DOMAIN" default:"authwallet.us.auth0.com"`
	Auth0AccessToken string        `envconfig:"AUTH0_ACCESS_TOKEN"`
	Auth0UserID      string        `envconfig:"AUTH0_USER_ID"`
	ProfileTimeout   time.Duration `envconfig:"PROFILE_TIMEOUT" default:"15s"`

	ApprovalTimeout   time.Duration `envconfig:"APPROVAL_TIMEOUT" default:"5m"`
	ApprovalURL       string        `envconfig:"APPROVAL_URL" default:"http://127.0.0.1:8080/index.html"`
	ResolvedCacheSize int           `envconfig:"RESOLVED_CACHE_SIZE" default:"1024"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if c.ApprovalTimeout <= 0 {
		return errors.New("APPROVAL_TIMEOUT must be positive")
	}
	if c.ResolvedCacheSize <= 0 {
		return errors.New("RESOLVED_CACHE_SIZE must be positive")
	}
	cfg = c
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetListenAddr returns host:port the HTTP server binds to
func GetListenAddr() string {
	return net.JoinHostPort(Get().ListenHost, Get().Port)
}

// GetStoreBackend returns the consent store backend kind
func GetStoreBackend() string {
	return Get().StoreBackend
}

// GetStorePath returns the consent store directory
func GetStorePath() string {
	return Get().StorePath
}

// GetProfileBaseURL returns the identity provider base URL
func GetProfileBaseURL() string {
	return "https://" + Get().Auth0Domain
}

// GetApprovalTimeout returns how long an escalated request may stay pending
func GetApprovalTimeout() time.Duration {
	return Get().ApprovalTimeout
}

// GetApprovalURL returns the approval popup page URL
func GetApprovalURL() string {
	return Get().ApprovalURL
}

// ReadPassword prompts on the terminal and reads a passphrase without echo.
// Caller must zero the returned slice after use.
func ReadPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run interactively to enter the vault passphrase")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}
