// Package config loads stockboard settings from an optional .env file and
// STOCKBOARD_* environment variables. Command-line flags are applied on top
// by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "STOCKBOARD"

// Config holds every runtime setting.
type Config struct {
	APIURL        string        `envconfig:"API_URL" default:"http://localhost:8000/api/v1"`
	APITimeout    time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	ProfilePath   string        `envconfig:"PROFILE_PATH" default:"/auth/me"`
	InventoryPath string        `envconfig:"INVENTORY_PATH" default:"/inventory/"`

	Addr    string `envconfig:"ADDR" default:":8080"`
	DBPath  string `envconfig:"DB" default:"stockboard.sqlite3"`
	LogPath string `envconfig:"LOG"`

	LowStockThreshold int `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
	PageSize          int `envconfig:"PAGE_SIZE" default:"100"`

	// LoginRate is the number of login and registration attempts allowed
	// per minute for the whole server.
	LoginRate int `envconfig:"LOGIN_RATE" default:"20"`
}

// Load reads envFiles (missing files are ignored) into the process
// environment and then fills a Config from it.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		slog.Info("loaded environment file", "path", f)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.LoginRate <= 0 {
		return fmt.Errorf("login rate must be positive")
	}
	return nil
}
