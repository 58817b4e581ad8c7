package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load
const (
	EnvPort           = "CARTEPAYS_PORT"
	EnvDBPath         = "CARTEPAYS_DB"
	EnvGeoJSONURL     = "CARTEPAYS_GEOJSON_URL"
	EnvAdminPassword  = "CARTEPAYS_ADMIN_PASSWORD"
	EnvLogLevel       = "CARTEPAYS_LOG_LEVEL"
	EnvWidth          = "CARTEPAYS_WIDTH"
	EnvHeight         = "CARTEPAYS_HEIGHT"
	EnvMargin         = "CARTEPAYS_MARGIN"
	EnvBaseURL        = "CARTEPAYS_BASE_URL"
	EnvAllowedOrigins = "CARTEPAYS_ALLOWED_ORIGINS"
	EnvTiersFile      = "CARTEPAYS_TIERS_FILE"
)

// Config holds the server settings
type Config struct {
	Port           int
	DBPath         string
	GeoJSONURL     string
	AdminPassword  string
	LogLevel       string
	Width          float64
	Height         float64
	Margin         float64
	BaseURL        string
	AllowedOrigins []string
	TiersFile      string
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Port:     8080,
		DBPath:   "cartepays.db",
		LogLevel: "info",
		Width:    960,
		Height:   500,
	}
}

// Load reads the given env files (".env" when none is given), then the
// process environment. Process variables win over file values. A missing
// env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	fileVars := map[string]string{}
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}
		for k, v := range vars {
			fileVars[k] = v
		}
	}

	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileVars[key]
	}
	return fromLookup(lookup)
}

func fromLookup(lookup func(string) string) (Config, error) {
	cfg := Default()
	var err error

	if v := lookup(EnvPort); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPort, err)
		}
	}
	if v := lookup(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.GeoJSONURL = lookup(EnvGeoJSONURL)
	cfg.AdminPassword = lookup(EnvAdminPassword)
	cfg.BaseURL = strings.TrimSuffix(lookup(EnvBaseURL), "/")
	cfg.TiersFile = lookup(EnvTiersFile)
	cfg.AllowedOrigins = splitList(lookup(EnvAllowedOrigins))

	for _, f := range []struct {
		key    string
		target *float64
	}{
		{EnvWidth, &cfg.Width},
		{EnvHeight, &cfg.Height},
		{EnvMargin, &cfg.Margin},
	} {
		v := lookup(f.key)
		if v == "" {
			continue
		}
		if *f.target, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	return cfg, nil
}

// Validate checks settings that cannot be defaulted
func (c Config) Validate() error {
	if c.GeoJSONURL == "" {
		return fmt.Errorf("geometry URL is required (-geojson or %s)", EnvGeoJSONURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %vx%v", c.Width, c.Height)
	}
	if c.Margin < 0 || 2*c.Margin >= c.Width || 2*c.Margin >= c.Height {
		return fmt.Errorf("margin %v does not fit the %vx%v viewport", c.Margin, c.Width, c.Height)
	}
	return nil
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
