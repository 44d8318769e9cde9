package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port           int      `toml:"port"`
	BindAddress    string   `toml:"bind"`
	DataDir        string   `toml:"data_dir"`
	LogLevel       string   `toml:"log_level"`
	DevMode        bool     `toml:"dev"`
	TrustProxy     bool     `toml:"trust_proxy"`
	PublicURL      string   `toml:"public_url"`
	AllowedOrigins []string `toml:"allowed_origins"`
	StaleMinutes   int      `toml:"stale_minutes"`
	FalPollMS      int      `toml:"fal_poll_ms"`
	FalKey         string   `toml:"fal_key"`
	// FalKeySource is "config" or "env", empty when no key is set.
	FalKeySource   string   `toml:"-"`

	// Path is the config file that was read, empty when none existed.
	Path string `toml:"-"`
}

const devOrigin = "http://localhost:5173"

func Default() Config {
	return Config{
		Port:         41295,
		BindAddress:  "127.0.0.1",
		DataDir:      resolveDataDir(),
		LogLevel:     "info",
		StaleMinutes: 30,
		FalPollMS:    1000,
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. A .env file in the working directory is loaded
// first and never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path := getEnv("STORYBOARD_CONFIG", "")
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.toml")
	}
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}

	if p := getEnv("STORYBOARD_PORT", ""); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}
	if b := getEnv("STORYBOARD_BIND", ""); b != "" {
		cfg.BindAddress = b
	}
	if d := getEnv("STORYBOARD_DATA_DIR", ""); d != "" {
		cfg.DataDir = d
	}
	if l := getEnv("STORYBOARD_LOG_LEVEL", ""); l != "" {
		cfg.LogLevel = l
	}
	if v := getEnv("STORYBOARD_DEV", ""); v != "" {
		cfg.DevMode = v == "true"
	}
	if v := getEnv("STORYBOARD_TRUST_PROXY", ""); v != "" {
		cfg.TrustProxy = v == "true"
	}
	if u := getEnv("STORYBOARD_PUBLIC_URL", ""); u != "" {
		cfg.PublicURL = u
	}
	if m := getEnv("STORYBOARD_STALE_MINUTES", ""); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			cfg.StaleMinutes = n
		}
	}
	if ms := getEnv("STORYBOARD_FAL_POLL_MS", ""); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.FalPollMS = n
		}
	}
	if k := getEnv("FAL_KEY", ""); k != "" {
		cfg.FalKey = k
		cfg.FalKeySource = "env"
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://%s:%d", cfg.BindAddress, cfg.Port)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	if cfg.FalKey != "" {
		cfg.FalKeySource = "config"
	}
	return nil
}

// Origins returns the browser origins allowed for CORS and WebSocket
// upgrades. Dev mode adds the frontend dev server.
func (c *Config) Origins() []string {
	origins := append([]string{}, c.AllowedOrigins...)
	if c.DevMode {
		origins = append(origins, devOrigin)
	}
	return origins
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleMinutes) * time.Minute
}

func (c *Config) FalPollInterval() time.Duration {
	return time.Duration(c.FalPollMS) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

func resolveDataDir() string {
	// Resolve data dir relative to the executable, not the CWD
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
