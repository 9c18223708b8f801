package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API    APIConfig    `yaml:"api"`
	Server ServerConfig `yaml:"server"`
}

type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	WSURL      string `yaml:"ws_url"`
	Token      string `yaml:"token"`
	ProjectID  string `yaml:"project_id"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads configuration from the environment, loading .env first if one
// exists. Missing values fall back to local-development defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	timeout := 30
	if raw := os.Getenv("GUARD_TIMEOUT_SEC"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("GUARD_TIMEOUT_SEC: %w", err)
		}
		timeout = v
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:    envOr("GUARD_API_URL", "http://localhost:8000"),
			WSURL:      os.Getenv("GUARD_WS_URL"),
			Token:      os.Getenv("GUARD_API_TOKEN"),
			ProjectID:  envOr("GUARD_PROJECT_ID", "demo-project"),
			TimeoutSec: timeout,
		},
		Server: ServerConfig{
			ListenAddr: envOr("GUARD_LISTEN_ADDR", ":8000"),
		},
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFile overlays Load with values from a YAML config file; file values
// win over the environment.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults derives the WebSocket endpoint from the API base URL the same
// way the dashboard does: http → ws plus the streaming scan path.
func (c *Config) applyDefaults() {
	if c.API.WSURL == "" && c.API.BaseURL != "" {
		ws := c.API.BaseURL
		if strings.HasPrefix(ws, "https") {
			ws = "wss" + strings.TrimPrefix(ws, "https")
		} else if strings.HasPrefix(ws, "http") {
			ws = "ws" + strings.TrimPrefix(ws, "http")
		}
		c.API.WSURL = strings.TrimSuffix(ws, "/") + "/api/v1/ws/scan"
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
