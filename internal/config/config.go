// Package config loads NpkBot settings from a YAML file with an environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NpkBot/internal/model"
)

const (
	defaultStorePath        = "tmp/npkbot.db"
	defaultRequestTimeoutMs = 5000
	defaultCooldownMs       = 300
	defaultScanIndicatorMs  = 3000
	defaultIntervalMs       = 3000
	defaultDashboardAddr    = ":8080"
)

// Load reads the YAML file at path (skipped when path is empty), applies defaults,
// then overlays NPKBOT_* environment variables (optionally from .env).
func Load(path string) (*model.Config, error) {
	var cfg model.Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)

	_ = godotenv.Load() // ignore missing file
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *model.Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath
	}
	if cfg.Robot.RequestTimeoutMs <= 0 {
		cfg.Robot.RequestTimeoutMs = defaultRequestTimeoutMs
	}
	if cfg.Control.CooldownMs <= 0 {
		cfg.Control.CooldownMs = defaultCooldownMs
	}
	if cfg.Control.ScanIndicatorMs <= 0 {
		cfg.Control.ScanIndicatorMs = defaultScanIndicatorMs
	}
	if cfg.Telemetry.GPSIntervalMs <= 0 {
		cfg.Telemetry.GPSIntervalMs = defaultIntervalMs
	}
	if cfg.Telemetry.SoilIntervalMs <= 0 {
		cfg.Telemetry.SoilIntervalMs = defaultIntervalMs
	}
	if cfg.Telemetry.MapOnFailure == "" {
		cfg.Telemetry.MapOnFailure = model.RetainOnFailure
	}
	if cfg.Telemetry.SoilOnFailure == "" {
		cfg.Telemetry.SoilOnFailure = model.ClearOnFailure
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = defaultDashboardAddr
	}
}

func applyEnv(cfg *model.Config) error {
	if v := strings.TrimSpace(os.Getenv("NPKBOT_SERVER_IP")); v != "" {
		cfg.Robot.DefaultAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("NPKBOT_STORE_PATH")); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("NPKBOT_DASHBOARD_ADDR")); v != "" {
		cfg.Dashboard.Addr = v
	}
	if v, ok := os.LookupEnv("NPKBOT_DASHBOARD_TOKEN"); ok {
		cfg.Dashboard.Token = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("NPKBOT_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid NPKBOT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.Robot.RequestTimeoutMs = int(d / time.Millisecond)
	}
	if v := strings.TrimSpace(os.Getenv("NPKBOT_LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("NPKBOT_SOIL_HISTORY_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NPKBOT_SOIL_HISTORY_LIMIT: %w", err)
		}
		cfg.Telemetry.SoilHistoryLimit = n
	}
	return nil
}

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *model.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Robot.DefaultAddress != "" {
		if err := model.ValidateAddress(cfg.Robot.DefaultAddress); err != nil {
			return fmt.Errorf("robot.default_address: %w", err)
		}
	}
	if !cfg.Telemetry.MapOnFailure.Valid() {
		return fmt.Errorf("telemetry.map_on_failure: unknown policy %q", cfg.Telemetry.MapOnFailure)
	}
	if !cfg.Telemetry.SoilOnFailure.Valid() {
		return fmt.Errorf("telemetry.soil_on_failure: unknown policy %q", cfg.Telemetry.SoilOnFailure)
	}
	if cfg.Telemetry.SoilHistoryLimit < 0 {
		return fmt.Errorf("telemetry.soil_history_limit must be >= 0, got %d", cfg.Telemetry.SoilHistoryLimit)
	}
	if cfg.Robot.RequestTimeoutMs <= 0 {
		return fmt.Errorf("robot.request_timeout_ms must be > 0")
	}
	return nil
}

// Ms converts a millisecond config value into a Duration.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
