// Package model defines shared configuration structures used to initialize NpkBot.
// It includes store, robot, control, telemetry and dashboard settings.
package model

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Robot     RobotConfig     `yaml:"robot"`
	Control   ControlConfig   `yaml:"control"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig locates the durable settings database.
type StoreConfig struct {
	Path string `yaml:"path"` // bbolt file holding server_ip
}

// RobotConfig defines how the robot HTTP server is reached.
type RobotConfig struct {
	DefaultAddress   string `yaml:"default_address"` // seeds the store when nothing is saved yet
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

// ControlConfig defines directive pacing.
type ControlConfig struct {
	CooldownMs      int `yaml:"cooldown_ms"`
	ScanIndicatorMs int `yaml:"scan_indicator_ms"`
}

// TelemetryConfig defines poll intervals and per-screen failure policies.
type TelemetryConfig struct {
	GPSIntervalMs    int           `yaml:"gps_interval_ms"`
	SoilIntervalMs   int           `yaml:"soil_interval_ms"`
	MapOnFailure     FailurePolicy `yaml:"map_on_failure"`
	SoilOnFailure    FailurePolicy `yaml:"soil_on_failure"`
	SoilHistoryLimit int           `yaml:"soil_history_limit"` // 0 = unbounded
}

// DashboardConfig defines the local operator API.
type DashboardConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"` // bearer token; empty disables auth
}

// LogConfig defines optional log file output.
type LogConfig struct {
	File string `yaml:"file"`
}
