// Package config handles configuration for launcher-tapl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/launcher-tapl/pkg/tapl"
)

// Defaults matching the launcher's test protocol.
const (
	DefaultLauncherPackage = tapl.DefaultLauncherPackage
	DefaultSystemUIPackage = tapl.DefaultSystemUIPackage
	DefaultWaitTime        = tapl.DefaultWaitTime
	DefaultIdleTimeout     = 10 * time.Second
	DefaultEventTag        = "TaplEvents"
	DefaultDevicePort      = 6790
)

// Config represents the workspace configuration (tapl.yaml).
type Config struct {
	// Device settings
	Device string `yaml:"device"` // adb serial; empty = first connected

	// Launcher under test
	LauncherPackage string `yaml:"launcherPackage"`
	SystemUIPackage string `yaml:"systemUIPackage"`

	// Waits
	WaitTime    time.Duration `yaml:"waitTime"`    // bound for every element/event wait
	IdleTimeout time.Duration `yaml:"idleTimeout"` // bound for WaitForIdle

	// Behavior
	EventTag            string `yaml:"eventTag"`            // logcat tag carrying launcher events
	SwipeUpDefault      *bool  `yaml:"swipeUpDefault"`      // used when the secure setting is unset
	LegacyOverviewCheck bool   `yaml:"legacyOverviewCheck"` // wait for all-apps before overview

	// Output
	ArtifactsDir string `yaml:"artifactsDir"`
	LogFile      string `yaml:"logFile"`

	UIAutomator2 UIAutomator2 `yaml:"uiautomator2"`
}

// UIAutomator2 configures the on-device automation server.
type UIAutomator2 struct {
	SocketPath   string        `yaml:"socketPath"`
	LocalPort    int           `yaml:"localPort"`
	DevicePort   int           `yaml:"devicePort"`
	StartTimeout time.Duration `yaml:"startTimeout"`
	APKDir       string        `yaml:"apkDir"` // default: <home>/drivers/android
}

// Default returns a config with every field at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LauncherPackage == "" {
		c.LauncherPackage = DefaultLauncherPackage
	}
	if c.SystemUIPackage == "" {
		c.SystemUIPackage = DefaultSystemUIPackage
	}
	if c.WaitTime == 0 {
		c.WaitTime = DefaultWaitTime
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.EventTag == "" {
		c.EventTag = DefaultEventTag
	}
	if c.SwipeUpDefault == nil {
		enabled := true
		c.SwipeUpDefault = &enabled
	}
	if c.UIAutomator2.DevicePort == 0 {
		c.UIAutomator2.DevicePort = DefaultDevicePort
	}
	if c.UIAutomator2.StartTimeout == 0 {
		c.UIAutomator2.StartTimeout = 30 * time.Second
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.WaitTime < 0 {
		return fmt.Errorf("waitTime must not be negative: %v", c.WaitTime)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idleTimeout must not be negative: %v", c.IdleTimeout)
	}
	if c.UIAutomator2.DevicePort < 0 || c.UIAutomator2.DevicePort > 65535 {
		return fmt.Errorf("uiautomator2.devicePort out of range: %d", c.UIAutomator2.DevicePort)
	}
	return nil
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromDir looks for tapl.yaml or tapl.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, "tapl.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "tapl.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}
