package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/launcher-tapl/pkg/automator"
	"github.com/devicelab-dev/launcher-tapl/pkg/config"
	"github.com/devicelab-dev/launcher-tapl/pkg/device"
	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
	"github.com/devicelab-dev/launcher-tapl/pkg/tapl"
	"github.com/devicelab-dev/launcher-tapl/pkg/uiautomator2"
)

// resolveConfig loads the config file and applies global flag overrides.
// Precedence: flag (or its env var) > config file > defaults.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("launcher-package") {
		cfg.LauncherPackage = c.String("launcher-package")
	}
	if c.IsSet("wait-time") {
		cfg.WaitTime = c.Duration("wait-time")
	}
	if c.IsSet("artifacts-dir") {
		cfg.ArtifactsDir = c.String("artifacts-dir")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging sends the log to logFile, or to stderr in verbose mode.
// Without either the logger stays silent.
func setupLogging(verbose bool, logFile string) error {
	if logFile != "" {
		return logger.Init(logFile)
	}
	if verbose {
		logger.InitWriter(os.Stderr)
	}
	return nil
}

// launcherOptions maps config fields onto facade options.
func launcherOptions(cfg *config.Config) []tapl.Option {
	opts := []tapl.Option{
		tapl.WithLauncherPackage(cfg.LauncherPackage),
		tapl.WithSystemUIPackage(cfg.SystemUIPackage),
		tapl.WithWaitTime(cfg.WaitTime),
		tapl.WithLegacyOverviewCheck(cfg.LegacyOverviewCheck),
	}
	if cfg.SwipeUpDefault != nil {
		opts = append(opts, tapl.WithSwipeUpDefault(*cfg.SwipeUpDefault))
	}
	return opts
}

// uiautomator2Config maps the config section onto the server settings.
func uiautomator2Config(cfg *config.Config) device.UIAutomator2Config {
	uia2Cfg := device.DefaultUIAutomator2Config()
	if cfg.UIAutomator2.SocketPath != "" {
		uia2Cfg.SocketPath = cfg.UIAutomator2.SocketPath
	}
	if cfg.UIAutomator2.LocalPort != 0 {
		uia2Cfg.LocalPort = cfg.UIAutomator2.LocalPort
	}
	if cfg.UIAutomator2.DevicePort != 0 {
		uia2Cfg.DevicePort = cfg.UIAutomator2.DevicePort
	}
	if cfg.UIAutomator2.StartTimeout != 0 {
		uia2Cfg.Timeout = cfg.UIAutomator2.StartTimeout
	}
	uia2Cfg.APKDir = cfg.UIAutomator2.APKDir
	if uia2Cfg.APKDir == "" {
		uia2Cfg.APKDir = config.GetDriversDir("android")
	}
	return uia2Cfg
}

// session is a connected device with a running UiAutomator2 server.
type session struct {
	cfg       *config.Config
	dev       *device.AndroidDevice
	client    *uiautomator2.Client
	automator *automator.Device
}

// openSession connects to the device, starts the automation server and
// creates a UiAutomator2 session. Callers must Close it.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(c.Bool("verbose"), cfg.LogFile); err != nil {
		return nil, err
	}
	ctx := c.Context

	// 1. Connect to device
	if cfg.Device != "" {
		printSetupStep(fmt.Sprintf("Connecting to device %s...", cfg.Device))
		logger.Info("Connecting to Android device: %s", cfg.Device)
	} else {
		printSetupStep("Connecting to device...")
		logger.Info("Auto-detecting Android device...")
	}
	dev, err := device.New(ctx, cfg.Device)
	if err != nil {
		logger.Error("Failed to connect to device: %v", err)
		logger.Close()
		return nil, fmt.Errorf("connect to device: %w", err)
	}
	info, err := dev.Info(ctx)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("get device info: %w", err)
	}
	logger.Info("Device info: %s %s, SDK %s, Serial %s, Emulator: %v, TestHarness: %v",
		info.Brand, info.Model, info.SDK, info.Serial, info.IsEmulator, info.TestHarness)
	printSetupSuccess(fmt.Sprintf("Connected to %s %s (SDK %s)", info.Brand, info.Model, info.SDK))

	uia2Cfg := uiautomator2Config(cfg)

	// 2. Check/install UIAutomator2 APKs
	if !dev.IsInstalled(ctx, device.UIAutomator2Server) || !dev.IsInstalled(ctx, device.UIAutomator2Test) {
		printSetupStep("Installing UIAutomator2 APKs...")
		if err := dev.InstallUIAutomator2(ctx, uia2Cfg.APKDir); err != nil {
			logger.Close()
			return nil, fmt.Errorf("install UIAutomator2: %w", err)
		}
		printSetupSuccess("UIAutomator2 installed")
	}

	// 3. Start UIAutomator2 server
	printSetupStep("Starting UIAutomator2 server...")
	if err := dev.StartUIAutomator2(ctx, uia2Cfg); err != nil {
		logger.Error("Failed to start UIAutomator2: %v", err)
		logger.Close()
		return nil, fmt.Errorf("start UIAutomator2: %w", err)
	}
	var client *uiautomator2.Client
	if dev.SocketPath() != "" {
		client = uiautomator2.NewClient(dev.SocketPath())
	} else {
		client = uiautomator2.NewClientTCP(dev.LocalPort())
	}
	printSetupSuccess("UIAutomator2 server started")

	// 4. Create session
	caps := uiautomator2.Capabilities{
		PlatformName: "Android",
		DeviceName:   info.Model,
	}
	if err := client.CreateSession(ctx, caps); err != nil {
		logger.Error("Failed to create session: %v", err)
		if stopErr := dev.StopUIAutomator2(ctx); stopErr != nil {
			logger.Warn("stop UIAutomator2: %v", stopErr)
		}
		logger.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Info("Session created successfully: %s", client.SessionID())

	// Facade waits poll on their own; server-side waits stay off.
	if err := client.SetImplicitWait(ctx, 0); err != nil {
		logger.Warn("set implicit wait: %v", err)
	}
	if err := client.UpdateSettings(ctx, map[string]interface{}{"waitForIdleTimeout": 0}); err != nil {
		logger.Warn("update server settings: %v", err)
	}

	auto := automator.New(client, dev, device.NewEventSource(dev, cfg.EventTag))
	auto.SetIdleTimeout(cfg.IdleTimeout)

	return &session{cfg: cfg, dev: dev, client: client, automator: auto}, nil
}

// newLauncher starts a facade session on the connected device.
func (s *session) newLauncher(ctx context.Context) (*tapl.Launcher, error) {
	artifactsDir := s.cfg.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = config.GetArtifactsDir()
	}
	opts := append(launcherOptions(s.cfg), tapl.WithArtifacts(artifactsDir, s.automator))
	return tapl.New(ctx, s.automator, opts...)
}

// Close deletes the UiAutomator2 session and stops the server.
func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.client.DeleteSession(ctx); err != nil {
		logger.Warn("delete session: %v", err)
	}
	if err := s.dev.StopUIAutomator2(ctx); err != nil {
		logger.Warn("stop UIAutomator2: %v", err)
	}
	logger.Close()
}
