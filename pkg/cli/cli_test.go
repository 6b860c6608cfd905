package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/launcher-tapl/pkg/config"
	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
)

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	want := []string{"devices", "state", "press-home", "all-apps", "overview", "ask", "swipe-up-enabled"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("commands = %v, want %v", names, want)
	}
}

func TestAskCommand_RequiresTag(t *testing.T) {
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	err := app.Run([]string{"tapl", "ask"})
	if err == nil {
		t.Fatal("expected error when no tag provided")
	}
	if !strings.Contains(err.Error(), "exactly one request tag") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSwipeUpCommand_InvalidSet(t *testing.T) {
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	err := app.Run([]string{"tapl", "swipe-up-enabled", "--set", "maybe"})
	if err == nil {
		t.Fatal("expected error for invalid --set value")
	}
	if !strings.Contains(err.Error(), `invalid value "maybe"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"on", 1, false},
		{"ON", 1, false},
		{"true", 1, false},
		{"1", 1, false},
		{"off", 0, false},
		{" no ", 0, false},
		{"0", 0, false},
		{"", 0, true},
		{"2", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSwitch(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSwitch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSwitch(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatPayload(t *testing.T) {
	got := formatPayload(map[string]string{"state": "2", "allApps": "false", "b": ""})
	want := []string{"allApps=false", "b=", "state=2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("formatPayload = %v, want %v", got, want)
	}
	if len(formatPayload(nil)) != 0 {
		t.Error("nil payload should format to no lines")
	}
}

func TestFormatError(t *testing.T) {
	got := formatError(core.ErrStaleContainer)
	if got != "Error [stale/stale_container]: Attempt to use a stale container" {
		t.Errorf("formatError(stale) = %q", got)
	}

	wrapped := core.ErrEventTimeout.WithMessage("Launcher didn't respond to request: X")
	got = formatError(wrapped)
	if !strings.HasPrefix(got, "Error [timeout/event_timeout]: ") {
		t.Errorf("formatError(timeout) = %q", got)
	}

	got = formatError(errors.New("boom"))
	if got != "Error: boom" {
		t.Errorf("formatError(plain) = %q", got)
	}
}

func TestColor(t *testing.T) {
	orig := colorsEnabled
	defer func() { colorsEnabled = orig }()

	colorsEnabled = true
	if color(colorGreen) != colorGreen {
		t.Error("color should return the code when colors are enabled")
	}
	colorsEnabled = false
	if color(colorGreen) != "" {
		t.Error("color should return empty string when colors are disabled")
	}
}

// runResolve runs a throwaway app with the global flags and returns the
// config resolved inside its action.
func runResolve(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg *config.Config
		err error
	)
	app := &cli.App{
		Name:   "test-app",
		Flags:  GlobalFlags,
		Writer: io.Discard,
		Action: func(c *cli.Context) error {
			cfg, err = resolveConfig(c)
			return nil
		},
	}
	if runErr := app.Run(append([]string{"test-app"}, args...)); runErr != nil {
		t.Fatalf("app.Run: %v", runErr)
	}
	return cfg, err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tapl.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
device: from-file
launcherPackage: com.android.launcher3
waitTime: 30s
artifactsDir: /tmp/from-file
`)

	cfg, err := runResolve(t, "--config", path, "--device", "from-flag", "--wait-time", "5s")
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Device != "from-flag" {
		t.Errorf("Device = %q, want from-flag", cfg.Device)
	}
	if cfg.WaitTime != 5*time.Second {
		t.Errorf("WaitTime = %v, want 5s", cfg.WaitTime)
	}
	if cfg.LauncherPackage != "com.android.launcher3" {
		t.Errorf("LauncherPackage = %q, want value from file", cfg.LauncherPackage)
	}
	if cfg.ArtifactsDir != "/tmp/from-file" {
		t.Errorf("ArtifactsDir = %q, want value from file", cfg.ArtifactsDir)
	}
	if cfg.EventTag != config.DefaultEventTag {
		t.Errorf("EventTag = %q, want default", cfg.EventTag)
	}
}

func TestResolveConfig_MissingFile(t *testing.T) {
	_, err := runResolve(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveConfig_NegativeWaitTime(t *testing.T) {
	path := writeConfig(t, "device: x\n")
	_, err := runResolve(t, "--config", path, "--wait-time=-1s")
	if err == nil {
		t.Fatal("expected validation error for negative wait time")
	}
}

func TestUIAutomator2Config(t *testing.T) {
	cfg := config.Default()
	got := uiautomator2Config(cfg)
	if got.DevicePort != config.DefaultDevicePort {
		t.Errorf("DevicePort = %d, want %d", got.DevicePort, config.DefaultDevicePort)
	}
	if got.SocketPath != "" || got.LocalPort != 0 {
		t.Errorf("unexpected forward settings: %+v", got)
	}
	if got.APKDir != config.GetDriversDir("android") {
		t.Errorf("APKDir = %q, want drivers dir", got.APKDir)
	}

	cfg.UIAutomator2.SocketPath = "/tmp/custom.sock"
	cfg.UIAutomator2.LocalPort = 6100
	cfg.UIAutomator2.StartTimeout = time.Minute
	cfg.UIAutomator2.APKDir = "/opt/uia2"
	got = uiautomator2Config(cfg)
	if got.SocketPath != "/tmp/custom.sock" || got.LocalPort != 6100 || got.Timeout != time.Minute {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.APKDir != "/opt/uia2" {
		t.Errorf("APKDir = %q, want /opt/uia2", got.APKDir)
	}
}

func TestLauncherOptions(t *testing.T) {
	cfg := config.Default()
	if n := len(launcherOptions(cfg)); n != 5 {
		t.Errorf("len(options) = %d, want 5", n)
	}
	cfg.SwipeUpDefault = nil
	if n := len(launcherOptions(cfg)); n != 4 {
		t.Errorf("len(options) without swipe-up default = %d, want 4", n)
	}
}

func TestSetupLogging_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapl.log")
	if err := setupLogging(false, path); err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	logger.Info("hello %s", "log")
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte("hello log")) {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestSetupLogging_Silent(t *testing.T) {
	if err := setupLogging(false, ""); err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	logger.Info("dropped")
}
