// Package cli provides the command-line interface for launcher-tapl.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/launcher-tapl/pkg/config"
	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "adb serial of the device (default: first connected)",
		EnvVars: []string{"TAPL_DEVICE", "ANDROID_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to tapl.yaml (default: ./tapl.yaml if present)",
		EnvVars: []string{"TAPL_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log to stderr",
		EnvVars: []string{"TAPL_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write the log to this file",
		EnvVars: []string{"TAPL_LOG_FILE"},
	},
	&cli.StringFlag{
		Name:    "launcher-package",
		Usage:   "Package of the launcher under test",
		EnvVars: []string{"TAPL_LAUNCHER_PACKAGE"},
	},
	&cli.DurationFlag{
		Name:    "wait-time",
		Usage:   "Bound for every element and event wait",
		EnvVars: []string{"TAPL_WAIT_TIME"},
	},
	&cli.StringFlag{
		Name:    "artifacts-dir",
		Usage:   "Where to save screenshots and hierarchies of failures",
		EnvVars: []string{"TAPL_ARTIFACTS_DIR"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "tapl",
		Usage:   "Drive and inspect the Android launcher under test",
		Version: Version,
		Description: `tapl talks to the launcher through UiAutomator2 and the launcher's
test event stream. The device must run in a test harness
(ro.test_harness=1).

Examples:
  tapl devices
  tapl state
  tapl -s emulator-5554 press-home
  tapl ask TAPL_GET_STATE`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			devicesCommand,
			stateCommand,
			pressHomeCommand,
			allAppsCommand,
			overviewCommand,
			askCommand,
			swipeUpCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	// .env files must be loaded before flags read their EnvVars.
	if err := config.LoadEnv(".env", ".env.local"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", color(colorRed), formatError(err), color(colorReset))
		os.Exit(1)
	}
}

// formatError prefixes facade failures with their category.
func formatError(err error) string {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return fmt.Sprintf("Error [%s/%s]: %v", ee.Category, ee.Code, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
