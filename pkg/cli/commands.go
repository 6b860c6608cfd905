package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/device"
	"github.com/devicelab-dev/launcher-tapl/pkg/tapl"
)

const closeTimeout = 10 * time.Second

var devicesCommand = &cli.Command{
	Name:   "devices",
	Usage:  "List connected Android devices",
	Action: runDevices,
}

var stateCommand = &cli.Command{
	Name:  "state",
	Usage: "Print which launcher container is showing",
	Description: `Queries each container signature once and prints one of:
workspace, all apps, overview, widgets, background.`,
	Action: withLauncher(runState),
}

var pressHomeCommand = &cli.Command{
	Name:   "press-home",
	Usage:  "Press the navigation bar Home button and verify the workspace",
	Action: withLauncher(runPressHome),
}

var allAppsCommand = &cli.Command{
	Name:   "all-apps",
	Usage:  "Open the apps panel from the workspace, overview or an app",
	Action: withLauncher(runAllApps),
}

var overviewCommand = &cli.Command{
	Name:   "overview",
	Usage:  "Open the recent tasks panel from an app or the apps panel",
	Action: withLauncher(runOverview),
}

var askCommand = &cli.Command{
	Name:      "ask",
	Usage:     "Send a request tag to the launcher and print its response",
	ArgsUsage: "<request-tag>",
	Description: `The tag is typed into the active container; the launcher answers
with a <request-tag>_response event whose payload is printed as key=value lines.

Examples:
  tapl ask TAPL_GET_STATE`,
	Before: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("ask takes exactly one request tag, got %d arguments", c.NArg())
		}
		return nil
	},
	Action: withLauncher(runAsk),
}

var swipeUpCommand = &cli.Command{
	Name:  "swipe-up-enabled",
	Usage: "Print whether swipe-up navigation is in effect",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "set",
			Usage: "Write the secure setting first (on or off)",
		},
	},
	Before: func(c *cli.Context) error {
		if c.IsSet("set") {
			if _, err := parseSwitch(c.String("set")); err != nil {
				return err
			}
		}
		return nil
	},
	Action: runSwipeUp,
}

func runDevices(c *cli.Context) error {
	devices, err := device.ListDevices(c.Context)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		printWarning("no devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", d.Serial, d.State)
	}
	return nil
}

// withLauncher opens a device session and a facade on it for action.
func withLauncher(action func(c *cli.Context, l *tapl.Launcher) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		l, err := s.newLauncher(c.Context)
		if err != nil {
			return err
		}
		return action(c, l)
	}
}

func runState(c *cli.Context, l *tapl.Launcher) error {
	kind, _, err := l.CurrentContainer(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, kind)
	return nil
}

func runPressHome(c *cli.Context, l *tapl.Launcher) error {
	w, err := l.PressHome(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, w.Kind())
	return nil
}

func runAllApps(c *cli.Context, l *tapl.Launcher) error {
	kind, err := openAllApps(c.Context, l)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, kind)
	return nil
}

// openAllApps navigates to the apps panel along the shortest path from
// the current container.
func openAllApps(ctx context.Context, l *tapl.Launcher) (tapl.ContainerType, error) {
	kind, _, err := l.CurrentContainer(ctx)
	if err != nil {
		return kind, err
	}
	switch kind {
	case tapl.ContainerAllApps:
		a, err := l.GetAllApps(ctx)
		if err != nil {
			return kind, err
		}
		return a.Kind(), nil
	case tapl.ContainerOverview:
		o, err := l.GetOverview(ctx)
		if err != nil {
			return kind, err
		}
		a, err := o.SwitchToAllApps(ctx)
		if err != nil {
			return kind, err
		}
		return a.Kind(), nil
	case tapl.ContainerWorkspace, tapl.ContainerBackground:
		var w *tapl.Workspace
		if kind == tapl.ContainerWorkspace {
			w, err = l.GetWorkspace(ctx)
		} else {
			w, err = l.PressHome(ctx)
		}
		if err != nil {
			return kind, err
		}
		a, err := w.SwitchToAllApps(ctx)
		if err != nil {
			return kind, err
		}
		return a.Kind(), nil
	default:
		return kind, core.ErrInvalidState.WithMessagef("can't reach all apps from %s", kind)
	}
}

func runOverview(c *cli.Context, l *tapl.Launcher) error {
	ctx := c.Context
	kind, _, err := l.CurrentContainer(ctx)
	if err != nil {
		return err
	}

	var o *tapl.Overview
	switch kind {
	case tapl.ContainerOverview:
		o, err = l.GetOverview(ctx)
	case tapl.ContainerBackground:
		var b *tapl.Background
		if b, err = l.GetBackground(ctx); err == nil {
			o, err = b.SwitchToOverview(ctx)
		}
	case tapl.ContainerAllApps:
		var a *tapl.AllAppsFromOverview
		if a, err = l.GetAllAppsFromOverview(ctx); err == nil {
			o, err = a.SwitchBackToOverview(ctx)
		}
	default:
		err = core.ErrInvalidState.WithMessagef("can't reach overview from %s", kind)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, o.Kind())
	return nil
}

func runAsk(c *cli.Context, l *tapl.Launcher) error {
	ctx := c.Context
	tag := c.Args().First()

	kind, obj, err := l.CurrentContainer(ctx)
	if err != nil {
		return err
	}
	if obj == nil {
		return core.ErrInvalidState.WithMessagef("no launcher container to send %s to (showing %s)", tag, kind)
	}

	payload, err := l.GetAnswerFromLauncher(ctx, obj, tag)
	if err != nil {
		return err
	}
	for _, line := range formatPayload(payload) {
		fmt.Fprintln(c.App.Writer, line)
	}
	return nil
}

func runSwipeUp(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.IsSet("set") {
		v, _ := parseSwitch(c.String("set"))
		if err := s.dev.PutSecureSetting(c.Context, tapl.SwipeUpSetting, v); err != nil {
			return err
		}
		printSetupSuccess(fmt.Sprintf("%s=%d", tapl.SwipeUpSetting, v))
	}

	l, err := s.newLauncher(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, l.IsSwipeUpEnabled())
	return nil
}

// parseSwitch maps on/off style values to the secure setting value.
func parseSwitch(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return 1, nil
	case "off", "false", "0", "no":
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid value %q: use on or off", s)
	}
}
