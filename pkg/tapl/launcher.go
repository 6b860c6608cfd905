// Package tapl is a test automation facade for the Android launcher.
//
// A Launcher is the session root. Every screen handle it returns
// (Workspace, AllApps, Overview, Widgets, Background) verifies on creation
// that the launcher shows that screen, and becomes the single active
// handle. Using a handle after a newer one was created fails with
// core.ErrStaleContainer.
//
// All operations block until the expected UI state is reached or the wait
// time (60s by default) elapses. Failures are returned as
// *core.ExecutionError values and are never retried.
package tapl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
)

// Defaults for a stock launcher build.
const (
	DefaultLauncherPackage = "com.google.android.apps.nexuslauncher"
	DefaultSystemUIPackage = "com.android.systemui"
	DefaultWaitTime        = 60 * time.Second
)

// SwipeUpSetting is the secure setting holding the navigation gesture mode.
const SwipeUpSetting = "swipe_up_to_switch_apps_enabled"

// Launcher is the root of the facade. Construct one per test with New.
type Launcher struct {
	dev       core.Device
	sessionID string

	launcherPkg         string
	systemUIPkg         string
	waitTime            time.Duration
	swipeUpDefault      bool
	legacyOverviewCheck bool

	artifactsDir string
	collector    core.ArtifactCollector
	artifactCfg  core.ArtifactConfig

	swipeUpEnabled bool

	mu              sync.Mutex
	swipeUpOverride *bool

	// generation identifies the active container; bumped on every handle creation.
	generation atomic.Uint64
}

// New checks that dev runs in a test harness, reads the navigation mode
// and returns a new session.
func New(ctx context.Context, dev core.Device, opts ...Option) (*Launcher, error) {
	l := &Launcher{
		dev:            dev,
		sessionID:      uuid.NewString(),
		launcherPkg:    DefaultLauncherPackage,
		systemUIPkg:    DefaultSystemUIPackage,
		waitTime:       DefaultWaitTime,
		swipeUpDefault: true,
		artifactCfg:    core.DefaultArtifactConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}

	harness, err := dev.IsRunningInTestHarness(ctx)
	if err != nil {
		return nil, err
	}
	if !harness {
		return nil, core.ErrNotTestHarness
	}

	v, ok, err := dev.SecureSetting(ctx, SwipeUpSetting)
	if err != nil {
		return nil, err
	}
	if !ok {
		v = 0
		if l.swipeUpDefault {
			v = 1
		}
	}
	l.swipeUpEnabled = v == 1

	l.logf("session started: launcher=%s swipeUp=%v wait=%v", l.launcherPkg, l.swipeUpEnabled, l.waitTime)
	return l, nil
}

// SessionID returns the id used to tag this session's log lines.
func (l *Launcher) SessionID() string {
	return l.sessionID
}

// LauncherPackage returns the package of the launcher under test.
func (l *Launcher) LauncherPackage() string {
	return l.launcherPkg
}

// OverrideSwipeUpEnabled forces the navigation mode. nil restores the
// device setting.
func (l *Launcher) OverrideSwipeUpEnabled(enabled *bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enabled == nil {
		l.swipeUpOverride = nil
		return
	}
	v := *enabled
	l.swipeUpOverride = &v
}

// IsSwipeUpEnabled reports whether swipe-up navigation is in effect.
func (l *Launcher) IsSwipeUpEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.swipeUpOverride != nil {
		return *l.swipeUpOverride
	}
	return l.swipeUpEnabled
}

// GetWorkspace returns the Workspace handle. Fails unless the launcher is
// the foreground app showing the home screen.
func (l *Launcher) GetWorkspace(ctx context.Context) (*Workspace, error) {
	w := &Workspace{container: l.newContainer(ContainerWorkspace)}
	if _, err := w.verifyActive(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// GetBackground returns the Background handle. Fails unless another app
// covers the launcher.
func (l *Launcher) GetBackground(ctx context.Context) (*Background, error) {
	b := &Background{container: l.newContainer(ContainerBackground)}
	if _, err := b.verifyActive(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// GetAllWidgets returns the Widgets handle.
func (l *Launcher) GetAllWidgets(ctx context.Context) (*Widgets, error) {
	w := &Widgets{container: l.newContainer(ContainerWidgets)}
	if _, err := w.verifyActive(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// GetOverview returns the Overview handle.
func (l *Launcher) GetOverview(ctx context.Context) (*Overview, error) {
	o := &Overview{container: l.newContainer(ContainerOverview)}
	if _, err := o.verifyActive(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// GetAllApps returns the AllApps handle for the apps panel opened from the
// workspace. Do not use it when the panel was opened from overview; it
// would not fail and would return the wrong handle type.
func (l *Launcher) GetAllApps(ctx context.Context) (*AllApps, error) {
	a := &AllApps{container: l.newContainer(ContainerAllApps)}
	if _, err := a.verifyActive(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAllAppsFromOverview returns the handle for the apps panel opened from
// overview.
func (l *Launcher) GetAllAppsFromOverview(ctx context.Context) (*AllAppsFromOverview, error) {
	a := &AllAppsFromOverview{AllApps: AllApps{container: l.newContainer(ContainerAllApps)}}
	if _, err := a.verifyActive(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// TryGetAllApps queries once for the apps panel. It returns (nil, nil) when
// the panel is not showing, and GetAllApps otherwise.
func (l *Launcher) TryGetAllApps(ctx context.Context) (*AllApps, error) {
	obj, err := l.tryGetLauncherObject(ctx, appsResID)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if obj == nil {
		return nil, nil
	}
	return l.GetAllApps(ctx)
}

// PressHome clicks the navigation bar Home button and returns the
// Workspace once the UI settles.
func (l *Launcher) PressHome(ctx context.Context) (*Workspace, error) {
	home, err := l.getSystemUIObject(ctx, "home")
	if err != nil {
		return nil, err
	}
	// Waiting for an event first keeps WaitForIdle from returning on a
	// quiet tree before Home has been handled.
	_, err = l.executeAndWaitForEvent(ctx, home.Click, core.AnyEvent, "Pressing Home didn't produce any events")
	if err != nil {
		return nil, err
	}
	if err := l.WaitForIdle(ctx); err != nil {
		return nil, err
	}
	return l.GetWorkspace(ctx)
}

// CurrentContainer reports which screen is showing by querying each
// signature element once. Background means none is present.
func (l *Launcher) CurrentContainer(ctx context.Context) (ContainerType, core.Object, error) {
	for _, kind := range []ContainerType{ContainerOverview, ContainerAllApps, ContainerWidgets, ContainerWorkspace} {
		obj, err := l.tryGetLauncherObject(ctx, kind.signature())
		if err != nil {
			return ContainerBackground, nil, l.fail(ctx, err)
		}
		if obj != nil {
			return kind, obj, nil
		}
	}
	return ContainerBackground, nil, nil
}

// WaitForIdle blocks until the UI tree stops changing.
func (l *Launcher) WaitForIdle(ctx context.Context) error {
	if err := l.dev.WaitForIdle(ctx); err != nil {
		return l.fail(ctx, err)
	}
	return nil
}

// newContainer registers a new active container and returns its identity.
func (l *Launcher) newContainer(kind ContainerType) container {
	gen := l.generation.Add(1)
	l.logf("entering %s (generation %d)", kind, gen)
	return container{launcher: l, kind: kind, generation: gen}
}

// fail logs err and, when configured, saves a screenshot and hierarchy.
func (l *Launcher) fail(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	l.errorf("%v", err)

	if l.collector == nil || l.artifactsDir == "" || !l.artifactCfg.ShouldCapture(err) {
		return err
	}
	prefix := l.sessionID[:8]
	if code := errorCode(err); code != "" {
		prefix += "-" + code
	}
	attachments, werr := core.WriteArtifacts(l.artifactsDir, prefix, l.artifactCfg, l.collector)
	if werr != nil {
		l.warnf("artifact capture failed: %v", werr)
	}
	for _, a := range attachments {
		l.logf("saved %s: %s", a.Name, a.Path)
	}
	return err
}

func errorCode(err error) string {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func (l *Launcher) logf(format string, args ...interface{}) {
	logger.Info("[tapl %s] %s", l.sessionID[:8], fmt.Sprintf(format, args...))
}

func (l *Launcher) warnf(format string, args ...interface{}) {
	logger.Warn("[tapl %s] %s", l.sessionID[:8], fmt.Sprintf(format, args...))
}

func (l *Launcher) errorf(format string, args ...interface{}) {
	logger.Error("[tapl %s] %s", l.sessionID[:8], fmt.Sprintf(format, args...))
}
