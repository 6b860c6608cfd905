package tapl

import (
	"context"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// ContainerType is one of the mutually exclusive launcher screens.
type ContainerType int

const (
	ContainerWorkspace ContainerType = iota
	ContainerAllApps
	ContainerOverview
	ContainerWidgets
	// ContainerBackground means another app covers the launcher.
	ContainerBackground
)

// Signature element resource ids in the launcher package.
const (
	workspaceResID = "workspace"
	appsResID      = "apps_view"
	overviewResID  = "overview_panel"
	widgetsResID   = "widgets_list_view"
)

func (t ContainerType) String() string {
	switch t {
	case ContainerWorkspace:
		return "workspace"
	case ContainerAllApps:
		return "all apps"
	case ContainerOverview:
		return "overview"
	case ContainerWidgets:
		return "widgets"
	case ContainerBackground:
		return "background"
	default:
		return "unknown"
	}
}

// signature returns the resource id whose presence identifies t, or "" for
// Background.
func (t ContainerType) signature() string {
	switch t {
	case ContainerWorkspace:
		return workspaceResID
	case ContainerAllApps:
		return appsResID
	case ContainerOverview:
		return overviewResID
	case ContainerWidgets:
		return widgetsResID
	default:
		return ""
	}
}

// verification lists the signatures that must vanish before the target
// signature is awaited. Order matters.
type verification struct {
	gone   []string
	appear string
}

var verifications = map[ContainerType]verification{
	ContainerWorkspace:  {gone: []string{appsResID, overviewResID, widgetsResID}, appear: workspaceResID},
	ContainerWidgets:    {gone: []string{workspaceResID, appsResID, overviewResID}, appear: widgetsResID},
	ContainerAllApps:    {gone: []string{workspaceResID, overviewResID, widgetsResID}, appear: appsResID},
	ContainerOverview:   {gone: []string{workspaceResID, widgetsResID}, appear: overviewResID},
	ContainerBackground: {gone: []string{workspaceResID, appsResID, overviewResID, widgetsResID}},
}

// verifyContainerType waits until the launcher shows exactly kind and
// returns its signature object (nil for Background).
func (l *Launcher) verifyContainerType(ctx context.Context, kind ContainerType) (core.Object, error) {
	v, ok := verifications[kind]
	if !ok {
		return nil, l.fail(ctx, core.ErrInvalidState.WithMessagef("Invalid state: %d", int(kind)))
	}
	l.logf("verifying %s", kind)

	if kind == ContainerOverview && l.legacyOverviewCheck {
		l.warnf("legacy overview check: waiting for %s before %s", appsResID, overviewResID)
		if _, err := l.waitForLauncherObject(ctx, appsResID); err != nil {
			return nil, err
		}
	}

	for _, id := range v.gone {
		if err := l.waitUntilGone(ctx, id); err != nil {
			return nil, err
		}
	}
	if v.appear == "" {
		return nil, nil
	}
	return l.waitForLauncherObject(ctx, v.appear)
}

// container is the identity shared by all screen handles.
type container struct {
	launcher   *Launcher
	kind       ContainerType
	generation uint64
}

// Kind returns the screen this handle represents.
func (c *container) Kind() ContainerType {
	return c.kind
}

// checkFresh fails when a newer handle has been created since c.
func (c *container) checkFresh(ctx context.Context) error {
	if c.launcher.generation.Load() != c.generation {
		return c.launcher.fail(ctx, core.ErrStaleContainer.WithDetails(map[string]interface{}{
			"container":  c.kind.String(),
			"generation": c.generation,
		}))
	}
	return nil
}

// verifyActive checks c is the active handle and the launcher still shows
// its screen. Returns the container's UI object.
func (c *container) verifyActive(ctx context.Context) (core.Object, error) {
	if err := c.checkFresh(ctx); err != nil {
		return nil, err
	}
	return c.launcher.verifyContainerType(ctx, c.kind)
}

func (l *Launcher) launcherSelector(resID string) core.Selector {
	return core.Res(l.launcherPkg, resID)
}

func (l *Launcher) waitUntilGone(ctx context.Context, resID string) error {
	gone, err := l.dev.WaitUntilGone(ctx, l.launcherSelector(resID), l.waitTime)
	if err != nil {
		return l.fail(ctx, err)
	}
	if !gone {
		return l.fail(ctx, core.ErrElementStillVisible.WithMessage("Unexpected launcher object visible: "+resID))
	}
	return nil
}

func (l *Launcher) waitForLauncherObject(ctx context.Context, resID string) (core.Object, error) {
	obj, err := l.dev.WaitForObject(ctx, l.launcherSelector(resID), l.waitTime)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if obj == nil {
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessage("Can't find a launcher object; id: "+resID))
	}
	return obj, nil
}

func (l *Launcher) tryGetLauncherObject(ctx context.Context, resID string) (core.Object, error) {
	return l.dev.FindObject(ctx, l.launcherSelector(resID))
}

func (l *Launcher) getSystemUIObject(ctx context.Context, resID string) (core.Object, error) {
	obj, err := l.dev.FindObject(ctx, core.Res(l.systemUIPkg, resID))
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if obj == nil {
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessage("Can't find a systemui object with id: "+resID))
	}
	return obj, nil
}

func (l *Launcher) getObjectInContainer(ctx context.Context, parent core.Object, sel core.Selector) (core.Object, error) {
	obj, err := parent.FindObject(ctx, sel)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if obj == nil {
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessage("Can't find an object with selector: "+sel.Describe()))
	}
	return obj, nil
}

func (l *Launcher) waitForObjectInContainer(ctx context.Context, parent core.Object, resID string) (core.Object, error) {
	obj, err := parent.WaitForObject(ctx, l.launcherSelector(resID), l.waitTime)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if obj == nil {
		name, _ := parent.ResourceName(ctx)
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessagef(
			"Can't find a launcher object id: %s in container: %s", resID, name))
	}
	return obj, nil
}
