package tapl

import (
	"context"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// maxAppListScrolls bounds the search for an icon in the apps list.
const maxAppListScrolls = 20

// AllApps is the apps panel opened from the workspace.
type AllApps struct {
	container
}

// GetAppIcon scrolls the apps list until an icon labelled name is visible.
func (a *AllApps) GetAppIcon(ctx context.Context, name string) (*AppIcon, error) {
	l := a.launcher
	panel, err := a.verifyActive(ctx)
	if err != nil {
		return nil, err
	}
	list, err := l.waitForObjectInContainer(ctx, panel, "apps_list_view")
	if err != nil {
		return nil, err
	}

	sel := appIconSelector(name)
	for i := 0; ; i++ {
		icon, err := list.FindObject(ctx, sel)
		if err != nil {
			return nil, l.fail(ctx, err)
		}
		if icon != nil {
			return &AppIcon{owner: &a.container, obj: icon, name: name}, nil
		}
		if i == maxAppListScrolls {
			return nil, l.fail(ctx, core.ErrElementNotFound.WithMessagef(
				"Can't find app icon %q after %d scrolls", name, maxAppListScrolls))
		}
		if err := l.fling(ctx, list, scrollDown); err != nil {
			return nil, err
		}
	}
}

// FlingForward scrolls the apps list down.
func (a *AllApps) FlingForward(ctx context.Context) error {
	panel, err := a.verifyActive(ctx)
	if err != nil {
		return err
	}
	return a.launcher.fling(ctx, panel, scrollDown)
}

// FlingBackward scrolls the apps list up.
func (a *AllApps) FlingBackward(ctx context.Context) error {
	panel, err := a.verifyActive(ctx)
	if err != nil {
		return err
	}
	return a.launcher.fling(ctx, panel, scrollUp)
}

// AllAppsFromOverview is the apps panel opened by swiping up from overview.
type AllAppsFromOverview struct {
	AllApps
}

// SwitchBackToOverview swipes from the search box down to 60% of the panel
// height and returns the overview.
func (a *AllAppsFromOverview) SwitchBackToOverview(ctx context.Context) (*Overview, error) {
	l := a.launcher
	panel, err := a.verifyActive(ctx)
	if err != nil {
		return nil, err
	}
	qsb, err := l.waitForObjectInContainer(ctx, panel, "search_container_all_apps")
	if err != nil {
		return nil, err
	}
	qb, err := qsb.Bounds(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	pb, err := panel.Bounds(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}

	x, y := qb.Center()
	if err := l.swipe(ctx, x, y, x, pb.Y+pb.Height*6/10); err != nil {
		return nil, err
	}
	return l.GetOverview(ctx)
}
