package tapl

import (
	"context"
)

// Workspace is the home screen while the launcher is in the foreground.
type Workspace struct {
	container
}

// SwitchToAllApps swipes from the hotseat to the top of the screen and
// returns the apps panel.
func (w *Workspace) SwitchToAllApps(ctx context.Context) (*AllApps, error) {
	l := w.launcher
	if _, err := w.verifyActive(ctx); err != nil {
		return nil, err
	}

	hotseat, err := l.waitForLauncherObject(ctx, "hotseat")
	if err != nil {
		return nil, err
	}
	b, err := hotseat.Bounds(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	x, y := b.Center()
	if err := l.swipe(ctx, x, y, x, 0); err != nil {
		return nil, err
	}
	return l.GetAllApps(ctx)
}

// GetWorkspaceAppIcon returns the icon labelled name on the current
// workspace page.
func (w *Workspace) GetWorkspaceAppIcon(ctx context.Context, name string) (*AppIcon, error) {
	l := w.launcher
	ws, err := w.verifyActive(ctx)
	if err != nil {
		return nil, err
	}
	icon, err := l.getObjectInContainer(ctx, ws, appIconSelector(name))
	if err != nil {
		return nil, err
	}
	return &AppIcon{owner: &w.container, obj: icon, name: name}, nil
}
