package tapl

import (
	"context"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// AppIcon is an app shortcut on the workspace or in the apps list.
// It stays usable only while the handle that found it is active.
type AppIcon struct {
	owner *container
	obj   core.Object
	name  string
}

func appIconSelector(name string) core.Selector {
	return core.Desc(name)
}

// Name returns the icon label.
func (a *AppIcon) Name() string {
	return a.name
}

// Launch clicks the icon, waits for expectedPackage to show a window and
// returns Background.
func (a *AppIcon) Launch(ctx context.Context, expectedPackage string) (*Background, error) {
	l := a.owner.launcher
	if _, err := a.owner.verifyActive(ctx); err != nil {
		return nil, err
	}
	l.logf("launching %s", a.name)
	if err := a.obj.Click(ctx); err != nil {
		return nil, l.fail(ctx, err)
	}

	app, err := l.dev.WaitForObject(ctx, core.Pkg(expectedPackage), l.waitTime)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if app == nil {
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessage("App didn't start: "+expectedPackage))
	}
	return l.GetBackground(ctx)
}
