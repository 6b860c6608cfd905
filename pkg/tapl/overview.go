package tapl

import (
	"context"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// Overview is the recent tasks panel.
type Overview struct {
	container
}

// FlingForward scrolls the task list towards older tasks.
func (o *Overview) FlingForward(ctx context.Context) error {
	panel, err := o.verifyActive(ctx)
	if err != nil {
		return err
	}
	return o.launcher.fling(ctx, panel, scrollLeft)
}

// FlingBackward scrolls the task list towards newer tasks.
func (o *Overview) FlingBackward(ctx context.Context) error {
	panel, err := o.verifyActive(ctx)
	if err != nil {
		return err
	}
	return o.launcher.fling(ctx, panel, scrollRight)
}

// SwitchToAllApps swipes from the prediction row to near the top of the
// panel and returns the apps panel.
func (o *Overview) SwitchToAllApps(ctx context.Context) (*AllAppsFromOverview, error) {
	l := o.launcher
	panel, err := o.verifyActive(ctx)
	if err != nil {
		return nil, err
	}
	row, err := l.waitForLauncherObject(ctx, "prediction_row")
	if err != nil {
		return nil, err
	}
	rb, err := row.Bounds(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	pb, err := panel.Bounds(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}

	x, y := rb.Center()
	if err := l.swipe(ctx, x, y, x, pb.Y+pb.Height/10); err != nil {
		return nil, err
	}
	return l.GetAllAppsFromOverview(ctx)
}

// GetCurrentTask returns the task in the middle of the panel. Up to three
// task snapshots are visible; the centered one is the widest.
func (o *Overview) GetCurrentTask(ctx context.Context) (*OverviewTask, error) {
	l := o.launcher
	panel, err := o.verifyActive(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := panel.FindObjects(ctx, l.launcherSelector("snapshot"))
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	if len(tasks) == 0 {
		return nil, l.fail(ctx, core.ErrElementNotFound.WithMessage("Unable to find a task"))
	}

	var widest core.Object
	maxWidth := -1
	for _, t := range tasks {
		b, err := t.Bounds(ctx)
		if err != nil {
			return nil, l.fail(ctx, err)
		}
		if b.Width > maxWidth {
			widest, maxWidth = t, b.Width
		}
	}
	return &OverviewTask{overview: o, obj: widest}, nil
}

// OverviewTask is one task snapshot in the overview panel.
type OverviewTask struct {
	overview *Overview
	obj      core.Object
}

// Open clicks the task and returns Background once the app covers the
// launcher.
func (t *OverviewTask) Open(ctx context.Context) (*Background, error) {
	l := t.overview.launcher
	if _, err := t.overview.verifyActive(ctx); err != nil {
		return nil, err
	}
	if err := t.obj.Click(ctx); err != nil {
		return nil, l.fail(ctx, err)
	}
	return l.GetBackground(ctx)
}

// Dismiss flings the task up and out of the panel.
func (t *OverviewTask) Dismiss(ctx context.Context) error {
	if _, err := t.overview.verifyActive(ctx); err != nil {
		return err
	}
	return t.overview.launcher.fling(ctx, t.obj, scrollDown)
}
