package tapl

import (
	"context"
)

// overviewSwipeDistance is how far above the navigation bar a swipe-up
// to overview ends, in pixels.
const overviewSwipeDistance = 300

// Background is the launcher while another app is in the foreground.
type Background struct {
	container
}

// SwitchToOverview opens the recent tasks panel, by swiping up from the
// navigation bar in swipe-up mode or with the recents button otherwise.
func (b *Background) SwitchToOverview(ctx context.Context) (*Overview, error) {
	l := b.launcher
	if _, err := b.verifyActive(ctx); err != nil {
		return nil, err
	}

	if l.IsSwipeUpEnabled() {
		nav, err := l.getSystemUIObject(ctx, "navigation_bar_frame")
		if err != nil {
			return nil, err
		}
		nb, err := nav.Bounds(ctx)
		if err != nil {
			return nil, l.fail(ctx, err)
		}
		x, y := nb.Center()
		endY := nb.Y - overviewSwipeDistance
		if endY < 0 {
			endY = 0
		}
		if err := l.swipe(ctx, x, y, x, endY); err != nil {
			return nil, err
		}
	} else {
		recents, err := l.getSystemUIObject(ctx, "recent_apps")
		if err != nil {
			return nil, err
		}
		if err := recents.Click(ctx); err != nil {
			return nil, l.fail(ctx, err)
		}
		if err := l.WaitForIdle(ctx); err != nil {
			return nil, err
		}
	}
	return l.GetOverview(ctx)
}
