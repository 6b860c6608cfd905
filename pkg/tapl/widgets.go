package tapl

import "context"

// Widgets is the full widgets list.
type Widgets struct {
	container
}

// FlingForward scrolls the widgets list down.
func (w *Widgets) FlingForward(ctx context.Context) error {
	list, err := w.verifyActive(ctx)
	if err != nil {
		return err
	}
	return w.launcher.fling(ctx, list, scrollDown)
}

// FlingBackward scrolls the widgets list up.
func (w *Widgets) FlingBackward(ctx context.Context) error {
	list, err := w.verifyActive(ctx)
	if err != nil {
		return err
	}
	return w.launcher.fling(ctx, list, scrollUp)
}
