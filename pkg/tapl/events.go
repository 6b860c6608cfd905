package tapl

import (
	"context"
	"errors"
	"fmt"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// Event class names the launcher's test hooks emit.
const (
	// SwitchedToStateMessage marks the end of a state transition.
	SwitchedToStateMessage = "TAPL_SWITCHED_TO_STATE"
	// ResponseMessagePostfix is appended to a request tag to form the
	// class name of the launcher's reply.
	ResponseMessagePostfix = "_response"
)

// Gesture step counts. Each step takes about 5ms.
const (
	swipeSteps = 60
	flingSteps = 10
)

// executeAndWaitForEvent runs command and blocks until the first matching
// event or the wait time. A timeout fails with message.
func (l *Launcher) executeAndWaitForEvent(ctx context.Context, command func(context.Context) error, filter core.EventFilter, message string) (map[string]string, error) {
	ev, err := l.dev.ExecuteAndWaitForEvent(ctx, command, filter, l.waitTime)
	if err != nil {
		if errors.Is(err, core.ErrEventTimeout) {
			return nil, l.fail(ctx, core.ErrEventTimeout.WithMessage(message).WithCause(err))
		}
		return nil, l.fail(ctx, err)
	}
	if ev == nil {
		return nil, l.fail(ctx, core.ErrInvalidState.WithMessage("executeAndWaitForEvent returned no event"))
	}
	return ev.Payload, nil
}

// GetAnswerFromLauncher sends requestTag to the launcher as a fake set-text
// on obj and returns the payload of the launcher's reply.
func (l *Launcher) GetAnswerFromLauncher(ctx context.Context, obj core.Object, requestTag string) (map[string]string, error) {
	responseTag := requestTag + ResponseMessagePostfix
	l.logf("request %s", requestTag)
	return l.executeAndWaitForEvent(ctx,
		func(ctx context.Context) error { return obj.SetText(ctx, requestTag) },
		core.ClassNameIs(responseTag),
		"Launcher didn't respond to request: "+requestTag)
}

// swipe performs a 60-step swipe and waits for the launcher to report the
// end of the resulting state transition.
func (l *Launcher) swipe(ctx context.Context, startX, startY, endX, endY int) error {
	l.logf("swipe (%d, %d) -> (%d, %d)", startX, startY, endX, endY)
	_, err := l.executeAndWaitForEvent(ctx,
		func(ctx context.Context) error { return l.dev.Swipe(ctx, startX, startY, endX, endY, swipeSteps) },
		core.ClassNameIs(SwitchedToStateMessage),
		fmt.Sprintf("Swipe failed to receive an event for the swipe end: %d, %d, %d, %d", startX, startY, endX, endY))
	return err
}

// scrollDirection is the direction content moves; the finger moves the
// opposite way.
type scrollDirection int

const (
	scrollDown scrollDirection = iota
	scrollUp
	scrollLeft
	scrollRight
)

// fling scrolls the content of a container quickly and waits for idle.
// Flings do not change launcher state, so no event is awaited.
func (l *Launcher) fling(ctx context.Context, target core.Object, dir scrollDirection) error {
	b, err := target.Bounds(ctx)
	if err != nil {
		return l.fail(ctx, err)
	}
	cx, cy := b.Center()
	top, bottom := b.Y+b.Height/5, b.Y+b.Height*4/5
	left, right := b.X+b.Width/5, b.X+b.Width*4/5

	var sx, sy, ex, ey int
	switch dir {
	case scrollDown:
		sx, sy, ex, ey = cx, bottom, cx, top
	case scrollUp:
		sx, sy, ex, ey = cx, top, cx, bottom
	case scrollLeft:
		sx, sy, ex, ey = left, cy, right, cy
	case scrollRight:
		sx, sy, ex, ey = right, cy, left, cy
	}

	l.logf("fling (%d, %d) -> (%d, %d)", sx, sy, ex, ey)
	if err := l.dev.Swipe(ctx, sx, sy, ex, ey, flingSteps); err != nil {
		return l.fail(ctx, err)
	}
	return l.WaitForIdle(ctx)
}
