// Package automator implements core.Device on top of a UIAutomator2 server
// and an ADB connection.
package automator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
	"github.com/devicelab-dev/launcher-tapl/pkg/uiautomator2"
)

// UIA2Client defines the UIAutomator2 operations the automator needs.
// Implemented by uiautomator2.Client. Allows mocking in tests.
type UIA2Client interface {
	FindElement(ctx context.Context, strategy, selector string) (*uiautomator2.Element, error)
	FindElementWithContext(ctx context.Context, strategy, selector, contextID string) (*uiautomator2.Element, error)
	FindElementsWithContext(ctx context.Context, strategy, selector, contextID string) ([]*uiautomator2.Element, error)

	Swipe(ctx context.Context, startX, startY, endX, endY, steps int) error

	Source(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// ShellExecutor reads device state over ADB.
// Implemented by device.AndroidDevice.
type ShellExecutor interface {
	SecureSetting(ctx context.Context, name string) (int, bool, error)
	IsTestHarness(ctx context.Context) (bool, error)
}

// EventSource delivers launcher events logged after Subscribe is called.
// After the channel closes, wait returns why the stream ended (nil when ctx
// was cancelled). Implemented by device.EventSource.
type EventSource interface {
	Subscribe(ctx context.Context) (events <-chan core.Event, wait func() error, err error)
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultIdleTimeout  = 10 * time.Second
	captureTimeout      = 10 * time.Second
)

var errNotYet = errors.New("condition not met")

// Device implements core.Device.
type Device struct {
	client UIA2Client
	shell  ShellExecutor
	events EventSource

	pollInterval time.Duration
	idleTimeout  time.Duration
}

var _ core.Device = (*Device)(nil)

// New creates a Device. events may be nil when no command waits on events.
func New(client UIA2Client, shell ShellExecutor, events EventSource) *Device {
	return &Device{
		client:       client,
		shell:        shell,
		events:       events,
		pollInterval: defaultPollInterval,
		idleTimeout:  defaultIdleTimeout,
	}
}

// SetPollInterval sets the delay between UI tree queries while waiting.
func (d *Device) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		d.pollInterval = interval
	}
}

// SetIdleTimeout bounds WaitForIdle.
func (d *Device) SetIdleTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.idleTimeout = timeout
	}
}

// FindObject queries the UI tree once.
func (d *Device) FindObject(ctx context.Context, sel core.Selector) (core.Object, error) {
	return d.find(ctx, sel, "")
}

// WaitForObject polls until sel matches or timeout elapses.
func (d *Device) WaitForObject(ctx context.Context, sel core.Selector, timeout time.Duration) (core.Object, error) {
	return d.waitFor(ctx, sel, "", timeout)
}

// WaitUntilGone polls until sel no longer matches.
func (d *Device) WaitUntilGone(ctx context.Context, sel core.Selector, timeout time.Duration) (bool, error) {
	return d.poll(ctx, timeout, func() (bool, error) {
		obj, err := d.find(ctx, sel, "")
		if err != nil {
			return false, err
		}
		return obj == nil, nil
	})
}

// Swipe injects a straight swipe through the UIAutomator2 actions API.
func (d *Device) Swipe(ctx context.Context, startX, startY, endX, endY, steps int) error {
	if err := d.client.Swipe(ctx, startX, startY, endX, endY, steps); err != nil {
		return core.ErrServerUnreachable.WithCause(err)
	}
	return nil
}

// WaitForIdle returns once two consecutive hierarchy snapshots match, or
// after the idle timeout.
func (d *Device) WaitForIdle(ctx context.Context) error {
	var last string
	first := true
	settled, err := d.poll(ctx, d.idleTimeout, func() (bool, error) {
		src, err := d.client.Source(ctx)
		if err != nil {
			return false, err
		}
		if !first && src == last {
			return true, nil
		}
		first = false
		last = src
		return false, nil
	})
	if err != nil {
		return core.ErrServerUnreachable.WithCause(err)
	}
	if !settled {
		logger.Warn("UI did not settle within %v", d.idleTimeout)
	}
	return nil
}

// ExecuteAndWaitForEvent subscribes to the event stream, runs command, and
// returns the first event accepted by filter.
func (d *Device) ExecuteAndWaitForEvent(ctx context.Context, command func(context.Context) error, filter core.EventFilter, timeout time.Duration) (*core.Event, error) {
	if d.events == nil {
		return nil, core.ErrInvalidConfig.WithMessage("no event source configured")
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, streamErr, err := d.events.Subscribe(subCtx)
	if err != nil {
		return nil, core.ErrDeviceDisconnected.WithCause(err)
	}

	var found *core.Event
	g, gctx := errgroup.WithContext(subCtx)
	g.Go(func() error {
		return command(gctx)
	})
	g.Go(func() error {
		ev, err := awaitEvent(gctx, events, streamErr, filter, timeout)
		found = ev
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return found, nil
}

// awaitEvent returns the first event accepted by filter. A stream that ends
// before the timeout is a lost connection, not a timeout.
func awaitEvent(ctx context.Context, events <-chan core.Event, streamErr func() error, filter core.EventFilter, timeout time.Duration) (*core.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				var cause error
				if streamErr != nil {
					cause = streamErr()
				}
				if cause == nil {
					cause = errors.New("event stream closed")
				}
				return nil, core.ErrDeviceDisconnected.WithMessage("event stream ended before a matching event").WithCause(cause)
			}
			logger.Debug("event: %s %v", ev.ClassName, ev.Payload)
			if filter(ev) {
				return &ev, nil
			}
		case <-timer.C:
			return nil, core.ErrEventTimeout.WithMessagef("no matching event within %v", timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// SecureSetting reads an integer secure setting.
func (d *Device) SecureSetting(ctx context.Context, name string) (int, bool, error) {
	v, ok, err := d.shell.SecureSetting(ctx, name)
	if err != nil {
		return 0, false, core.ErrDeviceDisconnected.WithCause(err)
	}
	return v, ok, nil
}

// IsRunningInTestHarness reports whether ro.test_harness is set.
func (d *Device) IsRunningInTestHarness(ctx context.Context) (bool, error) {
	ok, err := d.shell.IsTestHarness(ctx)
	if err != nil {
		return false, core.ErrDeviceDisconnected.WithCause(err)
	}
	return ok, nil
}

// CaptureScreenshot implements core.ArtifactCollector.
func (d *Device) CaptureScreenshot() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()
	return d.client.Screenshot(ctx)
}

// CaptureHierarchy implements core.ArtifactCollector.
func (d *Device) CaptureHierarchy() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()
	src, err := d.client.Source(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(src), nil
}

// find runs one query, scoped to parentID when set. Absence is (nil, nil).
func (d *Device) find(ctx context.Context, sel core.Selector, parentID string) (core.Object, error) {
	strategy, value := selectorStrategy(sel)

	var elem *uiautomator2.Element
	var err error
	if parentID == "" {
		elem, err = d.client.FindElement(ctx, strategy, value)
	} else {
		elem, err = d.client.FindElementWithContext(ctx, strategy, value, parentID)
	}
	if err != nil {
		if uiautomator2.IsNoSuchElement(err) {
			return nil, nil
		}
		return nil, core.ErrServerUnreachable.WithCause(fmt.Errorf("find %s: %w", sel.Describe(), err))
	}
	return &object{dev: d, elem: elem}, nil
}

func (d *Device) waitFor(ctx context.Context, sel core.Selector, parentID string, timeout time.Duration) (core.Object, error) {
	var found core.Object
	_, err := d.poll(ctx, timeout, func() (bool, error) {
		obj, err := d.find(ctx, sel, parentID)
		if err != nil {
			return false, err
		}
		found = obj
		return obj != nil, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// poll calls check until it reports true, returns an error, or timeout
// elapses. Timeout yields (false, nil); a cancelled ctx yields ctx.Err().
// check always runs at least once.
func (d *Device) poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(d.pollInterval), waitCtx)
	err := backoff.Retry(func() error {
		ok, err := check()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotYet
		}
		return nil
	}, b)

	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, errNotYet), errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, err
	}
}
