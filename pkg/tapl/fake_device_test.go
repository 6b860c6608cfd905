package tapl

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// fakeDevice is a scripted core.Device. The screen is a set of visible
// element keys; waits resolve immediately against it. Every call is
// appended to calls so tests can check ordering.
type fakeDevice struct {
	harness    bool
	harnessErr error
	setting    int
	settingOK  bool

	visible  map[string]bool
	bounds   map[string]core.Bounds
	children map[string][]string

	// onClick runs when the object with the given key is clicked.
	onClick map[string]func(f *fakeDevice)
	// onSwipe runs after every swipe.
	onSwipe func(f *fakeDevice)
	// afterCommand runs after the command passed to ExecuteAndWaitForEvent.
	afterCommand func(f *fakeDevice)
	events       []core.Event

	calls     []string
	selectors []core.Selector
}

func newFakeDevice(visible ...string) *fakeDevice {
	f := &fakeDevice{
		harness:  true,
		visible:  map[string]bool{},
		bounds:   map[string]core.Bounds{},
		children: map[string][]string{},
		onClick:  map[string]func(*fakeDevice){},
	}
	f.show(visible...)
	return f
}

func (f *fakeDevice) show(keys ...string) {
	for _, k := range keys {
		f.visible[k] = true
	}
}

// screen replaces the visible set.
func (f *fakeDevice) screen(keys ...string) {
	f.visible = map[string]bool{}
	f.show(keys...)
}

func selectorKey(sel core.Selector) string {
	switch {
	case sel.ResourceID != "":
		return sel.ResourceID
	case sel.Desc != "":
		return "desc:" + sel.Desc
	case sel.Text != "":
		return "text:" + sel.Text
	default:
		return "pkg:" + sel.Package
	}
}

func (f *fakeDevice) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDevice) object(key string) core.Object {
	return &fakeObject{f: f, key: key}
}

func (f *fakeDevice) FindObject(_ context.Context, sel core.Selector) (core.Object, error) {
	key := selectorKey(sel)
	f.selectors = append(f.selectors, sel)
	f.record("find:%s", key)
	if !f.visible[key] {
		return nil, nil
	}
	return f.object(key), nil
}

func (f *fakeDevice) WaitForObject(_ context.Context, sel core.Selector, _ time.Duration) (core.Object, error) {
	key := selectorKey(sel)
	f.selectors = append(f.selectors, sel)
	f.record("wait:%s", key)
	if !f.visible[key] {
		return nil, nil
	}
	return f.object(key), nil
}

func (f *fakeDevice) WaitUntilGone(_ context.Context, sel core.Selector, _ time.Duration) (bool, error) {
	key := selectorKey(sel)
	f.selectors = append(f.selectors, sel)
	f.record("gone:%s", key)
	return !f.visible[key], nil
}

func (f *fakeDevice) Swipe(_ context.Context, startX, startY, endX, endY, steps int) error {
	f.record("swipe:%d,%d->%d,%d/%d", startX, startY, endX, endY, steps)
	if f.onSwipe != nil {
		f.onSwipe(f)
	}
	return nil
}

func (f *fakeDevice) WaitForIdle(context.Context) error {
	f.record("idle")
	return nil
}

// ExecuteAndWaitForEvent runs command, then returns the first scripted
// event accepted by filter. With none, it blocks for timeout like a real
// host would.
func (f *fakeDevice) ExecuteAndWaitForEvent(ctx context.Context, command func(context.Context) error, filter core.EventFilter, timeout time.Duration) (*core.Event, error) {
	f.record("execute")
	if err := command(ctx); err != nil {
		return nil, err
	}
	if f.afterCommand != nil {
		f.afterCommand(f)
	}
	for i, ev := range f.events {
		if filter(ev) {
			f.events = append(f.events[:i], f.events[i+1:]...)
			f.record("event:%s", ev.ClassName)
			return &ev, nil
		}
	}
	select {
	case <-time.After(timeout):
		return nil, core.ErrEventTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeDevice) SecureSetting(_ context.Context, name string) (int, bool, error) {
	f.record("setting:%s", name)
	return f.setting, f.settingOK, nil
}

func (f *fakeDevice) IsRunningInTestHarness(context.Context) (bool, error) {
	return f.harness, f.harnessErr
}

type fakeObject struct {
	f   *fakeDevice
	key string
}

func (o *fakeObject) Click(context.Context) error {
	o.f.record("click:%s", o.key)
	if fn := o.f.onClick[o.key]; fn != nil {
		fn(o.f)
	}
	return nil
}

func (o *fakeObject) SetText(_ context.Context, text string) error {
	o.f.record("settext:%s=%s", o.key, text)
	return nil
}

func (o *fakeObject) ResourceName(context.Context) (string, error) {
	return o.key, nil
}

func (o *fakeObject) Bounds(context.Context) (core.Bounds, error) {
	if b, ok := o.f.bounds[o.key]; ok {
		return b, nil
	}
	return core.Bounds{X: 0, Y: 0, Width: 1080, Height: 2400}, nil
}

func (o *fakeObject) FindObject(ctx context.Context, sel core.Selector) (core.Object, error) {
	return o.f.FindObject(ctx, sel)
}

func (o *fakeObject) FindObjects(_ context.Context, sel core.Selector) ([]core.Object, error) {
	key := selectorKey(sel)
	o.f.record("findall:%s", key)
	var out []core.Object
	for _, child := range o.f.children[key] {
		out = append(out, o.f.object(child))
	}
	return out, nil
}

func (o *fakeObject) WaitForObject(ctx context.Context, sel core.Selector, timeout time.Duration) (core.Object, error) {
	return o.f.WaitForObject(ctx, sel, timeout)
}

// fakeCollector returns fixed artifact bytes.
type fakeCollector struct{}

func (fakeCollector) CaptureScreenshot() ([]byte, error) { return []byte("png"), nil }
func (fakeCollector) CaptureHierarchy() ([]byte, error)  { return []byte("<hierarchy/>"), nil }
