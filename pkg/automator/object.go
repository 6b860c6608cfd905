package automator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/uiautomator2"
)

// object is a core.Object backed by a UIAutomator2 element id.
type object struct {
	dev  *Device
	elem *uiautomator2.Element
}

func (o *object) Click(ctx context.Context) error {
	if err := o.elem.Click(ctx); err != nil {
		return wrapElementErr(err)
	}
	return nil
}

func (o *object) SetText(ctx context.Context, text string) error {
	if err := o.elem.SetText(ctx, text); err != nil {
		return wrapElementErr(err)
	}
	return nil
}

func (o *object) ResourceName(ctx context.Context) (string, error) {
	name, err := o.elem.Attribute(ctx, "resource-id")
	if err != nil {
		return "", wrapElementErr(err)
	}
	return name, nil
}

func (o *object) Bounds(ctx context.Context) (core.Bounds, error) {
	r, err := o.elem.Rect(ctx)
	if err != nil {
		return core.Bounds{}, wrapElementErr(err)
	}
	return core.Bounds{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

func (o *object) FindObject(ctx context.Context, sel core.Selector) (core.Object, error) {
	return o.dev.find(ctx, sel, o.elem.ID())
}

func (o *object) FindObjects(ctx context.Context, sel core.Selector) ([]core.Object, error) {
	strategy, value := selectorStrategy(sel)
	elems, err := o.dev.client.FindElementsWithContext(ctx, strategy, value, o.elem.ID())
	if err != nil {
		return nil, wrapElementErr(err)
	}
	objs := make([]core.Object, len(elems))
	for i, e := range elems {
		objs[i] = &object{dev: o.dev, elem: e}
	}
	return objs, nil
}

func (o *object) WaitForObject(ctx context.Context, sel core.Selector, timeout time.Duration) (core.Object, error) {
	return o.dev.waitFor(ctx, sel, o.elem.ID(), timeout)
}

func wrapElementErr(err error) error {
	if uiautomator2.IsNoSuchElement(err) {
		return core.ErrElementNotFound.WithCause(err)
	}
	return core.ErrServerUnreachable.WithCause(err)
}

// selectorStrategy maps a selector to a UIAutomator2 locator strategy.
// Single-field selectors use the native id and accessibility id strategies;
// anything else becomes a UiSelector expression.
func selectorStrategy(sel core.Selector) (string, string) {
	switch {
	case sel.ResourceID != "" && sel.Desc == "" && sel.Text == "":
		return uiautomator2.StrategyID, sel.FullResourceName()
	case sel.Desc != "" && sel.ResourceID == "" && sel.Text == "" && sel.Package == "":
		return uiautomator2.StrategyAccessibilityID, sel.Desc
	}
	return uiautomator2.StrategyUIAutomator, uiSelector(sel)
}

func uiSelector(sel core.Selector) string {
	var b strings.Builder
	b.WriteString("new UiSelector()")
	if sel.ResourceID != "" {
		b.WriteString(".resourceId(" + strconv.Quote(sel.FullResourceName()) + ")")
	} else if sel.Package != "" {
		b.WriteString(".packageName(" + strconv.Quote(sel.Package) + ")")
	}
	if sel.Desc != "" {
		b.WriteString(".description(" + strconv.Quote(sel.Desc) + ")")
	}
	if sel.Text != "" {
		b.WriteString(".text(" + strconv.Quote(sel.Text) + ")")
	}
	return b.String()
}
