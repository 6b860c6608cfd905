// Package core provides the host-boundary types and failure model for launcher-tapl.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Selector identifies a UI element. Fields are combined with AND; empty
// fields are ignored.
type Selector struct {
	Package    string // Package of the owning app
	ResourceID string // Short resource id, without the "<pkg>:id/" prefix
	Desc       string // Content description
	Text       string // Exact text
}

// Res selects by package and resource id.
func Res(pkg, resourceID string) Selector {
	return Selector{Package: pkg, ResourceID: resourceID}
}

// Desc selects by content description.
func Desc(desc string) Selector {
	return Selector{Desc: desc}
}

// Pkg selects any element belonging to pkg.
func Pkg(pkg string) Selector {
	return Selector{Package: pkg}
}

// FullResourceName returns "<pkg>:id/<resourceID>", or the bare id when no
// package is set.
func (s Selector) FullResourceName() string {
	if s.ResourceID == "" {
		return ""
	}
	if s.Package == "" {
		return s.ResourceID
	}
	return s.Package + ":id/" + s.ResourceID
}

// Describe returns a human-readable description of the selector.
func (s Selector) Describe() string {
	var parts []string
	if s.ResourceID != "" {
		parts = append(parts, "id="+s.FullResourceName())
	} else if s.Package != "" {
		parts = append(parts, "pkg="+s.Package)
	}
	if s.Desc != "" {
		parts = append(parts, fmt.Sprintf("desc=%q", s.Desc))
	}
	if s.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", s.Text))
	}
	if len(parts) == 0 {
		return "<any>"
	}
	return strings.Join(parts, ", ")
}

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Event is a host-delivered notification, used as a completion signal.
type Event struct {
	ClassName string            `json:"className"`
	Payload   map[string]string `json:"payload,omitempty"`
	Time      time.Time         `json:"time"`
}

// EventFilter decides whether an event completes a pending command.
type EventFilter func(Event) bool

// AnyEvent accepts every event.
func AnyEvent(Event) bool { return true }

// ClassNameIs accepts events with the given class name.
func ClassNameIs(name string) EventFilter {
	return func(e Event) bool { return e.ClassName == name }
}

// Object is a live UI element returned by a Device.
type Object interface {
	Click(ctx context.Context) error
	SetText(ctx context.Context, text string) error
	ResourceName(ctx context.Context) (string, error)
	Bounds(ctx context.Context) (Bounds, error)

	// FindObject looks for a descendant once; (nil, nil) when absent.
	FindObject(ctx context.Context, sel Selector) (Object, error)
	// FindObjects returns every matching descendant.
	FindObjects(ctx context.Context, sel Selector) ([]Object, error)
	// WaitForObject polls for a descendant; (nil, nil) on timeout.
	WaitForObject(ctx context.Context, sel Selector, timeout time.Duration) (Object, error)
}

// Device is the host UI-query and input-injection service.
// Implemented by automator.Device. Allows faking in tests.
type Device interface {
	// FindObject queries once; (nil, nil) when absent.
	FindObject(ctx context.Context, sel Selector) (Object, error)
	// WaitForObject polls until a match appears; (nil, nil) on timeout.
	WaitForObject(ctx context.Context, sel Selector, timeout time.Duration) (Object, error)
	// WaitUntilGone polls until no match exists; false on timeout.
	WaitUntilGone(ctx context.Context, sel Selector, timeout time.Duration) (bool, error)

	// Swipe injects a straight swipe; each step takes about 5ms.
	Swipe(ctx context.Context, startX, startY, endX, endY, steps int) error
	// WaitForIdle blocks until the UI tree stops changing.
	WaitForIdle(ctx context.Context) error

	// ExecuteAndWaitForEvent runs command and returns the first event
	// accepted by filter. Returns ErrEventTimeout when none arrives in time.
	ExecuteAndWaitForEvent(ctx context.Context, command func(context.Context) error, filter EventFilter, timeout time.Duration) (*Event, error)

	// SecureSetting reads an integer secure setting; ok is false when unset.
	SecureSetting(ctx context.Context, name string) (value int, ok bool, err error)
	// IsRunningInTestHarness reports whether the device is a test harness.
	IsRunningInTestHarness(ctx context.Context) (bool, error)
}
