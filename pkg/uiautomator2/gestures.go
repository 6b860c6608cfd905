package uiautomator2

import (
	"context"
	"time"
)

// StepDuration is how long one swipe step takes, matching UiDevice.swipe.
const StepDuration = 5 * time.Millisecond

// Swipe performs a straight touch swipe from (startX, startY) to (endX, endY)
// over the given number of steps.
func (c *Client) Swipe(ctx context.Context, startX, startY, endX, endY, steps int) error {
	if steps < 1 {
		steps = 1
	}
	duration := time.Duration(steps) * StepDuration

	req := ActionsRequest{Actions: []ActionSequence{{
		Type:       "pointer",
		ID:         "finger1",
		Parameters: &PointerParameters{PointerType: "touch"},
		Actions: []Action{
			{Type: "pointerMove", X: startX, Y: startY, Origin: "viewport"},
			{Type: "pointerDown"},
			{Type: "pointerMove", X: endX, Y: endY, Origin: "viewport", Duration: int(duration.Milliseconds())},
			{Type: "pointerUp"},
		},
	}}}
	_, err := c.request(ctx, "POST", c.sessionPath("/actions"), req)
	return err
}
