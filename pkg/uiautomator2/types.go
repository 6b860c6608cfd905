// Package uiautomator2 provides HTTP client for UIAutomator2 server.
package uiautomator2

// Response is the standard UIAutomator2 response format.
type Response struct {
	SessionID string      `json:"sessionId"`
	Value     interface{} `json:"value"`
}

// ErrorValue represents an error from UIAutomator2.
type ErrorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Capabilities for session creation.
type Capabilities struct {
	PlatformName string `json:"platformName,omitempty"`
	DeviceName   string `json:"deviceName,omitempty"`
}

// SessionRequest for creating a session.
type SessionRequest struct {
	Capabilities Capabilities `json:"capabilities"`
}

// FindElementRequest for finding elements.
type FindElementRequest struct {
	Strategy string `json:"strategy"`
	Selector string `json:"selector"`
	Context  string `json:"context,omitempty"`
}

// InputTextRequest for setting text.
type InputTextRequest struct {
	Text string `json:"text"`
}

// ElementRect represents element bounds from /element/{id}/rect API.
type ElementRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SettingsRequest for updating settings.
type SettingsRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

// ActionsRequest is a W3C actions payload.
type ActionsRequest struct {
	Actions []ActionSequence `json:"actions"`
}

// ActionSequence is one input source with its ticks.
type ActionSequence struct {
	Type       string             `json:"type"` // pointer
	ID         string             `json:"id"`
	Parameters *PointerParameters `json:"parameters,omitempty"`
	Actions    []Action           `json:"actions"`
}

// PointerParameters selects the pointer kind.
type PointerParameters struct {
	PointerType string `json:"pointerType"` // touch
}

// Action is a single W3C input tick.
type Action struct {
	Type     string `json:"type"` // pointerMove, pointerDown, pointerUp, pause
	Duration int    `json:"duration,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Button   int    `json:"button"`
	Origin   string `json:"origin,omitempty"`
}

// Locator strategies.
const (
	StrategyID              = "id"
	StrategyAccessibilityID = "accessibility id"
	StrategyXPath           = "xpath"
	StrategyUIAutomator     = "-android uiautomator"
)
