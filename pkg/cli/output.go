package cli

import (
	"fmt"
	"os"
	"sort"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printSetupStep prints a setup step in progress.
// Setup output goes to stderr so stdout carries only command results.
func printSetupStep(msg string) {
	fmt.Fprintf(os.Stderr, "  %s⏳%s %s\n", color(colorCyan), color(colorReset), msg)
}

// printSetupSuccess prints a success message for setup
func printSetupSuccess(msg string) {
	fmt.Fprintf(os.Stderr, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

func printWarning(msg string) {
	fmt.Fprintf(os.Stderr, "  %s⚠%s Warning: %s\n", color(colorYellow), color(colorReset), msg)
}

// formatPayload renders an event payload as sorted key=value lines.
func formatPayload(payload map[string]string) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+payload[k])
	}
	return lines
}
