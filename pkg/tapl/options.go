package tapl

import (
	"time"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
)

// Option configures a Launcher.
type Option func(*Launcher)

// WithLauncherPackage sets the package of the launcher under test.
func WithLauncherPackage(pkg string) Option {
	return func(l *Launcher) {
		if pkg != "" {
			l.launcherPkg = pkg
		}
	}
}

// WithSystemUIPackage sets the package owning the navigation bar.
func WithSystemUIPackage(pkg string) Option {
	return func(l *Launcher) {
		if pkg != "" {
			l.systemUIPkg = pkg
		}
	}
}

// WithWaitTime bounds every wait for an element or event.
func WithWaitTime(d time.Duration) Option {
	return func(l *Launcher) {
		if d > 0 {
			l.waitTime = d
		}
	}
}

// WithSwipeUpDefault sets the navigation mode assumed when the device has
// no swipe-up setting stored.
func WithSwipeUpDefault(enabled bool) Option {
	return func(l *Launcher) {
		l.swipeUpDefault = enabled
	}
}

// WithLegacyOverviewCheck makes overview verification first wait for the
// apps panel to appear, as older launcher builds required.
func WithLegacyOverviewCheck(enabled bool) Option {
	return func(l *Launcher) {
		l.legacyOverviewCheck = enabled
	}
}

// WithArtifacts saves a screenshot and UI hierarchy into dir on failures.
func WithArtifacts(dir string, collector core.ArtifactCollector) Option {
	return func(l *Launcher) {
		l.artifactsDir = dir
		l.collector = collector
	}
}
