package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "TAPL_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the launcher-tapl home directory.
//
// Resolution order:
//  1. $TAPL_HOME environment variable
//  2. Parent of the binary's directory (if binary is in <home>/bin/)
//  3. Current working directory (development fallback)
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetArtifactsDir returns <home>/artifacts.
func GetArtifactsDir() string {
	return filepath.Join(GetHome(), "artifacts")
}

// GetDriversDir returns <home>/drivers/<platform>.
// The UiAutomator2 server APKs live in GetDriversDir("android").
func GetDriversDir(platform string) string {
	return filepath.Join(GetHome(), "drivers", platform)
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// Binary-relative: if binary is at <home>/bin/tapl, use <home>
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
