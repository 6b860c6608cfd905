package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
	"github.com/devicelab-dev/launcher-tapl/pkg/uiautomator2"
)

// UiAutomator2 server packages.
const (
	UIAutomator2Server = "io.appium.uiautomator2.server"
	UIAutomator2Test   = "io.appium.uiautomator2.server.test"
)

// Local TCP ports tried when no port is configured and sockets are
// unavailable.
const (
	portRangeStart = 6001
	portRangeEnd   = 7001
)

const (
	readyPollInterval  = 500 * time.Millisecond
	healthCheckTimeout = 2 * time.Second
	forceStopSettle    = 300 * time.Millisecond
)

// UIAutomator2Config describes how to reach the on-device server.
type UIAutomator2Config struct {
	// SocketPath is the local unix socket forwarded to DevicePort.
	// Empty means /tmp/uia2-<serial>.sock.
	SocketPath string
	// LocalPort selects TCP forwarding on this port instead of a socket.
	// Zero means a socket, or a free port on Windows.
	LocalPort  int
	DevicePort int
	// Timeout bounds the wait for a freshly started server.
	Timeout time.Duration
	// APKDir holds the server APKs installed by InstallUIAutomator2.
	APKDir string
}

// DefaultUIAutomator2Config returns default configuration.
func DefaultUIAutomator2Config() UIAutomator2Config {
	return UIAutomator2Config{
		DevicePort: 6790,
		Timeout:    30 * time.Second,
	}
}

// useTCP reports whether the server should be reached over a TCP forward.
func (c UIAutomator2Config) useTCP() bool {
	return c.LocalPort != 0 || runtime.GOOS == "windows"
}

// StartUIAutomator2 forwards the server port and makes sure a server is
// answering behind it. A server already answering is reused; otherwise the
// instrumentation is restarted and awaited for cfg.Timeout.
func (d *AndroidDevice) StartUIAutomator2(ctx context.Context, cfg UIAutomator2Config) error {
	for _, pkg := range []string{UIAutomator2Server, UIAutomator2Test} {
		if !d.IsInstalled(ctx, pkg) {
			return fmt.Errorf("UIAutomator2 package not installed: %s", pkg)
		}
	}

	if err := d.forwardServer(ctx, cfg); err != nil {
		return err
	}
	if d.IsUIAutomator2Running(ctx) {
		logger.Info("UIAutomator2 server already running on %s", d.endpoint())
		return nil
	}

	if err := d.forceStopServer(ctx); err != nil {
		logger.Warn("force-stop UIAutomator2: %v", err)
	}

	// nohup with output to /dev/null keeps the instrumentation alive after adb returns
	instrumentCmd := fmt.Sprintf(
		"nohup am instrument -w -e disableAnalytics true "+
			"%s/androidx.test.runner.AndroidJUnitRunner "+
			"> /dev/null 2>&1 &",
		UIAutomator2Test,
	)
	if _, err := d.ShellContext(ctx, instrumentCmd); err != nil {
		return fmt.Errorf("start instrumentation: %w", err)
	}

	if err := d.waitForUIAutomator2Ready(ctx, cfg.Timeout); err != nil {
		if stopErr := d.StopUIAutomator2(context.WithoutCancel(ctx)); stopErr != nil {
			logger.Warn("stop UIAutomator2 after failed start: %v", stopErr)
		}
		return err
	}
	return nil
}

// forwardServer sets up the socket or TCP forward chosen by cfg.
func (d *AndroidDevice) forwardServer(ctx context.Context, cfg UIAutomator2Config) error {
	if cfg.useTCP() {
		localPort := cfg.LocalPort
		if localPort == 0 {
			port, err := findFreePort(portRangeStart, portRangeEnd)
			if err != nil {
				return err
			}
			localPort = port
		}
		if err := d.Forward(ctx, localPort, cfg.DevicePort); err != nil {
			return fmt.Errorf("port forward failed: %w", err)
		}
		d.localPort = localPort
		return nil
	}

	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = d.DefaultSocketPath()
	}
	os.Remove(socketPath)
	if err := d.ForwardSocket(ctx, socketPath, cfg.DevicePort); err != nil {
		return fmt.Errorf("socket forward failed: %w", err)
	}
	d.socketPath = socketPath
	return nil
}

func (d *AndroidDevice) endpoint() string {
	if d.socketPath != "" {
		return d.socketPath
	}
	return fmt.Sprintf("tcp:%d", d.localPort)
}

// findFreePort finds a free TCP port in the given range.
func findFreePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port found in range %d-%d", start, end)
}

// forceStopServer kills both server packages and gives them time to exit.
func (d *AndroidDevice) forceStopServer(ctx context.Context) error {
	var errs []error
	for _, pkg := range []string{UIAutomator2Server, UIAutomator2Test} {
		if _, err := d.ShellContext(ctx, "am force-stop "+pkg); err != nil {
			errs = append(errs, err)
		}
	}

	select {
	case <-time.After(forceStopSettle):
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// StopUIAutomator2 stops the server and removes the forward this device
// set up. Failures are joined; cleanup continues past each one.
func (d *AndroidDevice) StopUIAutomator2(ctx context.Context) error {
	errs := []error{d.forceStopServer(ctx)}

	if d.socketPath != "" {
		if err := d.RemoveSocketForward(ctx, d.socketPath); err != nil {
			errs = append(errs, fmt.Errorf("remove socket forward: %w", err))
		}
		if err := os.Remove(d.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		d.socketPath = ""
	}
	if d.localPort != 0 {
		if err := d.RemoveForward(ctx, d.localPort); err != nil {
			errs = append(errs, fmt.Errorf("remove port forward: %w", err))
		}
		d.localPort = 0
	}
	return errors.Join(errs...)
}

// IsUIAutomator2Running reports whether a server answers ready through the
// current forward.
func (d *AndroidDevice) IsUIAutomator2Running(ctx context.Context) bool {
	var client *uiautomator2.Client
	switch {
	case d.socketPath != "":
		client = uiautomator2.NewClient(d.socketPath)
	case d.localPort != 0:
		client = uiautomator2.NewClientTCP(d.localPort)
	default:
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	ready, err := client.Status(checkCtx)
	return err == nil && ready
}

// waitForUIAutomator2Ready polls the status endpoint until it answers.
func (d *AndroidDevice) waitForUIAutomator2Ready(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := backoff.Retry(func() error {
		if d.IsUIAutomator2Running(waitCtx) {
			return nil
		}
		return errors.New("not ready")
	}, backoff.WithContext(backoff.NewConstantBackOff(readyPollInterval), waitCtx))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("UIAutomator2 server not ready after %v", timeout)
	}
	return nil
}

// InstallUIAutomator2 installs whichever server APKs are missing from
// apksDir.
func (d *AndroidDevice) InstallUIAutomator2(ctx context.Context, apksDir string) error {
	apks := []struct {
		pkg     string
		pattern string
	}{
		{UIAutomator2Server, "appium-uiautomator2-server-v*.apk"},
		{UIAutomator2Test, "appium-uiautomator2-server-debug-androidTest.apk"},
	}

	for _, apk := range apks {
		if d.IsInstalled(ctx, apk.pkg) {
			continue
		}
		apkPath, err := findAPK(apksDir, apk.pattern)
		if err != nil {
			return fmt.Errorf("find APK for %s: %w", apk.pkg, err)
		}
		logger.Info("Installing %s from %s", apk.pkg, apkPath)
		if err := d.Install(ctx, apkPath); err != nil {
			return fmt.Errorf("install %s: %w", apk.pkg, err)
		}
	}
	return nil
}

// findAPK returns the first file in dir matching pattern.
func findAPK(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no APK found matching %s in %s", pattern, dir)
	}
	return matches[0], nil
}
