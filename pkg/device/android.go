// Package device provides Android device management via ADB.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
)

const (
	deviceWaitTimeout  = 5 * time.Second
	devicePollInterval = 500 * time.Millisecond
)

var errNotConnected = errors.New("device not connected")

// adbRunner executes one adb invocation and returns stdout.
type adbRunner func(ctx context.Context, args ...string) (string, error)

// AndroidDevice manages an Android device connection via ADB.
type AndroidDevice struct {
	serial     string
	adbPath    string
	socketPath string // Unix socket path for UIAutomator2 (Linux/Mac)
	localPort  int    // TCP port for UIAutomator2 (Windows)
	run        adbRunner
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial      string
	Model       string
	SDK         string
	Brand       string
	IsEmulator  bool
	TestHarness bool
}

// ConnectedDevice is one line of `adb devices`.
type ConnectedDevice struct {
	Serial string
	State  string // device, unauthorized, offline
}

// New creates an AndroidDevice for the given serial.
// If serial is empty, it auto-detects the connected device.
func New(ctx context.Context, serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	if serial == "" {
		serial, err = detectDeviceSerial(ctx, adbPath)
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
	}

	d := newDevice(serial, adbPath)

	if err := d.waitForDevice(ctx, deviceWaitTimeout); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}

	return d, nil
}

func newDevice(serial, adbPath string) *AndroidDevice {
	d := &AndroidDevice{serial: serial, adbPath: adbPath}
	d.run = d.execADB
	return d
}

// ListDevices returns every device known to the adb server.
func ListDevices(ctx context.Context) ([]ConnectedDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	out, err := exec.CommandContext(ctx, adbPath, "devices").Output()
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return parseDevices(string(out)), nil
}

func parseDevices(out string) []ConnectedDevice {
	var devices []ConnectedDevice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, ConnectedDevice{Serial: parts[0], State: parts[1]})
		}
	}
	return devices
}

// detectDeviceSerial finds the first connected device serial.
func detectDeviceSerial(ctx context.Context, adbPath string) (string, error) {
	out, err := exec.CommandContext(ctx, adbPath, "devices").Output()
	if err != nil {
		return "", err
	}
	for _, d := range parseDevices(string(out)) {
		if d.State == "device" {
			return d.Serial, nil
		}
	}
	return "", fmt.Errorf("no connected devices found")
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// ShellContext executes a shell command on the device, bounded by ctx.
func (d *AndroidDevice) ShellContext(ctx context.Context, cmd string) (string, error) {
	return d.run(ctx, "shell", cmd)
}

// Install installs an APK on the device, granting its runtime permissions.
func (d *AndroidDevice) Install(ctx context.Context, apkPath string) error {
	_, err := d.run(ctx, "install", "-r", "-g", apkPath)
	return err
}

// IsInstalled checks if a package is installed.
func (d *AndroidDevice) IsInstalled(ctx context.Context, pkg string) bool {
	out, err := d.ShellContext(ctx, "pm list packages "+pkg)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true
		}
	}
	return false
}

// GetProp reads a system property.
func (d *AndroidDevice) GetProp(ctx context.Context, name string) (string, error) {
	out, err := d.ShellContext(ctx, "getprop "+name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsTestHarness reports whether the device runs in a test harness
// (ro.test_harness=1, as set by automated lab images).
func (d *AndroidDevice) IsTestHarness(ctx context.Context) (bool, error) {
	v, err := d.GetProp(ctx, "ro.test_harness")
	if err != nil {
		return false, fmt.Errorf("read ro.test_harness: %w", err)
	}
	return v == "1", nil
}

// SecureSetting reads an integer from the secure settings table.
// ok is false when the setting is unset or not an integer, so callers fall
// back to their default.
func (d *AndroidDevice) SecureSetting(ctx context.Context, name string) (int, bool, error) {
	out, err := d.ShellContext(ctx, "settings get secure "+name)
	if err != nil {
		return 0, false, fmt.Errorf("read secure setting %s: %w", name, err)
	}
	v := strings.TrimSpace(out)
	if v == "" || v == "null" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("secure setting %s is not an integer: %q", name, v)
		return 0, false, nil
	}
	return n, true, nil
}

// PutSecureSetting writes an integer to the secure settings table.
func (d *AndroidDevice) PutSecureSetting(ctx context.Context, name string, value int) error {
	_, err := d.ShellContext(ctx, fmt.Sprintf("settings put secure %s %d", name, value))
	return err
}

// Forward creates a port forward from local to device.
func (d *AndroidDevice) Forward(ctx context.Context, localPort, remotePort int) error {
	_, err := d.run(ctx, "forward", fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// RemoveForward removes a port forward.
func (d *AndroidDevice) RemoveForward(ctx context.Context, localPort int) error {
	_, err := d.run(ctx, "forward", "--remove", fmt.Sprintf("tcp:%d", localPort))
	return err
}

// ForwardSocket forwards a Unix socket to a device TCP port.
func (d *AndroidDevice) ForwardSocket(ctx context.Context, socketPath string, remotePort int) error {
	_, err := d.run(ctx, "forward", fmt.Sprintf("localfilesystem:%s", socketPath), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// RemoveSocketForward removes a Unix socket forward.
func (d *AndroidDevice) RemoveSocketForward(ctx context.Context, socketPath string) error {
	_, err := d.run(ctx, "forward", "--remove", fmt.Sprintf("localfilesystem:%s", socketPath))
	return err
}

// DefaultSocketPath returns the default Unix socket path for this device.
func (d *AndroidDevice) DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/uia2-%s.sock", d.serial)
}

// SocketPath returns the current UIAutomator2 socket path (empty if not started or on Windows).
func (d *AndroidDevice) SocketPath() string {
	return d.socketPath
}

// LocalPort returns the current UIAutomator2 TCP port (0 if not started or on Linux/Mac).
func (d *AndroidDevice) LocalPort() int {
	return d.localPort
}

// Info returns device information.
func (d *AndroidDevice) Info(ctx context.Context) (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	if model, err := d.GetProp(ctx, "ro.product.model"); err == nil {
		info.Model = model
	}
	if sdk, err := d.GetProp(ctx, "ro.build.version.sdk"); err == nil {
		info.SDK = sdk
	}
	if brand, err := d.GetProp(ctx, "ro.product.brand"); err == nil {
		info.Brand = brand
	}
	qemu, _ := d.GetProp(ctx, "ro.kernel.qemu")
	info.IsEmulator = qemu == "1"
	info.TestHarness, _ = d.IsTestHarness(ctx)

	return info, nil
}

func (d *AndroidDevice) execADB(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.adbPath, d.adbArgs(args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, errMsg)
	}

	return stdout.String(), nil
}

func (d *AndroidDevice) adbArgs(args ...string) []string {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	return append(cmdArgs, args...)
}

// waitForDevice polls adb get-state until the device reports "device".
func (d *AndroidDevice) waitForDevice(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := backoff.Retry(func() error {
		if d.isConnected(waitCtx) {
			return nil
		}
		return errNotConnected
	}, backoff.WithContext(backoff.NewConstantBackOff(devicePollInterval), waitCtx))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("timeout waiting for device %s", d.serial)
	}
	return nil
}

// isConnected checks if the device is connected.
func (d *AndroidDevice) isConnected(ctx context.Context) bool {
	out, err := d.run(ctx, "get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}
