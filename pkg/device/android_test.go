package device

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// skipIfNoDevice skips the test if no device is connected.
func skipIfNoDevice(t *testing.T) {
	t.Helper()
	cmd := exec.Command("adb", "devices")
	out, err := cmd.Output()
	if err != nil {
		t.Skip("adb not available")
	}
	lines := strings.Split(string(out), "\n")
	deviceCount := 0
	for _, line := range lines {
		if strings.Contains(line, "\tdevice") {
			deviceCount++
		}
	}
	if deviceCount == 0 {
		t.Skip("no device connected")
	}
}

// fakeADB answers shell commands from a table and records every call.
type fakeADB struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeADB) run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	return f.responses[key], nil
}

func newFakeDevice(f *fakeADB) *AndroidDevice {
	d := &AndroidDevice{serial: "emulator-5554", adbPath: "adb"}
	d.run = f.run
	return d
}

func TestParseDevices(t *testing.T) {
	out := "* daemon started successfully\nList of devices attached\nemulator-5554\tdevice\nR58M\tunauthorized\n\n"
	devices := parseDevices(out)
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Serial != "emulator-5554" || devices[0].State != "device" {
		t.Errorf("unexpected first device: %+v", devices[0])
	}
	if devices[1].State != "unauthorized" {
		t.Errorf("unexpected second device: %+v", devices[1])
	}
}

func TestAdbArgs(t *testing.T) {
	d := &AndroidDevice{serial: "abc"}
	got := strings.Join(d.adbArgs("shell", "ls"), " ")
	if got != "-s abc shell ls" {
		t.Errorf("adbArgs = %q", got)
	}

	d = &AndroidDevice{}
	got = strings.Join(d.adbArgs("devices"), " ")
	if got != "devices" {
		t.Errorf("adbArgs without serial = %q", got)
	}
}

func TestIsTestHarness(t *testing.T) {
	tests := []struct {
		name string
		prop string
		want bool
	}{
		{"set", "1\n", true},
		{"unset", "\n", false},
		{"zero", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeADB{responses: map[string]string{"shell getprop ro.test_harness": tt.prop}}
			got, err := newFakeDevice(f).IsTestHarness(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsTestHarness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTestHarnessError(t *testing.T) {
	f := &fakeADB{errs: map[string]error{"shell getprop ro.test_harness": errors.New("device offline")}}
	if _, err := newFakeDevice(f).IsTestHarness(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSecureSetting(t *testing.T) {
	const key = "shell settings get secure swipe_up_to_switch_apps_enabled"
	tests := []struct {
		name    string
		out     string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{"enabled", "1\n", 1, true, false},
		{"disabled", "0\n", 0, true, false},
		{"null", "null\n", 0, false, false},
		{"empty", "", 0, false, false},
		{"not an integer", "yes", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeADB{responses: map[string]string{key: tt.out}}
			v, ok, err := newFakeDevice(f).SecureSetting(context.Background(), "swipe_up_to_switch_apps_enabled")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if v != tt.want || ok != tt.wantOK {
				t.Errorf("SecureSetting() = %d, %v; want %d, %v", v, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPutSecureSetting(t *testing.T) {
	f := &fakeADB{}
	if err := newFakeDevice(f).PutSecureSetting(context.Background(), "foo", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 1 || f.calls[0] != "shell settings put secure foo 1" {
		t.Errorf("unexpected calls: %v", f.calls)
	}
}

func TestIsInstalled(t *testing.T) {
	f := &fakeADB{responses: map[string]string{
		"shell pm list packages " + UIAutomator2Server: "package:io.appium.uiautomator2.server\npackage:io.appium.uiautomator2.server.test\n",
	}}
	d := newFakeDevice(f)
	ctx := context.Background()
	if !d.IsInstalled(ctx, UIAutomator2Server) {
		t.Error("expected server to be installed")
	}
	if d.IsInstalled(ctx, "com.example.missing") {
		t.Error("expected missing package to be reported absent")
	}
}

func TestInfo(t *testing.T) {
	f := &fakeADB{responses: map[string]string{
		"shell getprop ro.product.model":     "Pixel 7\n",
		"shell getprop ro.build.version.sdk": "34\n",
		"shell getprop ro.product.brand":     "google\n",
		"shell getprop ro.kernel.qemu":       "1\n",
		"shell getprop ro.test_harness":      "1\n",
	}}
	info, err := newFakeDevice(f).Info(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Model != "Pixel 7" || info.SDK != "34" || info.Brand != "google" {
		t.Errorf("unexpected info: %+v", info)
	}
	if !info.IsEmulator || !info.TestHarness {
		t.Errorf("expected emulator test harness, got %+v", info)
	}
}

func TestForwardSocketArgs(t *testing.T) {
	f := &fakeADB{}
	d := newFakeDevice(f)
	ctx := context.Background()
	if err := d.ForwardSocket(ctx, "/tmp/x.sock", 6790); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.RemoveForward(ctx, 6001); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"forward localfilesystem:/tmp/x.sock tcp:6790",
		"forward --remove tcp:6001",
	}
	if strings.Join(f.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestWaitForDevice(t *testing.T) {
	states := []string{"offline\n", "device\n"}
	f := &fakeADB{}
	d := newFakeDevice(f)
	d.run = func(ctx context.Context, args ...string) (string, error) {
		f.calls = append(f.calls, strings.Join(args, " "))
		out := states[0]
		if len(states) > 1 {
			states = states[1:]
		}
		return out, nil
	}

	if err := d.waitForDevice(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("waitForDevice failed: %v", err)
	}
	if len(f.calls) != 2 || f.calls[0] != "get-state" {
		t.Errorf("unexpected calls: %v", f.calls)
	}
}

func TestWaitForDeviceTimeout(t *testing.T) {
	f := &fakeADB{responses: map[string]string{"get-state": "unauthorized\n"}}
	err := newFakeDevice(f).waitForDevice(context.Background(), 50*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timeout waiting for device emulator-5554") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWaitForDeviceCancelled(t *testing.T) {
	f := &fakeADB{responses: map[string]string{"get-state": "offline\n"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newFakeDevice(f).waitForDevice(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultSocketPath(t *testing.T) {
	d := &AndroidDevice{serial: "emulator-5554"}
	if got := d.DefaultSocketPath(); got != "/tmp/uia2-emulator-5554.sock" {
		t.Errorf("DefaultSocketPath() = %q", got)
	}
}

func TestListDevices_Real(t *testing.T) {
	skipIfNoDevice(t)

	devices, err := ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) == 0 {
		t.Fatal("expected at least one device")
	}
	if devices[0].Serial == "" {
		t.Error("device serial is empty")
	}
}

func TestInfo_Real(t *testing.T) {
	skipIfNoDevice(t)

	ctx := context.Background()
	d, err := New(ctx, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	info, err := d.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.SDK == "" {
		t.Error("expected SDK version")
	}
}
