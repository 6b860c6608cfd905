package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/launcher-tapl/pkg/core"
	"github.com/devicelab-dev/launcher-tapl/pkg/logger"
)

// streamOpener starts a long-running adb invocation and returns its stdout.
// wait blocks until the process exits.
type streamOpener func(ctx context.Context, args ...string) (stdout io.ReadCloser, wait func() error, err error)

// DeviceTime returns the device clock in logcat's epoch format ("<sec>.<ms>").
func (d *AndroidDevice) DeviceTime(ctx context.Context) (string, error) {
	out, err := d.ShellContext(ctx, "date +%s.%N")
	if err != nil {
		return "", fmt.Errorf("read device time: %w", err)
	}
	return formatLogcatTime(strings.TrimSpace(out))
}

// formatLogcatTime trims a "<sec>.<nanos>" stamp to millisecond precision.
func formatLogcatTime(raw string) (string, error) {
	sec, frac, _ := strings.Cut(raw, ".")
	if _, err := strconv.ParseInt(sec, 10, 64); err != nil {
		return "", fmt.Errorf("unexpected device time %q", raw)
	}
	// toybox date without %N support prints the literal "N"
	if _, err := strconv.Atoi(frac); err != nil || frac == "" {
		frac = "000"
	}
	for len(frac) < 3 {
		frac += "0"
	}
	return sec + "." + frac[:3], nil
}

// EventSource streams launcher test events written to logcat under a tag.
type EventSource struct {
	dev  *AndroidDevice
	tag  string
	open streamOpener
}

// NewEventSource returns an event source reading logcat lines tagged tag.
func NewEventSource(d *AndroidDevice, tag string) *EventSource {
	return &EventSource{dev: d, tag: tag, open: d.openStream}
}

// Subscribe starts streaming events logged from now on. The channel is
// closed when ctx is cancelled or logcat exits. Once the channel is closed,
// wait reports why the stream ended: nil after cancellation, otherwise the
// logcat failure or io.ErrUnexpectedEOF for a clean exit.
func (s *EventSource) Subscribe(ctx context.Context) (events <-chan core.Event, wait func() error, err error) {
	since, err := s.dev.DeviceTime(ctx)
	if err != nil {
		return nil, nil, err
	}

	stdout, waitProc, err := s.open(ctx, "logcat", "-v", "raw", "-T", since, "-s", s.tag+":*")
	if err != nil {
		return nil, nil, fmt.Errorf("start logcat: %w", err)
	}

	out := make(chan core.Event, 16)
	scanned := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(scanned)
		return scanEvents(gctx, stdout, out)
	})
	// Wait closes stdout, so it must not run before the scanner is done.
	g.Go(func() error {
		<-scanned
		err := waitProc()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("logcat exited: %w", err)
		}
		return io.ErrUnexpectedEOF
	})

	var streamErr error
	go func() {
		streamErr = g.Wait()
		if ctx.Err() != nil {
			streamErr = nil
		}
		if streamErr != nil {
			logger.Warn("logcat stream for %s ended: %v", s.tag, streamErr)
		}
		close(out)
	}()

	return out, func() error { return streamErr }, nil
}

// scanEvents parses lines from r and forwards events until r is drained or
// ctx is done.
func scanEvents(ctx context.Context, r io.Reader, out chan<- core.Event) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ev, ok := ParseEventLine(scanner.Text())
		if !ok {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

// ParseEventLine parses one "<ClassName>[ key=value]..." line. Values are
// query-escaped. Logcat banners and blank lines are rejected.
func ParseEventLine(line string) (core.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "---------") {
		return core.Event{}, false
	}

	fields := strings.Fields(line)
	ev := core.Event{ClassName: fields[0], Time: time.Now()}
	if strings.Contains(ev.ClassName, "=") {
		return core.Event{}, false
	}

	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(v); err == nil {
			v = unescaped
		}
		if ev.Payload == nil {
			ev.Payload = make(map[string]string)
		}
		ev.Payload[k] = v
	}
	return ev, true
}

// FormatEventLine renders an event in the form ParseEventLine reads.
func FormatEventLine(ev core.Event) string {
	var b strings.Builder
	b.WriteString(ev.ClassName)
	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(url.QueryEscape(ev.Payload[k]))
	}
	return b.String()
}

func (d *AndroidDevice) openStream(ctx context.Context, args ...string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, d.adbPath, d.adbArgs(args...)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return stdout, cmd.Wait, nil
}
