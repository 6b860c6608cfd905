package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewScreenshotAttachment(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4E, 0x47} // PNG header
	attachment := NewScreenshotAttachment("home-screenshot.png", data)

	if attachment.Name != AttachmentScreenshot {
		t.Errorf("Name = %s, want %s", attachment.Name, AttachmentScreenshot)
	}
	if attachment.ContentType != ContentTypePNG {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypePNG)
	}
	if len(attachment.Body) != 4 {
		t.Errorf("Body length = %d, want 4", len(attachment.Body))
	}
}

func TestNewHierarchyAttachment(t *testing.T) {
	attachment := NewHierarchyAttachment("home-hierarchy.xml", []byte(`<hierarchy/>`))

	if attachment.Name != AttachmentHierarchy {
		t.Errorf("Name = %s, want %s", attachment.Name, AttachmentHierarchy)
	}
	if attachment.ContentType != ContentTypeXML {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypeXML)
	}
}

func TestArtifactConfig_ShouldCapture(t *testing.T) {
	cfg := DefaultArtifactConfig()

	if cfg.ShouldCapture(nil) {
		t.Error("should not capture without an error")
	}
	if cfg.ShouldCapture(errors.New("plain")) {
		t.Error("should not capture for non-facade errors")
	}
	if !cfg.ShouldCapture(ErrElementNotFound) {
		t.Error("should capture on assertion failure")
	}
	if !cfg.ShouldCapture(ErrEventTimeout) {
		t.Error("should capture on timeout")
	}

	cfg.CaptureOnTimeout = false
	if cfg.ShouldCapture(ErrEventTimeout) {
		t.Error("should not capture on timeout when disabled")
	}
}

type stubCollector struct {
	screenshot []byte
	hierarchy  []byte
	err        error
}

func (s stubCollector) CaptureScreenshot() ([]byte, error) { return s.screenshot, s.err }
func (s stubCollector) CaptureHierarchy() ([]byte, error)  { return s.hierarchy, s.err }

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	c := stubCollector{screenshot: []byte("png"), hierarchy: []byte("<hierarchy/>")}

	atts, err := WriteArtifacts(dir, "workspace", DefaultArtifactConfig(), c)
	if err != nil {
		t.Fatalf("WriteArtifacts failed: %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(atts))
	}
	for _, a := range atts {
		if !strings.HasPrefix(a.Path, "workspace-") {
			t.Errorf("unexpected path %s", a.Path)
		}
		if _, err := os.Stat(filepath.Join(dir, a.Path)); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	}
}

func TestWriteArtifacts_SkipsEmpty(t *testing.T) {
	atts, err := WriteArtifacts(t.TempDir(), "x", DefaultArtifactConfig(), NullArtifactCollector{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(atts) != 0 {
		t.Errorf("expected no attachments, got %d", len(atts))
	}
}

func TestWriteArtifacts_CaptureError(t *testing.T) {
	c := stubCollector{err: errors.New("no session")}
	if _, err := WriteArtifacts(t.TempDir(), "x", DefaultArtifactConfig(), c); err == nil {
		t.Error("expected error")
	}
}
