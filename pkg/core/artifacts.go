package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Attachment represents a debug artifact captured on failure
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, hierarchy
	ContentType string `json:"contentType"` // MIME type: image/png, application/xml
	Path        string `json:"path"`        // File path relative to output directory
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentHierarchy  = "hierarchy"
)

// Common content types
const (
	ContentTypePNG = "image/png"
	ContentTypeXML = "application/xml"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewHierarchyAttachment creates a UI hierarchy attachment
func NewHierarchyAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentHierarchy,
		ContentType: ContentTypeXML,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	CaptureOnFailure bool `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnTimeout bool `yaml:"captureOnTimeout" json:"captureOnTimeout"` // Default: true

	Screenshot  bool `yaml:"screenshot" json:"screenshot"`   // Default: true
	UIHierarchy bool `yaml:"uiHierarchy" json:"uiHierarchy"` // Default: true
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnTimeout: true,
		Screenshot:       true,
		UIHierarchy:      true,
	}
}

// ShouldCapture returns true if artifacts should be captured for err.
func (c ArtifactConfig) ShouldCapture(err error) bool {
	switch CategoryOf(err) {
	case ErrCategoryNone, ErrCategoryConfig:
		return false
	case ErrCategoryTimeout:
		return c.CaptureOnTimeout
	default:
		return c.CaptureOnFailure
	}
}

// ArtifactCollector defines the interface for capturing debug artifacts
type ArtifactCollector interface {
	// CaptureScreenshot takes a screenshot and returns PNG data
	CaptureScreenshot() ([]byte, error)

	// CaptureHierarchy captures the UI hierarchy as XML
	CaptureHierarchy() ([]byte, error)
}

// NullArtifactCollector is a no-op implementation for testing
type NullArtifactCollector struct{}

// CaptureScreenshot returns nil (no-op)
func (n NullArtifactCollector) CaptureScreenshot() ([]byte, error) { return nil, nil }

// CaptureHierarchy returns nil (no-op)
func (n NullArtifactCollector) CaptureHierarchy() ([]byte, error) { return nil, nil }

// WriteArtifacts captures what cfg asks for and writes it under dir using
// prefix as the file name stem. Empty captures are skipped.
func WriteArtifacts(dir, prefix string, cfg ArtifactConfig, c ArtifactCollector) ([]Attachment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405.000")

	var out []Attachment
	if cfg.Screenshot {
		data, err := c.CaptureScreenshot()
		if err != nil {
			return out, fmt.Errorf("capture screenshot: %w", err)
		}
		if len(data) > 0 {
			name := fmt.Sprintf("%s-%s-screenshot.png", prefix, stamp)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return out, fmt.Errorf("write screenshot: %w", err)
			}
			out = append(out, NewScreenshotAttachment(name, data))
		}
	}
	if cfg.UIHierarchy {
		data, err := c.CaptureHierarchy()
		if err != nil {
			return out, fmt.Errorf("capture hierarchy: %w", err)
		}
		if len(data) > 0 {
			name := fmt.Sprintf("%s-%s-hierarchy.xml", prefix, stamp)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return out, fmt.Errorf("write hierarchy: %w", err)
			}
			out = append(out, NewHierarchyAttachment(name, data))
		}
	}
	return out, nil
}
