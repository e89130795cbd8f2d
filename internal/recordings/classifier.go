// Package recordings finds session-recording files in a directory tree.
package recordings

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the recording formats recognised by name alone.
var DefaultExtensions = []string{".guac", ".cast"}

// DefaultMinSizeBytes is the smallest extensionless file treated as a recording.
const DefaultMinSizeBytes int64 = 50

// Reason explains a classifier decision.
type Reason string

const (
	ReasonExtension Reason = "extension"
	ReasonSize      Reason = "size"
	ReasonTooSmall  Reason = "too_small"
	ReasonStatError Reason = "stat_error"
)

// ClassifierConfig holds classification parameters
type ClassifierConfig struct {
	Extensions   []string // default [".guac", ".cast"]
	MinSizeBytes int64    // default 50
}

// Classifier decides whether a regular file is a recording. It looks at the
// extension and the size only, never at file contents.
type Classifier struct {
	extensions map[string]struct{}
	minSize    int64
}

// NewClassifier builds a Classifier. A nil extension list selects the defaults;
// an empty non-nil list disables extension matching.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	exts := cfg.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}

	c := &Classifier{
		extensions: make(map[string]struct{}, len(exts)),
		minSize:    cfg.MinSizeBytes,
	}
	for _, ext := range exts {
		if ext = NormalizeExtension(ext); ext != "" {
			c.extensions[ext] = struct{}{}
		}
	}
	return c
}

// NormalizeExtension lowercases ext and ensures a single leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}

// Classify reports whether the file at path is a recording and why.
func (c *Classifier) Classify(path string) (bool, Reason) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := c.extensions[ext]; ok {
		return true, ReasonExtension
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, ReasonStatError
	}
	if info.Size() < c.minSize {
		return false, ReasonTooSmall
	}
	return true, ReasonSize
}

// IsRecording is Classify without the reason.
func (c *Classifier) IsRecording(path string) bool {
	ok, _ := c.Classify(path)
	return ok
}
