package recordings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"reclist/internal/log"
	"reclist/internal/metrics"
	"reclist/pkg/types"
)

// ScanStats summarises a single walk.
type ScanStats struct {
	Files   int   // recordings returned
	Skipped int   // regular files rejected by the classifier
	Dirs    int   // directories listed, including the requested one
	Errors  int   // directories that could not be listed completely
	Bytes   int64 // total size of returned recordings
}

func (s *ScanStats) add(o ScanStats) {
	s.Files += o.Files
	s.Skipped += o.Skipped
	s.Dirs += o.Dirs
	s.Errors += o.Errors
	s.Bytes += o.Bytes
}

// Enumerator walks directory trees and lists the recordings found in them.
// It holds no mutable state and is safe for concurrent use.
type Enumerator struct {
	baseDir    string
	classifier *Classifier
}

// NewEnumerator returns an Enumerator computing public paths relative to baseDir.
func NewEnumerator(baseDir string, classifier *Classifier) *Enumerator {
	if classifier == nil {
		classifier = NewClassifier(ClassifierConfig{MinSizeBytes: DefaultMinSizeBytes})
	}
	return &Enumerator{
		baseDir:    absClean(baseDir),
		classifier: classifier,
	}
}

// BaseDir returns the absolute base directory.
func (e *Enumerator) BaseDir() string {
	return e.baseDir
}

// Enumerate lists the recordings under dir, sorted by name. A missing dir, or one
// that is not a directory, yields an empty list.
func (e *Enumerator) Enumerate(dir string) []types.Recording {
	recs, _ := e.Scan(dir)
	return recs
}

// Scan is Enumerate plus walk statistics.
func (e *Enumerator) Scan(dir string) ([]types.Recording, ScanStats) {
	return e.walk(absClean(dir), nil)
}

// walk lists dir. Names and paths are relative to dir; the caller prefixes
// them with the child directory name. ancestors holds the directories already
// on the recursion stack and stops symlink loops. Each call owns the slice it
// returns.
func (e *Enumerator) walk(dir string, ancestors []os.FileInfo) ([]types.Recording, ScanStats) {
	recs := []types.Recording{}
	var stats ScanStats

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return recs, stats
	}
	for _, seen := range ancestors {
		if os.SameFile(seen, info) {
			metrics.RecordWalkError("loop")
			logger := log.WithComponent("recordings")
			logger.Debug().Str(log.FieldDirectory, dir).Msg("skipping directory already being walked")
			return recs, stats
		}
	}
	stats.Dirs++
	chain := append(ancestors[:len(ancestors):len(ancestors)], info)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			metrics.RecordWalkError("permission")
			stats.Errors++
			return recs, stats
		}
		// entries holds whatever was read before the failure
		metrics.RecordWalkError("io")
		stats.Errors++
		logger := log.WithComponent("recordings")
		logger.Error().Err(err).Str(log.FieldDirectory, dir).Msg("error listing directory")
	}

	for _, entry := range entries {
		name := entry.Name()
		if isHidden(name) {
			continue
		}
		child := filepath.Join(dir, name)

		switch entryKind(child, entry) {
		case kindFile:
			rec, ok := e.describe(dir, child, name)
			if !ok {
				stats.Skipped++
				continue
			}
			recs = append(recs, rec)
			stats.Files++
			stats.Bytes += rec.Size
		case kindDir:
			sub, subStats := e.walk(child, chain)
			for _, rec := range sub {
				rec.Name = name + "/" + rec.Name
				rec.Path = "/" + name + "/" + strings.TrimLeft(rec.Path, "/")
				recs = append(recs, rec)
			}
			stats.add(subStats)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Name < recs[j].Name
	})

	return recs, stats
}

// describe classifies the regular file at child and builds its descriptor.
func (e *Enumerator) describe(dir, child, name string) (types.Recording, bool) {
	ok, reason := e.classifier.Classify(child)
	metrics.RecordClassification(ok, string(reason))
	if !ok {
		return types.Recording{}, false
	}

	info, err := os.Stat(child)
	if err != nil {
		// removed between classification and stat
		return types.Recording{}, false
	}

	return types.Recording{
		Name:     name,
		Path:     e.publicPathFor(dir, child),
		Size:     info.Size(),
		Modified: types.UnixTime(info.ModTime()),
	}, true
}

// publicPathFor expresses child relative to the base directory when it lies
// beneath it, otherwise relative to dir, the directory holding it.
func (e *Enumerator) publicPathFor(dir, child string) string {
	if rel, ok := relWithin(e.baseDir, child); ok {
		return publicPath(rel)
	}
	if rel, ok := relWithin(dir, child); ok {
		return publicPath(rel)
	}
	return publicPath(filepath.Base(child))
}

type kind int

const (
	kindOther kind = iota
	kindFile
	kindDir
)

// entryKind resolves the type of a directory entry, following symlinks.
func entryKind(child string, entry fs.DirEntry) kind {
	mode := entry.Type()
	switch {
	case mode.IsRegular():
		return kindFile
	case mode.IsDir():
		return kindDir
	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(child)
		if err != nil {
			return kindOther
		}
		if info.Mode().IsRegular() {
			return kindFile
		}
		if info.IsDir() {
			return kindDir
		}
	}
	return kindOther
}
