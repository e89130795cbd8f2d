package recordings

import (
	"path/filepath"
	"strings"
)

// relWithin returns target relative to base when target is base itself or a
// descendant of it. Both paths must be absolute and clean. The check is done on
// path segments, so /data2/x is not within /data.
func relWithin(base, target string) (string, bool) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// publicPath converts a host relative path into the slash-separated form
// exposed to clients, always with exactly one leading slash.
func publicPath(rel string) string {
	p := filepath.ToSlash(rel)
	return "/" + strings.TrimLeft(p, "/")
}

// absClean resolves p against the working directory, falling back to a
// cleaned p when the working directory is unavailable.
func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
