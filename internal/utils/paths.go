package utils

import (
	"path/filepath"
	"strings"
)

// ResolvePath makes a data or output path from a sweep or project file
// absolute against baseDir, the directory holding that file. Absolute paths,
// the empty string and SQLite's ":memory:" and "file:" names are returned
// as is.
func ResolvePath(path, baseDir string) string {
	switch {
	case path == "", path == ":memory:", strings.HasPrefix(path, "file:"):
		return path
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	default:
		return filepath.Join(baseDir, path)
	}
}
