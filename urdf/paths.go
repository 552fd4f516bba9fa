package urdf

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	packageScheme = "package://"
	fileScheme    = "file://"
)

// ResolveMeshPath turns a mesh filename from a description into a filesystem path.
//
// "package://pkg/rest" is looked up as a directory named pkg in baseDir or any of its ancestors;
// when none exists the remainder is resolved against baseDir. "file://" prefixes are stripped.
// Relative paths are resolved against baseDir and absolute paths are returned unchanged.
func ResolveMeshPath(filename, baseDir string) string {
	switch {
	case strings.HasPrefix(filename, packageScheme):
		rest := strings.TrimPrefix(filename, packageScheme)
		pkg, tail, _ := strings.Cut(rest, "/")
		for dir := baseDir; dir != ""; {
			candidate := filepath.Join(dir, pkg)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return filepath.Join(candidate, filepath.FromSlash(tail))
			}
			if filepath.Base(dir) == pkg {
				return filepath.Join(dir, filepath.FromSlash(tail))
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		return filepath.Join(baseDir, filepath.FromSlash(tail))
	case strings.HasPrefix(filename, fileScheme):
		return filepath.FromSlash(strings.TrimPrefix(filename, fileScheme))
	case filepath.IsAbs(filename):
		return filename
	default:
		return filepath.Join(baseDir, filepath.FromSlash(filename))
	}
}
