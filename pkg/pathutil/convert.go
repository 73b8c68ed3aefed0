// Package pathutil converts between absolute and relative paths.
//
// The core works internally with absolute paths for consistency and to
// avoid ambiguity across platforms, but AnalysisResults is user-facing and
// should report relative, portable paths. This package is the conversion
// layer between the two representations.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root
// directory. Falls back to the original path if conversion fails or the
// path is already relative or lies outside rootDir.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}
