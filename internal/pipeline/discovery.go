// Package pipeline orchestrates discovery, parsing, and every detector
// into a single staged run producing a result.AnalysisResults.
package pipeline

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sibyllinesoft/valknut-go/internal/vkerrors"
)

// DiscoveryConfig governs which files a Run walks.
type DiscoveryConfig struct {
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
	FollowSymlinks   bool
}

// DiscoveredFile is one file selected for analysis.
type DiscoveredFile struct {
	Path string // absolute
	Rel  string // relative to root
	Size int64
}

// Discover walks root and returns every file that matches an include glob,
// doesn't match an exclude glob, isn't binary, and doesn't exceed
// MaxFileSizeBytes — in deterministic path order.
func Discover(root string, cfg DiscoveryConfig) ([]DiscoveredFile, error) {
	detector := newBinaryDetector()
	var out []DiscoveredFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // best-effort: skip unreadable entries, don't abort the whole walk
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if matchesAny(rel+"/", cfg.ExcludeGlobs) || matchesAny(rel, cfg.ExcludeGlobs) {
				return filepath.SkipDir
			}
			if !cfg.FollowSymlinks && d.Type()&os.ModeSymlink != 0 {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(rel, cfg.ExcludeGlobs) {
			return nil
		}
		if len(cfg.IncludeGlobs) > 0 && !matchesAny(rel, cfg.IncludeGlobs) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if info.Size() > cfg.MaxFileSizeBytes {
			return nil
		}

		head, readErr := readHead(path, 512)
		if readErr != nil {
			return nil
		}
		if detector.IsBinary(path, head) {
			return nil
		}

		out = append(out, DiscoveredFile{Path: path, Rel: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, vkerrors.Io("discover", err).WithPath(root)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

func matchesAny(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, nil //nolint: nilerr // empty file is not an error for head-sniffing
	}
	return buf[:read], nil
}
