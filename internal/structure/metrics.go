// Package structure implements the Structure Detector (§4.4): directory
// imbalance metrics and the branch-reorganization / file-split packs that
// follow from them.
package structure

import "math"

// FileStat is the minimal per-file input the detector needs: its line
// count and the set of other files (by path) it references, used to
// build the directory's file-level reference graph for partitioning.
type FileStat struct {
	Path        string
	LinesOfCode int
	References  []string // paths of files this file references
}

// DirStats aggregates the raw pressure inputs for one directory.
type DirStats struct {
	Path        string
	Files       []FileStat
	SubdirCount int
}

// gini computes the Gini coefficient of a non-negative sample, 0 (perfectly
// even) to ~1 (maximally concentrated).
func gini(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	var sum, weighted float64
	for i, v := range sorted {
		sum += float64(v)
		weighted += float64(i+1) * float64(v)
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
}

// entropy computes the Shannon entropy (base 2) of the normalized
// distribution of values, 0 (one file holds everything) upward.
func entropy(values []int) float64 {
	var total float64
	for _, v := range values {
		total += float64(v)
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, v := range values {
		if v == 0 {
			continue
		}
		p := float64(v) / total
		h -= p * math.Log2(p)
	}
	return h
}

// Pressures holds the weighted-sum inputs to Imbalance.
type Pressures struct {
	Gini           float64
	Entropy        float64
	FilePressure   float64 // files / max_files
	BranchPressure float64 // subdirs / max_subdirs
	SizePressure   float64 // total_LoC / max_dir_LoC
}

// Config bounds the pressure denominators and the final imbalance weights.
type Config struct {
	MaxFiles      int     `toml:"max_files"`
	MaxSubdirs    int     `toml:"max_subdirs"`
	MaxDirLoC     int     `toml:"max_dir_loc"`
	WeightGini    float64 `toml:"weight_gini"`
	WeightEntropy float64 `toml:"weight_entropy"`
	WeightFile    float64 `toml:"weight_file"`
	WeightBranch  float64 `toml:"weight_branch"`
	WeightSize    float64 `toml:"weight_size"`
}

// DefaultConfig weights Gini at 0.25, entropy at 0.15 and the file, branch
// and size pressures at 0.2 each (the weights sum to 1).
var DefaultConfig = Config{
	MaxFiles:      50,
	MaxSubdirs:    10,
	MaxDirLoC:     5000,
	WeightGini:    0.25,
	WeightEntropy: 0.15,
	WeightFile:    0.2,
	WeightBranch:  0.2,
	WeightSize:    0.2,
}

// ComputePressures derives the raw pressure terms for a directory.
func ComputePressures(d DirStats, cfg Config) Pressures {
	locs := make([]int, len(d.Files))
	var total int
	for i, f := range d.Files {
		locs[i] = f.LinesOfCode
		total += f.LinesOfCode
	}

	p := Pressures{
		Gini:    gini(locs),
		Entropy: normalizedEntropy(locs),
	}
	if cfg.MaxFiles > 0 {
		p.FilePressure = clamp01(float64(len(d.Files)) / float64(cfg.MaxFiles))
	}
	if cfg.MaxSubdirs > 0 {
		p.BranchPressure = clamp01(float64(d.SubdirCount) / float64(cfg.MaxSubdirs))
	}
	if cfg.MaxDirLoC > 0 {
		p.SizePressure = clamp01(float64(total) / float64(cfg.MaxDirLoC))
	}
	return p
}

// normalizedEntropy divides raw entropy by the maximum possible entropy
// for the sample size (log2(n)) so it lies in [0, 1] like the other
// pressure terms, and is directly comparable/weightable against them.
func normalizedEntropy(values []int) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	maxH := math.Log2(float64(n))
	if maxH == 0 {
		return 0
	}
	return clamp01(entropy(values) / maxH)
}

// Imbalance combines the pressure terms into a single [0, 1] score via a
// configured weighted sum.
func Imbalance(p Pressures, cfg Config) float64 {
	sum := cfg.WeightGini + cfg.WeightEntropy + cfg.WeightFile + cfg.WeightBranch + cfg.WeightSize
	if sum == 0 {
		return 0
	}
	score := cfg.WeightGini*p.Gini + cfg.WeightEntropy*(1-p.Entropy) +
		cfg.WeightFile*p.FilePressure + cfg.WeightBranch*p.BranchPressure +
		cfg.WeightSize*p.SizePressure
	return clamp01(score / sum)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
