// Package health implements the Result Aggregator's health tree (§4.9):
// a bottom-up entity → file → directory → root health rollup with
// top-N hotspot reporting.
package health

import (
	"math"
	"sort"
)

// PerIssuePenalty and MaxPenalty mirror the spec's fixed entity-health
// formula: 100 − min(issue_count · per_issue_penalty, max_penalty).
const (
	PerIssuePenalty = 5.0
	MaxPenalty      = 40.0
)

// IssueCategory classifies the dominant problem behind a low health
// score, used to pick a hotspot's recommended action template.
type IssueCategory string

const (
	CategoryComplexity  IssueCategory = "complexity"
	CategoryDuplication IssueCategory = "duplication"
	CategoryStructure   IssueCategory = "structure"
	CategoryCoverage    IssueCategory = "coverage"
	CategoryOther       IssueCategory = "other"
)

// EntityHealth is the leaf node of the health tree.
type EntityHealth struct {
	EntityID      string
	Health        float64
	IssueCount    int
	DominantIssue IssueCategory
}

// EntityScore computes a leaf entity's health from its issue count.
func EntityScore(entityID string, issueCount int, dominantIssue IssueCategory) EntityHealth {
	penalty := float64(issueCount) * PerIssuePenalty
	if penalty > MaxPenalty {
		penalty = MaxPenalty
	}
	return EntityHealth{
		EntityID:      entityID,
		Health:        100 - penalty,
		IssueCount:    issueCount,
		DominantIssue: dominantIssue,
	}
}

// FileHealth rolls up a file's entities by entity-count-weighted average.
type FileHealth struct {
	Path        string
	Health      float64
	EntityCount int
	Entities    []EntityHealth
}

// ComputeFileHealth averages entity healths weighted by (here, uniformly
// by) entity count — each entity contributes one unit of weight, so the
// "entity-count-weighted average" collapses to a simple mean over the
// file's own entities, matching §4.9.
func ComputeFileHealth(path string, entities []EntityHealth) FileHealth {
	if len(entities) == 0 {
		return FileHealth{Path: path, Health: 100, Entities: entities}
	}
	var sum float64
	for _, e := range entities {
		sum += e.Health
	}
	return FileHealth{
		Path:        path,
		Health:      sum / float64(len(entities)),
		EntityCount: len(entities),
		Entities:    entities,
	}
}

// DirectoryHealth rolls up files and child directories, weighted by each
// child's own entity count so a directory with one huge unhealthy file
// isn't diluted by ten trivially healthy one-liners elsewhere.
type DirectoryHealth struct {
	Path        string
	Health      float64
	EntityCount int
	Files       []FileHealth
	SubDirs     []DirectoryHealth
}

// ComputeDirectoryHealth aggregates files and subdirectories bottom-up.
func ComputeDirectoryHealth(path string, files []FileHealth, subdirs []DirectoryHealth) DirectoryHealth {
	var weightedSum float64
	var totalWeight int

	for _, f := range files {
		weight := f.EntityCount
		if weight == 0 {
			weight = 1
		}
		weightedSum += f.Health * float64(weight)
		totalWeight += weight
	}
	for _, d := range subdirs {
		weight := d.EntityCount
		if weight == 0 {
			weight = 1
		}
		weightedSum += d.Health * float64(weight)
		totalWeight += weight
	}

	health := 100.0
	if totalWeight > 0 {
		health = weightedSum / float64(totalWeight)
	}

	return DirectoryHealth{
		Path:        path,
		Health:      health,
		EntityCount: totalWeight,
		Files:       files,
		SubDirs:     subdirs,
	}
}

// Hotspot is one low-health location surfaced in the top-N report, with
// a templated recommended action for its dominant issue category.
type Hotspot struct {
	EntityID          string        `json:"entity_id"`
	Health            float64       `json:"health"`
	DominantIssue     IssueCategory `json:"dominant_issue"`
	RecommendedAction string        `json:"recommended_action"`
}

var recommendedActions = map[IssueCategory]string{
	CategoryComplexity:  "Break this function into smaller, single-purpose pieces to reduce cyclomatic/cognitive complexity.",
	CategoryDuplication: "Extract the shared logic into a common helper to eliminate this duplicate.",
	CategoryStructure:   "Split this file or directory along its natural module boundaries.",
	CategoryCoverage:    "Add tests covering this entity's untested branches.",
	CategoryOther:       "Review this entity's open issues and address the highest-severity ones first.",
}

// Hotspots returns the N lowest-health entities across a flat list,
// sorted ascending by health (worst first), each annotated with a
// recommended action template for its dominant issue category.
func Hotspots(entities []EntityHealth, topN int) []Hotspot {
	sorted := append([]EntityHealth(nil), entities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Health < sorted[j].Health })

	if topN > len(sorted) {
		topN = len(sorted)
	}
	out := make([]Hotspot, 0, topN)
	for _, e := range sorted[:topN] {
		action := recommendedActions[e.DominantIssue]
		if action == "" {
			action = recommendedActions[CategoryOther]
		}
		out = append(out, Hotspot{
			EntityID:          e.EntityID,
			Health:            e.Health,
			DominantIssue:     e.DominantIssue,
			RecommendedAction: action,
		})
	}
	return out
}

// DepthBucketStats summarizes health at one tree depth (0 = root).
type DepthBucketStats struct {
	Depth  int     `json:"depth"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// DepthBuckets groups a flat (depth, health) sample by depth and
// computes mean/std-dev per bucket.
func DepthBuckets(depths []int, healths []float64) []DepthBucketStats {
	byDepth := make(map[int][]float64)
	for i, d := range depths {
		if i >= len(healths) {
			break
		}
		byDepth[d] = append(byDepth[d], healths[i])
	}

	var depthsSeen []int
	for d := range byDepth {
		depthsSeen = append(depthsSeen, d)
	}
	sort.Ints(depthsSeen)

	out := make([]DepthBucketStats, 0, len(depthsSeen))
	for _, d := range depthsSeen {
		values := byDepth[d]
		var sum float64
		for _, v := range values {
			sum += v
		}
		mean := sum / float64(len(values))

		var ss float64
		for _, v := range values {
			diff := v - mean
			ss += diff * diff
		}
		stdDev := 0.0
		if len(values) > 1 {
			stdDev = math.Sqrt(ss / float64(len(values)-1))
		}

		out = append(out, DepthBucketStats{Depth: d, Mean: mean, StdDev: stdDev, Count: len(values)})
	}
	return out
}
