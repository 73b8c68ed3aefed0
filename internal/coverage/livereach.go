package coverage

import (
	"math"
	"sort"
	"time"
)

// NodeStats is one entity's raw call-graph statistics as seen by an
// external live-reachability instrumentation feed.
type NodeStats struct {
	EntityID      string
	LiveCallers   int
	LiveCalls     int
	SeedReachable bool
	LastSeen      *time.Time
}

// LiveReachWeights weights the four components of a LiveReach score;
// must sum to 1.0.
type LiveReachWeights struct {
	Callers       float64 `toml:"callers"`
	Calls         float64 `toml:"calls"`
	SeedReachable float64 `toml:"seed_reachable"`
	Recency       float64 `toml:"recency"`
}

// DefaultLiveReachWeights mirrors the corpus's own weighting: caller
// count dominates, recency contributes least.
var DefaultLiveReachWeights = LiveReachWeights{
	Callers:       0.5,
	Calls:         0.2,
	SeedReachable: 0.2,
	Recency:       0.1,
}

// ValidateWeights checks that the four components sum to ~1.0.
func (w LiveReachWeights) ValidateWeights() bool {
	sum := w.Callers + w.Calls + w.SeedReachable + w.Recency
	return math.Abs(sum-1.0) <= 1e-6
}

// LiveReachComponents are the four per-node inputs combined into a score.
type LiveReachComponents struct {
	CallersComponent float64
	CallsComponent   float64
	SeedComponent    float64
	RecencyComponent float64
}

// LiveReachScore is the §4.8 "optional factor from the external
// live-reachability input" consumed as a clone-denoising payoff boost.
type LiveReachScore struct {
	EntityID   string
	Score      float64
	Components LiveReachComponents
}

// LiveReachConfig bounds scoring.
type LiveReachConfig struct {
	Weights           LiveReachWeights `toml:"weights"`
	RecencyWindowDays int              `toml:"recency_window_days"`
}

// DefaultLiveReachConfig mirrors the corpus's 30-day recency window.
var DefaultLiveReachConfig = LiveReachConfig{
	Weights:           DefaultLiveReachWeights,
	RecencyWindowDays: 30,
}

// ComputeLiveReachScores ranks nodes by caller/call counts (rank-
// normalized to [0,1] rather than raw magnitude, so a handful of
// extremely hot functions don't saturate the whole distribution),
// blends in seed-reachability and a decayed recency term, then squashes
// the weighted sum through a sigmoid centered at 0.5.
func ComputeLiveReachScores(nodes []NodeStats, cfg LiveReachConfig, analysisTime time.Time) map[string]LiveReachScore {
	scores := make(map[string]LiveReachScore, len(nodes))
	if len(nodes) == 0 {
		return scores
	}

	callersRank := rankNormalize(nodes, func(n NodeStats) float64 { return float64(n.LiveCallers) })
	callsRank := rankNormalize(nodes, func(n NodeStats) float64 { return float64(n.LiveCalls) })

	for _, n := range nodes {
		components := LiveReachComponents{
			CallersComponent: callersRank[n.EntityID],
			CallsComponent:   callsRank[n.EntityID],
			SeedComponent:    boolToFloat(n.SeedReachable),
			RecencyComponent: recencyComponent(n, cfg.RecencyWindowDays, analysisTime),
		}
		scores[n.EntityID] = LiveReachScore{
			EntityID:   n.EntityID,
			Score:      combineComponents(components, cfg.Weights),
			Components: components,
		}
	}
	return scores
}

func rankNormalize(nodes []NodeStats, key func(NodeStats) float64) map[string]float64 {
	sorted := append([]NodeStats(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })

	n := float64(len(sorted))
	out := make(map[string]float64, len(sorted))
	for rank, node := range sorted {
		if n > 1 {
			out[node.EntityID] = float64(rank) / (n - 1)
		} else {
			out[node.EntityID] = 0.5
		}
	}
	return out
}

func recencyComponent(n NodeStats, windowDays int, analysisTime time.Time) float64 {
	if n.LastSeen == nil {
		return 0
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	staleness := analysisTime.Sub(*n.LastSeen)
	ratio := staleness.Seconds() / window.Seconds()
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return 1.0 - ratio
}

func combineComponents(c LiveReachComponents, w LiveReachWeights) float64 {
	weightedSum := w.Callers*c.CallersComponent + w.Calls*c.CallsComponent +
		w.SeedReachable*c.SeedComponent + w.Recency*c.RecencyComponent
	scaled := (weightedSum - 0.5) * 6.0
	return 1.0 / (1.0 + math.Exp(-scaled))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Boost converts a LiveReach score into the multiplicative payoff boost
// clone.Candidate.LiveReachBoost expects: 1.0 when the input is
// unavailable (per §4.6 Phase 4), otherwise the raw [0,1] score rescaled
// to a gentle [0.5, 1.5] multiplier so it nudges payoff rather than
// dominating it.
func Boost(score *LiveReachScore) float64 {
	if score == nil {
		return 1.0
	}
	return 0.5 + score.Score
}
