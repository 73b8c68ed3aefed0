package clone

import "sort"

// Formula selects one of the three payoff combination schemes.
type Formula string

const (
	FormulaStandard        Formula = "standard"
	FormulaQualityWeighted Formula = "quality_weighted"
	FormulaConservative    Formula = "conservative"
)

// Payoff computes the configured formula's payoff score for a candidate
// that has reached RarityKept.
func Payoff(c *Candidate, formula Formula) float64 {
	standard := float64(c.SavedTokens) * c.RarityGain * c.LiveReachBoost * c.Quality.OverallQuality
	switch formula {
	case FormulaQualityWeighted:
		return standard * (c.Quality.StructureRatio * c.Quality.Uniqueness)
	case FormulaConservative:
		return standard * (1 - c.Quality.Fragmentarity)
	default:
		return standard
	}
}

// RankingConfig bounds Phase 4 output.
type RankingConfig struct {
	Formula        Formula `toml:"formula"`
	KeepTopPerFile int     `toml:"keep_top_per_file"`
	MinSavedTokens int     `toml:"min_saved_tokens"`
}

// DefaultRankingConfig mirrors the corpus's documented defaults.
var DefaultRankingConfig = RankingConfig{
	Formula:        FormulaStandard,
	KeepTopPerFile: 3,
	MinSavedTokens: 0,
}

// entityFile resolves which file a candidate's "per file" cap applies
// against; callers supply it since Candidate only knows entity IDs.
type entityFile = func(entityID string) string

// Rank computes payoff for every RarityKept candidate, finalizes its
// state, sorts descending by payoff with a stable (EntityA, EntityB)
// tiebreak for determinism regardless of upstream interleaving, and
// enforces the per-file keep-top-N cap.
func Rank(candidates []*Candidate, cfg RankingConfig, fileOf entityFile) []*Candidate {
	for _, c := range candidates {
		if c.State != StateRarityKept {
			continue
		}
		c.Payoff = Payoff(c, cfg.Formula)
		c.Finalize(cfg.MinSavedTokens)
	}

	var ranked []*Candidate
	for _, c := range candidates {
		if c.State == StateRanked {
			ranked = append(ranked, c)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Payoff != ranked[j].Payoff {
			return ranked[i].Payoff > ranked[j].Payoff
		}
		if ranked[i].EntityA != ranked[j].EntityA {
			return ranked[i].EntityA < ranked[j].EntityA
		}
		return ranked[i].EntityB < ranked[j].EntityB
	})

	if cfg.KeepTopPerFile <= 0 || fileOf == nil {
		return ranked
	}

	perFile := make(map[string]int)
	var out []*Candidate
	for _, c := range ranked {
		file := fileOf(c.EntityA)
		if perFile[file] >= cfg.KeepTopPerFile {
			c.State = StateBelowPayoff
			c.DropReason = "exceeds keep_top_per_file"
			continue
		}
		perFile[file]++
		out = append(out, c)
	}
	return out
}

// CalibrationResult reports the outcome of Phase 4 auto-calibration.
type CalibrationResult struct {
	Threshold       float64
	AchievedQuality float64
	Iterations      int
}

// AutoCalibrate binary-searches the similarity threshold in [0.1, 0.9] so
// that at least qualityTarget of the top-sampleSize candidates (by
// evaluate's current threshold) have overall_quality >= qualityTarget.
// evaluate re-scores the candidate pool at a given threshold and returns
// the fraction of the top-sampleSize candidates meeting the quality bar.
func AutoCalibrate(evaluate func(threshold float64) (sampleQuality float64), qualityTarget, convergenceTolerance float64, maxIterations int) CalibrationResult {
	lo, hi := 0.1, 0.9
	var lastQuality float64
	var iterations int
	for iterations = 0; iterations < maxIterations && hi-lo > convergenceTolerance; iterations++ {
		mid := (lo + hi) / 2
		lastQuality = evaluate(mid)
		if lastQuality >= qualityTarget {
			hi = mid
		} else {
			lo = mid
		}
	}
	return CalibrationResult{Threshold: hi, AchievedQuality: lastQuality, Iterations: iterations}
}
