package clone

import (
	"time"
)

// EntityInput is everything the denoiser needs to know about one code
// entity: its identity, normalized token stream, and the structural facts
// Phase 2 gates on. Callers (the pipeline) build these from the cached
// trees; the denoiser itself never touches an AST.
type EntityInput struct {
	EntityID    string
	FilePath    string
	Tokens      []string
	Blocks      []BasicBlock
	Motifs      map[Motif]bool
	IOFootprint IOFootprint
}

// CalibrationConfig bounds Phase 4 auto-calibration.
type CalibrationConfig struct {
	Enabled              bool    `toml:"enabled"`
	QualityTarget        float64 `toml:"quality_target"`
	ConvergenceTolerance float64 `toml:"convergence_tolerance"`
	SampleSize           int     `toml:"sample_size"`
	MaxIterations        int     `toml:"max_iterations"`
}

// DefaultCalibrationConfig mirrors the corpus's documented defaults.
var DefaultCalibrationConfig = CalibrationConfig{
	Enabled:              true,
	QualityTarget:        0.8,
	ConvergenceTolerance: 0.05,
	SampleSize:           200,
	MaxIterations:        50,
}

// Options assembles every knob the four phases take.
type Options struct {
	KgramSize   int
	LSH         LSHConfig
	Gate        StructuralGateConfig
	StopMotifs  StopMotifConfig
	Ranking     RankingConfig
	Calibration CalibrationConfig
}

// DefaultOptions is the denoiser's documented default configuration.
func DefaultOptions() Options {
	return Options{
		KgramSize:   DefaultKgramSize,
		LSH:         DefaultLSHConfig,
		Gate:        DefaultStructuralGateConfig,
		StopMotifs:  DefaultStopMotifConfig,
		Ranking:     DefaultRankingConfig,
		Calibration: DefaultCalibrationConfig,
	}
}

// Report is the denoiser's terminal output: the ranked survivors, every
// dropped candidate with its drop reason, entities excluded before Phase
// 1, and the calibration outcome when auto-calibration ran.
type Report struct {
	Ranked         []*Candidate
	Dropped        []*Candidate
	Unanalyzable   []string
	Proposed       int
	Calibration    *CalibrationResult
	Cache          *StopMotifCache
	CacheRefreshed bool
}

// TokensSaved sums SavedTokens over every ranked candidate.
func (r *Report) TokensSaved() int {
	var total int
	for _, c := range r.Ranked {
		total += c.SavedTokens
	}
	return total
}

// Denoiser runs the four-phase clone denoising pipeline over a corpus of
// entities. It is built fresh per run; the only state that outlives a run
// is the stop-motif cache, which callers persist via Store.
type Denoiser struct {
	opts  Options
	cache *StopMotifCache
}

// NewDenoiser creates a Denoiser. cache may be nil (treated as a cold
// stop-motif cache that will be mined on first run).
func NewDenoiser(opts Options, cache *StopMotifCache) *Denoiser {
	if opts.KgramSize < 1 {
		opts.KgramSize = DefaultKgramSize
	}
	return &Denoiser{opts: opts, cache: cache}
}

// Run executes Phases 1-4 over entities. fileOf resolves an entity ID to
// its file for the keep-top-per-file cap; boosts supplies the optional
// live-reachability multiplier per entity (missing entries default 1.0).
// Output is deterministic for identical inputs: candidate order is fixed
// by (EntityA, EntityB) at every stage.
func (d *Denoiser) Run(entities []EntityInput, boosts map[string]float64, now time.Time) *Report {
	report := &Report{}

	// Phase 1: shingle, weight, sign, and bucket.
	corpus := NewCorpus()
	kgramsByID := make(map[string][]string, len(entities))
	inputByID := make(map[string]EntityInput, len(entities))
	for _, e := range entities {
		inputByID[e.EntityID] = e
		grams := Kgrams(e.Tokens, d.opts.KgramSize)
		if len(grams) == 0 {
			report.Unanalyzable = append(report.Unanalyzable, e.EntityID)
			continue
		}
		kgramsByID[e.EntityID] = grams
		corpus.Add(grams)
	}

	sigByID := make(map[string]Signature, len(kgramsByID))
	signatures := make([]Signature, 0, len(kgramsByID))
	for _, e := range entities {
		grams, ok := kgramsByID[e.EntityID]
		if !ok {
			continue
		}
		sig := BuildSignature(e.EntityID, grams, len(e.Tokens), corpus)
		sigByID[e.EntityID] = sig
		signatures = append(signatures, sig)
	}

	pairs := CandidatePairs(signatures, d.opts.LSH)
	report.Proposed = len(pairs)

	candidates := make([]*Candidate, 0, len(pairs))
	for _, p := range pairs {
		c := NewCandidate(p)
		c.ApplySimilarityGate(d.opts.LSH.SimilarityThreshold)
		candidates = append(candidates, c)
	}

	// Phase 2: structural gate.
	for _, c := range candidates {
		if c.State != StateSimilarityKept {
			continue
		}
		a, b := inputByID[c.EntityA], inputByID[c.EntityB]
		pass, penalty := PassesStructuralGate(structureOf(a), structureOf(b), d.opts.Gate)
		c.ApplyStructuralGate(pass, penalty)
	}

	// Phase 3: stop-motif suppression. Refresh the cache from the live
	// corpus when any trigger fires, then gate on post-suppression rarity.
	signature := CorpusSignature(corpus)
	if d.cache.NeedsRefresh(signature, d.opts.StopMotifs, now) {
		motifCounts := make(map[uint64]int)
		for _, e := range entities {
			for m := range e.Motifs {
				motifCounts[m.Hash]++
			}
		}
		d.cache = BuildStopMotifCache(corpus, motifCounts, d.opts.StopMotifs, now)
		report.CacheRefreshed = true
	}
	report.Cache = d.cache

	for _, c := range candidates {
		if c.State != StateStructureKept {
			continue
		}
		gain := RarityGain(sigByID[c.EntityA], sigByID[c.EntityB], corpus, d.cache, d.opts.StopMotifs)
		c.ApplyRarityGate(gain, d.opts.StopMotifs.RarityFloor)
	}

	// Phase 4: payoff inputs, then rank.
	for _, c := range candidates {
		if c.State != StateRarityKept {
			continue
		}
		a, b := inputByID[c.EntityA], inputByID[c.EntityB]
		c.SavedTokens = savedTokens(a, b)
		c.Quality = ComputeQuality(sigByID[c.EntityA], sigByID[c.EntityB], c.RarityGain)
		if boost, ok := boosts[c.EntityA]; ok {
			c.LiveReachBoost = boost
		}
	}

	if d.opts.Calibration.Enabled {
		cal := d.calibrate(candidates)
		report.Calibration = &cal
	}

	fileOf := func(id string) string { return inputByID[id].FilePath }
	report.Ranked = Rank(candidates, d.opts.Ranking, fileOf)

	for _, c := range candidates {
		switch c.State {
		case StateRanked:
		default:
			report.Dropped = append(report.Dropped, c)
		}
	}
	return report
}

// calibrate binary-searches the similarity threshold so that the top
// sample of candidates clears the quality target. The evaluate closure
// re-applies the candidate threshold without mutating the real pipeline
// state: a candidate "passes" at a trial threshold if its (penalized)
// similarity clears it, and sample quality is the fraction of the
// top-SampleSize passers whose overall quality meets the target.
func (d *Denoiser) calibrate(candidates []*Candidate) CalibrationResult {
	cfg := d.opts.Calibration
	evaluate := func(threshold float64) float64 {
		var sampled, passing int
		for _, c := range candidates {
			if c.State != StateRarityKept && c.State != StateRanked {
				continue
			}
			if c.Similarity < threshold {
				continue
			}
			sampled++
			if c.Quality.OverallQuality >= cfg.QualityTarget {
				passing++
			}
			if sampled >= cfg.SampleSize {
				break
			}
		}
		if sampled == 0 {
			return 1 // nothing survives at this threshold, trivially "clean"
		}
		return float64(passing) / float64(sampled)
	}
	return AutoCalibrate(evaluate, cfg.QualityTarget, cfg.ConvergenceTolerance, cfg.MaxIterations)
}

// savedTokens estimates how many tokens one extraction would eliminate:
// the smaller side's token count, since an extraction replaces one of the
// two bodies with a call.
func savedTokens(a, b EntityInput) int {
	if len(a.Tokens) < len(b.Tokens) {
		return len(a.Tokens)
	}
	return len(b.Tokens)
}

func structureOf(e EntityInput) EntityStructure {
	return EntityStructure{
		EntityID:    e.EntityID,
		TokenCount:  len(e.Tokens),
		Blocks:      e.Blocks,
		Motifs:      e.Motifs,
		IOFootprint: e.IOFootprint,
	}
}
