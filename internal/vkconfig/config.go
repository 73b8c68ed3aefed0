// Package vkconfig is the hierarchical TOML configuration surface: one
// struct tree covering discovery, every detector, scoring, and the
// quality gate, with a Validate() that mirrors the field-level checks
// the original project's own config validators perform.
package vkconfig

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/sibyllinesoft/valknut-go/internal/clone"
	"github.com/sibyllinesoft/valknut-go/internal/complexity"
	"github.com/sibyllinesoft/valknut-go/internal/coverage"
	"github.com/sibyllinesoft/valknut-go/internal/refactoring"
	"github.com/sibyllinesoft/valknut-go/internal/scoring"
	"github.com/sibyllinesoft/valknut-go/internal/structure"
)

// Config is the root of the analysis configuration tree.
type Config struct {
	Analysis    AnalysisConfig        `toml:"analysis"`
	Complexity  complexity.Thresholds `toml:"complexity"`
	Refactoring refactoring.Config    `toml:"refactoring"`
	LSH         clone.LSHConfig       `toml:"lsh"`
	Denoise     DenoiseConfig         `toml:"denoise"`
	Structure   StructureConfig       `toml:"structure"`
	Coverage    CoverageConfig        `toml:"coverage"`
	Scoring     ScoringConfig         `toml:"scoring"`
	Performance PerformanceConfig     `toml:"performance"`
	QualityGate QualityGateConfig     `toml:"quality_gate"`
}

// AnalysisConfig governs file discovery and which detector stages run.
type AnalysisConfig struct {
	IncludeGlobs     []string `toml:"include_globs"`
	ExcludeGlobs     []string `toml:"exclude_globs"`
	MaxFiles         int      `toml:"max_files"`
	MaxFileSizeBytes int64    `toml:"max_file_size_bytes"`
	FollowSymlinks   bool     `toml:"follow_symlinks"`

	EnableScoring     bool `toml:"enable_scoring"`
	EnableClones      bool `toml:"enable_clones"`
	EnableRefactoring bool `toml:"enable_refactoring"`
	EnableStructure   bool `toml:"enable_structure"`
	EnableCoverage    bool `toml:"enable_coverage"`
}

// DenoiseConfig governs clone-denoising Phase 1-4 knobs beyond LSH
// itself: k-gram size, the structural gate, and stop-motif suppression.
// DryRun runs all four phases but marks the results advisory.
type DenoiseConfig struct {
	Enabled         bool                       `toml:"enabled"`
	DryRun          bool                       `toml:"dry_run"`
	KgramSize       int                        `toml:"kgram_size"`
	StructuralGate  clone.StructuralGateConfig `toml:"structural_gate"`
	StopMotifs      clone.StopMotifConfig      `toml:"stop_motifs"`
	Ranking         clone.RankingConfig        `toml:"ranking"`
	AutoCalibration clone.CalibrationConfig    `toml:"auto_calibration"`
	CachePath       string                     `toml:"cache_path"`
}

// StructureConfig wraps the directory-imbalance and reorg/split knobs.
type StructureConfig struct {
	Pressure structure.Config      `toml:"pressure"`
	Reorg    structure.ReorgConfig `toml:"reorg"`
	Split    structure.SplitConfig `toml:"split"`
}

// CoverageConfig wraps the live-reachability weighting.
type CoverageConfig struct {
	LiveReach coverage.LiveReachConfig `toml:"live_reach"`
	MinRatio  float64                  `toml:"min_ratio"`
}

// ScoringConfig selects the normalization scheme and category weights.
type ScoringConfig struct {
	Scheme              scoring.Scheme          `toml:"scheme"`
	UseBayesianFallback bool                    `toml:"use_bayesian_fallback"`
	CategoryWeights     scoring.CategoryWeights `toml:"category_weights"`
}

// PerformanceConfig bounds worker concurrency and timeouts. A zero
// TotalTimeoutSecs means the run is unbounded.
type PerformanceConfig struct {
	MaxWorkers       int `toml:"max_workers"`
	FileTimeoutSecs  int `toml:"file_timeout_secs"`
	TotalTimeoutSecs int `toml:"total_timeout_secs"`
}

// QualityGateConfig mirrors the original project's CI gate thresholds.
type QualityGateConfig struct {
	Enabled                 bool    `toml:"enabled"`
	MaxComplexityScore      float64 `toml:"max_complexity_score"`
	MaxTechnicalDebtRatio   float64 `toml:"max_technical_debt_ratio"`
	MinMaintainabilityScore float64 `toml:"min_maintainability_score"`
	MaxCriticalIssues       int     `toml:"max_critical_issues"`
	MaxHighPriorityIssues   int     `toml:"max_high_priority_issues"`
}

// Default returns the engine's built-in defaults, assembled from each
// package's own documented default value rather than re-stating them
// here, so a change to a detector's default can't silently drift out of
// sync with the config surface.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			IncludeGlobs:      []string{"**/*"},
			ExcludeGlobs:      []string{"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/dist/**", "**/build/**"},
			MaxFiles:          10_000,
			MaxFileSizeBytes:  500 * 1024,
			FollowSymlinks:    false,
			EnableScoring:     true,
			EnableClones:      true,
			EnableRefactoring: true,
			EnableStructure:   true,
			EnableCoverage:    true,
		},
		Complexity:  complexity.DefaultThresholds,
		Refactoring: refactoring.DefaultConfig,
		LSH:         clone.DefaultLSHConfig,
		Denoise: DenoiseConfig{
			Enabled:         true,
			KgramSize:       clone.DefaultKgramSize,
			StructuralGate:  clone.DefaultStructuralGateConfig,
			StopMotifs:      clone.DefaultStopMotifConfig,
			Ranking:         clone.DefaultRankingConfig,
			AutoCalibration: clone.DefaultCalibrationConfig,
		},
		Structure: StructureConfig{
			Pressure: structure.DefaultConfig,
			Reorg:    structure.DefaultReorgConfig,
			Split:    structure.DefaultSplitConfig,
		},
		Coverage: CoverageConfig{
			LiveReach: coverage.DefaultLiveReachConfig,
			MinRatio:  0.5,
		},
		Scoring: ScoringConfig{
			Scheme:              scoring.SchemeRobustBayesian,
			UseBayesianFallback: true,
			CategoryWeights:     scoring.DefaultCategoryWeights,
		},
		Performance: PerformanceConfig{
			MaxWorkers:       0, // 0 means "use GOMAXPROCS", resolved by the pipeline
			FileTimeoutSecs:  30,
			TotalTimeoutSecs: 0,
		},
		QualityGate: QualityGateConfig{
			Enabled:                 true,
			MaxComplexityScore:      15.0,
			MaxTechnicalDebtRatio:   30.0,
			MinMaintainabilityScore: 20.0,
			MaxCriticalIssues:       0,
			MaxHighPriorityIssues:   10,
		},
	}
}

// Load parses a TOML document into a Config seeded with Default(), so an
// omitted section falls back to its documented default rather than a
// zero value.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every cross-field invariant the sub-configs require,
// mirroring the original project's own per-section validators (num_bands
// must divide num_hashes, thresholds must be non-negative, weight sums
// must land near 1.0).
func (c Config) Validate() error {
	if c.LSH.NumBands <= 0 {
		return fmt.Errorf("lsh.num_bands must be > 0")
	}
	if clone.SignatureWidth%c.LSH.NumBands != 0 {
		return fmt.Errorf("lsh.num_bands (%d) must divide the signature width (%d)", c.LSH.NumBands, clone.SignatureWidth)
	}
	if c.LSH.SimilarityThreshold < 0 || c.LSH.SimilarityThreshold > 1 {
		return fmt.Errorf("lsh.similarity_threshold must be in [0,1], got %f", c.LSH.SimilarityThreshold)
	}
	if c.Denoise.KgramSize <= 0 {
		return fmt.Errorf("denoise.kgram_size must be > 0")
	}
	if c.Denoise.StructuralGate.MinMatchTokens <= 0 {
		return fmt.Errorf("denoise.structural_gate.min_match_tokens must be > 0")
	}
	if c.Denoise.StopMotifs.Percentile < 0 || c.Denoise.StopMotifs.Percentile > 1 {
		return fmt.Errorf("denoise.stop_motifs.percentile must be in [0,1]")
	}
	if c.Denoise.StopMotifs.RefreshDays <= 0 {
		return fmt.Errorf("denoise.stop_motifs.refresh_days must be > 0")
	}
	if !c.Coverage.LiveReach.Weights.ValidateWeights() {
		return fmt.Errorf("coverage.live_reach.weights must sum to ~1.0")
	}
	if c.Analysis.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("analysis.max_file_size_bytes must be > 0")
	}
	if c.Analysis.MaxFiles <= 0 {
		return fmt.Errorf("analysis.max_files must be > 0")
	}
	if c.LSH.MaxCandidates < 0 {
		return fmt.Errorf("lsh.max_candidates must be >= 0")
	}
	if cal := c.Denoise.AutoCalibration; cal.Enabled {
		if cal.QualityTarget <= 0 || cal.QualityTarget > 1 {
			return fmt.Errorf("denoise.auto_calibration.quality_target must be in (0,1]")
		}
		if cal.SampleSize <= 0 || cal.MaxIterations <= 0 {
			return fmt.Errorf("denoise.auto_calibration sample_size and max_iterations must be > 0")
		}
	}
	if c.QualityGate.MaxCriticalIssues < 0 || c.QualityGate.MaxHighPriorityIssues < 0 {
		return fmt.Errorf("quality_gate issue limits must be >= 0")
	}
	return nil
}
