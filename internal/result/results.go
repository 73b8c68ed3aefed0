// Package result defines the analysis engine's public output shape:
// AnalysisResults, its summary, per-entity refactoring candidates, and
// the self-describing code dictionary that lets downstream consumers
// render issue/suggestion codes without hardcoding their meaning.
package result

import (
	"time"

	"github.com/google/uuid"

	"github.com/sibyllinesoft/valknut-go/internal/health"
	"github.com/sibyllinesoft/valknut-go/internal/scoring"
	"github.com/sibyllinesoft/valknut-go/internal/structure"
)

// AnalysisResults is the top-level record a pipeline run produces.
type AnalysisResults struct {
	RunID       string `json:"run_id"`
	ProjectRoot string `json:"project_root"`

	Summary AnalysisSummary `json:"summary"`

	RefactoringCandidates []RefactoringCandidate `json:"refactoring_candidates"`

	ScoringResults []scoring.ScoringResult `json:"scoring_results,omitempty"`

	CloneAnalysis *CloneAnalysisResults `json:"clone_analysis,omitempty"`

	ReorgPacks    []structure.ReorgPack `json:"reorg_packs,omitempty"`
	SplitPacks    []structure.SplitPack `json:"split_packs,omitempty"`
	CoveragePacks []CoveragePack        `json:"coverage_packs,omitempty"`

	DirectoryHealth map[string]float64        `json:"directory_health,omitempty"`
	FileHealth      map[string]float64        `json:"file_health,omitempty"`
	EntityHealth    map[string]float64        `json:"entity_health,omitempty"`
	Hotspots        []health.Hotspot          `json:"hotspots,omitempty"`
	DepthBuckets    []health.DepthBucketStats `json:"depth_buckets,omitempty"`

	QualityGate *QualityGateResult `json:"quality_gate,omitempty"`

	Warnings []string `json:"warnings"`

	CodeDictionary CodeDictionary `json:"code_dictionary,omitempty"`

	Duration time.Duration `json:"duration"`
}

// New creates an empty AnalysisResults for a project root with a fresh
// run identifier and the default code dictionary attached.
func New(projectRoot string) *AnalysisResults {
	return &AnalysisResults{
		RunID:          uuid.NewString(),
		ProjectRoot:    projectRoot,
		Warnings:       []string{},
		CodeDictionary: DefaultCodeDictionary,
	}
}

// AddWarning appends a recoverable problem to the result's warning list.
func (r *AnalysisResults) AddWarning(w string) {
	r.Warnings = append(r.Warnings, w)
}

// AnalysisSummary is the pipeline's aggregate scorecard.
type AnalysisSummary struct {
	FilesProcessed    int      `json:"files_processed"`
	EntitiesAnalyzed  int      `json:"entities_analyzed"`
	RefactoringNeeded int      `json:"refactoring_needed"`
	HighPriorityCount int      `json:"high_priority_count"`
	CriticalCount     int      `json:"critical_count"`
	AvgScore          float64  `json:"avg_refactoring_score"`
	CodeHealthScore   float64  `json:"code_health_score"`
	TotalLinesOfCode  int      `json:"total_lines_of_code"`
	Languages         []string `json:"languages"`
	TotalIssues       int      `json:"total_issues"`
	ClonePairsFound   int      `json:"clone_pairs_found"`
}

// RefactoringCandidate is one entity flagged as needing attention, with
// its overall score/priority/confidence and the issues behind them.
type RefactoringCandidate struct {
	EntityID   string           `json:"entity_id"`
	Name       string           `json:"name"`
	FilePath   string           `json:"file_path"`
	LineRange  [2]int           `json:"line_range"`
	Priority   scoring.Priority `json:"priority"`
	Score      float64          `json:"score"`
	Confidence float64          `json:"confidence"`
	Issues     []string         `json:"issues"`
}

// CoveragePack is one poorly-covered entity surfaced from the joined
// coverage table: which entity, how covered it is, and how far below the
// configured minimum it falls.
type CoveragePack struct {
	EntityID  string  `json:"entity_id"`
	FilePath  string  `json:"file_path"`
	LineRatio float64 `json:"line_ratio"`
	Gap       float64 `json:"gap"`
}

// ClonePair is one ranked clone candidate surfaced in the final report.
type ClonePair struct {
	EntityA     string  `json:"entity_a"`
	EntityB     string  `json:"entity_b"`
	Similarity  float64 `json:"similarity"`
	SavedTokens int     `json:"saved_tokens"`
	Payoff      float64 `json:"payoff"`
}

// CloneAnalysisResults summarizes the clone-denoising pipeline's output.
type CloneAnalysisResults struct {
	CandidatesProposed  int         `json:"candidates_proposed"`
	CandidatesRanked    int         `json:"candidates_ranked"`
	TokensSaved         int         `json:"tokens_saved"`
	CalibratedThreshold float64     `json:"calibrated_threshold"`
	AchievedQuality     float64     `json:"achieved_quality"`
	CacheRefreshed      bool        `json:"cache_refreshed"`
	DryRun              bool        `json:"dry_run,omitempty"`
	Pairs               []ClonePair `json:"pairs,omitempty"`
}

// QualityGateViolation is a single threshold breach, with the same
// current/threshold/severity/recommended-actions shape the engine has
// always reported so CI integrations don't need to special-case this
// rewrite.
type QualityGateViolation struct {
	RuleName           string   `json:"rule_name"`
	Description        string   `json:"description"`
	CurrentValue       float64  `json:"current_value"`
	Threshold          float64  `json:"threshold"`
	Severity           string   `json:"severity"`
	AffectedFiles      []string `json:"affected_files"`
	RecommendedActions []string `json:"recommended_actions"`
}

// QualityGateResult is the outcome of evaluating a QualityGateConfig
// against an AnalysisResults.
type QualityGateResult struct {
	Passed       bool                   `json:"passed"`
	Violations   []QualityGateViolation `json:"violations"`
	OverallScore float64                `json:"overall_score"`
}

// CodeDictionary maps short issue/suggestion codes to human-readable
// descriptions, so a consumer rendering a report doesn't need to embed
// its own copy of every message this engine can produce.
type CodeDictionary map[string]string

// IsEmpty reports whether the dictionary has no entries. JSON encoding
// does not call it; the omitempty tag on AnalysisResults.CodeDictionary
// is what drops an empty dictionary from JSON output.
func (d CodeDictionary) IsEmpty() bool { return len(d) == 0 }

// DefaultCodeDictionary documents every code a RefactoringCandidate's
// Issues field may contain.
var DefaultCodeDictionary = CodeDictionary{
	"long_method":         "Function/method body exceeds the configured maximum line count.",
	"complex_conditional": "Function/method has more independent decision paths than the configured maximum.",
	"large_type":          "Class/struct/interface has more members than the configured maximum.",
	"duplicate_code":      "Function/method is structurally identical to at least one other entity in the corpus.",
	"high_cyclomatic":     "Cyclomatic complexity exceeds its configured threshold.",
	"high_cognitive":      "Cognitive (nesting-weighted) complexity exceeds its configured threshold.",
	"low_maintainability": "Maintainability index fell below its configured minimum.",
	"max_nesting_depth":   "Function/method nests blocks deeper than the configured maximum.",
	"parameter_count":     "Function/method takes more parameters than the configured maximum.",
	"lines_of_code":       "Function/method spans more lines of code than the configured maximum.",
	"directory_imbalance": "Directory's file/branch/size distribution is imbalanced enough to warrant reorganization.",
	"low_coverage":        "Entity has measured test coverage below the configured minimum.",
}
