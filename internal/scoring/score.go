package scoring

import "strings"

// FeatureVector is the per-entity bag of raw/normalized feature values
// the scorer consumes and mutates in place.
type FeatureVector struct {
	EntityID   string
	Features   map[string]float64
	Normalized map[string]float64
}

// Priority is the scoring result's refactoring urgency bucket.
type Priority string

const (
	PriorityNone     Priority = "None"
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// CategoryWeights configures the per-category weighting used both to
// normalize category scores and to weight each feature's contribution
// to the overall score.
type CategoryWeights struct {
	Complexity float64 `toml:"complexity"`
	Graph      float64 `toml:"graph"`
	Structure  float64 `toml:"structure"`
	Style      float64 `toml:"style"`
	Coverage   float64 `toml:"coverage"`
	Other      float64 `toml:"other"`
}

// DefaultCategoryWeights mirrors an even split across the five named
// categories, with "other" given full weight so unmatched features
// still contribute.
var DefaultCategoryWeights = CategoryWeights{
	Complexity: 1.0,
	Graph:      1.0,
	Structure:  1.0,
	Style:      1.0,
	Coverage:   1.0,
	Other:      1.0,
}

// categoryPatterns maps feature-name substrings to a category, checked
// in order so more specific keywords can be listed first.
var categoryPatterns = []struct {
	keywords []string
	category string
}{
	{[]string{"cyclomatic", "cognitive", "complexity"}, "complexity"},
	{[]string{"betweenness", "centrality", "fan_"}, "graph"},
	{[]string{"structure", "class", "method", "function", "directory", "lines_of_code"}, "structure"},
	{[]string{"style", "naming", "format"}, "style"},
	{[]string{"coverage", "test"}, "coverage"},
}

// CategoryFor classifies a feature name into one of the five fixed
// categories (falling back to "other"), and returns that category's
// configured weight.
func CategoryFor(featureName string, weights CategoryWeights) (string, float64) {
	for _, p := range categoryPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(featureName, kw) {
				return p.category, weightFor(p.category, weights)
			}
		}
	}
	return "other", weights.Other
}

func weightFor(category string, weights CategoryWeights) float64 {
	switch category {
	case "complexity":
		return weights.Complexity
	case "graph":
		return weights.Graph
	case "structure":
		return weights.Structure
	case "style":
		return weights.Style
	case "coverage":
		return weights.Coverage
	default:
		return weights.Other
	}
}

// ScoringResult is the per-entity output of feature scoring.
type ScoringResult struct {
	EntityID               string
	OverallScore           float64
	Priority               Priority
	CategoryScores         map[string]float64
	FeatureContributions   map[string]float64
	NormalizedFeatureCount int
	Confidence             float64
}

// Scorer combines a Normalizer with category weights to produce
// ScoringResults from fitted feature vectors.
type Scorer struct {
	normalizer *Normalizer
	weights    CategoryWeights
}

// NewScorer creates a Scorer around the given Normalizer and weights.
func NewScorer(normalizer *Normalizer, weights CategoryWeights) *Scorer {
	return &Scorer{normalizer: normalizer, weights: weights}
}

// Fit delegates to the underlying Normalizer.
func (s *Scorer) Fit(vectors []FeatureVector) { s.normalizer.Fit(vectors) }

// Score normalizes every vector then computes a ScoringResult for each.
func (s *Scorer) Score(vectors []FeatureVector) []ScoringResult {
	s.normalizer.Normalize(vectors)
	results := make([]ScoringResult, len(vectors))
	for i, v := range vectors {
		results[i] = s.computeScore(v)
	}
	return results
}

func (s *Scorer) computeScore(v FeatureVector) ScoringResult {
	categoryScores := make(map[string]float64)
	categoryWeightSum := make(map[string]float64)
	contributions := make(map[string]float64, len(v.Normalized))

	var totalWeighted, totalWeight float64
	for name, normalizedValue := range v.Normalized {
		category, weight := CategoryFor(name, s.weights)
		contribution := normalizedValue * weight
		contributions[name] = contribution

		categoryScores[category] += contribution
		categoryWeightSum[category] += weight

		totalWeighted += contribution
		totalWeight += weight
	}

	for category, score := range categoryScores {
		if w := categoryWeightSum[category]; w > 0 {
			categoryScores[category] = score / w
		}
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = totalWeighted / totalWeight
	}

	return ScoringResult{
		EntityID:               v.EntityID,
		OverallScore:           overall,
		Priority:               PriorityFor(overall),
		CategoryScores:         categoryScores,
		FeatureContributions:   contributions,
		NormalizedFeatureCount: len(v.Normalized),
		Confidence:             s.confidenceFor(v),
	}
}

// PriorityFor maps an overall score's magnitude onto the priority ladder.
func PriorityFor(score float64) Priority {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 2.0:
		return PriorityCritical
	case abs >= 1.5:
		return PriorityHigh
	case abs >= 1.0:
		return PriorityMedium
	case abs >= 0.5:
		return PriorityLow
	default:
		return PriorityNone
	}
}

func (s *Scorer) confidenceFor(v FeatureVector) float64 {
	featureCount := float64(len(v.Normalized))
	base := featureCount / 10.0
	if base > 1 {
		base = 1
	}

	if s.normalizer.bayesian == nil {
		return base
	}

	var sum float64
	var count int
	for name := range v.Normalized {
		sum += s.normalizer.bayesian.Confidence(name)
		count++
	}
	if count == 0 {
		return base
	}
	return base * (sum / float64(count))
}
