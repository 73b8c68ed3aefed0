package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromValuesComputesClassicalStats(t *testing.T) {
	s := FromValues([]float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.InDelta(t, 3.0, s.Median, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 5, s.Samples)
}

func TestWelfordAccumulatorMatchesClassicalMean(t *testing.T) {
	w := NewWelfordAccumulator()
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	for _, v := range values {
		w.Add(v)
	}
	classical := FromValues(values)
	stats := w.Stats()
	assert.InDelta(t, classical.Mean, stats.Mean, 1e-9)
	assert.InDelta(t, classical.Variance, stats.Variance, 1e-9)
}

func TestNormalizerZScoreHandlesDegenerateVariance(t *testing.T) {
	n := NewNormalizer(SchemeZScore, false)
	vectors := []FeatureVector{
		{EntityID: "a", Features: map[string]float64{"x": 5}},
		{EntityID: "b", Features: map[string]float64{"x": 5}},
	}
	n.Fit(vectors)
	n.Normalize(vectors)
	assert.Equal(t, 0.0, vectors[0].Normalized["x"])
}

func TestNormalizerMinMaxNormalizesToUnitRange(t *testing.T) {
	n := NewNormalizer(SchemeMinMax, false)
	vectors := []FeatureVector{
		{EntityID: "a", Features: map[string]float64{"x": 0}},
		{EntityID: "b", Features: map[string]float64{"x": 50}},
		{EntityID: "c", Features: map[string]float64{"x": 100}},
	}
	n.Fit(vectors)
	n.Normalize(vectors)
	assert.InDelta(t, 0.0, vectors[0].Normalized["x"], 1e-9)
	assert.InDelta(t, 0.5, vectors[1].Normalized["x"], 1e-9)
	assert.InDelta(t, 1.0, vectors[2].Normalized["x"], 1e-9)
}

func TestNormalizerSaturatesExtremeValues(t *testing.T) {
	n := NewNormalizer(SchemeZScore, false)
	vectors := []FeatureVector{
		{EntityID: "a", Features: map[string]float64{"x": 1}},
		{EntityID: "b", Features: map[string]float64{"x": 2}},
		{EntityID: "c", Features: map[string]float64{"x": 1000}},
	}
	n.Fit(vectors)
	n.Normalize(vectors)
	assert.LessOrEqual(t, vectors[2].Normalized["x"], 10.0)
	assert.GreaterOrEqual(t, vectors[2].Normalized["x"], -10.0)
}

func TestCategoryForClassifiesKnownFeatureNames(t *testing.T) {
	cat, weight := CategoryFor("cyclomatic_complexity", DefaultCategoryWeights)
	assert.Equal(t, "complexity", cat)
	assert.Equal(t, DefaultCategoryWeights.Complexity, weight)

	cat, _ = CategoryFor("test_coverage_ratio", DefaultCategoryWeights)
	assert.Equal(t, "coverage", cat)

	cat, _ = CategoryFor("totally_unmapped_metric", DefaultCategoryWeights)
	assert.Equal(t, "other", cat)
}

func TestPriorityForThresholds(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFor(2.5))
	assert.Equal(t, PriorityHigh, PriorityFor(1.6))
	assert.Equal(t, PriorityMedium, PriorityFor(1.2))
	assert.Equal(t, PriorityLow, PriorityFor(0.6))
	assert.Equal(t, PriorityNone, PriorityFor(0.1))
	assert.Equal(t, PriorityCritical, PriorityFor(-2.5))
}

func TestScorerProducesWeightedOverallScore(t *testing.T) {
	n := NewNormalizer(SchemeMinMax, false)
	scorer := NewScorer(n, DefaultCategoryWeights)
	vectors := []FeatureVector{
		{EntityID: "a", Features: map[string]float64{"cyclomatic_complexity": 0}},
		{EntityID: "b", Features: map[string]float64{"cyclomatic_complexity": 10}},
		{EntityID: "c", Features: map[string]float64{"cyclomatic_complexity": 20}},
	}
	scorer.Fit(vectors)
	results := scorer.Score(vectors)
	require := assert.New(t)
	require.Len(results, 3)
	require.InDelta(1.0, results[2].OverallScore, 1e-9)
	require.Equal("complexity", func() string {
		for c := range results[2].CategoryScores {
			return c
		}
		return ""
	}())
}

func TestBayesianNormalizerProducesLowerConfidenceForSmallSamples(t *testing.T) {
	n := NewNormalizer(SchemeZScoreBayesian, true)
	small := []FeatureVector{
		{EntityID: "a", Features: map[string]float64{"x": 1}},
	}
	n.Fit(small)
	assert.Less(t, n.bayesian.Confidence("x"), 0.5)

	large := make([]FeatureVector, 100)
	for i := range large {
		large[i] = FeatureVector{EntityID: "e", Features: map[string]float64{"x": float64(i)}}
	}
	n.Fit(large)
	assert.Greater(t, n.bayesian.Confidence("x"), 0.9)
}
