package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsRunIDAndDictionary(t *testing.T) {
	a := New("/proj")
	b := New("/proj")

	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, "/proj", a.ProjectRoot)
	assert.False(t, a.CodeDictionary.IsEmpty())
}

func TestAnalysisResultsRoundTripsThroughJSON(t *testing.T) {
	res := New("/proj")
	res.Summary.FilesProcessed = 3
	res.AddWarning("skipped a file")
	res.CloneAnalysis = &CloneAnalysisResults{
		CandidatesProposed: 5,
		CandidatesRanked:   2,
		Pairs: []ClonePair{
			{EntityA: "a.go:fn:0", EntityB: "b.go:fn:0", Similarity: 0.97, SavedTokens: 42, Payoff: 12.5},
		},
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded AnalysisResults
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.RunID, decoded.RunID)
	assert.Equal(t, 3, decoded.Summary.FilesProcessed)
	assert.Equal(t, res.Warnings, decoded.Warnings)
	require.NotNil(t, decoded.CloneAnalysis)
	assert.Equal(t, res.CloneAnalysis.Pairs, decoded.CloneAnalysis.Pairs)
}

func TestDictionaryCoversEveryEmittedCode(t *testing.T) {
	for _, code := range []string{
		"long_method", "complex_conditional", "large_type", "duplicate_code",
		"high_cyclomatic", "high_cognitive", "low_maintainability",
		"max_nesting_depth", "parameter_count", "lines_of_code",
	} {
		assert.Contains(t, DefaultCodeDictionary, code)
	}
}
