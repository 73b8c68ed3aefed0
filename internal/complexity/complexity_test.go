package complexity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

const branchy = `package sample

func Classify(x int) int {
	if x > 10 {
		if x > 100 {
			return 3
		}
		return 2
	} else if x > 0 {
		return 1
	}
	return 0
}

func Trivial() int {
	return 1
}
`

func TestAnalyzeComputesHigherComplexityForBranchyFunction(t *testing.T) {
	parser := lang.NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(branchy))
	require.NoError(t, err)

	adapter := lang.NewAdapter(lang.GoSpec)
	idx, err := adapter.Extract("sample.go", []byte(branchy), tree)
	require.NoError(t, err)

	var classify, trivial *entityWithMetrics
	d := New(DefaultThresholds)
	for _, e := range idx.Functions() {
		node := lang.Node(e)
		require.NotNil(t, node)
		m, _ := d.Analyze(e, node, []byte(branchy), lang.GoSpec)
		if e.Name == "Classify" {
			classify = &entityWithMetrics{m}
		}
		if e.Name == "Trivial" {
			trivial = &entityWithMetrics{m}
		}
	}

	require.NotNil(t, classify)
	require.NotNil(t, trivial)
	assert.Greater(t, classify.m.Cyclomatic, trivial.m.Cyclomatic)
	assert.Greater(t, classify.m.Cognitive, trivial.m.Cognitive)
	assert.GreaterOrEqual(t, classify.m.MaxNestingDepth, 1)
}

type entityWithMetrics struct{ m Metrics }

func TestSeverityForScalesWithRatio(t *testing.T) {
	assert.Equal(t, SeverityLow, severityFor(5, 15))
	assert.Equal(t, SeverityMedium, severityFor(15, 15))
	assert.Equal(t, SeverityHigh, severityFor(23, 15))
	assert.Equal(t, SeverityVeryHigh, severityFor(30, 15))
	assert.Equal(t, SeverityCritical, severityFor(45, 15))
}

func TestMaintainabilityIndexIsBounded(t *testing.T) {
	mi := maintainabilityIndex(500, 20, 100)
	assert.GreaterOrEqual(t, mi, 0.0)
	assert.LessOrEqual(t, mi, 100.0)

	assert.Equal(t, 0.0, maintainabilityIndex(0, 1, 10))
}
