package clone

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

const srcA = `package sample

func ValidateUser(name string, age int) bool {
	if age < 0 {
		return false
	}
	if name == "" {
		return false
	}
	return true
}
`

const srcB = `package sample

func ValidatePerson(label string, years int) bool {
	if years < 0 {
		return false
	}
	if label == "" {
		return false
	}
	return true
}
`

const srcC = `package sample

func ComputeTotal(items []int) int {
	total := 0
	for _, v := range items {
		total += v
	}
	return total
}
`

func extractFn(t *testing.T, src, name string) (tokens []string) {
	t.Helper()
	parser := lang.NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(src))
	require.NoError(t, err)
	adapter := lang.NewAdapter(lang.GoSpec)
	idx, err := adapter.Extract(name+".go", []byte(src), tree)
	require.NoError(t, err)
	fn := idx.Functions()[0]
	node := lang.Node(fn)
	require.NotNil(t, node)
	return Tokenize(node, []byte(src), lang.GoSpec)
}

func TestCandidatePairsFindsNearDuplicatesNotUnrelated(t *testing.T) {
	tokensA := extractFn(t, srcA, "a")
	tokensB := extractFn(t, srcB, "b")
	tokensC := extractFn(t, srcC, "c")

	corpus := NewCorpus()
	kgA := Kgrams(tokensA, 3)
	kgB := Kgrams(tokensB, 3)
	kgC := Kgrams(tokensC, 3)
	corpus.Add(kgA)
	corpus.Add(kgB)
	corpus.Add(kgC)

	sigs := []Signature{
		BuildSignature("a", kgA, len(tokensA), corpus),
		BuildSignature("b", kgB, len(tokensB), corpus),
		BuildSignature("c", kgC, len(tokensC), corpus),
	}

	cfg := DefaultLSHConfig
	cfg.SimilarityThreshold = 0.5
	pairs := CandidatePairs(sigs, cfg)

	found := false
	for _, p := range pairs {
		if (p.EntityA == "a" && p.EntityB == "b") || (p.EntityA == "b" && p.EntityB == "a") {
			found = true
		}
		assert.False(t, p.EntityA == "c" || p.EntityB == "c", "unrelated entity c should not pair at this threshold")
	}
	assert.True(t, found, "ValidateUser/ValidatePerson should be flagged as near-duplicates")
}

func TestKgramsExcludesShortTokenStreams(t *testing.T) {
	assert.Nil(t, Kgrams([]string{"a", "b"}, 9))
	assert.Len(t, Kgrams([]string{"a", "b", "c"}, 3), 1)
}

func TestBasicBlocksPartitionsOnDecisionPoints(t *testing.T) {
	parser := lang.NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(srcA))
	require.NoError(t, err)
	adapter := lang.NewAdapter(lang.GoSpec)
	idx, err := adapter.Extract("a.go", []byte(srcA), tree)
	require.NoError(t, err)
	fn := idx.Functions()[0]
	node := lang.Node(fn)
	require.NotNil(t, node)

	blocks := BasicBlocks(node, lang.GoSpec)
	assert.GreaterOrEqual(t, len(blocks), 2)
}

func TestPassesStructuralGateRequiresEnoughBlocksAndTokens(t *testing.T) {
	a := EntityStructure{
		EntityID:   "a",
		TokenCount: 40,
		Blocks:     []BasicBlock{{StatementCount: 1}, {StatementCount: 1}},
		Motifs:     map[Motif]bool{{Category: MotifConditional, Hash: 1}: true},
	}
	b := EntityStructure{
		EntityID:   "b",
		TokenCount: 40,
		Blocks:     []BasicBlock{{StatementCount: 1}, {StatementCount: 1}},
		Motifs:     map[Motif]bool{{Category: MotifConditional, Hash: 1}: true},
	}
	pass, penalty := PassesStructuralGate(a, b, DefaultStructuralGateConfig)
	assert.True(t, pass)
	assert.Equal(t, 1.0, penalty)

	b.IOFootprint.WritesDB = true
	pass, penalty = PassesStructuralGate(a, b, DefaultStructuralGateConfig)
	assert.True(t, pass)
	assert.Less(t, penalty, 1.0)

	small := EntityStructure{EntityID: "small", TokenCount: 5, Blocks: a.Blocks, Motifs: a.Motifs}
	pass, _ = PassesStructuralGate(a, small, DefaultStructuralGateConfig)
	assert.False(t, pass)
}

func TestStopMotifCacheSuppressesFrequentKgrams(t *testing.T) {
	corpus := NewCorpus()
	for i := 0; i < 100; i++ {
		corpus.Add([]string{"common-gram"})
	}
	corpus.Add([]string{"rare-gram"})

	cache := BuildStopMotifCache(corpus, nil, DefaultStopMotifConfig, time.Now())
	suppressed := cache.SuppressedIDF("common-gram", corpus.IDF("common-gram"), DefaultStopMotifConfig)
	unsuppressed := cache.SuppressedIDF("rare-gram", corpus.IDF("rare-gram"), DefaultStopMotifConfig)
	assert.Less(t, suppressed, unsuppressed)
}

func TestCandidateStateMachineAdvancesAndDrops(t *testing.T) {
	c := NewCandidate(Pair{EntityA: "a", EntityB: "b", Similarity: 0.9})
	c.ApplySimilarityGate(0.8)
	assert.Equal(t, StateSimilarityKept, c.State)

	c.ApplyStructuralGate(true, 1.0)
	assert.Equal(t, StateStructureKept, c.State)

	c.ApplyRarityGate(0.5, 0.1)
	assert.Equal(t, StateRarityKept, c.State)

	c.SavedTokens = 50
	c.Quality = QualityMetrics{OverallQuality: 0.9, StructureRatio: 0.8, Uniqueness: 0.8, Fragmentarity: 0.1}
	c.Payoff = Payoff(c, FormulaStandard)
	c.Finalize(10)
	assert.Equal(t, StateRanked, c.State)
}

func TestCandidateDropsWhenSimilarityTooLow(t *testing.T) {
	c := NewCandidate(Pair{EntityA: "a", EntityB: "b", Similarity: 0.4})
	c.ApplySimilarityGate(0.8)
	assert.Equal(t, StateSimilarityRejected, c.State)
	assert.NotEmpty(t, c.DropReason)
}

func TestRankAppliesKeepTopPerFileAndDeterministicOrder(t *testing.T) {
	mk := func(a, b string, payoff float64) *Candidate {
		return &Candidate{EntityA: a, EntityB: b, State: StateRarityKept, SavedTokens: 100,
			RarityGain: payoff, LiveReachBoost: 1, Quality: QualityMetrics{OverallQuality: 1}}
	}
	candidates := []*Candidate{mk("x1", "y1", 3), mk("x2", "y2", 2), mk("x3", "y3", 1)}
	fileOf := func(id string) string { return "one-file" }

	cfg := RankingConfig{Formula: FormulaStandard, KeepTopPerFile: 2, MinSavedTokens: 0}
	ranked := Rank(candidates, cfg, fileOf)
	require.Len(t, ranked, 2)
	assert.Equal(t, "x1", ranked[0].EntityA)
	assert.Equal(t, "x2", ranked[1].EntityA)
}

func TestComputeQualityRewardsOverlapAndRarity(t *testing.T) {
	tokensA := extractFn(t, srcA, "a")
	tokensB := extractFn(t, srcB, "b")
	tokensC := extractFn(t, srcC, "c")

	corpus := NewCorpus()
	kgA, kgB, kgC := Kgrams(tokensA, 3), Kgrams(tokensB, 3), Kgrams(tokensC, 3)
	corpus.Add(kgA)
	corpus.Add(kgB)
	corpus.Add(kgC)

	sigA := BuildSignature("a", kgA, len(tokensA), corpus)
	sigB := BuildSignature("b", kgB, len(tokensB), corpus)
	sigC := BuildSignature("c", kgC, len(tokensC), corpus)

	near := ComputeQuality(sigA, sigB, 0.6)
	unrelated := ComputeQuality(sigA, sigC, 0.6)

	assert.Greater(t, near.StructureRatio, unrelated.StructureRatio)
	assert.Greater(t, near.OverallQuality, unrelated.OverallQuality)
	assert.GreaterOrEqual(t, near.Fragmentarity, 0.0)
	assert.LessOrEqual(t, near.Fragmentarity, 1.0)
}

func TestAutoCalibrateConverges(t *testing.T) {
	evaluate := func(threshold float64) float64 {
		return threshold // quality improves monotonically with threshold in this synthetic case
	}
	result := AutoCalibrate(evaluate, 0.8, 0.05, 50)
	assert.GreaterOrEqual(t, result.Threshold, 0.75)
	assert.LessOrEqual(t, result.Threshold, 0.9)
}
