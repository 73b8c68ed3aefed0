package clone

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nontrivialEntity builds an EntityInput with enough tokens, blocks, and
// motifs to clear every gate. The token stream is deterministic from seed
// so two entities with the same seed are exact clones.
func nontrivialEntity(id, file string, seed int) EntityInput {
	tokens := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		tokens = append(tokens, fmt.Sprintf("tok-%d-%d", seed, i%17))
	}
	return EntityInput{
		EntityID: id,
		FilePath: file,
		Tokens:   tokens,
		Blocks:   []BasicBlock{{StatementCount: 3}, {StatementCount: 2, EndsInReturn: true}},
		Motifs: map[Motif]bool{
			{Category: MotifConditional, Hash: uint64(1000 + seed)}: true,
			{Category: MotifLoop, Hash: uint64(2000 + seed)}:        true,
		},
	}
}

func getterEntity(id, file string) EntityInput {
	tokens := []string{"func", "IDENT", "(", ")", "TYPE", "{", "return", "IDENT", ".", "IDENT", "}", ";"}
	return EntityInput{
		EntityID: id,
		FilePath: file,
		Tokens:   tokens,
		Blocks:   []BasicBlock{{StatementCount: 1, EndsInReturn: true}},
		Motifs:   map[Motif]bool{},
	}
}

func TestDenoiserRanksExactClonePair(t *testing.T) {
	entities := []EntityInput{
		nontrivialEntity("a.go:fn:0", "a.go", 1),
		nontrivialEntity("b.go:fn:0", "b.go", 1), // same seed: exact clone
		nontrivialEntity("c.go:fn:0", "c.go", 9), // unrelated
	}

	d := NewDenoiser(DefaultOptions(), nil)
	report := d.Run(entities, nil, time.Now())

	require.Len(t, report.Ranked, 1)
	pair := report.Ranked[0]
	assert.Equal(t, "a.go:fn:0", pair.EntityA)
	assert.Equal(t, "b.go:fn:0", pair.EntityB)
	assert.GreaterOrEqual(t, pair.Similarity, 0.95)
	assert.Equal(t, 50, pair.SavedTokens)
	assert.Equal(t, StateRanked, pair.State)
}

func TestDenoiserDropsGettersAtStructuralGate(t *testing.T) {
	var entities []EntityInput
	for i := 0; i < 20; i++ {
		entities = append(entities, getterEntity(fmt.Sprintf("g%02d.go:fn:0", i), fmt.Sprintf("g%02d.go", i)))
	}

	d := NewDenoiser(DefaultOptions(), nil)
	report := d.Run(entities, nil, time.Now())

	assert.Empty(t, report.Ranked, "one-block getters must never survive the structural gate")
	for _, c := range report.Dropped {
		assert.NotEqual(t, StateRanked, c.State)
		assert.NotEmpty(t, c.DropReason)
	}
}

func TestDenoiserExcludesShortEntitiesAsUnanalyzable(t *testing.T) {
	short := EntityInput{EntityID: "tiny", FilePath: "t.go", Tokens: []string{"a", "b", "c"}}
	d := NewDenoiser(DefaultOptions(), nil)
	report := d.Run([]EntityInput{short}, nil, time.Now())
	assert.Equal(t, []string{"tiny"}, report.Unanalyzable)
	assert.Zero(t, report.Proposed)
}

func TestDenoiserPhaseMonotonicity(t *testing.T) {
	var entities []EntityInput
	for i := 0; i < 6; i++ {
		entities = append(entities, nontrivialEntity(fmt.Sprintf("m%d.go:fn:0", i), fmt.Sprintf("m%d.go", i), i%3))
	}
	d := NewDenoiser(DefaultOptions(), nil)
	report := d.Run(entities, nil, time.Now())

	assert.LessOrEqual(t, len(report.Ranked), report.Proposed)
	assert.Equal(t, report.Proposed, len(report.Ranked)+len(report.Dropped))
}

func TestDenoiserDeterministicAcrossRuns(t *testing.T) {
	entities := []EntityInput{
		nontrivialEntity("a.go:fn:0", "a.go", 1),
		nontrivialEntity("b.go:fn:0", "b.go", 1),
		nontrivialEntity("c.go:fn:0", "c.go", 2),
		nontrivialEntity("d.go:fn:0", "d.go", 2),
	}
	now := time.Unix(1_700_000_000, 0)

	first := NewDenoiser(DefaultOptions(), nil).Run(entities, nil, now)
	second := NewDenoiser(DefaultOptions(), nil).Run(entities, nil, now)

	require.Equal(t, len(first.Ranked), len(second.Ranked))
	for i := range first.Ranked {
		assert.True(t, reflect.DeepEqual(first.Ranked[i], second.Ranked[i]),
			"ranked candidate %d differs between identical runs", i)
	}
}

func TestDenoiserAppliesLiveReachBoost(t *testing.T) {
	entities := []EntityInput{
		nontrivialEntity("a.go:fn:0", "a.go", 1),
		nontrivialEntity("b.go:fn:0", "b.go", 1),
	}
	boosts := map[string]float64{"a.go:fn:0": 1.4}

	d := NewDenoiser(DefaultOptions(), nil)
	report := d.Run(entities, boosts, time.Now())
	require.Len(t, report.Ranked, 1)
	assert.Equal(t, 1.4, report.Ranked[0].LiveReachBoost)
}

func TestDenoiserCalibrationStaysInRange(t *testing.T) {
	var entities []EntityInput
	for i := 0; i < 10; i++ {
		entities = append(entities, nontrivialEntity(fmt.Sprintf("e%d.go:fn:0", i), fmt.Sprintf("e%d.go", i), i%4))
	}
	opts := DefaultOptions()
	opts.Calibration.Enabled = true

	report := NewDenoiser(opts, nil).Run(entities, nil, time.Now())
	require.NotNil(t, report.Calibration)
	assert.GreaterOrEqual(t, report.Calibration.Threshold, 0.1)
	assert.LessOrEqual(t, report.Calibration.Threshold, 0.9)
	assert.LessOrEqual(t, report.Calibration.Iterations, opts.Calibration.MaxIterations)
}

func TestDenoiserRefreshesCacheWhenStale(t *testing.T) {
	entities := []EntityInput{
		nontrivialEntity("a.go:fn:0", "a.go", 1),
		nontrivialEntity("b.go:fn:0", "b.go", 1),
	}
	stale := &StopMotifCache{
		Version:     1,
		KgramSize:   DefaultKgramSize,
		LastUpdated: time.Now().AddDate(0, 0, -30),
		StopKgrams:  map[string]bool{},
		StopMotifs:  map[uint64]bool{},
	}

	report := NewDenoiser(DefaultOptions(), stale).Run(entities, nil, time.Now())
	assert.True(t, report.CacheRefreshed)
	require.NotNil(t, report.Cache)
	assert.NotZero(t, report.Cache.CorpusSignature)
	assert.NotZero(t, report.Cache.Mining.KgramsExamined)
}

func TestStopMotifStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stopmotifs.json")

	cache := &StopMotifCache{
		Version:         1,
		KgramSize:       9,
		LastUpdated:     time.Unix(1_700_000_000, 0).UTC(),
		CorpusSignature: 0xDEADBEEF,
		StopKgrams:      map[string]bool{"g1": true, "g2": true},
		StopMotifs:      map[uint64]bool{7: true},
		Mining:          MiningStats{KgramsExamined: 100, MotifsExamined: 10, KgramsStopped: 2, MotifsStopped: 1},
	}
	require.NoError(t, SaveCache(cache, path))

	loaded, err := LoadCache(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, cache.CorpusSignature, loaded.CorpusSignature)
	assert.Equal(t, cache.StopKgrams, loaded.StopKgrams)
	assert.Equal(t, cache.StopMotifs, loaded.StopMotifs)
	assert.Equal(t, cache.Mining, loaded.Mining)
	assert.True(t, cache.LastUpdated.Equal(loaded.LastUpdated))
}

func TestLoadCacheMissingFileIsNotAnError(t *testing.T) {
	loaded, err := LoadCache(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCacheCorruptFileReportsCacheError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded, err := LoadCache(path)
	assert.Nil(t, loaded)
	assert.Error(t, err)
}

func TestLoadCacheVersionSkewIsAMiss(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "k_gram_size": 9}`), 0o644))

	loaded, err := LoadCache(path)
	assert.Nil(t, loaded)
	assert.Error(t, err)
}
