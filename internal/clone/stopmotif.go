package clone

import (
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// StopMotifCache is the persistent Phase 3 state: corpus-derived
// boilerplate k-grams and motifs that get their rarity contribution
// suppressed so that they stop inflating similarity between otherwise
// unrelated entities.
type StopMotifCache struct {
	Version         int
	KgramSize       int
	LastUpdated     time.Time
	CorpusSignature uint64
	StopKgrams      map[string]bool
	StopMotifs      map[uint64]bool
	ASTPatterns     map[string][]string // language -> common AST patterns
	Mining          MiningStats
}

// MiningStats records how much corpus material the last refresh examined,
// persisted alongside the stop sets for diagnostics.
type MiningStats struct {
	KgramsExamined int `json:"kgrams_examined"`
	MotifsExamined int `json:"motifs_examined"`
	KgramsStopped  int `json:"kgrams_stopped"`
	MotifsStopped  int `json:"motifs_stopped"`
}

// StopMotifConfig configures Phase 3.
type StopMotifConfig struct {
	Enabled           bool    `toml:"enabled"`
	Percentile        float64 `toml:"percentile"`
	RefreshDays       int     `toml:"refresh_days"`
	SuppressionFactor float64 `toml:"suppression_factor"`
	RarityFloor       float64 `toml:"rarity_floor"`
}

// DefaultStopMotifConfig mirrors the corpus's documented defaults.
var DefaultStopMotifConfig = StopMotifConfig{
	Enabled:           true,
	Percentile:        0.005,
	RefreshDays:       7,
	SuppressionFactor: 0.05,
	RarityFloor:       0.01,
}

// NeedsRefresh reports whether any Phase 3 refresh trigger has fired:
// the cache has aged past RefreshDays, the corpus signature has drifted,
// or the cache has never been populated.
func (c *StopMotifCache) NeedsRefresh(currentSignature uint64, cfg StopMotifConfig, now time.Time) bool {
	if c == nil || c.Version == 0 {
		return true
	}
	if c.CorpusSignature != currentSignature {
		return true
	}
	if now.Sub(c.LastUpdated) > time.Duration(cfg.RefreshDays)*24*time.Hour {
		return true
	}
	return false
}

// CorpusSignature derives a stable fingerprint for the whole corpus from
// every k-gram's document frequency, so NeedsRefresh can detect drift
// without storing the entire corpus.
func CorpusSignature(corpus *Corpus) uint64 {
	keys := make([]string, 0, len(corpus.docFreq))
	for k := range corpus.docFreq {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.WriteString(k)
		var buf [8]byte
		df := corpus.docFreq[k]
		for i := 0; i < 8; i++ {
			buf[i] = byte(df >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

// BuildStopMotifCache selects the top-Percentile k-grams by raw document
// frequency (and top-Percentile motifs by occurrence count, passed in
// separately since motif counting happens during Phase 2) as the new
// boilerplate set.
func BuildStopMotifCache(corpus *Corpus, motifCounts map[uint64]int, cfg StopMotifConfig, now time.Time) *StopMotifCache {
	cache := &StopMotifCache{
		Version:         1,
		KgramSize:       DefaultKgramSize,
		LastUpdated:     now,
		CorpusSignature: CorpusSignature(corpus),
		StopKgrams:      topPercentileStrings(corpus.docFreq, cfg.Percentile),
		StopMotifs:      topPercentileUint64(motifCounts, cfg.Percentile),
	}
	cache.Mining = MiningStats{
		KgramsExamined: len(corpus.docFreq),
		MotifsExamined: len(motifCounts),
		KgramsStopped:  len(cache.StopKgrams),
		MotifsStopped:  len(cache.StopMotifs),
	}
	return cache
}

func topPercentileStrings(freq map[string]int, percentile float64) map[string]bool {
	type kv struct {
		key   string
		count int
	}
	all := make([]kv, 0, len(freq))
	for k, v := range freq {
		all = append(all, kv{k, v})
	}
	// Ties at the percentile cut must resolve the same way every run, so
	// the stop set (and everything downstream of RarityGain) stays stable.
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].key < all[j].key
	})

	cut := int(float64(len(all)) * percentile)
	out := make(map[string]bool, cut)
	for i := 0; i < cut && i < len(all); i++ {
		out[all[i].key] = true
	}
	return out
}

func topPercentileUint64(freq map[uint64]int, percentile float64) map[uint64]bool {
	type kv struct {
		key   uint64
		count int
	}
	all := make([]kv, 0, len(freq))
	for k, v := range freq {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].key < all[j].key
	})

	cut := int(float64(len(all)) * percentile)
	out := make(map[uint64]bool, cut)
	for i := 0; i < cut && i < len(all); i++ {
		out[all[i].key] = true
	}
	return out
}

// SuppressedIDF applies the stop-motif suppression factor to a k-gram's
// IDF if it's on the stop list.
func (c *StopMotifCache) SuppressedIDF(kgram string, idf float64, cfg StopMotifConfig) float64 {
	if c == nil || !cfg.Enabled {
		return idf
	}
	if c.StopKgrams[kgram] {
		return idf * cfg.SuppressionFactor
	}
	return idf
}

// RarityGain sums the suppressed IDF of every k-gram two entities share,
// the Phase 3 rarity mass used both to drop candidates below the rarity
// floor and as a Phase 4 payoff input.
func RarityGain(a, b Signature, corpus *Corpus, cache *StopMotifCache, cfg StopMotifConfig) float64 {
	var gain float64
	for g := range a.Kgrams {
		if !b.Kgrams[g] {
			continue
		}
		gain += cache.SuppressedIDF(g, corpus.IDF(g), cfg)
	}
	return gain
}

// MotifContributes reports whether a shared motif should count toward
// rarity gain: motifs on the stop-motif list contribute zero.
func (c *StopMotifCache) MotifContributes(m Motif) bool {
	if c == nil {
		return true
	}
	return !c.StopMotifs[m.Hash]
}
