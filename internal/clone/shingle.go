package clone

import (
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// SignatureWidth is the weighted MinHash signature width (§4.6 Phase 1).
const SignatureWidth = 128

// DefaultKgramSize is the default token k-gram size used for shingling.
const DefaultKgramSize = 9

// Corpus accumulates document frequencies for k-grams across every
// entity, the basis for IDF weighting.
type Corpus struct {
	docFreq map[string]int
	numDocs int
}

// NewCorpus creates an empty Corpus.
func NewCorpus() *Corpus {
	return &Corpus{docFreq: make(map[string]int)}
}

// Add registers one entity's distinct k-grams against the corpus.
func (c *Corpus) Add(kgrams []string) {
	if len(kgrams) == 0 {
		return
	}
	c.numDocs++
	seen := make(map[string]bool, len(kgrams))
	for _, g := range kgrams {
		if seen[g] {
			continue
		}
		seen[g] = true
		c.docFreq[g]++
	}
}

// IDF returns the inverse document frequency of a k-gram:
// ln((1+N)/(1+df)) + 1, smoothed so unseen k-grams still get a finite
// (maximal) weight and every k-gram weighs at least 1.
func (c *Corpus) IDF(kgram string) float64 {
	df := c.docFreq[kgram]
	return math.Log(float64(1+c.numDocs)/float64(1+df)) + 1
}

// Signature is a weighted MinHash signature over one entity's k-grams,
// plus the original token count (used downstream by the structural gate
// and payoff estimation).
type Signature struct {
	EntityID string
	Values   [SignatureWidth]uint64
	Kgrams   map[string]bool // retained for weighted-Jaccard recomputation
	Tokens   int
}

// hashSeeds are SignatureWidth independent salts used to derive
// SignatureWidth independent hash functions from a single xxhash, avoiding
// SignatureWidth separate hash-function implementations.
var hashSeeds = func() [SignatureWidth]uint64 {
	var seeds [SignatureWidth]uint64
	seed := uint64(0x9E3779B97F4A7C15)
	for i := range seeds {
		seed = seed*6364136223846793005 + 1442695040888963407
		seeds[i] = seed
	}
	return seeds
}()

// BuildSignature computes a weighted MinHash signature: each k-gram is
// hashed under each of SignatureWidth seeds, and weight (IDF) biases which
// k-gram wins each row by scaling the hash down (lower is better, so a
// higher-IDF k-gram's hash is shrunk more, making it likelier to be the
// minimum) — the standard "weighted minhash via exponential jitter"
// approximation, adapted here to keep the implementation a pure integer
// hash instead of requiring a distribution sampler.
func BuildSignature(entityID string, kgrams []string, tokenCount int, corpus *Corpus) Signature {
	sig := Signature{EntityID: entityID, Tokens: tokenCount, Kgrams: make(map[string]bool, len(kgrams))}
	for i := range sig.Values {
		sig.Values[i] = ^uint64(0)
	}
	if len(kgrams) == 0 {
		return sig
	}

	weights := make([]float64, len(kgrams))
	maxWeight := 0.0
	for i, g := range kgrams {
		sig.Kgrams[g] = true
		weights[i] = corpus.IDF(g)
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	for i, g := range kgrams {
		base := xxhash.Sum64String(g)
		normalizedWeight := weights[i] / maxWeight // in (0, 1]
		for row := 0; row < SignatureWidth; row++ {
			h := mix(base, hashSeeds[row])
			// Scale down proportional to weight: higher weight => smaller
			// effective value => more likely to become the row minimum.
			scaled := uint64(float64(h) * (1.0 - 0.5*normalizedWeight))
			if scaled < sig.Values[row] {
				sig.Values[row] = scaled
			}
		}
	}
	return sig
}

func mix(a, b uint64) uint64 {
	a ^= b + 0x9E3779B97F4A7C15 + (a << 6) + (a >> 2)
	a *= 0xFF51AFD7ED558CCD
	a ^= a >> 33
	return a
}

// WeightedJaccard is the fraction of signature rows that agree, used as
// the Phase 1 similarity estimate between two candidates.
func WeightedJaccard(a, b Signature) float64 {
	agree := 0
	for i := range a.Values {
		if a.Values[i] == b.Values[i] {
			agree++
		}
	}
	return float64(agree) / float64(SignatureWidth)
}

// LSHConfig controls banded LSH candidate generation. MaxCandidates caps
// how many pairs any single entity may participate in (0 = unbounded),
// bounding bucket fan-out on corpora with large boilerplate families.
type LSHConfig struct {
	NumBands            int     `toml:"num_bands"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MaxCandidates       int     `toml:"max_candidates"`
}

// DefaultLSHConfig mirrors the corpus's own default LSH configuration.
var DefaultLSHConfig = LSHConfig{NumBands: 8, SimilarityThreshold: 0.80, MaxCandidates: 100}

// RowsPerBand returns how many signature rows fall in each band.
func (c LSHConfig) RowsPerBand() int {
	if c.NumBands == 0 {
		return SignatureWidth
	}
	return SignatureWidth / c.NumBands
}

// CandidatePairs buckets signatures into bands and returns every pair
// sharing at least one band's row-tuple, annotated with their weighted
// Jaccard similarity, filtered to cfg.SimilarityThreshold and above.
// Output order is deterministic: sorted by (EntityA, EntityB).
func CandidatePairs(signatures []Signature, cfg LSHConfig) []Pair {
	rowsPerBand := cfg.RowsPerBand()
	if rowsPerBand == 0 {
		return nil
	}

	type bucketKey struct {
		band int
		hash uint64
	}
	buckets := make(map[bucketKey][]int)
	for idx, sig := range signatures {
		for b := 0; b < cfg.NumBands; b++ {
			start := b * rowsPerBand
			end := start + rowsPerBand
			if end > SignatureWidth {
				end = SignatureWidth
			}
			h := xxhash.New()
			for _, v := range sig.Values[start:end] {
				var buf [8]byte
				putUint64(buf[:], v)
				h.Write(buf[:])
			}
			key := bucketKey{band: b, hash: h.Sum64()}
			buckets[key] = append(buckets[key], idx)
		}
	}

	seen := make(map[[2]string]bool)
	var pairs []Pair
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := signatures[members[i]], signatures[members[j]]
				idA, idB := a.EntityID, b.EntityID
				if idA > idB {
					idA, idB = idB, idA
				}
				key := [2]string{idA, idB}
				if seen[key] {
					continue
				}
				seen[key] = true

				sim := WeightedJaccard(a, b)
				if sim < cfg.SimilarityThreshold {
					continue
				}
				pairs = append(pairs, Pair{EntityA: idA, EntityB: idB, Similarity: sim})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].EntityA != pairs[j].EntityA {
			return pairs[i].EntityA < pairs[j].EntityA
		}
		return pairs[i].EntityB < pairs[j].EntityB
	})

	if cfg.MaxCandidates > 0 {
		pairs = capPerEntity(pairs, cfg.MaxCandidates)
	}
	return pairs
}

// capPerEntity drops pairs once either participant has already appeared in
// maxCandidates higher-similarity pairs, keeping the strongest matches.
// Ties break on (EntityA, EntityB) so the cap is deterministic.
func capPerEntity(pairs []Pair, maxCandidates int) []Pair {
	bySim := append([]Pair(nil), pairs...)
	sort.Slice(bySim, func(i, j int) bool {
		if bySim[i].Similarity != bySim[j].Similarity {
			return bySim[i].Similarity > bySim[j].Similarity
		}
		if bySim[i].EntityA != bySim[j].EntityA {
			return bySim[i].EntityA < bySim[j].EntityA
		}
		return bySim[i].EntityB < bySim[j].EntityB
	})

	counts := make(map[string]int)
	keep := make(map[[2]string]bool, len(bySim))
	for _, p := range bySim {
		if counts[p.EntityA] >= maxCandidates || counts[p.EntityB] >= maxCandidates {
			continue
		}
		counts[p.EntityA]++
		counts[p.EntityB]++
		keep[[2]string{p.EntityA, p.EntityB}] = true
	}

	out := pairs[:0]
	for _, p := range pairs {
		if keep[[2]string{p.EntityA, p.EntityB}] {
			out = append(out, p)
		}
	}
	return out
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Pair is a Phase 1 candidate: two entities whose signatures matched in
// at least one LSH band, with the estimated weighted Jaccard similarity.
type Pair struct {
	EntityA, EntityB string
	Similarity       float64
}
