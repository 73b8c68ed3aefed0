package clone

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sibyllinesoft/valknut-go/internal/vkerrors"
)

// storeVersion is the on-disk schema version. A record with any other
// version is treated as a miss and rebuilt rather than migrated.
const storeVersion = 1

// storedCache is the serialized stop-motif record. Maps flatten to sorted
// slices so the on-disk bytes are stable for identical caches.
type storedCache struct {
	Version           int                 `json:"version"`
	KgramSize         int                 `json:"k_gram_size"`
	TokenGrams        []string            `json:"token_grams"`
	PDGMotifs         []uint64            `json:"pdg_motifs"`
	ASTPatterns       map[string][]string `json:"ast_patterns,omitempty"`
	LastUpdated       time.Time           `json:"last_updated"`
	CodebaseSignature uint64              `json:"codebase_signature"`
	MiningStats       MiningStats         `json:"mining_stats"`
}

// SaveCache writes cache to path atomically: the record lands in a temp
// file in the same directory, then renames over the destination, so a
// reader never observes a half-written cache.
func SaveCache(cache *StopMotifCache, path string) error {
	grams := make([]string, 0, len(cache.StopKgrams))
	for g := range cache.StopKgrams {
		grams = append(grams, g)
	}
	sort.Strings(grams)

	motifs := make([]uint64, 0, len(cache.StopMotifs))
	for m := range cache.StopMotifs {
		motifs = append(motifs, m)
	}
	sort.Slice(motifs, func(i, j int) bool { return motifs[i] < motifs[j] })

	record := storedCache{
		Version:           storeVersion,
		KgramSize:         cache.KgramSize,
		TokenGrams:        grams,
		PDGMotifs:         motifs,
		ASTPatterns:       cache.ASTPatterns,
		LastUpdated:       cache.LastUpdated,
		CodebaseSignature: cache.CorpusSignature,
		MiningStats:       cache.Mining,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return vkerrors.Cache("marshal stop-motif cache", err).WithPath(path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return vkerrors.Io("create cache dir", err).WithPath(dir)
	}
	tmp, err := os.CreateTemp(dir, ".stopmotif-*.json")
	if err != nil {
		return vkerrors.Io("create temp cache file", err).WithPath(dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return vkerrors.Io("write cache", err).WithPath(tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return vkerrors.Io("close cache", err).WithPath(tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return vkerrors.Io("commit cache", err).WithPath(path)
	}
	return nil
}

// LoadCache reads a persisted stop-motif cache. A missing file returns
// (nil, nil): a cold cache is not an error. A corrupt or version-skewed
// record returns a Cache error the caller should log and treat as a miss.
func LoadCache(path string) (*StopMotifCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vkerrors.Io("read stop-motif cache", err).WithPath(path)
	}

	var record storedCache
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, vkerrors.Cache("decode stop-motif cache", err).WithPath(path)
	}
	if record.Version != storeVersion {
		return nil, vkerrors.Cache("stop-motif cache version mismatch", nil).WithPath(path)
	}

	cache := &StopMotifCache{
		Version:         record.Version,
		KgramSize:       record.KgramSize,
		LastUpdated:     record.LastUpdated,
		CorpusSignature: record.CodebaseSignature,
		StopKgrams:      make(map[string]bool, len(record.TokenGrams)),
		StopMotifs:      make(map[uint64]bool, len(record.PDGMotifs)),
		ASTPatterns:     record.ASTPatterns,
		Mining:          record.MiningStats,
	}
	for _, g := range record.TokenGrams {
		cache.StopKgrams[g] = true
	}
	for _, m := range record.PDGMotifs {
		cache.StopMotifs[m] = true
	}
	return cache, nil
}
