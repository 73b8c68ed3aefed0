package structure

import "sort"

// fallbackPartitionNames is the configured name list §4.4 falls back to
// when a reorganization pack's partitions need labels beyond whatever a
// caller-supplied list provides.
var fallbackPartitionNames = []string{"core", "io", "api", "util", "support", "internal"}

// ReorgPack proposes splitting one directory into 2-4 subdirectories
// along its file-reference graph's natural community boundaries.
type ReorgPack struct {
	DirPath       string
	Partitions    map[string][]string // partition name -> file paths
	CrossEdgeGain float64             // fraction of cross-edges removed
}

// ReorgConfig bounds when a ReorgPack is proposed.
type ReorgConfig struct {
	ImbalanceThreshold float64  `toml:"imbalance_threshold"`
	MinCrossEdgeGain   float64  `toml:"min_cross_edge_gain"`
	PartitionNames     []string `toml:"partition_names"`
}

// DefaultReorgConfig triggers reorganization once a directory's imbalance
// exceeds 0.6 and a partitioning removes at least 30% of cross-edges.
var DefaultReorgConfig = ReorgConfig{
	ImbalanceThreshold: 0.6,
	MinCrossEdgeGain:   0.3,
	PartitionNames:     fallbackPartitionNames,
}

// ProposeReorg computes the directory's imbalance and, if it exceeds the
// configured threshold, attempts a graph partitioning into 2-4
// subdirectories. Returns nil if imbalance is below threshold or no
// partitioning clears the minimum cross-edge gain.
func ProposeReorg(d DirStats, pressureCfg Config, reorgCfg ReorgConfig) *ReorgPack {
	imbalance := Imbalance(ComputePressures(d, pressureCfg), pressureCfg)
	if imbalance < reorgCfg.ImbalanceThreshold {
		return nil
	}

	names := reorgCfg.PartitionNames
	if len(names) == 0 {
		names = fallbackPartitionNames
	}
	groups := Partition(d.Files, reorgCfg.MinCrossEdgeGain, names)
	if groups == nil {
		return nil
	}

	g := buildGraph(d.Files)
	labels := make(map[string]string, len(d.Files))
	for name, files := range groups {
		for _, f := range files {
			labels[f] = name
		}
	}
	totalEdges := 0
	for _, neighbors := range g.adj {
		totalEdges += len(neighbors)
	}
	totalEdges /= 2
	gain := 0.0
	if totalEdges > 0 {
		gain = 1 - float64(crossEdges(g, labels))/float64(totalEdges)
	}

	return &ReorgPack{
		DirPath:       d.Path,
		Partitions:    groups,
		CrossEdgeGain: gain,
	}
}

// EntityRef is the minimal per-entity input needed for file-split
// cohesion grouping: its identity, size, and which other entities in the
// same file it references (by ID).
type EntityRef struct {
	ID          string
	LinesOfCode int
	References  []string
}

// SplitPack proposes splitting one oversized file into cohesive groups of
// entities that mostly reference each other rather than entities in the
// other groups.
type SplitPack struct {
	FilePath string
	Groups   [][]string // each inner slice is one cohesive group's entity IDs
}

// SplitConfig bounds when a SplitPack is proposed.
type SplitConfig struct {
	HugeLoC             int `toml:"huge_loc"`
	HugeBytes           int `toml:"huge_bytes"`
	MinEntitiesPerSplit int `toml:"min_entities_per_split"`
}

// DefaultSplitConfig flags files exceeding 1000 LoC or 50KB, as long as
// they contain enough entities to form at least two groups of the
// configured minimum size.
var DefaultSplitConfig = SplitConfig{
	HugeLoC:             1000,
	HugeBytes:           50_000,
	MinEntitiesPerSplit: 3,
}

// ProposeSplit builds an entity-affinity graph for one file's entities and
// partitions it the same way ProposeReorg partitions directories, subject
// to the file actually qualifying as huge and having enough entities.
func ProposeSplit(filePath string, loc, bytesLen int, entities []EntityRef, cfg SplitConfig) *SplitPack {
	if loc < cfg.HugeLoC && bytesLen < cfg.HugeBytes {
		return nil
	}
	if len(entities) < cfg.MinEntitiesPerSplit*2 {
		return nil
	}

	files := make([]FileStat, 0, len(entities))
	for _, e := range entities {
		files = append(files, FileStat{
			Path:        e.ID,
			LinesOfCode: e.LinesOfCode,
			References:  e.References,
		})
	}

	groups := Partition(files, 0, nil)
	if groups == nil {
		return nil
	}

	var out [][]string
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		members := groups[name]
		if len(members) < cfg.MinEntitiesPerSplit {
			return nil
		}
		out = append(out, members)
	}

	return &SplitPack{FilePath: filePath, Groups: out}
}
