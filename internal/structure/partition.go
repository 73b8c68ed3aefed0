package structure

import "sort"

// graph is the file-level reference graph inside a directory: an edge
// exists between two files whenever one references the other (symmetric
// for partitioning purposes).
type graph struct {
	nodes []string
	adj   map[string]map[string]int // node -> neighbor -> edge weight
}

func buildGraph(files []FileStat) *graph {
	g := &graph{adj: make(map[string]map[string]int)}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	for _, f := range files {
		g.nodes = append(g.nodes, f.Path)
		if g.adj[f.Path] == nil {
			g.adj[f.Path] = make(map[string]int)
		}
		for _, ref := range f.References {
			if !present[ref] || ref == f.Path {
				continue
			}
			g.adj[f.Path][ref]++
			if g.adj[ref] == nil {
				g.adj[ref] = make(map[string]int)
			}
			g.adj[ref][f.Path]++
		}
	}
	sort.Strings(g.nodes)
	return g
}

// labelPropagation assigns each node the most common label among its
// neighbors, breaking ties by the lexicographically smallest label,
// iterating until stable or a round cap is hit. It is the cheap first
// pass before Kernighan-Lin refinement tightens the cut.
func labelPropagation(g *graph, rounds int) map[string]string {
	labels := make(map[string]string, len(g.nodes))
	for _, n := range g.nodes {
		labels[n] = n // every node starts as its own community
	}
	for r := 0; r < rounds; r++ {
		changed := false
		for _, n := range g.nodes {
			counts := make(map[string]int)
			for neighbor, w := range g.adj[n] {
				counts[labels[neighbor]] += w
			}
			if len(counts) == 0 {
				continue
			}
			best, bestCount := labels[n], -1
			var candidates []string
			for l, c := range counts {
				candidates = append(candidates, l)
				_ = c
			}
			sort.Strings(candidates)
			for _, l := range candidates {
				if counts[l] > bestCount {
					bestCount = counts[l]
					best = l
				}
			}
			if best != labels[n] {
				labels[n] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// crossEdges counts the number of edges whose endpoints fall in different
// partitions under labels.
func crossEdges(g *graph, labels map[string]string) int {
	seen := make(map[[2]string]bool)
	count := 0
	for n, neighbors := range g.adj {
		for m := range neighbors {
			if labels[n] == labels[m] {
				continue
			}
			key := [2]string{n, m}
			if n > m {
				key = [2]string{m, n}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			count++
		}
	}
	return count
}

// kernighanLinRefine is a bounded Kernighan-Lin-style local search that
// follows the label-propagation seed: each pass visits every node and
// moves it to a neighbouring partition's label when that lowers the
// cross-edge count. Nodes move one at a time (pairs are not swapped), and
// every partition takes part, not only the two largest.
func kernighanLinRefine(g *graph, labels map[string]string, maxPasses int) map[string]string {
	refined := make(map[string]string, len(labels))
	for k, v := range labels {
		refined[k] = v
	}

	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		baseline := crossEdges(g, refined)
		for _, n := range g.nodes {
			original := refined[n]
			bestLabel := original
			bestCross := baseline
			neighborLabels := map[string]bool{}
			for m := range g.adj[n] {
				neighborLabels[refined[m]] = true
			}
			for candidate := range neighborLabels {
				if candidate == original {
					continue
				}
				refined[n] = candidate
				cross := crossEdges(g, refined)
				if cross < bestCross {
					bestCross = cross
					bestLabel = candidate
				}
				refined[n] = original
			}
			if bestLabel != original {
				refined[n] = bestLabel
				baseline = bestCross
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return refined
}

// Partition runs label propagation followed by Kernighan-Lin refinement
// and returns 2-4 named groups of file paths, or nil if no partitioning
// into that range reduces cross-edges by at least minGain (a fraction of
// the original edge count).
func Partition(files []FileStat, minGain float64, names []string) map[string][]string {
	g := buildGraph(files)
	if len(g.nodes) < 4 {
		return nil
	}

	seed := labelPropagation(g, 20)
	refined := kernighanLinRefine(g, seed, 10)

	groups := make(map[string][]string)
	for n, l := range refined {
		groups[l] = append(groups[l], n)
	}
	if len(groups) < 2 || len(groups) > 4 {
		return nil
	}

	totalEdges := 0
	for _, neighbors := range g.adj {
		totalEdges += len(neighbors)
	}
	totalEdges /= 2
	if totalEdges == 0 {
		return nil
	}
	originalCross := totalEdges // everything is "cross" before partitioning
	finalCross := crossEdges(g, refined)
	gain := 1 - float64(finalCross)/float64(originalCross)
	if gain < minGain {
		return nil
	}

	return renameGroups(groups, names)
}

// renameGroups assigns configured fallback names (core, io, api, util, …)
// to partitions in descending size order (ties broken by label). Once the
// configured name list is exhausted the remaining partitions are named
// "group", with "2" appended until the name is unused (group, group2,
// group22, ...).
func renameGroups(groups map[string][]string, names []string) map[string][]string {
	type kv struct {
		label string
		files []string
	}
	var ordered []kv
	for l, f := range groups {
		ordered = append(ordered, kv{l, f})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i].files) != len(ordered[j].files) {
			return len(ordered[i].files) > len(ordered[j].files)
		}
		return ordered[i].label < ordered[j].label
	})

	out := make(map[string][]string, len(ordered))
	for i, kv := range ordered {
		name := ""
		if i < len(names) {
			name = names[i]
		} else {
			name = "group"
		}
		for {
			if _, exists := out[name]; !exists {
				break
			}
			name += "2"
		}
		sort.Strings(kv.files)
		out[name] = kv.files
	}
	return out
}
