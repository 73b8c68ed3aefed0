package pipeline

import (
	"path/filepath"
	"sort"

	"github.com/sibyllinesoft/valknut-go/internal/clone"
	"github.com/sibyllinesoft/valknut-go/internal/coverage"
	"github.com/sibyllinesoft/valknut-go/internal/health"
	"github.com/sibyllinesoft/valknut-go/internal/refactoring"
	"github.com/sibyllinesoft/valknut-go/internal/result"
	"github.com/sibyllinesoft/valknut-go/internal/scoring"
	"github.com/sibyllinesoft/valknut-go/internal/structure"
	"github.com/sibyllinesoft/valknut-go/pkg/pathutil"
)

// topHotspots bounds how many low-health entities surface in the report.
const topHotspots = 10

// entityIssues collects everything the detectors flagged for one entity.
type entityIssues struct {
	codes    []string
	count    int
	dominant health.IssueCategory
}

// aggregate assembles the terminal AnalysisResults record from every
// stage's output: candidate rollups, health trees, summary counts, and
// the clone analysis block.
func (r *Runner) aggregate(
	res *result.AnalysisResults,
	analyses []*fileAnalysis,
	dupFinds []refactoring.Finding,
	reorgPacks []structure.ReorgPack,
	splitPacks []structure.SplitPack,
	cloneReport *clone.Report,
	scores []scoring.ScoringResult,
) {
	issuesByEntity := collectIssues(analyses, dupFinds)

	scoreByEntity := make(map[string]scoring.ScoringResult, len(scores))
	for _, s := range scores {
		scoreByEntity[s.EntityID] = s
	}

	res.RefactoringCandidates = buildCandidates(analyses, issuesByEntity, scoreByEntity, res.ProjectRoot)
	res.ScoringResults = scores
	res.ReorgPacks = reorgPacks
	res.SplitPacks = splitPacks

	r.buildHealthTrees(res, analyses, issuesByEntity)
	r.buildSummary(res, analyses, scores, cloneReport)

	if cloneReport != nil {
		res.CloneAnalysis = buildCloneAnalysis(cloneReport, r.cfg.Denoise.DryRun)
	}
}

// collectIssues merges complexity issues and refactoring findings into
// per-entity issue tallies with a dominant category. Structure packs are
// directory-scoped and surface as packs, not per-entity issues.
func collectIssues(analyses []*fileAnalysis, dupFinds []refactoring.Finding) map[string]*entityIssues {
	out := make(map[string]*entityIssues)
	get := func(id string) *entityIssues {
		ei, ok := out[id]
		if !ok {
			ei = &entityIssues{dominant: health.CategoryOther}
			out[id] = ei
		}
		return ei
	}

	for _, fa := range analyses {
		for _, issue := range fa.issues {
			ei := get(issue.EntityID)
			ei.count++
			ei.codes = append(ei.codes, issueCode(issue.Metric))
			ei.dominant = health.CategoryComplexity
		}
		for _, f := range fa.finds {
			ei := get(f.EntityID)
			ei.count++
			ei.codes = append(ei.codes, string(f.Kind))
			if ei.dominant == health.CategoryOther {
				ei.dominant = categoryForFinding(f.Kind)
			}
		}
	}
	for _, f := range dupFinds {
		ei := get(f.EntityID)
		ei.count++
		ei.codes = append(ei.codes, string(f.Kind))
		ei.dominant = health.CategoryDuplication
	}
	for _, ei := range out {
		sort.Strings(ei.codes)
		ei.codes = dedupeStrings(ei.codes)
	}
	return out
}

func issueCode(metric string) string {
	switch metric {
	case "cyclomatic_complexity":
		return "high_cyclomatic"
	case "cognitive_complexity":
		return "high_cognitive"
	case "maintainability_index":
		return "low_maintainability"
	default:
		return metric
	}
}

func categoryForFinding(kind refactoring.Kind) health.IssueCategory {
	switch kind {
	case refactoring.KindDuplicateCode:
		return health.CategoryDuplication
	case refactoring.KindLargeType:
		return health.CategoryStructure
	default:
		return health.CategoryComplexity
	}
}

func dedupeStrings(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && sorted[i-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

// buildCandidates produces one RefactoringCandidate per flagged entity,
// joined with its scoring result when scoring ran. Order is stable by
// entity ID.
func buildCandidates(analyses []*fileAnalysis, issues map[string]*entityIssues, scores map[string]scoring.ScoringResult, root string) []result.RefactoringCandidate {
	var out []result.RefactoringCandidate
	for _, fa := range analyses {
		for _, e := range fa.index.All() {
			ei, flagged := issues[e.ID]
			if !flagged {
				continue
			}
			c := result.RefactoringCandidate{
				EntityID:  e.ID,
				Name:      e.Name,
				FilePath:  pathutil.ToRelative(e.FilePath, root),
				LineRange: [2]int{e.StartLine, e.EndLine},
				Priority:  scoring.PriorityNone,
				Issues:    ei.codes,
			}
			if s, ok := scores[e.ID]; ok {
				c.Priority = s.Priority
				c.Score = s.OverallScore
				c.Confidence = s.Confidence
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// buildHealthTrees computes entity, file, and directory health bottom-up
// and the top-N hotspot list.
func (r *Runner) buildHealthTrees(res *result.AnalysisResults, analyses []*fileAnalysis, issues map[string]*entityIssues) {
	res.EntityHealth = make(map[string]float64)
	res.FileHealth = make(map[string]float64)
	res.DirectoryHealth = make(map[string]float64)

	var allEntities []health.EntityHealth
	filesByDir := make(map[string][]health.FileHealth)

	for _, fa := range analyses {
		var entityHealths []health.EntityHealth
		for _, e := range fa.index.All() {
			count := 0
			dominant := health.CategoryOther
			if ei, ok := issues[e.ID]; ok {
				count = ei.count
				dominant = ei.dominant
			}
			eh := health.EntityScore(e.ID, count, dominant)
			entityHealths = append(entityHealths, eh)
			allEntities = append(allEntities, eh)
			res.EntityHealth[e.ID] = eh.Health
		}
		fh := health.ComputeFileHealth(fa.file.Rel, entityHealths)
		res.FileHealth[fa.file.Rel] = fh.Health

		dir := filepath.ToSlash(filepath.Dir(fa.file.Rel))
		filesByDir[dir] = append(filesByDir[dir], fh)
	}

	tree := buildDirectoryTree(filesByDir)
	var record func(d health.DirectoryHealth)
	record = func(d health.DirectoryHealth) {
		res.DirectoryHealth[d.Path] = d.Health
		for _, sub := range d.SubDirs {
			record(sub)
		}
	}
	record(tree)

	res.Hotspots = health.Hotspots(allEntities, topHotspots)
	res.Summary.CodeHealthScore = tree.Health

	var depths []int
	var healths []float64
	var walk func(d health.DirectoryHealth, depth int)
	walk = func(d health.DirectoryHealth, depth int) {
		depths = append(depths, depth)
		healths = append(healths, d.Health)
		for _, sub := range d.SubDirs {
			walk(sub, depth+1)
		}
	}
	walk(tree, 0)
	res.DepthBuckets = health.DepthBuckets(depths, healths)
}

// buildDirectoryTree assembles the nested DirectoryHealth rollup from a
// flat dir -> files map, creating intermediate ancestor directories so
// the tree is connected up to the project root (".").
func buildDirectoryTree(filesByDir map[string][]health.FileHealth) health.DirectoryHealth {
	dirs := make(map[string]bool)
	for d := range filesByDir {
		for cur := d; ; {
			dirs[cur] = true
			parent := filepath.ToSlash(filepath.Dir(cur))
			if parent == cur {
				break
			}
			cur = parent
		}
	}
	dirs["."] = true

	children := make(map[string][]string)
	for d := range dirs {
		if d == "." {
			continue
		}
		parent := filepath.ToSlash(filepath.Dir(d))
		children[parent] = append(children[parent], d)
	}
	for _, c := range children {
		sort.Strings(c)
	}

	var build func(dir string) health.DirectoryHealth
	build = func(dir string) health.DirectoryHealth {
		var subs []health.DirectoryHealth
		for _, c := range children[dir] {
			subs = append(subs, build(c))
		}
		return health.ComputeDirectoryHealth(dir, filesByDir[dir], subs)
	}
	return build(".")
}

// buildCoveragePacks lists every analyzed entity whose line-coverage
// ratio falls below minRatio, worst gap first.
func buildCoveragePacks(analyses []*fileAnalysis, table *coverage.Table, minRatio float64) []result.CoveragePack {
	var packs []result.CoveragePack
	for _, fa := range analyses {
		for _, e := range fa.index.Functions() {
			ratio := table.RangeRatio(e.FilePath, e.StartLine, e.EndLine)
			if ratio < 0 || ratio >= minRatio {
				continue
			}
			packs = append(packs, result.CoveragePack{
				EntityID:  e.ID,
				FilePath:  fa.file.Rel,
				LineRatio: ratio,
				Gap:       minRatio - ratio,
			})
		}
	}
	sort.Slice(packs, func(i, j int) bool {
		if packs[i].Gap != packs[j].Gap {
			return packs[i].Gap > packs[j].Gap
		}
		return packs[i].EntityID < packs[j].EntityID
	})
	return packs
}

// buildSummary fills the aggregate scorecard.
func (r *Runner) buildSummary(res *result.AnalysisResults, analyses []*fileAnalysis, scores []scoring.ScoringResult, cloneReport *clone.Report) {
	s := &res.Summary
	s.FilesProcessed = len(analyses)

	languages := make(map[string]bool)
	for _, fa := range analyses {
		s.EntitiesAnalyzed += len(fa.index.ByID)
		s.TotalLinesOfCode += fa.loc
		s.TotalIssues += len(fa.issues) + len(fa.finds)
		languages[fa.index.Language] = true
	}
	for l := range languages {
		s.Languages = append(s.Languages, l)
	}
	sort.Strings(s.Languages)

	s.RefactoringNeeded = len(res.RefactoringCandidates)

	var scoreSum float64
	for _, sc := range scores {
		scoreSum += sc.OverallScore
		switch sc.Priority {
		case scoring.PriorityHigh:
			s.HighPriorityCount++
		case scoring.PriorityCritical:
			s.CriticalCount++
		}
	}
	if len(scores) > 0 {
		s.AvgScore = scoreSum / float64(len(scores))
	}
	if s.FilesProcessed == 0 {
		s.CodeHealthScore = 100
	}

	if cloneReport != nil {
		s.ClonePairsFound = len(cloneReport.Ranked)
	}
}

func buildCloneAnalysis(report *clone.Report, dryRun bool) *result.CloneAnalysisResults {
	out := &result.CloneAnalysisResults{
		CandidatesProposed: report.Proposed,
		CandidatesRanked:   len(report.Ranked),
		TokensSaved:        report.TokensSaved(),
		CacheRefreshed:     report.CacheRefreshed,
		DryRun:             dryRun,
	}
	if report.Calibration != nil {
		out.CalibratedThreshold = report.Calibration.Threshold
		out.AchievedQuality = report.Calibration.AchievedQuality
	}
	for _, c := range report.Ranked {
		out.Pairs = append(out.Pairs, result.ClonePair{
			EntityA:     c.EntityA,
			EntityB:     c.EntityB,
			Similarity:  c.Similarity,
			SavedTokens: c.SavedTokens,
			Payoff:      c.Payoff,
		})
	}
	return out
}
