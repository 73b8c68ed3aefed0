package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sibyllinesoft/valknut-go/internal/astcache"
	"github.com/sibyllinesoft/valknut-go/internal/clone"
	"github.com/sibyllinesoft/valknut-go/internal/complexity"
	"github.com/sibyllinesoft/valknut-go/internal/coverage"
	"github.com/sibyllinesoft/valknut-go/internal/debug"
	"github.com/sibyllinesoft/valknut-go/internal/entity"
	"github.com/sibyllinesoft/valknut-go/internal/lang"
	"github.com/sibyllinesoft/valknut-go/internal/refactoring"
	"github.com/sibyllinesoft/valknut-go/internal/result"
	"github.com/sibyllinesoft/valknut-go/internal/scoring"
	"github.com/sibyllinesoft/valknut-go/internal/structure"
	"github.com/sibyllinesoft/valknut-go/internal/vkconfig"
	"github.com/sibyllinesoft/valknut-go/internal/vkerrors"
)

// Progress is invoked between stages with a human-readable stage label
// and a completion percentage in [0, 100].
type Progress func(stage string, pct float64)

// ExternalInputs carries the optional pre-parsed external collaborator
// data: a coverage table and a live-reachability node set. Either may be
// nil/empty; the pipeline substitutes neutral defaults.
type ExternalInputs struct {
	Coverage  *coverage.Table
	LiveReach []coverage.NodeStats
}

// Runner owns the shared services a run borrows: the parse cache and the
// adapter registry. One Runner may execute multiple runs; its
// configuration is immutable after New.
type Runner struct {
	cfg      vkconfig.Config
	registry *lang.Registry
	cache    *astcache.Cache
	progress Progress
	now      func() time.Time
}

// New creates a Runner for the given configuration.
func New(cfg vkconfig.Config) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: lang.NewRegistry(),
		cache:    astcache.New(lang.NewTreeSitterParser()),
		progress: func(string, float64) {},
		now:      time.Now,
	}
}

// WithProgress installs a progress callback. Must be called before Run.
func (r *Runner) WithProgress(p Progress) *Runner {
	if p != nil {
		r.progress = p
	}
	return r
}

// fileAnalysis bundles everything the per-file stages produce for one
// discovered file; corpus-level stages consume these.
type fileAnalysis struct {
	file    DiscoveredFile
	source  []byte
	tree    *astcache.CachedTree // pins the parsed tree for the life of the run
	index   *entity.Index
	spec    *lang.Spec
	loc     int
	metrics map[string]complexity.Metrics
	issues  []complexity.Issue
	finds   []refactoring.Finding
	fps     []refactoring.Fingerprint
}

// Run executes the full staged pipeline over root and returns the
// assembled AnalysisResults. Validation failures are fatal before any
// stage runs; every other recoverable problem lands in Warnings.
func (r *Runner) Run(ctx context.Context, root string, inputs ExternalInputs) (*result.AnalysisResults, error) {
	started := r.now()

	if err := r.cfg.Validate(); err != nil {
		return nil, vkerrors.Validation("config", err)
	}

	if secs := r.cfg.Performance.TotalTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	res := result.New(root)

	// Stage 1: discovery.
	r.progress("discovery", 0)
	files, err := Discover(root, DiscoveryConfig{
		IncludeGlobs:     r.cfg.Analysis.IncludeGlobs,
		ExcludeGlobs:     r.cfg.Analysis.ExcludeGlobs,
		MaxFileSizeBytes: r.cfg.Analysis.MaxFileSizeBytes,
		FollowSymlinks:   r.cfg.Analysis.FollowSymlinks,
	})
	if err != nil {
		return nil, err
	}
	if max := r.cfg.Analysis.MaxFiles; len(files) > max {
		res.AddWarning(fmt.Sprintf("discovery found %d files, analyzing the first %d (analysis.max_files)", len(files), max))
		files = files[:max]
	}
	if err := stageBoundary(ctx, "discovery"); err != nil {
		return nil, err
	}

	// Stage 2: parse + extract (parallel, bounded).
	r.progress("parse", 15)
	analyses := r.parseStage(ctx, files, res)
	if err := stageBoundary(ctx, "parse"); err != nil {
		return nil, err
	}

	// Stage 3: per-file detectors (parallel, bounded).
	r.progress("detect", 35)
	r.detectStage(ctx, analyses)
	if err := stageBoundary(ctx, "detect"); err != nil {
		return nil, err
	}

	// Corpus-level duplicate grouping across every file's fingerprints.
	var dupFinds []refactoring.Finding
	if r.cfg.Analysis.EnableRefactoring {
		dupFinds = r.duplicateStage(analyses)
	}

	// Stage 4: structure detector.
	var reorgPacks []structure.ReorgPack
	var splitPacks []structure.SplitPack
	if r.cfg.Analysis.EnableStructure {
		r.progress("structure", 50)
		reorgPacks, splitPacks = r.structureStage(analyses)
	}
	if err := stageBoundary(ctx, "structure"); err != nil {
		return nil, err
	}

	// Stage 5: join external inputs.
	boosts := map[string]float64{}
	if r.cfg.Analysis.EnableCoverage {
		r.progress("join", 60)
		boosts = r.joinStage(inputs, res)
	}

	// Stage 6: clone denoising (corpus-level).
	var cloneReport *clone.Report
	if r.cfg.Analysis.EnableClones && r.cfg.Denoise.Enabled {
		r.progress("clones", 70)
		cloneReport = r.cloneStage(analyses, boosts, res)
	}
	if err := stageBoundary(ctx, "clones"); err != nil {
		return nil, err
	}

	// Stage 7: feature scoring.
	var scores []scoring.ScoringResult
	if r.cfg.Analysis.EnableScoring {
		r.progress("scoring", 80)
		scores = r.scoringStage(analyses, inputs.Coverage)
	}

	// Stage 8: aggregation. Cancellation from here on returns what exists
	// with a Cancelled warning instead of discarding the run.
	r.progress("aggregate", 90)
	r.aggregate(res, analyses, dupFinds, reorgPacks, splitPacks, cloneReport, scores)
	if r.cfg.Analysis.EnableCoverage && inputs.Coverage != nil {
		res.CoveragePacks = buildCoveragePacks(analyses, inputs.Coverage, r.cfg.Coverage.MinRatio)
	}
	if ctx.Err() != nil {
		res.AddWarning("Cancelled")
	}

	// Stage 9: quality gates.
	if r.cfg.QualityGate.Enabled {
		res.QualityGate = EvaluateGates(r.cfg.QualityGate, res, analyses)
	}

	r.progress("done", 100)
	res.Duration = r.now().Sub(started)
	return res, nil
}

// stageBoundary is the cancellation check between stages: before
// aggregation a cancel discards partial results entirely.
func stageBoundary(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return vkerrors.Pipeline(stage, "cancelled", err)
	}
	return nil
}

func (r *Runner) workers() int {
	if n := r.cfg.Performance.MaxWorkers; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) fileTimeout() time.Duration {
	secs := r.cfg.Performance.FileTimeoutSecs
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// parseStage reads, parses, and extracts entities for every file on a
// bounded worker pool. Results land in a pre-sized slice by index so no
// ordering depends on goroutine interleaving; warnings are collected
// per-slot and appended in file order afterwards.
func (r *Runner) parseStage(ctx context.Context, files []DiscoveredFile, res *result.AnalysisResults) []*fileAnalysis {
	slots := make([]*fileAnalysis, len(files))
	warnings := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, f := range files {
		g.Go(func() error {
			fa, warn := r.parseOne(gctx, f)
			slots[i] = fa
			warnings[i] = warn
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; they record warnings

	var out []*fileAnalysis
	for i, fa := range slots {
		if warnings[i] != "" {
			res.AddWarning(warnings[i])
		}
		if fa != nil {
			out = append(out, fa)
		}
	}
	return out
}

// parseOne handles a single file end to end: read, adapter lookup, cached
// parse under the per-file timeout, entity extraction. A "" warning means
// the file was analyzed (or intentionally ignored, for unrecognized
// extensions, which are not worth a warning per file).
func (r *Runner) parseOne(ctx context.Context, f DiscoveredFile) (*fileAnalysis, string) {
	extractor, err := r.registry.For(f.Path)
	if err != nil {
		if ve, ok := err.(*vkerrors.Error); ok && ve.Kind == vkerrors.KindFeatureUnavailable {
			return nil, ve.Warning()
		}
		return nil, "" // not a source file this engine understands
	}

	source, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, vkerrors.Io("read", err).WithPath(f.Rel).Warning()
	}

	fctx, cancel := context.WithTimeout(ctx, r.fileTimeout())
	defer cancel()

	tree, err := r.cache.Get(fctx, f.Path, source, extractor.Language())
	if err != nil {
		if fctx.Err() == context.DeadlineExceeded {
			return nil, vkerrors.ResourceExhaustion("parse", f.Rel).Warning()
		}
		if ve, ok := err.(*vkerrors.Error); ok {
			return nil, ve.Warning()
		}
		return nil, vkerrors.Parse(extractor.Language(), err.Error()).WithPath(f.Rel).Warning()
	}

	idx, err := extractor.Extract(f.Path, source, tree.Tree)
	if err != nil {
		return nil, vkerrors.Parse(extractor.Language(), err.Error()).WithPath(f.Rel).Warning()
	}
	debug.Log("pipeline", "parsed %s: %d entities", f.Rel, len(idx.ByID))

	return &fileAnalysis{
		file:    f,
		source:  source,
		tree:    tree,
		index:   idx,
		spec:    lang.SpecFor(extractor.Language()),
		loc:     strings.Count(string(source), "\n") + 1,
		metrics: make(map[string]complexity.Metrics),
	}, ""
}

// detectStage runs the per-file detectors (complexity, refactoring rules,
// fingerprints) over every parsed file in parallel. Each worker touches
// only its own fileAnalysis, so no synchronization is needed beyond the
// group barrier.
func (r *Runner) detectStage(ctx context.Context, analyses []*fileAnalysis) {
	detector := complexity.New(r.cfg.Complexity)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, fa := range analyses {
		g.Go(func() error {
			for _, e := range fa.index.Functions() {
				node := lang.Node(e)
				if node == nil {
					continue
				}
				m, issues := detector.Analyze(e, node, fa.source, fa.spec)
				fa.metrics[e.ID] = m
				fa.issues = append(fa.issues, issues...)

				if r.cfg.Analysis.EnableRefactoring {
					if f := refactoring.LongMethod(e, r.cfg.Refactoring); f != nil {
						fa.finds = append(fa.finds, *f)
					}
					if f := refactoring.ComplexConditional(e, m, r.cfg.Refactoring); f != nil {
						fa.finds = append(fa.finds, *f)
					}
				}
			}
			if r.cfg.Analysis.EnableRefactoring {
				for _, e := range fa.index.All() {
					if f := refactoring.LargeType(e, fa.index, r.cfg.Refactoring); f != nil {
						fa.finds = append(fa.finds, *f)
					}
				}
				fa.fps = refactoring.Fingerprints(fa.index, fa.spec, r.cfg.Refactoring)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}

// duplicateStage groups structural fingerprints across the whole corpus,
// since two identical functions usually live in different files.
func (r *Runner) duplicateStage(analyses []*fileAnalysis) []refactoring.Finding {
	type owner struct {
		fa *fileAnalysis
		fp refactoring.Fingerprint
	}
	byHash := make(map[uint64][]owner)
	for _, fa := range analyses {
		for _, fp := range fa.fps {
			byHash[fp.Hash] = append(byHash[fp.Hash], owner{fa: fa, fp: fp})
		}
	}

	hashes := make([]uint64, 0, len(byHash))
	for h := range byHash {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	var findings []refactoring.Finding
	for _, h := range hashes {
		group := byHash[h]
		if len(group) < 2 {
			continue
		}
		impact := float64(len(group)-1) * 0.5
		if impact > 1 {
			impact = 1
		}
		if impact < r.cfg.Refactoring.MinImpact {
			continue
		}
		for _, o := range group {
			e := o.fa.index.ByID[o.fp.EntityID]
			if e == nil {
				continue
			}
			findings = append(findings, refactoring.Finding{
				Kind:      refactoring.KindDuplicateCode,
				EntityID:  e.ID,
				FilePath:  e.FilePath,
				StartLine: e.StartLine,
				EndLine:   e.EndLine,
				Impact:    impact,
				Detail:    "structurally identical to other entities in its group",
			})
		}
	}
	return findings
}

// structureStage computes per-directory imbalance packs and per-file
// split packs from the parsed corpus.
func (r *Runner) structureStage(analyses []*fileAnalysis) ([]structure.ReorgPack, []structure.SplitPack) {
	byDir := make(map[string][]structure.FileStat)
	subdirs := make(map[string]map[string]bool)
	for _, fa := range analyses {
		dir := filepath.ToSlash(filepath.Dir(fa.file.Rel))
		byDir[dir] = append(byDir[dir], structure.FileStat{
			Path:        fa.file.Rel,
			LinesOfCode: fa.loc,
			References:  fileReferences(fa, analyses),
		})
		parent := filepath.ToSlash(filepath.Dir(dir))
		if parent != dir {
			if subdirs[parent] == nil {
				subdirs[parent] = make(map[string]bool)
			}
			subdirs[parent][dir] = true
		}
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var reorgs []structure.ReorgPack
	for _, d := range dirs {
		stats := structure.DirStats{Path: d, Files: byDir[d], SubdirCount: len(subdirs[d])}
		if pack := structure.ProposeReorg(stats, r.cfg.Structure.Pressure, r.cfg.Structure.Reorg); pack != nil {
			reorgs = append(reorgs, *pack)
		}
	}

	var splits []structure.SplitPack
	for _, fa := range analyses {
		refs := entityReferences(fa)
		pack := structure.ProposeSplit(fa.file.Rel, fa.loc, int(fa.file.Size), refs, r.cfg.Structure.Split)
		if pack != nil {
			splits = append(splits, *pack)
		}
	}
	return reorgs, splits
}

// fileReferences approximates the file-level reference graph: file A
// references file B when A's source mentions one of B's top-level entity
// names. Coarse, but directional enough for community partitioning.
func fileReferences(fa *fileAnalysis, analyses []*fileAnalysis) []string {
	src := string(fa.source)
	var refs []string
	for _, other := range analyses {
		if other == fa {
			continue
		}
		if filepath.Dir(other.file.Rel) != filepath.Dir(fa.file.Rel) {
			continue
		}
		for _, id := range other.index.Roots {
			e := other.index.ByID[id]
			if e == nil || e.Name == entity.AnonymousName {
				continue
			}
			if strings.Contains(src, e.Name) {
				refs = append(refs, other.file.Rel)
				break
			}
		}
	}
	sort.Strings(refs)
	return refs
}

// entityReferences builds the intra-file entity affinity inputs for
// split packs: entity A references entity B when A's source mentions B's
// name.
func entityReferences(fa *fileAnalysis) []structure.EntityRef {
	all := fa.index.All()
	var refs []structure.EntityRef
	for _, e := range all {
		ref := structure.EntityRef{ID: e.ID, LinesOfCode: e.LineCount()}
		for _, other := range all {
			if other.ID == e.ID || other.Name == entity.AnonymousName {
				continue
			}
			if strings.Contains(e.Source, other.Name) {
				ref.References = append(ref.References, other.ID)
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// joinStage turns the optional live-reachability input into per-entity
// payoff boosts. Absent inputs produce an empty map, which downstream
// code reads as "boost 1.0 everywhere".
func (r *Runner) joinStage(inputs ExternalInputs, res *result.AnalysisResults) map[string]float64 {
	boosts := make(map[string]float64)
	if len(inputs.LiveReach) == 0 {
		res.AddWarning(vkerrors.FeatureUnavailable("live-reachability").Warning())
		return boosts
	}
	scores := coverage.ComputeLiveReachScores(inputs.LiveReach, r.cfg.Coverage.LiveReach, r.now())
	for id, score := range scores {
		boosts[id] = coverage.Boost(&score)
	}
	return boosts
}

// cloneStage builds the denoiser's entity inputs from every callable
// entity in the corpus and runs the four phases, loading and persisting
// the stop-motif cache when a path is configured.
func (r *Runner) cloneStage(analyses []*fileAnalysis, boosts map[string]float64, res *result.AnalysisResults) *clone.Report {
	var entities []clone.EntityInput
	for _, fa := range analyses {
		for _, e := range fa.index.Functions() {
			node := lang.Node(e)
			if node == nil {
				continue
			}
			entities = append(entities, clone.EntityInput{
				EntityID: e.ID,
				FilePath: e.FilePath,
				Tokens:   clone.Tokenize(node, fa.source, fa.spec),
				Blocks:   clone.BasicBlocks(node, fa.spec),
				Motifs:   clone.Motifs(node, fa.spec),
			})
		}
	}

	var cached *clone.StopMotifCache
	if path := r.cfg.Denoise.CachePath; path != "" {
		loaded, err := clone.LoadCache(path)
		if err != nil {
			if ve, ok := err.(*vkerrors.Error); ok {
				res.AddWarning(ve.Warning())
			}
		} else {
			cached = loaded
		}
	}

	denoiser := clone.NewDenoiser(clone.Options{
		KgramSize:   r.cfg.Denoise.KgramSize,
		LSH:         r.cfg.LSH,
		Gate:        r.cfg.Denoise.StructuralGate,
		StopMotifs:  r.cfg.Denoise.StopMotifs,
		Ranking:     r.cfg.Denoise.Ranking,
		Calibration: r.cfg.Denoise.AutoCalibration,
	}, cached)

	report := denoiser.Run(entities, boosts, r.now())

	if path := r.cfg.Denoise.CachePath; path != "" && report.CacheRefreshed {
		if err := clone.SaveCache(report.Cache, path); err != nil {
			if ve, ok := err.(*vkerrors.Error); ok {
				res.AddWarning(ve.Warning())
			}
		}
	}
	return report
}

// scoringStage assembles per-entity feature vectors from the detectors'
// raw outputs, fits the configured normalizer, and scores.
func (r *Runner) scoringStage(analyses []*fileAnalysis, table *coverage.Table) []scoring.ScoringResult {
	var vectors []scoring.FeatureVector
	for _, fa := range analyses {
		for _, e := range fa.index.Functions() {
			m, ok := fa.metrics[e.ID]
			if !ok {
				continue
			}
			features := map[string]float64{
				"cyclomatic_complexity": float64(m.Cyclomatic),
				"cognitive_complexity":  float64(m.Cognitive),
				"max_nesting_depth":     float64(m.MaxNestingDepth),
				"parameter_count":       float64(m.ParameterCount),
				"lines_of_code":         float64(m.LinesOfCode),
				"halstead_volume":       m.HalsteadVolume,
				"technical_debt":        m.TechnicalDebtScore,
			}
			if e.Name != entity.AnonymousName {
				features["naming_divergence"] = scoring.NamingDivergence(e.Name)
			}
			if table != nil {
				if ratio := table.RangeRatio(e.FilePath, e.StartLine, e.EndLine); ratio >= 0 {
					// Low coverage should push the score up, so invert.
					features["line_coverage_gap"] = 1 - ratio
				}
			}
			vectors = append(vectors, scoring.FeatureVector{EntityID: e.ID, Features: features})
		}
	}
	sort.Slice(vectors, func(i, j int) bool { return vectors[i].EntityID < vectors[j].EntityID })

	scorer := scoring.NewScorer(
		scoring.NewNormalizer(r.cfg.Scoring.Scheme, r.cfg.Scoring.UseBayesianFallback),
		r.cfg.Scoring.CategoryWeights,
	)
	scorer.Fit(vectors)
	return scorer.Score(vectors)
}
