// Package complexity implements the Complexity Detector (§4.3): per
// function/method cyclomatic, cognitive, nesting, Halstead, and
// maintainability metrics, with configured thresholds producing severity
// issues.
package complexity

import (
	"math"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut-go/internal/entity"
	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

// Severity classifies how far a metric exceeds its threshold.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityVeryHigh Severity = "VeryHigh"
	SeverityCritical Severity = "Critical"
)

// Thresholds configures when a metric produces an Issue.
type Thresholds struct {
	MaxCyclomatic      int     `toml:"max_cyclomatic"`
	MaxCognitive       int     `toml:"max_cognitive"`
	MaxNestingDepth    int     `toml:"max_nesting_depth"`
	MaxParameterCount  int     `toml:"max_parameter_count"`
	MaxLinesOfCode     int     `toml:"max_lines_of_code"`
	MinMaintainability float64 `toml:"min_maintainability"`
}

// DefaultThresholds mirrors the conservative defaults common in the
// teacher's own complexity gating (cyclomatic > 15 considered high risk).
var DefaultThresholds = Thresholds{
	MaxCyclomatic:      15,
	MaxCognitive:       20,
	MaxNestingDepth:    5,
	MaxParameterCount:  6,
	MaxLinesOfCode:     80,
	MinMaintainability: 20,
}

// Metrics holds every measurement computed for one function/method entity.
type Metrics struct {
	EntityID             string
	Cyclomatic           int
	Cognitive            int
	MaxNestingDepth      int
	ParameterCount       int
	LinesOfCode          int
	StatementCount       int
	HalsteadVolume       float64
	HalsteadDifficulty   float64
	TechnicalDebtScore   float64
	MaintainabilityIndex float64
}

// Issue records a single threshold violation for one entity.
type Issue struct {
	EntityID  string
	Metric    string
	Value     float64
	Threshold float64
	Severity  Severity
}

// Detector computes Metrics and Issues for every function/method entity
// in a ParseIndex, using the tree-sitter node directly so it can reuse
// the node-kind vocabulary the corresponding lang.Spec already defines
// (cross-detector AST sharing, per the design notes: no detector
// re-parses or re-classifies node kinds independently).
type Detector struct {
	thresholds Thresholds
}

// New creates a Detector with the given thresholds.
func New(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Analyze computes metrics for a single function/method entity, given the
// tree-sitter node that backs it and the Spec used to parse it.
func (d *Detector) Analyze(e *entity.Entity, node *tree_sitter.Node, source []byte, spec *lang.Spec) (Metrics, []Issue) {
	m := Metrics{
		EntityID:    e.ID,
		LinesOfCode: e.LineCount(),
		Cyclomatic:  1,
	}

	decisions, statements := countDecisions(node, spec.DecisionKinds)
	m.Cyclomatic += decisions
	m.StatementCount = statements
	m.Cognitive, m.MaxNestingDepth = cognitiveComplexity(node, spec.DecisionKinds, spec.BlockKinds)
	m.ParameterCount = parameterCount(e)

	operators, operands := halsteadOperatorsOperands(node, source)
	m.HalsteadVolume = halsteadVolume(operators, operands)
	m.HalsteadDifficulty = halsteadDifficulty(operators, operands)
	m.MaintainabilityIndex = maintainabilityIndex(m.HalsteadVolume, m.Cyclomatic, m.LinesOfCode)
	m.TechnicalDebtScore = technicalDebtScore(m)

	return m, d.issuesFor(m)
}

func (d *Detector) issuesFor(m Metrics) []Issue {
	var issues []Issue
	add := func(metric string, value, threshold float64, exceeds bool) {
		if !exceeds {
			return
		}
		issues = append(issues, Issue{
			EntityID:  m.EntityID,
			Metric:    metric,
			Value:     value,
			Threshold: threshold,
			Severity:  severityFor(value, threshold),
		})
	}
	add("cyclomatic_complexity", float64(m.Cyclomatic), float64(d.thresholds.MaxCyclomatic), m.Cyclomatic > d.thresholds.MaxCyclomatic)
	add("cognitive_complexity", float64(m.Cognitive), float64(d.thresholds.MaxCognitive), m.Cognitive > d.thresholds.MaxCognitive)
	add("max_nesting_depth", float64(m.MaxNestingDepth), float64(d.thresholds.MaxNestingDepth), m.MaxNestingDepth > d.thresholds.MaxNestingDepth)
	add("parameter_count", float64(m.ParameterCount), float64(d.thresholds.MaxParameterCount), m.ParameterCount > d.thresholds.MaxParameterCount)
	add("lines_of_code", float64(m.LinesOfCode), float64(d.thresholds.MaxLinesOfCode), m.LinesOfCode > d.thresholds.MaxLinesOfCode)
	if m.MaintainabilityIndex < d.thresholds.MinMaintainability {
		issues = append(issues, Issue{
			EntityID:  m.EntityID,
			Metric:    "maintainability_index",
			Value:     m.MaintainabilityIndex,
			Threshold: d.thresholds.MinMaintainability,
			Severity:  severityFor(d.thresholds.MinMaintainability-m.MaintainabilityIndex, d.thresholds.MinMaintainability),
		})
	}
	return issues
}

// severityFor maps how far a value exceeds its threshold onto the
// severity ladder: ratio-over-threshold buckets at 1.0/1.5/2/3.
func severityFor(value, threshold float64) Severity {
	if threshold <= 0 {
		return SeverityMedium
	}
	ratio := value / threshold
	switch {
	case ratio >= 3:
		return SeverityCritical
	case ratio >= 2:
		return SeverityVeryHigh
	case ratio >= 1.5:
		return SeverityHigh
	case ratio >= 1.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func parameterCount(e *entity.Entity) int {
	params := e.MetaString("parameters")
	if params == "" || params == "()" {
		return 0
	}
	trimmed := strings.Trim(params, "()")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, ","))
}

// countDecisions walks node counting decision-point kinds and total
// statement-like nodes, used for cyclomatic complexity and LoC-adjacent
// statement counts.
func countDecisions(node *tree_sitter.Node, decisionKinds map[string]bool) (decisions, statements int) {
	if node == nil {
		return 0, 0
	}
	kind := node.Kind()
	if decisionKinds[kind] {
		decisions++
	}
	if strings.HasSuffix(kind, "_statement") {
		statements++
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		d, s := countDecisions(node.Child(i), decisionKinds)
		decisions += d
		statements += s
	}
	return decisions, statements
}

// cognitiveComplexity sums (base_weight + nesting_depth) over decision
// points, incrementing nesting on entry to a block-introducing construct,
// and tracks the maximum nesting level reached.
func cognitiveComplexity(node *tree_sitter.Node, decisionKinds, blockKinds map[string]bool) (score, maxDepth int) {
	var walk func(n *tree_sitter.Node, depth int)
	walk = func(n *tree_sitter.Node, depth int) {
		if n == nil {
			return
		}
		kind := n.Kind()
		childDepth := depth
		if decisionKinds[kind] {
			score += 1 + depth
			if depth > maxDepth {
				maxDepth = depth
			}
		}
		if blockKinds[kind] {
			childDepth = depth + 1
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i), childDepth)
		}
	}
	walk(node, 0)
	return score, maxDepth
}

// halsteadOperatorsOperands classifies leaf/operator-ish nodes into
// operators and identifier/literal-ish nodes into operands, counted by
// node kind as the "symbol".
func halsteadOperatorsOperands(node *tree_sitter.Node, source []byte) (operators, operands map[string]int) {
	operators = make(map[string]int)
	operands = make(map[string]int)
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		switch {
		case strings.Contains(kind, "operator") || strings.HasSuffix(kind, "_expression") || kind == "if" || kind == "for" || kind == "return":
			operators[kind]++
		case kind == "identifier" || kind == "number" || kind == "string" || kind == "int_literal" || kind == "string_literal":
			text := string(source[n.StartByte():n.EndByte()])
			operands[text]++
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return operators, operands
}

func halsteadVolume(operators, operands map[string]int) float64 {
	n1, n2 := len(operators), len(operands)
	var bigN1, bigN2 int
	for _, c := range operators {
		bigN1 += c
	}
	for _, c := range operands {
		bigN2 += c
	}
	vocabulary := n1 + n2
	length := bigN1 + bigN2
	if vocabulary == 0 {
		return 0
	}
	return float64(length) * math.Log2(float64(vocabulary))
}

func halsteadDifficulty(operators, operands map[string]int) float64 {
	n1, n2 := len(operators), len(operands)
	var bigN2 int
	for _, c := range operands {
		bigN2 += c
	}
	if n2 == 0 || bigN2 == 0 {
		return 0
	}
	return (float64(n1) / 2.0) * (float64(bigN2) / float64(n2))
}

// maintainabilityIndex follows the (simplified) Microsoft formula:
// MI = 171 - 5.2*ln(V) - 0.23*CC - 16.2*ln(LoC), clamped to [0, 100].
func maintainabilityIndex(halsteadVolume float64, cyclomatic, loc int) float64 {
	if halsteadVolume <= 0 || loc <= 0 {
		return 0
	}
	mi := 171.0 - 5.2*math.Log(halsteadVolume) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(loc))
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	return mi
}

// technicalDebtScore blends cyclomatic and cognitive complexity against
// maintainability: higher complexity and lower maintainability both push
// the debt score up.
func technicalDebtScore(m Metrics) float64 {
	complexityLoad := float64(m.Cyclomatic) + 0.5*float64(m.Cognitive)
	maintainabilityPenalty := (100 - m.MaintainabilityIndex) / 100
	return complexityLoad * (0.5 + 0.5*maintainabilityPenalty)
}
