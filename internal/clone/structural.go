package clone

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

// BasicBlock is a maximal straight-line statement region of a function:
// it records whether it contains a call and whether it ends in a return,
// per the glossary invariant that basic blocks partition a function's
// statements.
type BasicBlock struct {
	StatementCount int
	HasCall        bool
	EndsInReturn   bool
}

// BasicBlocks splits node's statement list into BasicBlocks, starting a
// new block whenever a decision-point (branch/loop) boundary is crossed.
func BasicBlocks(node *tree_sitter.Node, spec *lang.Spec) []BasicBlock {
	var blocks []BasicBlock
	current := BasicBlock{}
	flush := func() {
		if current.StatementCount > 0 {
			blocks = append(blocks, current)
		}
		current = BasicBlock{}
	}

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		if spec.CommentKinds[kind] {
			return
		}

		if spec.DecisionKinds[kind] {
			flush()
			count := n.ChildCount()
			for i := uint(0); i < count; i++ {
				walk(n.Child(i))
			}
			flush()
			return
		}

		if kind == "call_expression" {
			current.HasCall = true
		}
		if kind == "return_statement" {
			current.EndsInReturn = true
		}
		if isStatementKind(kind) {
			current.StatementCount++
		}

		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	flush()
	return blocks
}

func isStatementKind(kind string) bool {
	return len(kind) > len("_statement") && kind[len(kind)-len("_statement"):] == "_statement"
}

// MotifCategory classifies a PDG motif into the small closed set the
// structural gate reasons about.
type MotifCategory string

const (
	MotifConditional MotifCategory = "Conditional"
	MotifLoop        MotifCategory = "Loop"
	MotifSequential  MotifCategory = "Sequential"
	MotifException   MotifCategory = "Exception"
	MotifReturn      MotifCategory = "Return"
)

// Motif is one Weisfeiler-Lehman-hashed program-dependence-graph pattern:
// the category it belongs to and the structural hash of its local
// neighborhood (here approximated from the AST since a full PDG build is
// out of scope — the WL-hash step is the part that actually matters for
// motif matching, and it runs the same way over either graph).
type Motif struct {
	Category MotifCategory
	Hash     uint64
}

// Motifs computes the WL-hash motif set for node: one motif per
// conditional, loop, exception (try/catch/except/defer), return or call
// node, hashed over its own kind plus its direct
// children's kinds (a 1-hop Weisfeiler-Lehman refinement), which is
// enough to distinguish "if with early return" from "if with loop body"
// while ignoring identifier/literal content.
func Motifs(node *tree_sitter.Node, spec *lang.Spec) map[Motif]bool {
	motifs := make(map[Motif]bool)
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		if spec.CommentKinds[kind] {
			return
		}

		if category, ok := motifCategoryFor(kind); ok {
			motifs[Motif{Category: category, Hash: wlHash1Hop(n)}] = true
		}

		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return motifs
}

func motifCategoryFor(kind string) (MotifCategory, bool) {
	switch kind {
	case "if_statement", "expression_case", "type_case", "communication_case",
		"select_statement", "switch_case", "conditional_expression", "ternary_expression":
		return MotifConditional, true
	case "for_statement", "while_statement", "for_in_statement", "do_statement", "range_clause":
		return MotifLoop, true
	case "except_clause", "catch_clause", "try_statement", "defer_statement":
		return MotifException, true
	case "return_statement":
		return MotifReturn, true
	case "call_expression":
		return MotifSequential, true
	}
	return "", false
}

func wlHash1Hop(n *tree_sitter.Node) uint64 {
	const fnv64Offset = 14695981039346656037
	const fnv64Prime = 1099511628211
	h := uint64(fnv64Offset)
	fold := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= fnv64Prime
		}
	}
	fold(n.Kind())
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if child := n.Child(i); child != nil {
			fold(child.Kind())
		}
	}
	return h
}

// StructuralGateConfig bounds Phase 2 acceptance.
type StructuralGateConfig struct {
	RequireBlocks     int     `toml:"require_blocks"`
	MinMatchTokens    int     `toml:"min_match_tokens"`
	IOMismatchPenalty float64 `toml:"io_mismatch_penalty"`
}

// DefaultStructuralGateConfig mirrors the corpus's documented defaults.
var DefaultStructuralGateConfig = StructuralGateConfig{
	RequireBlocks:     2,
	MinMatchTokens:    32,
	IOMismatchPenalty: 0.5,
}

// EntityStructure bundles the per-entity facts the structural gate needs.
type EntityStructure struct {
	EntityID    string
	TokenCount  int
	Blocks      []BasicBlock
	Motifs      map[Motif]bool
	IOFootprint IOFootprint
}

// IOFootprint is a coarse inferred I/O signature, used only for the
// optional mismatch penalty.
type IOFootprint struct {
	ReadsDB, WritesDB   bool
	ReadsFS, WritesFS   bool
	ReadsNet, WritesNet bool
}

func (f IOFootprint) mismatches(o IOFootprint) bool {
	return f.ReadsDB != o.ReadsDB || f.WritesDB != o.WritesDB ||
		f.ReadsFS != o.ReadsFS || f.WritesFS != o.WritesFS ||
		f.ReadsNet != o.ReadsNet || f.WritesNet != o.WritesNet
}

// PassesStructuralGate applies Phase 2: both entities need enough tokens
// and basic blocks, and their motif sets must intersect on a non-trivial
// category. Returns whether the pair passes and the multiplicative
// penalty to apply to its similarity (1.0 if no I/O mismatch, or
// io_mismatch_penalty if one is configured and detected).
func PassesStructuralGate(a, b EntityStructure, cfg StructuralGateConfig) (pass bool, penalty float64) {
	if a.TokenCount < cfg.MinMatchTokens || b.TokenCount < cfg.MinMatchTokens {
		return false, 1
	}
	if len(a.Blocks) < cfg.RequireBlocks || len(b.Blocks) < cfg.RequireBlocks {
		return false, 1
	}

	intersects := false
	for m := range a.Motifs {
		if m.Category != MotifConditional && m.Category != MotifLoop {
			continue
		}
		if b.Motifs[m] {
			intersects = true
			break
		}
	}
	if !intersects {
		return false, 1
	}

	penalty = 1.0
	if a.IOFootprint.mismatches(b.IOFootprint) && cfg.IOMismatchPenalty > 0 {
		penalty = cfg.IOMismatchPenalty
	}
	return true, penalty
}
