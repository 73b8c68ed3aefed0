// Package refactoring implements the Refactoring Detector (§4.5):
// long-method, complex-conditional, duplicate-code, and large-type
// findings, each filtered by a configured minimum impact threshold.
package refactoring

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut-go/internal/complexity"
	"github.com/sibyllinesoft/valknut-go/internal/entity"
	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

// Kind identifies the category of refactoring opportunity.
type Kind string

const (
	KindLongMethod         Kind = "long_method"
	KindComplexConditional Kind = "complex_conditional"
	KindDuplicateCode      Kind = "duplicate_code"
	KindLargeType          Kind = "large_type"
)

// Finding is one proposed refactoring opportunity.
type Finding struct {
	Kind      Kind
	EntityID  string
	FilePath  string
	StartLine int
	EndLine   int
	Impact    float64 // 0..1, higher means more valuable to fix
	Detail    string
}

// Config bounds when findings surface.
type Config struct {
	MaxMethodLines         int     `toml:"max_method_lines"`
	MaxConditionalBranches int     `toml:"max_conditional_branches"`
	MaxTypeMembers         int     `toml:"max_type_members"`
	MinImpact              float64 `toml:"min_impact"`
	DuplicateMinTokens     int     `toml:"duplicate_min_tokens"`
}

// DefaultConfig mirrors the complexity detector's defaults where the two
// overlap (method-length, nesting) and adds refactoring-specific caps.
var DefaultConfig = Config{
	MaxMethodLines:         80,
	MaxConditionalBranches: 4,
	MaxTypeMembers:         15,
	MinImpact:              0.3,
	DuplicateMinTokens:     20,
}

// LongMethod flags functions/methods exceeding MaxMethodLines, scaled by
// how far past the threshold they run.
func LongMethod(e *entity.Entity, cfg Config) *Finding {
	if !e.IsCallable() {
		return nil
	}
	loc := e.LineCount()
	if loc <= cfg.MaxMethodLines {
		return nil
	}
	impact := clamp01(float64(loc-cfg.MaxMethodLines) / float64(cfg.MaxMethodLines))
	if impact < cfg.MinImpact {
		return nil
	}
	return &Finding{
		Kind:      KindLongMethod,
		EntityID:  e.ID,
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
		Impact:    impact,
		Detail:    "exceeds configured method length",
	}
}

// ComplexConditional flags a function whose complexity metrics show a
// single decision point fanning out into more branches than
// MaxConditionalBranches (a proxy using cyclomatic complexity, since the
// corpus doesn't expose per-statement branch counts directly).
func ComplexConditional(e *entity.Entity, m complexity.Metrics, cfg Config) *Finding {
	if !e.IsCallable() {
		return nil
	}
	if m.Cyclomatic <= cfg.MaxConditionalBranches+1 {
		return nil
	}
	impact := clamp01(float64(m.Cyclomatic-cfg.MaxConditionalBranches) / float64(cfg.MaxConditionalBranches*2))
	if impact < cfg.MinImpact {
		return nil
	}
	return &Finding{
		Kind:      KindComplexConditional,
		EntityID:  e.ID,
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
		Impact:    impact,
		Detail:    "branch count exceeds configured threshold",
	}
}

// LargeType flags class/struct/interface entities with more direct
// children than MaxTypeMembers.
func LargeType(e *entity.Entity, idx *entity.Index, cfg Config) *Finding {
	switch e.Kind {
	case entity.KindClass, entity.KindStruct, entity.KindInterface:
	default:
		return nil
	}
	memberCount := len(e.ChildIDs)
	if memberCount <= cfg.MaxTypeMembers {
		return nil
	}
	impact := clamp01(float64(memberCount-cfg.MaxTypeMembers) / float64(cfg.MaxTypeMembers))
	if impact < cfg.MinImpact {
		return nil
	}
	return &Finding{
		Kind:      KindLargeType,
		EntityID:  e.ID,
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
		Impact:    impact,
		Detail:    "member count exceeds configured threshold",
	}
}

// Fingerprint is a token-normalized structural hash for one entity,
// suitable for grouping duplicate-code candidates: identifiers collapse
// to a single placeholder token and operators/call arity are tagged, so
// two functions differing only in variable names hash identically.
type Fingerprint struct {
	EntityID string
	Hash     uint64
	Tokens   int
}

// Fingerprints computes a structural fingerprint for every entity backed
// by a tree-sitter node, skipping comment nodes entirely (per the shared
// lang.Spec.CommentKinds classification) and entities below
// cfg.DuplicateMinTokens tokens.
func Fingerprints(idx *entity.Index, spec *lang.Spec, cfg Config) []Fingerprint {
	var out []Fingerprint
	for _, e := range idx.Functions() {
		node := lang.Node(e)
		if node == nil {
			continue
		}
		tokens := structuralTokens(node, spec)
		if len(tokens) < cfg.DuplicateMinTokens {
			continue
		}
		h := xxhash.New()
		for _, tok := range tokens {
			h.WriteString(tok)
			h.WriteString("\x1f")
		}
		out = append(out, Fingerprint{EntityID: e.ID, Hash: h.Sum64(), Tokens: len(tokens)})
	}
	return out
}

// DuplicateGroups groups fingerprints sharing the same hash into
// duplicate-code findings, one Finding per entity in a group of size >= 2.
func DuplicateGroups(fps []Fingerprint, idx *entity.Index, cfg Config) []Finding {
	byHash := make(map[uint64][]Fingerprint)
	for _, fp := range fps {
		byHash[fp.Hash] = append(byHash[fp.Hash], fp)
	}

	var findings []Finding
	for _, group := range byHash {
		if len(group) < 2 {
			continue
		}
		impact := clamp01(float64(len(group)-1) * 0.5)
		if impact < cfg.MinImpact {
			continue
		}
		for _, fp := range group {
			e := idx.ByID[fp.EntityID]
			if e == nil {
				continue
			}
			findings = append(findings, Finding{
				Kind:      KindDuplicateCode,
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

// structuralTokens walks node producing a token stream that normalizes
// identifiers and literals while tagging operators and call arity, the
// same idea as the token-normalized comparison the corpus's duplicate
// detector uses, adapted to run directly off tree-sitter node kinds
// instead of re-tokenizing source text.
func structuralTokens(node *tree_sitter.Node, spec *lang.Spec) []string {
	var tokens []string
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		if spec.CommentKinds[kind] {
			return
		}
		switch {
		case kind == "identifier":
			tokens = append(tokens, "ID")
		case strings.Contains(kind, "literal") || kind == "number" || kind == "string":
			tokens = append(tokens, "LIT")
		case strings.Contains(kind, "operator") || strings.HasSuffix(kind, "_expression"):
			tokens = append(tokens, "OP:"+kind)
		case kind == "argument_list" || kind == "arguments":
			tokens = append(tokens, "CALL_ARGS:"+strconv.Itoa(int(n.ChildCount())))
		default:
			tokens = append(tokens, kind)
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return tokens
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
