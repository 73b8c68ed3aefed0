// Package clone implements the Clone Denoising Core (§4.6): a four-phase
// filter — rarity-weighted shingling, a structural gate, stop-motif
// suppression, and payoff ranking with auto-calibration — that turns a
// noisy near-duplicate candidate set into a small ranked list of
// refactoring-worthy clones.
package clone

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

// Tokenize walks node in pre-order and emits normalized tokens so that
// clones differing only in variable names or literal values still shingle
// identically: identifiers, type identifiers, string/number/bool/null
// literals fold to a small closed vocabulary, a call emits its argument
// count, operator and *_expression kinds emit OP:<kind> only as leaves,
// and any other leaf (anonymous punctuation included) emits its raw kind.
// Other inner nodes emit no token of their own. Comment nodes (and
// their children) are skipped entirely, mirroring the shared
// lang.Spec.CommentKinds classification every detector uses.
func Tokenize(node *tree_sitter.Node, source []byte, spec *lang.Spec) []string {
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
		case kind == "identifier" || kind == "field_identifier":
			tokens = append(tokens, "IDENT")
		case kind == "type_identifier":
			tokens = append(tokens, "TYPE")
		case kind == "interpreted_string_literal" || kind == "string" || kind == "string_literal":
			tokens = append(tokens, "STRING")
		case kind == "int_literal" || kind == "number" || kind == "float_literal":
			tokens = append(tokens, "NUMBER")
		case kind == "true" || kind == "false":
			tokens = append(tokens, "BOOL")
		case kind == "nil" || kind == "null":
			tokens = append(tokens, "NULL")
		case kind == "call_expression":
			// Must precede the "_expression" catch-all below, which would
			// otherwise swallow calls and never emit their arity.
			args := n.ChildByFieldName("arguments")
			argc := 0
			if args != nil {
				argc = int(args.ChildCount())
			}
			tokens = append(tokens, "CALL_ARGS:"+strconv.Itoa(argc))
		case strings.Contains(kind, "operator") || strings.HasSuffix(kind, "_expression"):
			if n.ChildCount() == 0 {
				tokens = append(tokens, "OP:"+kind)
			}
		default:
			if n.ChildCount() == 0 {
				tokens = append(tokens, kind)
			}
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return tokens
}

// Kgrams produces all contiguous k-length token windows ("shingles").
// Entities with fewer than k tokens produce no shingles, matching the
// Phase 1 edge case of excluding them as unanalyzable.
func Kgrams(tokens []string, k int) []string {
	if k < 1 || len(tokens) < k {
		return nil
	}
	grams := make([]string, 0, len(tokens)-k+1)
	for i := 0; i+k <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+k], "\x1f"))
	}
	return grams
}
