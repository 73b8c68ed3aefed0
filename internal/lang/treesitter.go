// Package lang implements the per-language Language Adapters (L0): a
// fixed mapping from tree-sitter node kinds to the closed entity.Kind
// enum, shared by a single generic tree walker so every adapter behaves
// identically except for its Spec.
package lang

import (
	"context"
	"fmt"
	"sync"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TreeSitterParser implements astcache.Parser. It lazily initializes one
// *tree_sitter.Parser per language on first use and keeps it for reuse;
// grammar setup is comparatively expensive and every file of a given
// language shares the same grammar.
type TreeSitterParser struct {
	mu        sync.Mutex
	parsers   map[string]*tree_sitter.Parser
	factories map[string]func() *tree_sitter.Language
}

// NewTreeSitterParser registers grammar factories for every language the
// pack ships a binding for. Go, Python, JavaScript, TypeScript, and Rust
// have full Language Adapters; the remaining factories (csharp, cpp,
// java, php, zig) are registration-only until their adapters land —
// Registry reports those extensions as FeatureUnavailable before a parse
// is ever attempted, rather than pretending to extract entities.
func NewTreeSitterParser() *TreeSitterParser {
	p := &TreeSitterParser{
		parsers: make(map[string]*tree_sitter.Parser),
		factories: map[string]func() *tree_sitter.Language{
			"go":         func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
			"python":     func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
			"javascript": func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
			"typescript": func() *tree_sitter.Language {
				return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
			},
			"csharp": func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) },
			"cpp":    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
			"java":   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) },
			"php":    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) },
			"rust":   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
			"zig":    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_zig.Language()) },
		},
	}
	return p
}

func (p *TreeSitterParser) parserFor(language string) (*tree_sitter.Parser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if parser, ok := p.parsers[language]; ok {
		return parser, nil
	}
	factory, ok := p.factories[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(factory()); err != nil {
		return nil, fmt.Errorf("set language %q: %w", language, err)
	}
	p.parsers[language] = parser
	return parser, nil
}

// Parse satisfies astcache.Parser. The returned tree is a *tree_sitter.Tree;
// adapters are the only consumers that know how to walk it.
func (p *TreeSitterParser) Parse(_ context.Context, language string, source []byte) (any, error) {
	parser, err := p.parserFor(language)
	if err != nil {
		return nil, err
	}
	tree := parser.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("grammar rejected source")
	}
	return tree, nil
}
