package lang

import (
	"path/filepath"
	"strings"

	"github.com/sibyllinesoft/valknut-go/internal/entity"
	"github.com/sibyllinesoft/valknut-go/internal/vkerrors"
)

// EntityExtractor is anything that turns a parsed tree into an
// entity.Index; satisfied by *Adapter.
type EntityExtractor interface {
	Language() string
	Extensions() []string
	Extract(path string, source []byte, tree any) (*entity.Index, error)
}

// Registry resolves a file path to the adapter responsible for it. Five
// languages have full adapters (Go, Python, JavaScript, TypeScript,
// Rust); the remaining grammars the parser can lex are registered with no
// adapter, so Registry.For reports them via vkerrors.FeatureUnavailable
// instead of silently producing an empty index that looks like "no
// entities found".
type Registry struct {
	byExt     map[string]EntityExtractor
	stubLangs map[string]string // extension -> language name, adapter pending
}

// NewRegistry builds the registry with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{
		byExt: make(map[string]EntityExtractor),
		stubLangs: map[string]string{
			".cs": "csharp", ".cc": "cpp", ".cpp": "cpp", ".cxx": "cpp", ".hpp": "cpp",
			".java": "java", ".php": "php", ".zig": "zig",
		},
	}
	for _, spec := range []*Spec{GoSpec, PythonSpec, JavaScriptSpec, TypeScriptSpec, RustSpec} {
		r.Register(NewAdapter(spec))
	}
	return r
}

// Register wires an EntityExtractor into the registry for every extension
// it claims.
func (r *Registry) Register(a EntityExtractor) {
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
		delete(r.stubLangs, ext)
	}
}

// For resolves a file path to its adapter, or a FeatureUnavailable error
// if the extension is recognized but has no adapter, or a Parse error if
// the extension is unrecognized entirely.
func (r *Registry) For(path string) (EntityExtractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := r.byExt[ext]; ok {
		return a, nil
	}
	if lang, ok := r.stubLangs[ext]; ok {
		return nil, vkerrors.FeatureUnavailable("lang adapter: " + lang).WithPath(path)
	}
	return nil, vkerrors.Parse("unknown", "no adapter for extension "+ext).WithPath(path)
}

// LanguageFor returns the language tag astcache should key on for path,
// or "" if unrecognized.
func (r *Registry) LanguageFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := r.byExt[ext]; ok {
		return a.Language()
	}
	if lang, ok := r.stubLangs[ext]; ok {
		return lang
	}
	return ""
}
