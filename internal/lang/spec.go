package lang

import "github.com/sibyllinesoft/valknut-go/internal/entity"

// specsByName lets callers that only have an entity.Index's Language
// string (rather than the *Adapter that produced it) recover the Spec
// it was built with — needed by detectors that run after extraction,
// off the cached tree, rather than during it.
var specsByName map[string]*Spec

func init() {
	specsByName = map[string]*Spec{
		GoSpec.Name:         GoSpec,
		PythonSpec.Name:     PythonSpec,
		JavaScriptSpec.Name: JavaScriptSpec,
		TypeScriptSpec.Name: TypeScriptSpec,
		RustSpec.Name:       RustSpec,
	}
}

// SpecFor returns the Spec registered under the given language name, or
// nil if none of the full adapters claim it.
func SpecFor(language string) *Spec {
	return specsByName[language]
}

// NodeRule describes how one tree-sitter node kind maps onto the closed
// entity.Kind enum and where to find its name.
type NodeRule struct {
	Kind       entity.Kind
	NameField  string // field name holding the identifier child, e.g. "name"
	Anonymous  bool   // true if this kind never has a stable name (e.g. arrow_function)
	IsAsyncTag string // node field/child kind to check for "async" prefix, language-specific
}

// Spec is the fixed, closed mapping a single Language Adapter uses to
// classify tree-sitter nodes and extract metadata. It never leaks a raw
// node-kind string past adapter boundaries: walker.go consults Spec and
// produces entity.Entity values exclusively in terms of entity.Kind.
type Spec struct {
	Name       string
	Extensions []string

	// Rules maps a tree-sitter node kind to how it becomes an Entity.
	Rules map[string]NodeRule

	// DecisionKinds are node kinds the Complexity Detector (§4.3) counts
	// as decision points. Shared here so the detector and the adapter
	// agree on the same closed vocabulary per language.
	DecisionKinds map[string]bool

	// BlockKinds are node kinds that open a new nesting level for
	// cognitive-complexity nesting-depth accounting.
	BlockKinds map[string]bool

	// CommentKinds are skipped entirely during fingerprinting (§4.5).
	CommentKinds map[string]bool
}

// GoSpec is the Go language adapter's node classification.
var GoSpec = &Spec{
	Name:       "go",
	Extensions: []string{".go"},
	Rules: map[string]NodeRule{
		"function_declaration": {Kind: entity.KindFunction, NameField: "name"},
		"method_declaration":   {Kind: entity.KindMethod, NameField: "name"},
		"type_spec":            {Kind: entity.KindStruct, NameField: "name"},
		"func_literal":         {Kind: entity.KindFunction, Anonymous: true},
	},
	DecisionKinds: map[string]bool{
		"if_statement": true, "for_statement": true, "expression_case": true,
		"type_case": true, "communication_case": true, "select_statement": true,
		"binary_expression": true,
	},
	BlockKinds: map[string]bool{
		"if_statement": true, "for_statement": true, "block": true, "select_statement": true,
	},
	CommentKinds: map[string]bool{"comment": true},
}

// PythonSpec is the Python language adapter's node classification.
var PythonSpec = &Spec{
	Name:       "python",
	Extensions: []string{".py", ".pyi"},
	Rules: map[string]NodeRule{
		"function_definition": {Kind: entity.KindFunction, NameField: "name"},
		"class_definition":    {Kind: entity.KindClass, NameField: "name"},
		"lambda":              {Kind: entity.KindFunction, Anonymous: true},
	},
	DecisionKinds: map[string]bool{
		"if_statement": true, "elif_clause": true, "for_statement": true,
		"while_statement": true, "except_clause": true, "conditional_expression": true,
		"boolean_operator": true, "match_statement": true, "case_clause": true,
	},
	BlockKinds: map[string]bool{
		"if_statement": true, "for_statement": true, "while_statement": true,
		"try_statement": true, "with_statement": true,
	},
	CommentKinds: map[string]bool{"comment": true},
}

// JavaScriptSpec is the JavaScript language adapter's node classification.
var JavaScriptSpec = &Spec{
	Name:       "javascript",
	Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
	Rules: map[string]NodeRule{
		"function_declaration":           {Kind: entity.KindFunction, NameField: "name"},
		"generator_function_declaration": {Kind: entity.KindFunction, NameField: "name"},
		"method_definition":              {Kind: entity.KindMethod, NameField: "name"},
		"class_declaration":              {Kind: entity.KindClass, NameField: "name"},
		"arrow_function":                 {Kind: entity.KindFunction, Anonymous: true},
		"function_expression":            {Kind: entity.KindFunction, Anonymous: true},
	},
	DecisionKinds: map[string]bool{
		"if_statement": true, "for_statement": true, "for_in_statement": true,
		"while_statement": true, "do_statement": true, "switch_case": true,
		"catch_clause": true, "ternary_expression": true, "binary_expression": true,
	},
	BlockKinds: map[string]bool{
		"if_statement": true, "for_statement": true, "while_statement": true,
		"switch_statement": true, "try_statement": true,
	},
	CommentKinds: map[string]bool{"comment": true},
}

// RustSpec is the Rust language adapter's node classification. Rust is
// expression-oriented, so its decision points are *_expression kinds and
// match arms rather than statements.
var RustSpec = &Spec{
	Name:       "rust",
	Extensions: []string{".rs"},
	Rules: map[string]NodeRule{
		"function_item":      {Kind: entity.KindFunction, NameField: "name"},
		"struct_item":        {Kind: entity.KindStruct, NameField: "name"},
		"enum_item":          {Kind: entity.KindEnum, NameField: "name"},
		"trait_item":         {Kind: entity.KindInterface, NameField: "name"},
		"mod_item":           {Kind: entity.KindModule, NameField: "name"},
		"closure_expression": {Kind: entity.KindFunction, Anonymous: true},
	},
	DecisionKinds: map[string]bool{
		"if_expression": true, "match_arm": true, "while_expression": true,
		"loop_expression": true, "for_expression": true, "binary_expression": true,
	},
	BlockKinds: map[string]bool{
		"if_expression": true, "while_expression": true, "loop_expression": true,
		"for_expression": true, "match_expression": true, "block": true,
	},
	CommentKinds: map[string]bool{"line_comment": true, "block_comment": true},
}

// TypeScriptSpec extends JavaScriptSpec with interfaces and type aliases.
var TypeScriptSpec = &Spec{
	Name:       "typescript",
	Extensions: []string{".ts", ".tsx"},
	Rules: map[string]NodeRule{
		"function_declaration":           {Kind: entity.KindFunction, NameField: "name"},
		"generator_function_declaration": {Kind: entity.KindFunction, NameField: "name"},
		"method_definition":              {Kind: entity.KindMethod, NameField: "name"},
		"class_declaration":              {Kind: entity.KindClass, NameField: "name"},
		"interface_declaration":          {Kind: entity.KindInterface, NameField: "name"},
		"enum_declaration":               {Kind: entity.KindEnum, NameField: "name"},
		"type_alias_declaration":         {Kind: entity.KindStruct, NameField: "name"},
		"arrow_function":                 {Kind: entity.KindFunction, Anonymous: true},
		"function_expression":            {Kind: entity.KindFunction, Anonymous: true},
	},
	DecisionKinds: JavaScriptSpec.DecisionKinds,
	BlockKinds:    JavaScriptSpec.BlockKinds,
	CommentKinds:  map[string]bool{"comment": true},
}
