package lang

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut-go/internal/entity"
)

// Adapter walks a parsed syntax tree for one language and turns it into a
// typed entity.Index. It never branches on a raw node-kind string outside
// of consulting its own Spec.
type Adapter struct {
	spec *Spec
}

// NewAdapter builds an Adapter from a Spec.
func NewAdapter(spec *Spec) *Adapter { return &Adapter{spec: spec} }

// Language returns the adapter's language identifier, e.g. "python".
func (a *Adapter) Language() string { return a.spec.Name }

// Extensions returns the file extensions this adapter claims.
func (a *Adapter) Extensions() []string { return a.spec.Extensions }

// Extract walks tree (a *tree_sitter.Tree, as produced by
// TreeSitterParser.Parse) and produces an ordered entity.Index.
// IDs are assigned in pre-order traversal so they increase monotonically
// per file, per §4.2.
func (a *Adapter) Extract(path string, source []byte, tree any) (*entity.Index, error) {
	t, ok := tree.(*tree_sitter.Tree)
	if !ok {
		return nil, fmt.Errorf("lang: unexpected tree type %T", tree)
	}
	idx := entity.NewIndex(path, a.spec.Name)
	w := &walkState{spec: a.spec, source: source, path: path, idx: idx}
	w.visit(t.RootNode(), "")
	return idx, nil
}

type walkState struct {
	spec    *Spec
	source  []byte
	path    string
	idx     *entity.Index
	counter int
}

func (w *walkState) visit(node *tree_sitter.Node, parentID string) {
	if node == nil {
		return
	}
	kind := node.Kind()

	if w.spec.CommentKinds[kind] {
		return // comments (and their children) are skipped entirely
	}

	currentParent := parentID
	if rule, ok := w.spec.Rules[kind]; ok {
		e := w.makeEntity(node, kind, rule, parentID)
		w.idx.Add(e)
		currentParent = e.ID
	}

	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		w.visit(node.Child(i), currentParent)
	}
}

func (w *walkState) makeEntity(node *tree_sitter.Node, kind string, rule NodeRule, parentID string) *entity.Entity {
	name := entity.AnonymousName
	if !rule.Anonymous {
		field := rule.NameField
		if field == "" {
			field = "name"
		}
		if nameNode := node.ChildByFieldName(field); nameNode != nil {
			name = string(w.source[nameNode.StartByte():nameNode.EndByte()])
		}
	}

	start := node.StartPosition()
	end := node.EndPosition()

	id := entity.NewID(w.path, rule.Kind, w.counter)
	w.counter++

	meta := w.metadata(node, kind)
	meta["node"] = node

	return &entity.Entity{
		ID:        id,
		Kind:      rule.Kind,
		Name:      name,
		FilePath:  w.path,
		Language:  w.spec.Name,
		StartLine: int(start.Row) + 1,
		EndLine:   int(end.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndCol:    int(end.Column) + 1,
		Source:    string(w.source[node.StartByte():node.EndByte()]),
		ParentID:  parentID,
		Metadata:  meta,
	}
}

// Node returns the tree-sitter node backing e, as stashed by the walker,
// for detectors (complexity) that need direct AST access. Returns nil if
// e was not produced by this package's walker.
func Node(e *entity.Entity) *tree_sitter.Node {
	if e == nil || e.Metadata == nil {
		return nil
	}
	n, _ := e.Metadata["node"].(*tree_sitter.Node)
	return n
}

// metadata populates the language-tagged metadata bag (§4.2): parameter
// list, is_async, is_generator, base classes, decorator presence, etc.
// Only the fields a given node kind can plausibly carry are set.
func (w *walkState) metadata(node *tree_sitter.Node, kind string) map[string]any {
	meta := make(map[string]any)

	if params := node.ChildByFieldName("parameters"); params != nil {
		meta["parameters"] = string(w.source[params.StartByte():params.EndByte()])
	}
	if body := node.ChildByFieldName("body"); body != nil {
		meta["has_body"] = true
	}
	if superclass := node.ChildByFieldName("superclass"); superclass != nil {
		meta["base_class"] = string(w.source[superclass.StartByte():superclass.EndByte()])
	}
	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		meta["extends"] = string(w.source[heritage.StartByte():heritage.EndByte()])
	}

	switch kind {
	case "generator_function_declaration":
		meta["is_generator"] = true
	case "lambda", "arrow_function":
		meta["is_lambda"] = true
	}

	// Async detection: a sibling/child token literally named "async" in
	// most grammars, looked up defensively since it varies by language.
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "async" {
			meta["is_async"] = true
			break
		}
	}

	return meta
}
