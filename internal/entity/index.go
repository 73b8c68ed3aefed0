package entity

import "fmt"

// Index is the per-file mapping from entity id to Entity, plus the
// ordered list of root entity ids (entities with no parent). It is
// produced once by a language adapter and is read-only thereafter.
type Index struct {
	Path     string
	Language string
	ByID     map[string]*Entity
	Roots    []string
}

// NewIndex creates an empty Index for a file.
func NewIndex(path, language string) *Index {
	return &Index{
		Path:     path,
		Language: language,
		ByID:     make(map[string]*Entity),
	}
}

// Add inserts an entity, wiring it into its parent's ChildIDs if it has
// one, or appending to Roots otherwise.
func (idx *Index) Add(e *Entity) {
	idx.ByID[e.ID] = e
	if e.ParentID == "" {
		idx.Roots = append(idx.Roots, e.ID)
		return
	}
	if parent, ok := idx.ByID[e.ParentID]; ok {
		parent.ChildIDs = append(parent.ChildIDs, e.ID)
	}
}

// All returns every entity in the index in insertion-stable order
// (iterating roots depth-first).
func (idx *Index) All() []*Entity {
	var out []*Entity
	seen := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		e, ok := idx.ByID[id]
		if !ok {
			return
		}
		out = append(out, e)
		for _, c := range e.ChildIDs {
			visit(c)
		}
	}
	for _, r := range idx.Roots {
		visit(r)
	}
	// Catch any entity not reachable from a root (defensive; adapters
	// should never produce these).
	for id, e := range idx.ByID {
		if !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the corpus-level invariants of §3: entity ids are
// unique within the index (guaranteed by map semantics) and every
// child's range is contained within its parent's.
func (idx *Index) Validate() error {
	for id, e := range idx.ByID {
		if err := e.Validate(); err != nil {
			return err
		}
		for _, cid := range e.ChildIDs {
			child, ok := idx.ByID[cid]
			if !ok {
				continue
			}
			if child.StartLine < e.StartLine || child.EndLine > e.EndLine {
				return fmt.Errorf("entity %s: child %s range [%d,%d] not contained in parent range [%d,%d]",
					id, cid, child.StartLine, child.EndLine, e.StartLine, e.EndLine)
			}
		}
	}
	return nil
}

// Functions returns every Function/Method entity in the index.
func (idx *Index) Functions() []*Entity {
	var out []*Entity
	for _, e := range idx.All() {
		if e.IsCallable() {
			out = append(out, e)
		}
	}
	return out
}
