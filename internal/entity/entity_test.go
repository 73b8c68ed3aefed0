package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsStableAndKindTagged(t *testing.T) {
	id := NewID("a.py", KindFunction, 3)
	assert.Equal(t, "a.py:fn:3", id)
	assert.Equal(t, "a.py:class:0", NewID("a.py", KindClass, 0))
}

func TestEntityValidateRejectsInvertedRange(t *testing.T) {
	e := &Entity{ID: "x", StartLine: 10, EndLine: 3}
	require.Error(t, e.Validate())

	e.EndLine = 10
	require.NoError(t, e.Validate())
}

func TestIndexAddWiresParentChild(t *testing.T) {
	idx := NewIndex("a.py", "python")
	parent := &Entity{ID: "a.py:class:0", Kind: KindClass, StartLine: 1, EndLine: 20}
	child := &Entity{ID: "a.py:method:1", Kind: KindMethod, ParentID: parent.ID, StartLine: 2, EndLine: 5}

	idx.Add(parent)
	idx.Add(child)

	require.Len(t, idx.Roots, 1)
	assert.Equal(t, parent.ID, idx.Roots[0])
	assert.Equal(t, []string{child.ID}, idx.ByID[parent.ID].ChildIDs)
	assert.NoError(t, idx.Validate())
}

func TestIndexValidateRejectsChildOutsideParentRange(t *testing.T) {
	idx := NewIndex("a.py", "python")
	parent := &Entity{ID: "p", Kind: KindClass, StartLine: 1, EndLine: 5}
	child := &Entity{ID: "c", Kind: KindMethod, ParentID: "p", StartLine: 4, EndLine: 10}
	idx.Add(parent)
	idx.Add(child)

	assert.Error(t, idx.Validate())
}

func TestIndexFunctionsFiltersCallable(t *testing.T) {
	idx := NewIndex("a.py", "python")
	idx.Add(&Entity{ID: "1", Kind: KindFunction, StartLine: 1, EndLine: 2})
	idx.Add(&Entity{ID: "2", Kind: KindVariable, StartLine: 3, EndLine: 3})
	idx.Add(&Entity{ID: "3", Kind: KindMethod, StartLine: 4, EndLine: 5})

	fns := idx.Functions()
	require.Len(t, fns, 2)
}
