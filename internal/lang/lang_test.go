package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

func Add(a, b int) int {
	if a > b {
		return a + b
	}
	return b
}

type Point struct {
	X int
	Y int
}
`

func TestGoAdapterExtractsFunctionsAndTypes(t *testing.T) {
	parser := NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(goSample))
	require.NoError(t, err)

	adapter := NewAdapter(GoSpec)
	idx, err := adapter.Extract("sample.go", []byte(goSample), tree)
	require.NoError(t, err)
	require.NoError(t, idx.Validate())

	names := map[string]bool{}
	for _, e := range idx.All() {
		names[e.Name] = true
	}
	assert.True(t, names["Add"], "expected function Add, got %v", names)
	assert.True(t, names["Point"], "expected type Point, got %v", names)
}

const rustSample = `fn classify(x: i32) -> i32 {
    if x > 10 {
        return 2;
    }
    let mut total = 0;
    for v in 0..x {
        total += v;
    }
    total
}

struct Point {
    x: i32,
    y: i32,
}

enum Shape {
    Circle,
    Square,
}
`

func TestRustAdapterExtractsItems(t *testing.T) {
	parser := NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "rust", []byte(rustSample))
	require.NoError(t, err)

	adapter := NewAdapter(RustSpec)
	idx, err := adapter.Extract("sample.rs", []byte(rustSample), tree)
	require.NoError(t, err)
	require.NoError(t, idx.Validate())

	names := map[string]bool{}
	for _, e := range idx.All() {
		names[e.Name] = true
	}
	assert.True(t, names["classify"], "expected function classify, got %v", names)
	assert.True(t, names["Point"], "expected struct Point, got %v", names)
	assert.True(t, names["Shape"], "expected enum Shape, got %v", names)
}

func TestRegistryResolvesKnownAndStubExtensions(t *testing.T) {
	r := NewRegistry()

	a, err := r.For("main.go")
	require.NoError(t, err)
	assert.Equal(t, "go", a.Language())

	a, err = r.For("lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "rust", a.Language())

	_, err = r.For("Widget.java")
	require.Error(t, err, "java has no adapter yet and must report FeatureUnavailable")

	_, err = r.For("notes.xyz")
	require.Error(t, err)
}

func TestEntityIDsAreUniquePerFile(t *testing.T) {
	parser := NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(goSample))
	require.NoError(t, err)

	adapter := NewAdapter(GoSpec)
	idx, err := adapter.Extract("sample.go", []byte(goSample), tree)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, e := range idx.All() {
		assert.False(t, seen[e.ID], "duplicate entity id %s", e.ID)
		seen[e.ID] = true
	}
}
