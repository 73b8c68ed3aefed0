package refactoring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-go/internal/complexity"
	"github.com/sibyllinesoft/valknut-go/internal/entity"
	"github.com/sibyllinesoft/valknut-go/internal/lang"
)

func TestLongMethodFlagsOversizedFunctions(t *testing.T) {
	src := "package sample\n\nfunc Big() int {\n" + strings.Repeat("\t_ = 1\n", 200) + "\treturn 1\n}\n"
	idx := extract(t, src)
	fn := idx.Functions()[0]

	f := LongMethod(fn, DefaultConfig)
	require.NotNil(t, f)
	assert.Equal(t, KindLongMethod, f.Kind)
	assert.Greater(t, f.Impact, 0.0)
}

func TestLongMethodIgnoresShortFunctions(t *testing.T) {
	idx := extract(t, "package sample\n\nfunc Small() int { return 1 }\n")
	fn := idx.Functions()[0]
	assert.Nil(t, LongMethod(fn, DefaultConfig))
}

func TestComplexConditionalFlagsHighCyclomaticFunctions(t *testing.T) {
	idx := extract(t, branchySource)
	fn := idx.Functions()[0]
	node := lang.Node(fn)
	require.NotNil(t, node)

	d := complexity.New(complexity.DefaultThresholds)
	m, _ := d.Analyze(fn, node, []byte(branchySource), lang.GoSpec)

	cfg := DefaultConfig
	cfg.MaxConditionalBranches = 1
	f := ComplexConditional(fn, m, cfg)
	require.NotNil(t, f)
	assert.Equal(t, KindComplexConditional, f.Kind)
}

func TestFingerprintsGroupStructurallyIdenticalFunctions(t *testing.T) {
	src := `package sample

func AddInts(a int, b int) int {
	return a + b
}

func AddFloats(x int, y int) int {
	return x + y
}

func Unrelated() string {
	return "hello world, this changes nothing structurally similar"
}
`
	idx := extract(t, src)
	cfg := DefaultConfig
	cfg.DuplicateMinTokens = 3
	fps := Fingerprints(idx, lang.GoSpec, cfg)
	require.Len(t, fps, 3)

	findings := DuplicateGroups(fps, idx, Config{MinImpact: 0.1})
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, KindDuplicateCode, f.Kind)
	}
}

const branchySource = `package sample

func Classify(x int) int {
	if x > 10 {
		if x > 100 {
			return 3
		}
		return 2
	} else if x > 0 {
		return 1
	} else if x < -10 {
		return -1
	}
	return 0
}
`

func extract(t *testing.T, src string) *entity.Index {
	t.Helper()
	parser := lang.NewTreeSitterParser()
	tree, err := parser.Parse(context.Background(), "go", []byte(src))
	require.NoError(t, err)
	adapter := lang.NewAdapter(lang.GoSpec)
	idx, err := adapter.Extract("sample.go", []byte(src), tree)
	require.NoError(t, err)
	return idx
}
