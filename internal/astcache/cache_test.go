package astcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingParser struct {
	calls int64
}

func (p *countingParser) Parse(_ context.Context, language string, source []byte) (any, error) {
	atomic.AddInt64(&p.calls, 1)
	return fmt.Sprintf("%s:%s", language, string(source)), nil
}

type failingParser struct{}

func (failingParser) Parse(_ context.Context, _ string, _ []byte) (any, error) {
	return nil, fmt.Errorf("boom")
}

func TestGetIsContentHashed(t *testing.T) {
	p := &countingParser{}
	c := New(p)
	ctx := context.Background()

	t1, err := c.Get(ctx, "a.go", []byte("package a"), "go")
	require.NoError(t, err)

	t2, err := c.Get(ctx, "a.go", []byte("package a"), "go")
	require.NoError(t, err)
	assert.Same(t, t1, t2, "identical source must return the same cached entry")
	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls))

	t3, err := c.Get(ctx, "a.go", []byte("package a "), "go")
	require.NoError(t, err)
	assert.NotEqual(t, t1.ContentHash, t3.ContentHash, "changing a byte must produce a new entry")
	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))
}

func TestGetSurfacesParseError(t *testing.T) {
	c := New(failingParser{})
	_, err := c.Get(context.Background(), "a.go", []byte("x"), "go")
	require.Error(t, err)
}

func TestConcurrentGetSingleFlights(t *testing.T) {
	p := &countingParser{}
	c := New(p)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx, "a.go", []byte("same"), "go")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls))
}

func TestEvictionRespectsWaterMarks(t *testing.T) {
	p := &countingParser{}
	c := NewWithWaterMarks(p, 10, 8)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := c.Get(ctx, fmt.Sprintf("f%d.go", i), []byte(fmt.Sprintf("src%d", i)), "go")
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, c.Len(), 10)
}
