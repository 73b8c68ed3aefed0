// Package astcache implements the content-hashed Parse Cache (L0): a
// shared, concurrent cache of parsed syntax trees keyed by
// (path, content_hash, language). Detectors borrow a *CachedTree from
// here instead of re-parsing; the cache never mutates a tree once
// inserted, so concurrent readers never need to coordinate with each
// other, only with the cache's own bookkeeping.
package astcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/sibyllinesoft/valknut-go/internal/vkerrors"
)

// Parser parses source bytes for a given language into an opaque tree
// value. Language adapters supply the concrete implementation (tree-sitter
// grammars); the cache itself never inspects the tree's shape.
type Parser interface {
	Parse(ctx context.Context, language string, source []byte) (tree any, err error)
}

// CachedTree is a parsed syntax tree plus the bookkeeping the cache needs
// to evict it later. Source and Tree are never mutated after insertion.
type CachedTree struct {
	Path        string
	Language    string
	ContentHash uint64
	Source      []byte
	Tree        any
	InsertedAt  time.Time

	key Key
}

// Key uniquely identifies an entry: (path, content_hash, language).
// Changing a single byte of source produces a distinct key.
type Key struct {
	Path        string
	ContentHash uint64
	Language    string
}

func keyFor(path string, source []byte, language string) Key {
	return Key{Path: path, ContentHash: xxhash.Sum64(source), Language: language}
}

// Cache is a content-hashed, concurrency-safe Parse Cache with a
// high/low-water-mark eviction policy. Eviction is advisory: a goroutine
// that already holds a *CachedTree keeps using it after eviction, since
// Go's GC keeps it alive as long as it's referenced.
type Cache struct {
	parser Parser

	mu      sync.RWMutex
	entries map[Key]*list.Element // key -> node in order (oldest at Front)
	order   *list.List            // list of *CachedTree, oldest first

	inflightMu sync.Mutex
	inflight   map[Key]*pendingParse

	highWater int
	lowWater  int
}

type pendingParse struct {
	done chan struct{}
	tree *CachedTree
	err  error
}

const (
	// DefaultHighWater is the live-entry count that triggers eviction.
	DefaultHighWater = 1000
	// DefaultLowWater is the live-entry count eviction stops at.
	DefaultLowWater = 800
)

// New creates a Cache with the default high/low water marks.
func New(parser Parser) *Cache {
	return NewWithWaterMarks(parser, DefaultHighWater, DefaultLowWater)
}

// NewWithWaterMarks creates a Cache with explicit eviction thresholds.
func NewWithWaterMarks(parser Parser, highWater, lowWater int) *Cache {
	if lowWater > highWater {
		lowWater = highWater
	}
	return &Cache{
		parser:    parser,
		entries:   make(map[Key]*list.Element),
		order:     list.New(),
		inflight:  make(map[Key]*pendingParse),
		highWater: highWater,
		lowWater:  lowWater,
	}
}

// Get returns a shared handle to the cached tree for (path, source),
// parsing on miss. Parsing happens off the caller's goroutine via a
// single-flight slot shared by every concurrent caller requesting the
// same key, so Get is itself a suspension point: the caller blocks on a
// channel while the spawned parse completes (§5).
func (c *Cache) Get(ctx context.Context, path string, source []byte, language string) (*CachedTree, error) {
	key := keyFor(path, source, language)

	if tree, ok := c.lookup(key); ok {
		return tree, nil
	}

	pending, leader := c.claim(key)
	if leader {
		go c.runParse(pending, key, path, source, language)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pending.done:
		return pending.tree, pending.err
	}
}

func (c *Cache) lookup(key Key) (*CachedTree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*CachedTree), true
}

func (c *Cache) claim(key Key) (*pendingParse, bool) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	if p, ok := c.inflight[key]; ok {
		return p, false
	}
	p := &pendingParse{done: make(chan struct{})}
	c.inflight[key] = p
	return p, true
}

func (c *Cache) runParse(pending *pendingParse, key Key, path string, source []byte, language string) {
	defer close(pending.done)
	defer func() {
		c.inflightMu.Lock()
		delete(c.inflight, key)
		c.inflightMu.Unlock()
	}()

	tree, err := c.parser.Parse(context.Background(), language, source)
	if err != nil {
		pending.err = vkerrors.Parse(language, err.Error()).WithPath(path)
		return
	}

	ct := &CachedTree{
		Path:        path,
		Language:    language,
		ContentHash: key.ContentHash,
		Source:      source,
		Tree:        tree,
		InsertedAt:  time.Now(),
		key:         key,
	}
	c.insert(key, ct)
	pending.tree = ct
}

func (c *Cache) insert(key Key, tree *CachedTree) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToBack(el)
		el.Value = tree
		return
	}
	el := c.order.PushBack(tree)
	c.entries[key] = el
	c.evictLocked()
}

// evictLocked removes the oldest entries until the live count is at or
// below lowWater, but only once it exceeds highWater. Must be called with
// c.mu held for writing.
func (c *Cache) evictLocked() {
	if c.order.Len() <= c.highWater {
		return
	}
	for c.order.Len() > c.lowWater {
		front := c.order.Front()
		if front == nil {
			return
		}
		tree := front.Value.(*CachedTree)
		delete(c.entries, tree.key)
		c.order.Remove(front)
	}
}

// Len reports the current number of live entries. Intended for tests and
// diagnostics, not for steering eviction decisions from outside the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
