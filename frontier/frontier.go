// Package frontier implements the crawl engine's URL queue: a min-heap on
// depth (shallowest first) guarded by a seen-set so no URL-string is ever
// dispatched twice.
package frontier

import (
	"container/heap"
	"sync"

	"github.com/corrinfell/politecrawl/model"
)

// SeenSet tracks which URL-strings have ever entered the frontier. It must
// be safe for concurrent use.
type SeenSet interface {
	// Contains reports whether url has been seen before.
	Contains(url string) bool
	// Add records url as seen. Adding an already-seen url is a no-op.
	Add(url string)
}

// mapSeenSet is the default SeenSet: an exact in-memory set with no false
// positives, unlike a bloom filter which would silently treat a
// never-seen URL as seen.
type mapSeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newMapSeenSet() *mapSeenSet {
	return &mapSeenSet{seen: make(map[string]struct{})}
}

func (s *mapSeenSet) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[url]
	return ok
}

func (s *mapSeenSet) Add(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[url] = struct{}{}
}

// entry is one item held in the heap: a URLEntry plus an insertion sequence
// number used to break ties between equal-depth entries in stable,
// insertion order.
type entry struct {
	url   string
	depth int
	seq   int64
}

// entryHeap implements container/heap.Interface as a min-heap over depth,
// so Pop always returns the shallowest enqueued entry.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].depth != h[j].depth {
		return h[i].depth < h[j].depth
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Frontier is the prioritized, deduplicated URL queue: a min-heap ordered
// by depth so shallower URLs are always fetched first. It is safe for
// concurrent use by the engine loop and by workers adding discovered
// links.
type Frontier struct {
	mu      sync.Mutex
	heap    entryHeap
	seen    SeenSet
	nextSeq int64
}

// Option configures a Frontier at construction time.
type Option func(*Frontier)

// WithSeenSet overrides the default in-memory seen-set. Use this only for
// crawls large enough that an exact map is undesirable; see BloomSeenSet's
// doc comment for the correctness trade-off it makes.
func WithSeenSet(s SeenSet) Option {
	return func(f *Frontier) { f.seen = s }
}

// New creates an empty Frontier.
func New(opts ...Option) *Frontier {
	f := &Frontier{seen: newMapSeenSet()}
	for _, opt := range opts {
		opt(f)
	}
	heap.Init(&f.heap)
	return f
}

// Add enqueues url at the given depth unless it has already been seen.
// Re-adding a seen URL is a silent no-op. Returns true if the URL was
// newly enqueued.
func (f *Frontier) Add(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen.Contains(url) {
		return false
	}
	f.seen.Add(url)
	f.pushLocked(url, depth)
	return true
}

// AddRequeue re-enqueues an already-dispatched (url, depth) pair without
// consulting the seen-set. A PolitenessGate deferral needs to put a URL
// back on the priority layer even though it is (correctly) marked seen.
// A dedicated requeue path keeps a single ordering authority, the heap,
// rather than splitting it across a side-queue.
func (f *Frontier) AddRequeue(url string, depth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushLocked(url, depth)
}

func (f *Frontier) pushLocked(url string, depth int) {
	heap.Push(&f.heap, entry{url: url, depth: depth, seq: f.nextSeq})
	f.nextSeq++
}

// GetNext pops the entry with the smallest depth currently enqueued. The
// second return value is false iff the frontier is empty.
func (f *Frontier) GetNext() (model.URLEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.heap) == 0 {
		return model.URLEntry{}, false
	}
	e := heap.Pop(&f.heap).(entry)
	return model.URLEntry{URL: e.url, Depth: e.depth}, true
}

// Size returns the number of entries currently enqueued (not counting
// entries already popped).
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heap)
}

// IsEmpty reports whether the frontier has no enqueued entries.
func (f *Frontier) IsEmpty() bool {
	return f.Size() == 0
}

// Contains reports whether url has ever been added to the frontier
// (enqueued, dispatched, or completed).
func (f *Frontier) Contains(url string) bool {
	return f.seen.Contains(url)
}
