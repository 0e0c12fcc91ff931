package frontier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// BloomSeenSet is a disk-backed bloom filter SeenSet implementation. It uses
// a memory-mapped file for constant memory footprint regardless of crawl
// size, targeting 100,000+ URLs at a 0.1% false-positive rate.
//
// It is not exact: a false positive makes Contains report an unseen URL
// as seen, silently dropping it from the crawl. It exists as an opt-in
// backing (via frontier.WithSeenSet) for crawls large enough that an
// exact map is memory-prohibitive; the default Frontier uses the exact
// in-memory set.
type BloomSeenSet struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64 // URLs added since last sync
	syncEvery uint64 // sync to disk every N URLs
	lastErr   error  // last error from sync operations
}

// NewBloomSeenSet creates a disk-backed seen-set sized for 100,000 URLs at
// a 0.1% false-positive rate, backed by a temp file in the OS temp
// directory.
func NewBloomSeenSet() (*BloomSeenSet, error) {
	filter := bloom.NewWithEstimates(100000, 0.001)

	tmpDir := os.TempDir()
	tmpFile, err := os.CreateTemp(tmpDir, "politecrawl-seen-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	filterSize := filter.Cap()
	if err := tmpFile.Truncate(int64(filterSize)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &BloomSeenSet{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

// Add marks url as seen, satisfying the frontier.SeenSet interface.
func (b *BloomSeenSet) Add(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.filter.AddString(url)
	b.count++

	if b.count >= b.syncEvery {
		if err := b.syncLocked(); err != nil {
			b.lastErr = err
		}
	}
}

// Contains reports whether url has (probably) been seen. False positives
// are possible; false negatives are not.
func (b *BloomSeenSet) Contains(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter.TestString(url)
}

// syncLocked persists the bloom filter to disk. Must be called with mu held.
func (b *BloomSeenSet) syncLocked() error {
	data, err := b.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}

	if len(data) <= len(b.mmap) {
		copy(b.mmap, data)
	}

	if flushErr := b.mmap.Flush(); flushErr != nil {
		return fmt.Errorf("flush mmap: %w", flushErr)
	}
	b.count = 0
	return nil
}

// Close syncs any pending data and removes the backing temp file.
func (b *BloomSeenSet) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error

	if b.lastErr != nil {
		errs = append(errs, b.lastErr)
	}

	if b.mmap != nil {
		if b.count > 0 {
			if syncErr := b.syncLocked(); syncErr != nil {
				errs = append(errs, syncErr)
			}
		}
		if err := b.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		b.mmap = nil
	}

	if b.file != nil {
		if err := b.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		b.file = nil
	}

	if b.tmpPath != "" {
		if err := os.Remove(b.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		b.tmpPath = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bloom seen-set: %w", errors.Join(errs...))
	}
	return nil
}

// LastError returns the last error encountered during a periodic sync, so
// callers can surface disk I/O problems without interrupting the crawl.
func (b *BloomSeenSet) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
