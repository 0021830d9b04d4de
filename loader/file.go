package loader

import (
	"context"
	"runtime"
	"sync"

	"github.com/skosovsky/sftkit"
)

// Ensures FileLoader implements sftkit.Loader.
var _ sftkit.Loader = (*FileLoader)(nil)

// FileLoader loads dataset splits from the local filesystem (lazy, cached).
// Resolves locator+split to one data file or the split's shards in a directory.
type FileLoader struct {
	concurrency int
	mu          sync.RWMutex
	cache       map[string][]sftkit.Record
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithConcurrency bounds how many shard files are decoded at once. n <= 0 means no limit.
func WithConcurrency(n int) Option {
	return func(l *FileLoader) { l.concurrency = n }
}

// NewFileLoader creates a FileLoader decoding up to GOMAXPROCS shards at once.
func NewFileLoader(opts ...Option) *FileLoader {
	l := &FileLoader{
		concurrency: runtime.GOMAXPROCS(0),
		cache:       make(map[string][]sftkit.Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the records of split at locator. Lazy-loads and caches; callers get a deep copy.
// A missing locator or split is reported as sftkit.ErrDatasetNotFound.
func (l *FileLoader) Load(ctx context.Context, locator, split string) ([]sftkit.Record, error) {
	key := locator + ":" + split
	l.mu.RLock()
	records, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return sftkit.CloneRecords(records), nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	records, ok = l.cache[key]
	if ok {
		return sftkit.CloneRecords(records), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	src := diskSource{}
	files, err := resolveFiles(src, locator, split)
	if err != nil {
		return nil, err
	}
	records, err = loadFiles(ctx, src, files, l.concurrency)
	if err != nil {
		return nil, err
	}
	l.cache[key] = records
	return sftkit.CloneRecords(records), nil
}

// Reload clears the cache so the next Load reads from disk again.
func (l *FileLoader) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string][]sftkit.Record)
}
