package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/skosovsky/sftkit"

	"golang.org/x/sync/singleflight"
)

// Ensures HTTPLoader implements sftkit.Loader.
var _ sftkit.Loader = (*HTTPLoader)(nil)

const (
	// DefaultMaxBodySize is the default limit for a downloaded data file (1 GiB).
	DefaultMaxBodySize = 1 << 30
	defaultTTL         = 5 * time.Minute
	defaultUserAgent   = "sftkit-loader/1.0"
)

type cacheEntry struct {
	records   []sftkit.Record
	expiresAt time.Time
}

// HTTPLoader downloads a single data file per locator and caches decoded records with TTL.
// Concurrent loads of the same URL share one request.
type HTTPLoader struct {
	httpClient  *http.Client
	authToken   string
	maxBodySize int64
	ttl         time.Duration
	mu          sync.RWMutex
	cache       map[string]*cacheEntry
	sf          singleflight.Group
}

// HTTPOption configures HTTPLoader.
type HTTPOption func(*HTTPLoader)

// WithHTTPClient sets the HTTP client. Default has a 10 minute timeout. If c is nil, the default client is left unchanged.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPLoader) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithAuthToken sets the Bearer token for the Authorization header (e.g. a Hugging Face token).
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTPLoader) { h.authToken = token }
}

// WithMaxBodySize limits the downloaded file size. n <= 0 keeps DefaultMaxBodySize.
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTPLoader) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// WithTTL sets the cache TTL. TTL <= 0 means entries never expire.
func WithTTL(d time.Duration) HTTPOption {
	return func(h *HTTPLoader) { h.ttl = d }
}

// NewHTTPLoader creates an HTTPLoader.
func NewHTTPLoader(opts ...HTTPOption) *HTTPLoader {
	h := &HTTPLoader{
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		maxBodySize: DefaultMaxBodySize,
		ttl:         defaultTTL,
		cache:       make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsRemote reports whether locator is an http(s) URL.
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "https://") || strings.HasPrefix(locator, "http://")
}

// detachCancel returns a context that is not cancelled when parent is cancelled, but keeps
// parent's deadline, so one caller giving up does not fail the shared download for others.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

func (h *HTTPLoader) entryValid(ent *cacheEntry, now time.Time) bool {
	return h.ttl <= 0 || now.Before(ent.expiresAt)
}

// Load fetches locator and decodes it by the URL path extension. A remote file is a single
// train split; other split names are reported as sftkit.ErrDatasetNotFound, as is HTTP 404.
func (h *HTTPLoader) Load(ctx context.Context, locator, split string) ([]sftkit.Record, error) {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrFetchFailed, locator)
	}
	if split != string(sftkit.SplitTrain) {
		return nil, fmt.Errorf("%w: split %q in remote file %q", sftkit.ErrDatasetNotFound, split, locator)
	}
	if FormatOf(u.Path) == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, locator)
	}

	h.mu.RLock()
	ent, ok := h.cache[locator]
	if ok && h.entryValid(ent, time.Now()) {
		records := sftkit.CloneRecords(ent.records)
		h.mu.RUnlock()
		return records, nil
	}
	h.mu.RUnlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	v, err, _ := h.sf.Do(locator, func() (any, error) {
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		data, err := h.fetch(fetchCtx, locator)
		if err != nil {
			return nil, err
		}
		return Decode(u.Path, data)
	})
	if err != nil {
		return nil, err
	}
	records := v.([]sftkit.Record)

	h.mu.Lock()
	expiresAt := time.Now().Add(h.ttl)
	if h.ttl <= 0 {
		expiresAt = time.Time{}
	}
	h.cache[locator] = &cacheEntry{records: records, expiresAt: expiresAt}
	h.mu.Unlock()
	return sftkit.CloneRecords(records), nil
}

// Evict removes one locator from the cache. Safe for concurrent use.
func (h *HTTPLoader) Evict(locator string) {
	h.mu.Lock()
	delete(h.cache, locator)
	h.mu.Unlock()
}

var errNotFound = errors.New("not found")

func (h *HTTPLoader) fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	resp, err := h.httpClient.Do(req) // #nosec G704 -- URL is from the training config
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q: %w", sftkit.ErrDatasetNotFound, locator, errNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w: %s %s", ErrFetchFailed, ErrHTTPStatus, resp.Status, locator)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if int64(len(data)) > h.maxBodySize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrFetchFailed, h.maxBodySize)
	}
	return data, nil
}
