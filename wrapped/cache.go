package wrapped

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// ErrNotCached reports a Report request for an archive hash the cache does not hold.
var ErrNotCached = errors.New("corpus not cached")

// HashArchive returns the hex SHA-256 of the archive bytes, the identity used by CorpusCache.
func HashArchive(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type cachedCorpus struct {
	corpus Corpus
	// err is nil or ErrEmptyCorpus; malformed archives are never cached.
	err error
}

type reportKey struct {
	hash  string
	query string
}

// CorpusCache memoizes corpus builds by archive content hash and reports by (hash, query).
// Entries are evicted least-recently-used, or explicitly with Invalidate and Purge.
// It is safe for concurrent use; concurrent loads of the same bytes build once.
type CorpusCache struct {
	corpora *lru.Cache
	reports *lru.Cache
	builds  singleflight.Group

	buildOpts  BuildOptions
	reportOpts ReportOptions
}

// NewCorpusCache holds up to size corpora and size*8 reports.
func NewCorpusCache(size int, buildOpts BuildOptions, reportOpts ReportOptions) (*CorpusCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("NewCorpusCache: size must be > 0, got %d", size)
	}
	corpora, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("NewCorpusCache: corpora: %w", err)
	}
	reports, err := lru.New(size * 8)
	if err != nil {
		return nil, fmt.Errorf("NewCorpusCache: reports: %w", err)
	}
	return &CorpusCache{corpora: corpora, reports: reports, buildOpts: buildOpts, reportOpts: reportOpts}, nil
}

// Load decodes and builds the corpus for data unless its hash is already cached. It returns the
// hash together with the corpus. ErrEmptyCorpus is returned (and cached) for archives without
// timestamped messages; decode failures are returned and not cached.
func (c *CorpusCache) Load(ctx context.Context, data []byte) (string, Corpus, error) {
	hash := HashArchive(data)
	if v, ok := c.corpora.Get(hash); ok {
		cc := v.(cachedCorpus)
		return hash, cc.corpus, cc.err
	}

	v, err, _ := c.builds.Do(hash, func() (any, error) {
		archive, err := DecodeArchiveBytes(ctx, data, DecodeOptions{})
		if err != nil {
			return nil, err
		}
		corpus, err := BuildCorpus(archive, c.buildOpts)
		if err != nil && !errors.Is(err, ErrEmptyCorpus) {
			return nil, err
		}
		cc := cachedCorpus{corpus: corpus, err: err}
		c.corpora.Add(hash, cc)
		return cc, nil
	})
	if err != nil {
		return hash, nil, fmt.Errorf("CorpusCache.Load: %w", err)
	}
	cc := v.(cachedCorpus)
	return hash, cc.corpus, cc.err
}

// Corpus returns the cached corpus for hash.
func (c *CorpusCache) Corpus(hash string) (Corpus, bool) {
	v, ok := c.corpora.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(cachedCorpus).corpus, true
}

// Report returns the memoized report for (hash, q), building it from the cached corpus on a
// miss. Only successful reports are memoized.
func (c *CorpusCache) Report(hash string, q Query) (Report, error) {
	key := reportKey{hash: hash, query: q.Key()}
	if v, ok := c.reports.Get(key); ok {
		return v.(Report), nil
	}

	v, ok := c.corpora.Get(hash)
	if !ok {
		return Report{}, fmt.Errorf("CorpusCache.Report: %s: %w", hash, ErrNotCached)
	}
	cc := v.(cachedCorpus)
	if cc.err != nil {
		return Report{}, cc.err
	}
	r, err := BuildReport(cc.corpus, q, c.reportOpts)
	if err != nil {
		return Report{}, err
	}
	c.reports.Add(key, r)
	return r, nil
}

// Invalidate drops the corpus for hash and every report derived from it.
func (c *CorpusCache) Invalidate(hash string) {
	c.corpora.Remove(hash)
	for _, k := range c.reports.Keys() {
		if rk, ok := k.(reportKey); ok && rk.hash == hash {
			c.reports.Remove(k)
		}
	}
}

// Purge drops every entry.
func (c *CorpusCache) Purge() {
	c.corpora.Purge()
	c.reports.Purge()
}

// Len returns the number of cached corpora.
func (c *CorpusCache) Len() int {
	return c.corpora.Len()
}
