package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// HashContent returns the stable cache key for a piece of reflection
// content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// cacheEntry is the stored analysis outcome for one user. One entry per
// user: a new analysis replaces the previous one.
type cacheEntry struct {
	ContentHash string
	Timestamp   time.Time
	Result      AnalysisResult
}

// AnalysisCache memoizes each user's most recent analysis result,
// keyed by a hash of the analyzed content. It is strictly a cost
// optimization: the document store stays the source of truth for every
// correctness-relevant read.
type AnalysisCache struct {
	entries *gocache.Cache
}

// NewAnalysisCache creates a cache whose entries expire after ttl.
func NewAnalysisCache(ttl, cleanupInterval time.Duration) *AnalysisCache {
	return &AnalysisCache{entries: gocache.New(ttl, cleanupInterval)}
}

// Get returns the cached result for the user if it matches contentHash.
func (c *AnalysisCache) Get(userID, contentHash string) (AnalysisResult, bool) {
	v, ok := c.entries.Get(userID)
	if !ok {
		return AnalysisResult{}, false
	}
	entry := v.(cacheEntry)
	if entry.ContentHash != contentHash {
		return AnalysisResult{}, false
	}
	return entry.Result, true
}

// Put stores the user's latest analysis result, replacing any prior
// entry.
func (c *AnalysisCache) Put(userID, contentHash string, result AnalysisResult) {
	c.entries.SetDefault(userID, cacheEntry{
		ContentHash: contentHash,
		Timestamp:   time.Now().UTC(),
		Result:      result,
	})
}

// Invalidate drops the user's cached entry. Called whenever the profile
// changes through a path the cache cannot observe.
func (c *AnalysisCache) Invalidate(userID string) {
	c.entries.Delete(userID)
}
