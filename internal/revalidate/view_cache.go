package revalidate

import (
	"fmt"

	"github.com/coocood/freecache"
)

const viewCacheTTLSeconds = 10 * 60

// ViewCache caches rendered view payloads (JSON) in-process. Keys carry the
// vault view version, so stale entries are never served after a Bump and
// simply age out of the cache.
type ViewCache struct {
	cache *freecache.Cache
}

func NewViewCache(sizeBytes int) *ViewCache {
	return &ViewCache{
		cache: freecache.NewCache(sizeBytes),
	}
}

func viewKey(vaultID string, version int64, view string) []byte {
	return []byte(fmt.Sprintf("%s::%d::%s", vaultID, version, view))
}

func (c *ViewCache) Get(vaultID string, version int64, view string) ([]byte, bool) {
	payload, err := c.cache.Get(viewKey(vaultID, version, view))
	if err != nil {
		// freecache returns ErrNotFound for missing keys
		return nil, false
	}
	return payload, true
}

func (c *ViewCache) Set(vaultID string, version int64, view string, payload []byte) {
	// an oversized entry failing to cache is not an error worth surfacing
	_ = c.cache.Set(viewKey(vaultID, version, view), payload, viewCacheTTLSeconds)
}
