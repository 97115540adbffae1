package cache

import (
	"log"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Revalidate serves a cached value immediately when one exists and kicks
// a background refresh that rewrites the cache; the caller is told
// whether the value it got is stale. On a cache miss the fetch runs
// inline. Fetch failures leave the previous cached value in place.
func Revalidate[T any](rc *RedisCache, key string, ttl time.Duration, fetch func() (T, error)) (T, bool, error) {
	var zero T
	if rc == nil {
		fresh, err := fetch()
		if err != nil {
			return zero, false, err
		}
		return fresh, false, nil
	}

	data, err := rc.Get(key)
	if err == nil && data != nil {
		var cached T
		if err := msgpack.Unmarshal(data, &cached); err == nil {
			go func() {
				fresh, err := fetch()
				if err != nil {
					log.Printf("swr refresh failed key=%s: %v", key, err)
					return
				}
				if encoded, err := msgpack.Marshal(fresh); err == nil {
					_ = rc.Set(key, encoded, ttl)
				}
			}()
			return cached, true, nil
		}
	}

	fresh, err := fetch()
	if err != nil {
		return zero, false, err
	}
	if encoded, err := msgpack.Marshal(fresh); err == nil {
		_ = rc.Set(key, encoded, ttl)
	}
	return fresh, false, nil
}
