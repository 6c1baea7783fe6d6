package cache

import "time"

// Store is the shared TTL cache consumed by fetchers and the data manager.
//
// Get reports both presence and freshness: a stale entry (TTL elapsed) is
// still returned so callers can fall back to it when a live fetch fails.
type Store interface {
	Get(key string) (value any, fresh bool, ok bool)
	Set(key string, value any, ttl time.Duration)
	Invalidate(key string)
}

// BytesStore is a minimal byte-oriented cache API used for snapshot
// persistence across restarts.
type BytesStore interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}

// Stats summarizes the state of a Store for status reporting.
type Stats struct {
	Total int `json:"total_keys"`
	Fresh int `json:"fresh_keys"`
	Stale int `json:"stale_keys"`
}
