package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, cfg ...Config) *Store {
	s := &Store{client: c}
	if len(cfg) > 0 {
		s.valkey = cfg[0].Valkey
		s.keyPrefix = cfg[0].KeyPrefix
	}
	return s
}
