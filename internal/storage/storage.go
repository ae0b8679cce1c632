// Package storage keeps recent canvas analysis results in memory so repeated
// runs of an unchanged drawing do not reach the vision model again.
package storage

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eugenenazirov/sketch-calculator/internal/calculator"
)

// Storage provides access to cached calculation results.
type Storage interface {
	Get(key string) ([]calculator.Result, bool)
	Put(key string, results []calculator.Result)
	Len() int
}

// MemoryStorage is a bounded least-recently-used cache. It is safe for
// concurrent use.
type MemoryStorage struct {
	cache *lru.Cache[string, []calculator.Result]
}

// NewMemoryStorage returns a cache holding at most size entries.
func NewMemoryStorage(size int) (*MemoryStorage, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	cache, err := lru.New[string, []calculator.Result](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryStorage{cache: cache}, nil
}

// Get returns a copy of the results stored under key.
func (s *MemoryStorage) Get(key string) ([]calculator.Result, bool) {
	results, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	return clone(results), true
}

// Put stores a copy of results under key, evicting the oldest entry when full.
func (s *MemoryStorage) Put(key string, results []calculator.Result) {
	s.cache.Add(key, clone(results))
}

// Len reports the number of cached entries.
func (s *MemoryStorage) Len() int {
	return s.cache.Len()
}

func clone(src []calculator.Result) []calculator.Result {
	out := make([]calculator.Result, len(src))
	copy(out, src)
	return out
}
