// internal/service/cache.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/dangerclosesec/pivot/internal/cache"
	"github.com/dangerclosesec/pivot/internal/domain"
)

// CacheService memoizes compiled trees per tokenizer generation
type CacheService struct {
	cache *cache.InMemoryCache
}

// CacheConfig holds configuration for the cache service
type CacheConfig struct {
	TTL         time.Duration
	CleanupFreq time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(config CacheConfig) *CacheService {
	cache := cache.NewInMemoryCache(config.TTL, config.CleanupFreq)

	// Start the cleanup routine
	ctx := context.Background()
	cache.StartCleanup(ctx)

	return &CacheService{
		cache: cache,
	}
}

// TreeKey identifies a compiled tree. A new generation makes older keys
// unreachable, so vocabulary updates never serve stale trees.
type TreeKey struct {
	Generation uint64
	Strict     bool
	Formula    string
}

func (k TreeKey) String() string {
	return fmt.Sprintf("tree:%d:%t:%s", k.Generation, k.Strict, k.Formula)
}

// GetTree returns a copy of the cached tree for key
func (s *CacheService) GetTree(ctx context.Context, key TreeKey) ([]formula.Node, bool) {
	value, found := s.cache.Get(ctx, key.String())
	if !found {
		return nil, false
	}

	tree, ok := value.([]formula.Node)
	if !ok {
		return nil, false
	}
	return cloneTree(tree), true
}

// SetTree stores a copy of tree under key
func (s *CacheService) SetTree(ctx context.Context, key TreeKey, tree []formula.Node) error {
	if tree == nil {
		return domain.ErrInvalidInput
	}

	s.cache.Set(ctx, key.String(), cloneTree(tree))
	return nil
}

// GetOrCompile returns the cached tree for key or runs compile and caches
// its result. Failed compiles are not cached.
func (s *CacheService) GetOrCompile(ctx context.Context, key TreeKey, compile func() ([]formula.Node, error)) ([]formula.Node, bool, error) {
	if tree, found := s.GetTree(ctx, key); found {
		return tree, true, nil
	}

	tree, err := compile()
	if err != nil {
		return nil, false, err
	}

	if err := s.SetTree(ctx, key, tree); err != nil {
		return nil, false, fmt.Errorf("storing in cache: %w", err)
	}

	return tree, false, nil
}

// Close stops the cleanup routine
func (s *CacheService) Close() {
	s.cache.StopCleanup()
}

func cloneTree(nodes []formula.Node) []formula.Node {
	out := make([]formula.Node, len(nodes))
	for i, n := range nodes {
		out[i] = formula.Node{
			Category: n.Category,
			Text:     n.Text,
			Children: cloneTree(n.Children),
		}
	}
	return out
}
