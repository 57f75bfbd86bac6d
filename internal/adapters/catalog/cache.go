// Package catalog provides the scorecard catalog collaborator and a cache in
// front of it. Subskills are fetched at most once per category id; concurrent
// lookups of the same id share one in-flight request.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const defaultFetchTimeout = 10 * time.Second

// Provider is the remote scorecard catalog.
type Provider interface {
	// Categories returns the ordered categories of a scorecard template.
	Categories(ctx context.Context, templateID string) ([]model.Category, error)
	// Subskills returns the ordered subskills of a category.
	Subskills(ctx context.Context, categoryID string) ([]model.Subskill, error)
}

// Cache memoizes subskill lookups by category id.
type Cache struct {
	provider Provider
	timeout  time.Duration
	logger   logger.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	subskills map[string][]model.Subskill
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithFetchTimeout bounds each provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache wraps provider.
func NewCache(provider Provider, opts ...Option) *Cache {
	c := &Cache{
		provider:  provider,
		timeout:   defaultFetchTimeout,
		logger:    logger.Nop(),
		subskills: make(map[string][]model.Subskill),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories passes through to the provider; categories are loaded once per
// session by the caller.
func (c *Cache) Categories(ctx context.Context, templateID string) ([]model.Category, error) {
	cats, err := c.provider.Categories(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load categories of %s: %w", templateID, err)
	}
	return cats, nil
}

// Subskills returns the cached subskills of a category, fetching them on the
// first call. Failed fetches are not cached. The shared fetch is detached
// from ctx so one caller giving up does not fail the others.
func (c *Cache) Subskills(ctx context.Context, categoryID string) ([]model.Subskill, error) {
	if subs, ok := c.cached(categoryID); ok {
		metrics.RecordCatalogCacheHit()
		return subs, nil
	}

	ch := c.group.DoChan(categoryID, func() (any, error) {
		if subs, ok := c.cached(categoryID); ok {
			return subs, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		subs, err := c.provider.Subskills(fctx, categoryID)
		metrics.RecordCatalogFetch(err == nil)
		if err != nil {
			c.logger.Warn(ctx, "subskill fetch failed", logger.String("category_id", categoryID), logger.Error(err))
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, categoryID, err)
		}
		c.mu.Lock()
		c.subskills[categoryID] = subs
		c.mu.Unlock()
		c.logger.Debug(ctx, "subskills cached", logger.String("category_id", categoryID), logger.Int("count", len(subs)))
		return subs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		subs, _ := res.Val.([]model.Subskill)
		return append([]model.Subskill(nil), subs...), nil
	}
}

// Invalidate drops the cached subskills of a category.
func (c *Cache) Invalidate(categoryID string) {
	c.mu.Lock()
	delete(c.subskills, categoryID)
	c.mu.Unlock()
	c.group.Forget(categoryID)
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subskills)
}

func (c *Cache) cached(categoryID string) ([]model.Subskill, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs, ok := c.subskills[categoryID]
	if !ok {
		return nil, false
	}
	return append([]model.Subskill(nil), subs...), true
}
