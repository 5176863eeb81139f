package compiler

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ByLCY/papyrender/render"
)

// Cache remembers successful results per request. Resizing back and forth
// between two widths, or remounting an unchanged fragment, then skips the
// compile entirely. Results are shared, so consumers must treat them as read-only.
type Cache struct {
	next    render.Compiler
	results *lru.Cache[render.Request, render.Result]
}

var _ render.Compiler = (*Cache)(nil)

// NewCache wraps next with an LRU of the given size.
func NewCache(next render.Compiler, size int) (*Cache, error) {
	results, err := lru.New[render.Request, render.Result](size)
	if err != nil {
		return nil, fmt.Errorf("compile cache: %w", err)
	}
	return &Cache{next: next, results: results}, nil
}

// Compile implements render.Compiler. Failures are never cached.
func (c *Cache) Compile(ctx context.Context, req render.Request) (render.Result, error) {
	if res, ok := c.results.Get(req); ok {
		return res, nil
	}
	res, err := c.next.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	c.results.Add(req, res)
	return res, nil
}

// Len reports how many results are cached.
func (c *Cache) Len() int { return c.results.Len() }

// Purge drops every cached result, e.g. after fonts changed.
func (c *Cache) Purge() { c.results.Purge() }
