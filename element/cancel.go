package element

import (
	"context"
	"sync"
)

// Canceller owns the cancellation token of one element. Beginning a new
// attempt invalidates the previous one.
type Canceller struct {
	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	detached bool
}

// Token stands for one render attempt.
type Token struct {
	c   *Canceller
	gen uint64
	ctx context.Context
}

// Begin invalidates the current token, cancelling its context, and returns
// a new one derived from parent. After Detach the returned token is already stale.
func (c *Canceller) Begin(parent context.Context) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.gen++
	c.cancel = cancel
	if c.detached {
		cancel()
	}
	return &Token{c: c, gen: c.gen, ctx: ctx}
}

// Detach invalidates the current token permanently.
func (c *Canceller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Current reports whether t is still the live token of its canceller.
// Continuations must check it before touching output.
func (t *Token) Current() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return !t.c.detached && t.gen == t.c.gen && t.ctx.Err() == nil
}

// Context is cancelled once the token is superseded or detached.
func (t *Token) Context() context.Context { return t.ctx }
