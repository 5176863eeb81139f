package element

import (
	"context"
	"errors"
	"sync"
)

// ErrPreempted is returned by Locks.Do when the caller's context ended while
// it was still waiting for the lock. It is a cancellation, not a failure.
var ErrPreempted = errors.New("element: preempted while waiting for the render lock")

// Locks serializes work per element identity. Different identities never
// block each other. The zero value is not usable; call NewLocks.
type Locks struct {
	mu   sync.Mutex
	held map[ID]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func NewLocks() *Locks {
	return &Locks{held: make(map[ID]*keyLock)}
}

// Do runs fn while holding the lock for key. A caller whose ctx is done
// before it gets the lock returns ErrPreempted without running fn. The lock
// is released when fn returns or panics; fn's error is returned as is.
func (l *Locks) Do(ctx context.Context, key ID, fn func(ctx context.Context) error) error {
	kl := l.ref(key)
	defer l.unref(key, kl)

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		return ErrPreempted
	}
	defer func() { <-kl.sem }()

	// 抢到锁的同时也可能已被取消
	if ctx.Err() != nil {
		return ErrPreempted
	}
	return fn(ctx)
}

// Len reports how many identities currently hold or wait for a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (l *Locks) ref(key ID) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.held[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.held[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Locks) unref(key ID, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.held, key)
	}
}
