package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
)

// InMemoryKeyLocker serializes work per key inside one process.
// Entries are reference counted and dropped once nobody holds or waits for them.
type InMemoryKeyLocker struct {
	mu          sync.Mutex
	keys        map[string]*keyEntry
	waitTimeout time.Duration
}

type keyEntry struct {
	slot chan struct{}
	refs int
}

// NewInMemoryKeyLocker creates a locker. A zero waitTimeout waits until the context ends.
func NewInMemoryKeyLocker(waitTimeout time.Duration) *InMemoryKeyLocker {
	return &InMemoryKeyLocker{
		keys:        make(map[string]*keyEntry),
		waitTimeout: waitTimeout,
	}
}

// Acquire blocks until key is free, the wait timeout passes or ctx ends
func (l *InMemoryKeyLocker) Acquire(ctx context.Context, key string) (func(), error) {
	e := l.ref(key)

	var timeout <-chan time.Time
	if l.waitTimeout > 0 {
		timer := time.NewTimer(l.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	case <-timeout:
		l.unref(key)
		return nil, fmt.Errorf("lock %s not obtained within %s: %w", key, l.waitTimeout, appledger.ErrLockTimeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.unref(key)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on
func (l *InMemoryKeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func (l *InMemoryKeyLocker) ref(key string) *keyEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		e = &keyEntry{slot: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	return e
}

func (l *InMemoryKeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.keys[key]
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

var _ appledger.KeyLocker = (*InMemoryKeyLocker)(nil)
