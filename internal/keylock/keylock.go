// Package keylock provides per-key mutual exclusion with reference-counted
// entries, so the map only holds keys that are currently locked or awaited.
package keylock

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker is a keyed mutex. The zero value is not usable; call New.
type Locker[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*lockEntry
}

// New creates an empty Locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{locks: make(map[K]*lockEntry)}
}

// Lock blocks until key is held and returns the function that releases it.
func (l *Locker[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// Do runs fn while holding key.
func (l *Locker[K]) Do(key K, fn func() error) error {
	unlock := l.Lock(key)
	defer unlock()
	return fn()
}

// Len returns the number of keys currently held or awaited.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
