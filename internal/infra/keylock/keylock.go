// Package keylock provides per-key mutual exclusion. Every mutable piece of
// economic state is scoped to one account, so serializing check-then-act
// sequences per account id is sufficient for correctness.
package keylock

import "sync"

// KeyLock hands out one mutex per key, created on demand. Mutexes are never
// discarded; the key space (account ids) is small relative to their cost.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyLock) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyLock) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
