package ledger

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Locker serializes work per account inside the process. Lock acquires every
// key in ascending order so two callers locking overlapping sets cannot
// deadlock.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[uuid.UUID]*keyLock)}
}

// Lock blocks until every id is held and returns the function releasing them.
func (l *Locker) Lock(ids ...uuid.UUID) (unlock func()) {
	keys := SortIDs(ids)
	held := make([]*keyLock, 0, len(keys))
	for _, id := range keys {
		k := l.acquire(id)
		k.mu.Lock()
		held = append(held, k)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *Locker) acquire(id uuid.UUID) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.locks[id]
	if !ok {
		k = &keyLock{}
		l.locks[id] = k
	}
	k.refs++
	return k
}

func (l *Locker) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.locks[id]
	k.refs--
	if k.refs == 0 {
		delete(l.locks, id)
	}
}

// SortIDs returns the distinct ids in ascending byte order, the order in
// which both process locks and row locks are taken.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}
