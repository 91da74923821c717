package registry

import (
	"slices"
	"sync"

	"batchline/internal/docstore"
)

// lockSet serializes read-modify-write sequences per collection. Locks are
// always taken in sorted collection order.
type lockSet struct {
	mu map[docstore.Collection]*sync.Mutex
}

func newLockSet() *lockSet {
	l := &lockSet{mu: make(map[docstore.Collection]*sync.Mutex, len(docstore.Collections))}
	for _, c := range docstore.Collections {
		l.mu[c] = new(sync.Mutex)
	}
	return l
}

// lock acquires every named collection and returns the matching unlock.
func (l *lockSet) lock(collections ...docstore.Collection) func() {
	sorted := slices.Clone(collections)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, c := range sorted {
		m, ok := l.mu[c]
		if !ok {
			continue
		}
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
