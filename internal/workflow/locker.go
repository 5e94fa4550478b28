package workflow

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// keyLocker hands out one mutex per entity id so transitions on the same
// project or freelancer serialize while disjoint entities proceed in
// parallel. Entries are reference-counted and dropped when idle.
type keyLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutexes for all given ids and returns the release
// function. Ids are deduplicated and acquired in a fixed order so two
// transitions touching the same pair of entities cannot deadlock.
func (kl *keyLocker) Lock(ids ...uuid.UUID) func() {
	uniq := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool {
		return uniq[i].String() < uniq[j].String()
	})

	entries := make([]*lockEntry, 0, len(uniq))
	kl.mu.Lock()
	for _, id := range uniq {
		e, ok := kl.locks[id]
		if !ok {
			e = &lockEntry{}
			kl.locks[id] = e
		}
		e.refs++
		entries = append(entries, e)
	}
	kl.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		kl.mu.Lock()
		for i, id := range uniq {
			e := entries[i]
			e.refs--
			if e.refs == 0 {
				delete(kl.locks, id)
			}
		}
		kl.mu.Unlock()
	}
}
