package services

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// recordLocks serializes work on individual proposals within this process.
// Entries are dropped once nobody holds or waits for them.
type recordLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*recordLock
}

type recordLock struct {
	sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[uuid.UUID]*recordLock)}
}

// Lock acquires the locks for ids in a fixed order and returns the release func.
func (l *recordLocks) Lock(ids ...uuid.UUID) func() {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	held := make([]*recordLock, 0, len(ordered))
	for _, id := range ordered {
		lock := l.acquire(id)
		lock.Lock()
		held = append(held, lock)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.release(ordered[i])
		}
	}
}

func (l *recordLocks) acquire(id uuid.UUID) *recordLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &recordLock{}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *recordLocks) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}
