package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordLocksSerialize(t *testing.T) {
	locks := newRecordLocks()
	id := uuid.New()

	unlock := locks.Lock(id)

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock(id)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired")
	}
}

func TestRecordLocksOrderAndCleanup(t *testing.T) {
	locks := newRecordLocks()
	a, b := uuid.New(), uuid.New()

	// Opposite argument orders must not deadlock
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.Lock(a, b)()
		}()
		go func() {
			defer wg.Done()
			locks.Lock(b, a, b)()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock ordering deadlocked")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Errorf("expected no retained locks, got %d", len(locks.locks))
	}
}
