package api

import (
	"sync"
	"testing"
	"time"
)

func TestSessionLocks_SameSessionSerialized(t *testing.T) {
	var locks sessionLocks
	unlock := locks.lock("a")

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		locks.lock("a")()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same session acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after unlock")
	}
	if n := locks.len(); n != 0 {
		t.Errorf("len = %d after all unlocks, want 0", n)
	}
}

func TestSessionLocks_IndependentSessions(t *testing.T) {
	var locks sessionLocks
	unlockA := locks.lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		locks.lock("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another session blocked")
	}
}

func TestSessionLocks_Concurrent(t *testing.T) {
	var locks sessionLocks
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("shared")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if n := locks.len(); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
}
