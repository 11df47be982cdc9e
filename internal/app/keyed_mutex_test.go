package app

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("ABC123")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if n := k.size(); n != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", n)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("A")
	unlockB := k.Lock("B") // must not block on A
	if n := k.size(); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	unlockB()
	unlockA()
	if n := k.size(); n != 0 {
		t.Fatalf("expected empty table, got %d", n)
	}
}
