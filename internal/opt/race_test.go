package opt

import (
	"sync"
	"testing"
	"time"
)

func TestSema_AcquireBlocksUntilRelease(t *testing.T) {
	var s Sema

	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned before Release")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
}

func TestSema_ReleaseBeforeAcquire(t *testing.T) {
	var s Sema
	s.Release()

	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("banked Release was lost")
	}
}

func TestSema_ManyWaiters(t *testing.T) {
	var s Sema
	const n = 10

	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.Acquire()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	for range n {
		s.Release()
	}

	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("not all waiters woke up")
	}
}

func TestSlotAlign(t *testing.T) {
	if SlotAlign_ != 1 && SlotAlign_ != CacheLineSize_ {
		t.Fatalf("SlotAlign_=%d, want 1 or %d", SlotAlign_, CacheLineSize_)
	}
	if CacheLineSize_&(CacheLineSize_-1) != 0 {
		t.Fatalf("CacheLineSize_=%d is not a power of two", CacheLineSize_)
	}
	t.Logf("CacheLineSize_ : %d, SlotAlign_ : %d, Race_ : %v", CacheLineSize_, SlotAlign_, Race_)
}
