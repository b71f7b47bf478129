package xpsync

import (
	"sync"
	"testing"
	"time"

	"github.com/llxisdsh/pb"
)

func TestSRWLockGroup_Basic(t *testing.T) {
	g := NewSRWLockGroup[string]()
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)

	for range n {
		go func() {
			defer wg.Done()
			g.RLock("key")
			time.Sleep(time.Microsecond)
			g.RUnlock("key")
		}()
	}
	wg.Wait()

	g.Lock("key")
	done := make(chan struct{})
	go func() {
		g.RLock("key")
		close(done)
		g.RUnlock("key")
	}()

	select {
	case <-done:
		t.Fatal("RLock acquired while Lock held")
	case <-time.After(10 * time.Millisecond):
	}
	g.Unlock("key")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RLock not acquired after Unlock")
	}
	waitUntil(t, "entry cleanup", func() bool {
		_, ok := g.m.Load("key")
		return !ok
	})
}

func TestSRWLockGroup_RefCounting(t *testing.T) {
	var g SRWLockGroup[int]

	g.RLock(1)
	g.RLock(1)
	v, ok := g.m.Load(1)
	if !ok {
		t.Fatal("entry missing after RLock")
	}
	if v.ref != 2 {
		t.Fatalf("ref=%d, want 2", v.ref)
	}

	g.RUnlock(1)
	if _, ok := g.m.Load(1); !ok {
		t.Fatal("entry deleted while still held")
	}
	g.RUnlock(1)
	if _, ok := g.m.Load(1); ok {
		t.Fatal("entry not deleted after last RUnlock")
	}
}

func TestSRWLockGroup_IndependentKeys(t *testing.T) {
	g := NewSRWLockGroup[int]()
	g.Lock(1)
	done := make(chan struct{})
	go func() {
		g.Lock(2)
		g.Unlock(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key 2 blocked by key 1")
	}
	g.Unlock(1)
}

func TestSRWLockGroup_UnlockNotHeld(t *testing.T) {
	var g SRWLockGroup[string]
	expectContract(t, ErrNotHeld, func() { g.Unlock("missing") })
	expectContract(t, ErrNotHeld, func() { g.RUnlock("missing") })
}

func TestSRWLockGroup_Concurrent(t *testing.T) {
	var (
		g      = NewSRWLockGroup[int](pb.WithPresize(8))
		wg     sync.WaitGroup
		counts [4]int
	)
	const workers, loops = 16, 200
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for i := range loops {
				k := (w + i) % len(counts)
				g.Lock(k)
				counts[k]++
				g.Unlock(k)
			}
		}()
	}
	wg.Wait()

	total := 0
	for k, c := range counts {
		total += c
		if _, ok := g.m.Load(k); ok {
			t.Fatalf("entry %d left behind", k)
		}
	}
	if total != workers*loops {
		t.Fatalf("total=%d, want %d", total, workers*loops)
	}
}

func TestSRWLockGroup_ZeroValue(t *testing.T) {
	var g SRWLockGroup[string]
	g.Lock("a")
	g.RLock("b")
	g.RUnlock("b")
	g.Unlock("a")
	for _, k := range []string{"a", "b"} {
		if _, ok := g.m.Load(k); ok {
			t.Fatalf("entry %q left behind", k)
		}
	}
}
