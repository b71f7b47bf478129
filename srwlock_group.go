package xpsync

import "github.com/llxisdsh/pb"

// SRWLockGroup allows SRW locking on arbitrary keys.
//
// Features:
//   - RLock/RUnlock for shared access, Lock/Unlock for exclusive access,
//     with the ordering guarantees of SRWLock.
//   - Infinite Keys & Auto-Cleanup: a key's lock exists only while some
//     goroutine holds it or waits for it.
//
// Usage:
//
//	group := NewSRWLockGroup[string]()
//
//	// Readers
//	group.RLock("config")
//	read(config)
//	group.RUnlock("config")
//
//	// Writer
//	group.Lock("config")
//	write(config)
//	group.Unlock("config")
//
// The zero value is usable, but its map builds its table lazily on first
// use, which the race detector reports when that use is concurrent.
// NewSRWLockGroup builds it up front.
type SRWLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *srwGroupEntry]
}

type srwGroupEntry struct {
	lock SRWLock
	ref  int32 // guarded by the map entry
}

// NewSRWLockGroup creates a group with its key map initialized. Keys come
// and go with their holders, so the map shrinks as well as grows; options
// are applied after that default.
func NewSRWLockGroup[K comparable](options ...func(*pb.MapConfig)) *SRWLockGroup[K] {
	g := &SRWLockGroup[K]{}
	g.m.InitWithOptions(append([]func(*pb.MapConfig){pb.WithShrinkEnabled()}, options...)...)
	return g
}

// Lock acquires the lock for k exclusively.
func (g *SRWLockGroup[K]) Lock(k K) {
	g.acquire(k).lock.Lock()
}

// Unlock releases an exclusive hold on k.
func (g *SRWLockGroup[K]) Unlock(k K) {
	g.held(k).lock.Unlock()
	g.drop(k)
}

// RLock acquires the lock for k shared.
func (g *SRWLockGroup[K]) RLock(k K) {
	g.acquire(k).lock.RLock()
}

// RUnlock releases a shared hold on k.
func (g *SRWLockGroup[K]) RUnlock(k K) {
	g.held(k).lock.RUnlock()
	g.drop(k)
}

// acquire returns the entry for k, creating it if needed, and takes a
// reference on it.
func (g *SRWLockGroup[K]) acquire(k K) *srwGroupEntry {
	v, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *srwGroupEntry]) (*pb.EntryOf[K, *srwGroupEntry], *srwGroupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			v := &srwGroupEntry{ref: 1}
			return &pb.EntryOf[K, *srwGroupEntry]{Value: v}, v, false
		},
	)
	return v
}

func (g *SRWLockGroup[K]) held(k K) *srwGroupEntry {
	v, ok := g.m.Load(k)
	if !ok {
		fatal(opGroupUnlock, ErrNotHeld, 0)
	}
	return v
}

// drop releases the reference taken by acquire and deletes the entry once
// nobody holds or waits for it.
func (g *SRWLockGroup[K]) drop(k K) {
	g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *srwGroupEntry]) (*pb.EntryOf[K, *srwGroupEntry], *srwGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, nil, true
			}
			return l, l.Value, true
		},
	)
}
