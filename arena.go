package xpsync

import (
	"sync/atomic"
	"unsafe"

	"github.com/weolar/miniblink49-sub156/internal/opt"
)

// arena hands out fixed wait slots addressed by small integer indices.
//
// A blocked call takes a slot on entry and gives it back when it returns,
// so a slot plays the role of a stack-resident wait record. Lock words and
// wait chains refer to slots by index; slots never move once allocated,
// which keeps an index published in a word valid for as long as its owner
// is blocked.
//
// Index 0 is never handed out and means "none".
//
// The zero value is ready to use.
type arena[T any] struct {
	_  noCopy
	mu atomic.Uintptr // bit 0 guards free and n

	free []uint32
	n    uint32

	chunks [arenaMaxChunks]atomic.Pointer[[arenaChunkSize]T]
}

const (
	arenaChunkShift = 10
	arenaChunkSize  = 1 << arenaChunkShift
	arenaChunkMask  = arenaChunkSize - 1
	arenaMaxChunks  = 1 << 12

	// arenaMaxIndex keeps indices within the bits a 32-bit word has left
	// above the flag bits.
	arenaMaxIndex = arenaMaxChunks*arenaChunkSize - 1

	arenaLocked = 1
)

// at returns the slot for index i. The slot must have been allocated.
//
//go:nosplit
func (a *arena[T]) at(i uint32) *T {
	return &a.chunks[i>>arenaChunkShift].Load()[i&arenaChunkMask]
}

// alloc returns the index of an unused slot. Slot contents are left as the
// previous user left them; callers reinitialize every field they rely on.
func (a *arena[T]) alloc() uint32 {
	lockBit(&a.mu, arenaLocked)
	var i uint32
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.n == arenaMaxIndex {
			unlockBit(&a.mu, arenaLocked)
			fatal(opArena, ErrExhausted, uintptr(a.n))
		}
		a.n++
		i = a.n
		c := &a.chunks[i>>arenaChunkShift]
		if c.Load() == nil {
			c.Store(new([arenaChunkSize]T))
		}
	}
	unlockBit(&a.mu, arenaLocked)
	return i
}

// release returns slot i to the free list.
func (a *arena[T]) release(i uint32) {
	lockBit(&a.mu, arenaLocked)
	a.free = append(a.free, i)
	unlockBit(&a.mu, arenaLocked)
}

// inUse reports the number of slots currently handed out.
func (a *arena[T]) inUse() int {
	lockBit(&a.mu, arenaLocked)
	n := int(a.n) - len(a.free)
	unlockBit(&a.mu, arenaLocked)
	return n
}

// waitBlockState is one queued SRW lock acquirer, or, for shared blocks,
// a group of readers queued together.
//
// All fields except wake are read and written only under the lock word's
// chain lock bit.
type waitBlockState struct {
	// wake is set by the releasing goroutine once an exclusive block owns
	// the lock. Unused for shared blocks, whose readers each spin on their
	// own sharedWake.
	wake atomic.Uint32

	exclusive bool

	// sharedCount is the number of readers merged into a shared block.
	// For the head block of a lock with srwShared set it is instead the
	// number of readers currently holding the lock.
	sharedCount int32

	next uint32
	// last is only meaningful in the first block of a chain: it caches the
	// tail for O(1) append.
	last uint32

	// wakeHead and wakeTail delimit the sharedWake chain of a shared block.
	wakeHead uint32
	wakeTail uint32
}

type waitBlock struct {
	waitBlockState
	_ [(opt.SlotAlign_ - unsafe.Sizeof(waitBlockState{})%opt.SlotAlign_) % opt.SlotAlign_]byte
}

// sharedWake is the per-reader wake flag of a shared wait block.
type sharedWakeState struct {
	wake atomic.Uint32
	next uint32
}

type sharedWake struct {
	sharedWakeState
	_ [(opt.SlotAlign_ - unsafe.Sizeof(sharedWakeState{})%opt.SlotAlign_) % opt.SlotAlign_]byte
}

// waitEntry is one goroutine sleeping on a condition variable. Entries form
// a circular doubly linked list; next and prev are guarded by the condition
// variable's list lock bit.
type waitEntryState struct {
	evt  atomic.Uint32
	next uint32
	prev uint32
}

type waitEntry struct {
	waitEntryState
	_ [(opt.SlotAlign_ - unsafe.Sizeof(waitEntryState{})%opt.SlotAlign_) % opt.SlotAlign_]byte
}

var (
	waitBlocks  arena[waitBlock]
	sharedWakes arena[sharedWake]
	waitEntries arena[waitEntry]
)
