package xpsync

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// SRWLock is a slim reader/writer lock held in a single machine word.
//
// It reproduces the contract of the Windows SRWLOCK without any kernel
// wait object: many goroutines may hold it shared, or one may hold it
// exclusively, and goroutines that cannot get it spin on a private wake
// flag until a releasing goroutine hands the lock over to them.
//
// Properties:
//   - Writer-preferred: a reader arriving while a writer is queued waits
//     behind that writer.
//   - FIFO queueing of blocked acquirers; readers queued together wake
//     together.
//   - Busy-wait (spinning) with backoff; no parking.
//   - The zero value is an unlocked lock.
//
// Releasing a lock that is not held in the matching mode panics with a
// *ContractError.
//
// Size: one word (plus padding).
type SRWLock struct {
	_ noCopy
	// word layout:
	//   bit 0: owned
	//   bit 1: contended (a wait chain exists)
	//   bit 2: shared (owned by readers)
	//   bit 3: chain lock, guards the wait chain
	//   bits 4+: reader count when not contended,
	//            index of the first wait block when contended.
	word atomic.Uintptr
}

const (
	srwOwned     = 1 << 0
	srwContended = 1 << 1
	srwShared    = 1 << 2
	srwChainLock = 1 << 3

	srwFlagBits  = 4
	srwOneShared = 1 << srwFlagBits
)

//go:nosplit
func srwHigh(w uintptr) uintptr {
	return w >> srwFlagBits
}

//go:nosplit
func srwChain(head uint32) uintptr {
	return uintptr(head)<<srwFlagBits | srwContended | srwOwned
}

// Lock acquires the lock exclusively. It spins until the lock is granted.
func (l *SRWLock) Lock() {
	if l.word.CompareAndSwap(0, srwOwned) {
		return
	}
	l.lockSlow()
}

// TryLock tries to acquire the lock exclusively without waiting.
func (l *SRWLock) TryLock() bool {
	return l.word.CompareAndSwap(0, srwOwned)
}

func (l *SRWLock) lockSlow() {
	var (
		blk   uint32
		spins int
	)
	defer func() {
		if blk != 0 {
			waitBlocks.release(blk)
		}
	}()
	for {
		w := l.word.Load()
		switch {
		case w&srwChainLock != 0:
		case w&srwOwned == 0:
			if w != 0 {
				fatal(opAcquireExclusive, ErrCorrupt, w)
			}
			if l.word.CompareAndSwap(0, srwOwned) {
				return
			}
		case w&srwContended == 0:
			// First waiter: start the chain. If readers hold the lock
			// their count moves into our block.
			if blk == 0 {
				blk = waitBlocks.alloc()
			}
			b := initExclusiveBlock(blk)
			next := srwChain(blk)
			if w&srwShared != 0 {
				b.sharedCount = int32(srwHigh(w))
				next |= srwShared
			}
			if l.word.CompareAndSwap(w, next) {
				waitExclusive(b)
				return
			}
		default:
			if blk == 0 {
				blk = waitBlocks.alloc()
			}
			head, _ := l.acquireChainLock()
			if head == 0 {
				break
			}
			b := initExclusiveBlock(blk)
			appendBlock(head, blk)
			l.releaseChainLock()
			waitExclusive(b)
			return
		}
		delay(&spins)
	}
}

// Unlock releases an exclusive hold and hands the lock to the first
// queued acquirer, if any.
func (l *SRWLock) Unlock() {
	if l.word.CompareAndSwap(srwOwned, 0) {
		return
	}
	l.unlockSlow()
}

func (l *SRWLock) unlockSlow() {
	var spins int
	for {
		w := l.word.Load()
		switch {
		case w&srwChainLock != 0:
		case w&srwOwned == 0, w&srwShared != 0:
			fatal(opReleaseExclusive, ErrNotHeld, w)
		case w&srwContended == 0:
			if w != srwOwned {
				fatal(opReleaseExclusive, ErrCorrupt, w)
			}
			if l.word.CompareAndSwap(srwOwned, 0) {
				return
			}
		default:
			if head, _ := l.acquireChainLock(); head != 0 {
				l.grantHead(head)
				return
			}
		}
		delay(&spins)
	}
}

// RLock acquires the lock shared. It spins until the lock is granted.
func (l *SRWLock) RLock() {
	w := l.word.Load()
	if (w == 0 || w&(srwShared|srwContended|srwChainLock) == srwShared) &&
		l.word.CompareAndSwap(w, (w|srwShared|srwOwned)+srwOneShared) {
		return
	}
	l.rlockSlow()
}

// TryRLock tries to acquire the lock shared without waiting. It fails if
// the lock is held exclusively or any acquirer is queued.
func (l *SRWLock) TryRLock() bool {
	var spins int
	for {
		w := l.word.Load()
		switch {
		case w&srwChainLock != 0:
			delay(&spins)
		case w == 0 || w&(srwShared|srwContended) == srwShared:
			if l.word.CompareAndSwap(w, (w|srwShared|srwOwned)+srwOneShared) {
				return true
			}
		default:
			return false
		}
	}
}

func (l *SRWLock) rlockSlow() {
	var (
		sw    sharedWaiter
		spins int
	)
	defer sw.release()
	for {
		w := l.word.Load()
		switch {
		case w&srwChainLock != 0:
		case w&srwContended != 0:
			// A writer holds the lock or is queued; queue behind the tail.
			sw.allocWake()
			head, _ := l.acquireChainLock()
			if head == 0 {
				break
			}
			if !l.queueShared(head, &sw) {
				sw.allocBlock()
				continue
			}
			sw.wait()
			return
		case w == 0 || w&srwShared != 0:
			if l.word.CompareAndSwap(w, (w|srwShared|srwOwned)+srwOneShared) {
				return
			}
		case w == srwOwned:
			// Held exclusively with nobody queued: we are the first waiter.
			sw.allocWake()
			sw.allocBlock()
			sw.initBlock()
			if l.word.CompareAndSwap(w, srwChain(sw.blk)) {
				sw.wait()
				return
			}
		default:
			fatal(opAcquireShared, ErrCorrupt, w)
		}
		delay(&spins)
	}
}

// RUnlock releases one shared hold. The last reader out hands the lock to
// the queued writer, if any.
func (l *SRWLock) RUnlock() {
	w := l.word.Load()
	if w&(srwShared|srwContended|srwChainLock) == srwShared && srwHigh(w) > 1 &&
		l.word.CompareAndSwap(w, w-srwOneShared) {
		return
	}
	l.runlockSlow()
}

func (l *SRWLock) runlockSlow() {
	var spins int
	for {
		w := l.word.Load()
		switch {
		case w&srwChainLock != 0:
		case w&srwShared == 0:
			fatal(opReleaseShared, ErrNotHeld, w)
		case w&srwContended != 0:
			head, locked := l.acquireChainLock()
			if head == 0 {
				break
			}
			h := waitBlocks.at(head)
			if locked&srwShared == 0 || !h.exclusive || h.sharedCount <= 0 {
				l.releaseChainLock()
				fatal(opReleaseShared, ErrCorrupt, locked)
			}
			h.sharedCount--
			if h.sharedCount == 0 {
				l.grantLastShared(head)
			} else {
				l.releaseChainLock()
			}
			return
		default:
			n := srwHigh(w)
			if n == 0 {
				fatal(opReleaseShared, ErrCorrupt, w)
			}
			next := w - srwOneShared
			if n == 1 {
				next = 0
			}
			if l.word.CompareAndSwap(w, next) {
				return
			}
		}
		delay(&spins)
	}
}

// RLocker returns a Locker interface that implements
// the Lock and Unlock methods by calling l.RLock and l.RUnlock.
func (l *SRWLock) RLocker() sync.Locker {
	return (*srwReader)(l)
}

type srwReader SRWLock

func (r *srwReader) Lock()   { (*SRWLock)(r).RLock() }
func (r *srwReader) Unlock() { (*SRWLock)(r).RUnlock() }

// String describes the lock state, for diagnostics only.
func (l *SRWLock) String() string {
	w := l.word.Load()
	switch {
	case w == 0:
		return "free"
	case w&srwContended != 0:
		s := "contended(exclusive"
		if w&srwShared != 0 {
			s = "contended(shared"
		}
		return s + ", head=" + strconv.FormatUint(uint64(srwHigh(w)), 10) + ")"
	case w&srwShared != 0:
		return "shared(" + strconv.FormatUint(uint64(srwHigh(w)), 10) + ")"
	case w&^srwChainLock == srwOwned:
		return "exclusive"
	default:
		return "invalid(" + strconv.FormatUint(uint64(w), 16) + ")"
	}
}

// acquireChainLock takes the chain lock bit and returns the index of the
// first wait block along with the word it locked. If the chain was drained
// before the bit could be taken, the bit is released again and head is 0;
// the caller re-reads the word and retries.
func (l *SRWLock) acquireChainLock() (head uint32, w uintptr) {
	w = lockBit(&l.word, srwChainLock)
	if w&srwContended == 0 || srwHigh(w) == 0 {
		l.releaseChainLock()
		return 0, w
	}
	return uint32(srwHigh(w)), w
}

func (l *SRWLock) releaseChainLock() {
	unlockBit(&l.word, srwChainLock)
}

// grantHead pops the first wait block and hands it the lock. Called with
// the chain lock held by an exclusive owner; releases it.
//
// A shared head takes over its reader count. If an (exclusive) block
// follows it, the count moves into that block and the word keeps
// srwShared; otherwise the lock becomes simple shared.
func (l *SRWLock) grantHead(head uint32) {
	h := waitBlocks.at(head)
	var w uintptr
	switch {
	case h.next != 0:
		n := waitBlocks.at(h.next)
		n.last = h.last
		w = srwChain(h.next)
		if !h.exclusive {
			if !n.exclusive {
				l.releaseChainLock()
				fatal(opReleaseExclusive, ErrCorrupt, l.word.Load())
			}
			n.sharedCount = h.sharedCount
			w |= srwShared
		}
	case h.exclusive:
		w = srwOwned
	default:
		w = uintptr(h.sharedCount)<<srwFlagBits | srwShared | srwOwned
	}
	exclusive, wake := h.exclusive, h.wakeHead
	unlockBitWithStore(&l.word, srwChainLock, w)
	if exclusive {
		h.wake.Store(1)
		return
	}
	wakeShared(wake)
}

// grantLastShared pops the first wait block, a writer that was waiting for
// the readers to drain, and hands it the lock. Called with the chain lock
// held by the last reader; releases it.
func (l *SRWLock) grantLastShared(head uint32) {
	h := waitBlocks.at(head)
	w := uintptr(srwOwned)
	if h.next != 0 {
		waitBlocks.at(h.next).last = h.last
		w = srwChain(h.next)
	}
	unlockBitWithStore(&l.word, srwChainLock, w)
	h.wake.Store(1)
}

// queueShared adds a reader to the chain. Called with the chain lock held;
// releases it.
//
// Behind an exclusive tail the reader starts a new shared block, so it
// waits for that writer. Behind a shared tail it joins the block. It
// reports false, without queueing, if a new block is needed and sw has
// none yet.
func (l *SRWLock) queueShared(head uint32, sw *sharedWaiter) bool {
	h := waitBlocks.at(head)
	t := waitBlocks.at(h.last)
	if t.exclusive {
		if sw.blk == 0 {
			l.releaseChainLock()
			return false
		}
		sw.initBlock()
		t.next = sw.blk
		h.last = sw.blk
	} else {
		sw.initWake()
		sharedWakes.at(t.wakeTail).next = sw.wake
		t.wakeTail = sw.wake
		t.sharedCount++
	}
	l.releaseChainLock()
	return true
}

func initExclusiveBlock(i uint32) *waitBlock {
	b := waitBlocks.at(i)
	b.wake.Store(0)
	b.exclusive = true
	b.sharedCount = 0
	b.next = 0
	b.last = i
	b.wakeHead, b.wakeTail = 0, 0
	return b
}

// appendBlock links block i after the tail of the chain starting at head.
// Requires the chain lock.
func appendBlock(head, i uint32) {
	h := waitBlocks.at(head)
	waitBlocks.at(h.last).next = i
	h.last = i
}

func waitExclusive(b *waitBlock) {
	var spins int
	for b.wake.Load() == 0 {
		delay(&spins)
	}
}

// wakeShared sets every wake flag of a sharedWake chain. The next index is
// read before each flag is set: a woken reader returns its slot at once.
func wakeShared(i uint32) {
	for i != 0 {
		s := sharedWakes.at(i)
		next := s.next
		s.wake.Store(1)
		i = next
	}
}

// sharedWaiter owns the slots a blocked reader may need: a wake flag, and
// a wait block if it ends up starting a new shared block.
type sharedWaiter struct {
	blk  uint32
	wake uint32
}

func (sw *sharedWaiter) allocWake() {
	if sw.wake == 0 {
		sw.wake = sharedWakes.alloc()
	}
}

// allocBlock is only needed when the reader starts a shared block; a
// reader joining one uses its wake flag alone.
func (sw *sharedWaiter) allocBlock() {
	if sw.blk == 0 {
		sw.blk = waitBlocks.alloc()
	}
}

func (sw *sharedWaiter) initWake() {
	s := sharedWakes.at(sw.wake)
	s.wake.Store(0)
	s.next = 0
}

func (sw *sharedWaiter) initBlock() {
	sw.initWake()
	b := waitBlocks.at(sw.blk)
	b.wake.Store(0)
	b.exclusive = false
	b.sharedCount = 1
	b.next = 0
	b.last = sw.blk
	b.wakeHead, b.wakeTail = sw.wake, sw.wake
}

func (sw *sharedWaiter) wait() {
	s := sharedWakes.at(sw.wake)
	var spins int
	for s.wake.Load() == 0 {
		delay(&spins)
	}
}

func (sw *sharedWaiter) release() {
	if sw.wake != 0 {
		sharedWakes.release(sw.wake)
	}
	if sw.blk != 0 {
		waitBlocks.release(sw.blk)
	}
}
