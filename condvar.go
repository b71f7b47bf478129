package xpsync

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// PollQuantum is how long a sleeping goroutine waits between checks of its
// wake flag. It bounds both the wake latency and the timeout granularity.
const PollQuantum = 50 * time.Millisecond

// ConditionVariable lets goroutines sleep until woken, atomically releasing
// an associated lock while they sleep and reacquiring it before they
// return. It mirrors the Windows CONDITION_VARIABLE.
//
// Sleepers queue in FIFO order on a list guarded by a lock bit embedded in
// the same word as the list head. A sleeper does not park: it polls its own
// wake flag every PollQuantum. WakeOne and WakeAll unlink entries and set
// their flags; a sleeper that times out unlinks itself.
//
// As with any Mesa-style condition variable, wait in a loop that re-checks
// the predicate.
//
// The zero value has no sleepers and is ready to use.
type ConditionVariable struct {
	_ noCopy
	// word layout:
	//   bit 0: list lock
	//   bits 1+: index of the oldest wait entry, 0 if none
	word atomic.Uintptr
}

const (
	cvLocked   = 1
	cvFlagBits = 1
)

// Sleep releases l, waits until woken or until timeout elapses, and
// reacquires l. A negative timeout waits forever. It reports whether the
// goroutine was woken; on timeout it returns false with l held again.
func (cv *ConditionVariable) Sleep(l sync.Locker, timeout time.Duration) bool {
	i := waitEntries.alloc()
	e := waitEntries.at(i)
	e.evt.Store(0)
	cv.push(i)

	unlocked := false
	defer func() {
		// l.Unlock panicked: the entry must leave the queue before its
		// slot goes back to the arena.
		if !unlocked {
			cv.remove(i)
		}
		waitEntries.release(i)
	}()
	l.Unlock()
	unlocked = true

	woken := poll(e, timeout)
	if !woken {
		// A wake may have raced with the deadline; if so the entry is
		// already unlinked and the wake stands.
		woken = !cv.remove(i)
	}
	l.Lock()
	return woken
}

// Wait is Sleep with no timeout.
func (cv *ConditionVariable) Wait(l sync.Locker) {
	cv.Sleep(l, -1)
}

// SleepSRW is Sleep with an SRW lock held exclusively, or held shared if
// shared is true.
func (cv *ConditionVariable) SleepSRW(l *SRWLock, timeout time.Duration, shared bool) bool {
	if shared {
		return cv.Sleep(l.RLocker(), timeout)
	}
	return cv.Sleep(l, timeout)
}

// SleepCS is Sleep with a critical section as the associated lock.
func (cv *ConditionVariable) SleepCS(cs *CriticalSection, timeout time.Duration) bool {
	return cv.Sleep(cs, timeout)
}

// WakeOne wakes the longest-sleeping goroutine. It does nothing if no
// goroutine is sleeping.
func (cv *ConditionVariable) WakeOne() {
	if cv.word.Load() == 0 {
		return
	}
	head := cv.lock()
	if head == 0 {
		cv.unlock(0)
		return
	}
	e := waitEntries.at(head)
	next := unlinkEntry(head, head)
	// The flag is set while the list is still locked: a sleeper that has
	// timed out decides under the lock whether it is still queued.
	e.evt.Store(1)
	cv.unlock(next)
}

// WakeAll wakes every sleeping goroutine, oldest first.
func (cv *ConditionVariable) WakeAll() {
	if cv.word.Load() == 0 {
		return
	}
	head := cv.lock()
	for i := head; i != 0; {
		e := waitEntries.at(i)
		next := e.next
		if next == head {
			next = 0
		}
		e.evt.Store(1)
		i = next
	}
	cv.unlock(0)
}

// String describes the queue, for diagnostics only.
func (cv *ConditionVariable) String() string {
	return "sleepers(" + strconv.Itoa(cv.len()) + ")"
}

func (cv *ConditionVariable) len() int {
	head := cv.lock()
	n := 0
	for i := head; i != 0; {
		n++
		if i = waitEntries.at(i).next; i == head {
			break
		}
	}
	cv.unlock(head)
	return n
}

func (cv *ConditionVariable) lock() uint32 {
	return uint32(lockBit(&cv.word, cvLocked) >> cvFlagBits)
}

func (cv *ConditionVariable) unlock(head uint32) {
	unlockBitWithStore(&cv.word, cvLocked, uintptr(head)<<cvFlagBits)
}

// push appends entry i at the tail of the queue.
func (cv *ConditionVariable) push(i uint32) {
	head := cv.lock()
	e := waitEntries.at(i)
	if head == 0 {
		e.next, e.prev = i, i
		head = i
	} else {
		h := waitEntries.at(head)
		tail := h.prev
		e.next, e.prev = head, tail
		waitEntries.at(tail).next = i
		h.prev = i
	}
	cv.unlock(head)
}

// remove unlinks entry i after a timeout. It reports false if a waker got
// there first, in which case the entry is no longer queued.
func (cv *ConditionVariable) remove(i uint32) bool {
	head := cv.lock()
	if waitEntries.at(i).evt.Load() != 0 {
		cv.unlock(head)
		return false
	}
	if !containsEntry(head, i) {
		cv.unlock(head)
		fatal(opSleep, ErrCorrupt, uintptr(head)<<cvFlagBits)
	}
	cv.unlock(unlinkEntry(head, i))
	return true
}

// unlinkEntry removes entry i from the queue starting at head and returns
// the new head. Requires the list lock.
func unlinkEntry(head, i uint32) uint32 {
	e := waitEntries.at(i)
	if e.next == i {
		return 0
	}
	waitEntries.at(e.prev).next = e.next
	waitEntries.at(e.next).prev = e.prev
	if head == i {
		return e.next
	}
	return head
}

func containsEntry(head, i uint32) bool {
	for p := head; p != 0; {
		if p == i {
			return true
		}
		if p = waitEntries.at(p).next; p == head {
			return false
		}
	}
	return false
}

func poll(e *waitEntry, timeout time.Duration) bool {
	if timeout < 0 {
		for e.evt.Load() == 0 {
			time.Sleep(PollQuantum)
		}
		return true
	}
	deadline := time.Now().Add(timeout)
	for e.evt.Load() == 0 {
		left := time.Until(deadline)
		if left <= 0 {
			return false
		}
		time.Sleep(min(left, PollQuantum))
	}
	return true
}
