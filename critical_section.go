package xpsync

import (
	"sync/atomic"

	"github.com/weolar/miniblink49-sub156/internal/opt"
)

// CriticalSection is a mutex that parks contended goroutines on a runtime
// semaphore instead of spinning. It is the external mutex a condition
// variable can sleep with (see SleepConditionVariableCS).
//
// Implementation:
// It is a benaphore. count is the number of goroutines that hold or want
// the section; Enter takes it when count goes 0→1 and otherwise parks on
// sema, and Leave hands it directly to one parked goroutine when count
// stays positive. An optional spin count lets Enter retry for a while
// before it parks.
//
// Unlike the Windows CRITICAL_SECTION it is not reentrant: entering a
// section the caller already holds deadlocks.
//
// The zero value is an unlocked section with no spinning.
type CriticalSection struct {
	_     noCopy
	count atomic.Int32
	spin  int32
	sema  opt.Sema
}

// NewCriticalSection creates a critical section that spins up to
// spinCount times before parking.
func NewCriticalSection(spinCount int) *CriticalSection {
	cs := &CriticalSection{}
	cs.SetSpinCount(spinCount)
	return cs
}

// SetSpinCount sets how many times Enter retries before it parks.
// It returns the previous value.
func (cs *CriticalSection) SetSpinCount(spinCount int) int {
	return int(atomic.SwapInt32(&cs.spin, int32(max(spinCount, 0))))
}

// Enter blocks until the caller owns the section.
func (cs *CriticalSection) Enter() {
	if cs.count.CompareAndSwap(0, 1) {
		return
	}
	for range atomic.LoadInt32(&cs.spin) {
		runtime_doSpin()
		if cs.count.Load() == 0 && cs.count.CompareAndSwap(0, 1) {
			return
		}
	}
	if cs.count.Add(1) == 1 {
		return
	}
	cs.sema.Acquire()
}

// TryEnter takes the section if it is free and reports whether it did.
func (cs *CriticalSection) TryEnter() bool {
	return cs.count.CompareAndSwap(0, 1)
}

// Leave releases the section, handing it to one waiting goroutine if any.
func (cs *CriticalSection) Leave() {
	n := cs.count.Add(-1)
	if n < 0 {
		cs.count.Add(1)
		fatal(opLeave, ErrNotHeld, 0)
	}
	if n > 0 {
		cs.sema.Release()
	}
}

// Lock is Enter; it makes CriticalSection a sync.Locker.
func (cs *CriticalSection) Lock() { cs.Enter() }

// Unlock is Leave.
func (cs *CriticalSection) Unlock() { cs.Leave() }
