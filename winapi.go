package xpsync

import "time"

// Win32-shaped entry points. Each is a thin wrapper over the methods of
// SRWLock, ConditionVariable and CriticalSection, kept for callers written
// against the Windows API.

const (
	// Infinite is the timeout, in milliseconds, that never expires.
	Infinite = 0xFFFFFFFF

	// ConditionVariableLockModeShared tells SleepConditionVariableSRW that
	// the lock is held shared.
	ConditionVariableLockModeShared = 0x1
)

// InitializeSRWLock resets lock to the unlocked state. The zero value is
// already unlocked; this exists for callers that reuse storage.
func InitializeSRWLock(lock *SRWLock) {
	lock.word.Store(0)
}

// AcquireSRWLockExclusive acquires lock exclusively.
func AcquireSRWLockExclusive(lock *SRWLock) {
	lock.Lock()
}

// ReleaseSRWLockExclusive releases an exclusive hold on lock.
func ReleaseSRWLockExclusive(lock *SRWLock) {
	lock.Unlock()
}

// AcquireSRWLockShared acquires lock shared.
func AcquireSRWLockShared(lock *SRWLock) {
	lock.RLock()
}

// ReleaseSRWLockShared releases a shared hold on lock.
func ReleaseSRWLockShared(lock *SRWLock) {
	lock.RUnlock()
}

// TryAcquireSRWLockExclusive acquires lock exclusively if it is free.
func TryAcquireSRWLockExclusive(lock *SRWLock) bool {
	return lock.TryLock()
}

// TryAcquireSRWLockShared acquires lock shared if no writer holds it or
// waits for it.
func TryAcquireSRWLockShared(lock *SRWLock) bool {
	return lock.TryRLock()
}

// InitializeConditionVariable resets cv to have no sleepers.
func InitializeConditionVariable(cv *ConditionVariable) {
	cv.word.Store(0)
}

// SleepConditionVariableSRW sleeps on cv with lock as the associated lock.
// lock is held exclusively unless flags has ConditionVariableLockModeShared.
// It returns false if milliseconds elapsed without a wake.
func SleepConditionVariableSRW(cv *ConditionVariable, lock *SRWLock, milliseconds uint32, flags uint32) bool {
	return cv.SleepSRW(lock, msTimeout(milliseconds), flags&ConditionVariableLockModeShared != 0)
}

// SleepConditionVariableCS sleeps on cv with cs as the associated lock.
// It returns false if milliseconds elapsed without a wake.
func SleepConditionVariableCS(cv *ConditionVariable, cs *CriticalSection, milliseconds uint32) bool {
	return cv.SleepCS(cs, msTimeout(milliseconds))
}

// WakeConditionVariable wakes the longest-sleeping goroutine on cv.
func WakeConditionVariable(cv *ConditionVariable) {
	cv.WakeOne()
}

// WakeAllConditionVariable wakes every goroutine sleeping on cv.
func WakeAllConditionVariable(cv *ConditionVariable) {
	cv.WakeAll()
}

// InitializeCriticalSection resets cs to unlocked with no spinning.
func InitializeCriticalSection(cs *CriticalSection) {
	InitializeCriticalSectionAndSpinCount(cs, 0)
}

// InitializeCriticalSectionAndSpinCount resets cs to unlocked, spinning up
// to spinCount times before parking.
func InitializeCriticalSectionAndSpinCount(cs *CriticalSection, spinCount uint32) {
	cs.count.Store(0)
	cs.SetSpinCount(int(min(spinCount, 1<<31-1)))
}

// EnterCriticalSection blocks until the caller owns cs.
func EnterCriticalSection(cs *CriticalSection) {
	cs.Enter()
}

// TryEnterCriticalSection takes cs if it is free.
func TryEnterCriticalSection(cs *CriticalSection) bool {
	return cs.TryEnter()
}

// LeaveCriticalSection releases cs.
func LeaveCriticalSection(cs *CriticalSection) {
	cs.Leave()
}

func msTimeout(ms uint32) time.Duration {
	if ms == Infinite {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}
