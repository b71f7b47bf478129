package xpsync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotHeld is reported when a lock is released by a caller that does
	// not hold it in the matching mode.
	ErrNotHeld = errors.New("lock not held")
	// ErrCorrupt is reported when a lock word, wait chain or wait queue
	// holds a combination no valid sequence of operations can produce.
	ErrCorrupt = errors.New("inconsistent state")
	// ErrExhausted is reported when more goroutines block at once than
	// the wait slot arena can address.
	ErrExhausted = errors.New("wait slot arena exhausted")
)

// ContractError is the panic value raised on misuse of a primitive.
//
// Misuse is a programming error, not a runtime condition: none of the
// operations return an error, and a ContractError is never expected in a
// correct program. It carries the word observed at the time of the
// failure to help with debugging.
type ContractError struct {
	Op   string
	Word uintptr
	Err  error
}

// Error implements error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("xpsync: %s: %v (word=%#x)", e.Op, e.Err, e.Word)
}

// Unwrap returns ErrNotHeld, ErrCorrupt or ErrExhausted.
func (e *ContractError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error, word uintptr) {
	panic(&ContractError{Op: op, Word: word, Err: err})
}

const (
	opAcquireExclusive = "AcquireSRWLockExclusive"
	opReleaseExclusive = "ReleaseSRWLockExclusive"
	opAcquireShared    = "AcquireSRWLockShared"
	opReleaseShared    = "ReleaseSRWLockShared"
	opSleep            = "SleepConditionVariable"
	opLeave            = "LeaveCriticalSection"
	opGroupUnlock      = "SRWLockGroup.Unlock"
	opArena            = "wait slot arena"
)
