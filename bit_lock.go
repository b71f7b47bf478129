package xpsync

import "sync/atomic"

// lockBit acquires a bit-lock on the given word using the specified bit mask
// and returns the word as it was just before the bit was set.
// It assumes the lock is held if (value & mask) != 0.
// It spins until the lock can be acquired.
//
// While the bit is held the owner is the only writer of the word: every
// other writer either CASes from a value with the bit clear or takes the
// bit itself. That is what lets unlockBit use a plain store.
func lockBit(addr *atomic.Uintptr, mask uintptr) uintptr {
	cur := addr.Load()
	if cur&mask == 0 && addr.CompareAndSwap(cur, cur|mask) {
		return cur
	}
	return slowLockBit(addr, mask)
}

func slowLockBit(addr *atomic.Uintptr, mask uintptr) uintptr {
	var spins int
	for {
		if cur, ok := tryLockBit(addr, mask); ok {
			return cur
		}
		delay(&spins)
	}
}

//go:nosplit
func tryLockBit(addr *atomic.Uintptr, mask uintptr) (uintptr, bool) {
	for {
		cur := addr.Load()
		if cur&mask != 0 {
			return cur, false
		}
		if addr.CompareAndSwap(cur, cur|mask) {
			return cur, true
		}
	}
}

// unlockBit releases the bit-lock by clearing the specified bit mask.
// It preserves other bits in the value.
//
//go:nosplit
func unlockBit(addr *atomic.Uintptr, mask uintptr) {
	addr.Store(addr.Load() &^ mask)
}

// unlockBitWithStore releases the bit-lock and simultaneously updates the value.
// It sets the value to (value &^ mask), effectively clearing the lock bit while
// storing new data in the other bits.
//
//go:nosplit
func unlockBitWithStore(addr *atomic.Uintptr, mask uintptr, value uintptr) {
	addr.Store(value &^ mask)
}
