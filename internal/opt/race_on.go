//go:build race

package opt

import (
	"math"
	"sync"
)

const Race_ = true

// Sema is a channel-backed semaphore under the race detector.
// The runtime semaphore carries no happens-before edges the detector can
// see, so data handed over through it would be reported as racy.
// The buffer holds struct{} values only and allocates no element storage.
type Sema struct {
	once sync.Once
	ch   chan struct{}
}

func (s *Sema) c() chan struct{} {
	s.once.Do(func() {
		s.ch = make(chan struct{}, math.MaxInt32)
	})
	return s.ch
}

func (s *Sema) Acquire() {
	<-s.c()
}

func (s *Sema) Release() {
	s.c() <- struct{}{}
}
