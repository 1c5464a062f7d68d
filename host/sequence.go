package host

import (
	"context"
	"sync/atomic"
)

// Sequence is a StepCounter that returns a strictly increasing value on every
// call, so identifiers derived from it never collide.
type Sequence struct {
	next atomic.Uint64
}

// NewSequence returns a Sequence whose first step is start.
func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

// CurrentStep implements StepCounter.
func (s *Sequence) CurrentStep(_ context.Context) (uint64, error) {
	return s.next.Add(1) - 1, nil
}
