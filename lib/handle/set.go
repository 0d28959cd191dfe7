package handle

import (
	"github.com/go-i2p/go-envelope/lib/util"
)

type setState int

const (
	setOwned setState = iota
	setMoved
	setClosed
)

// Set is an ordered collection of handles owned by one holder at a time.
// Position i in the set corresponds to placeholder i in the payload.
type Set struct {
	handles []Handle
	state   setState
}

// NewSet takes ownership of handles. The caller must not use or close them
// afterwards.
func NewSet(handles ...Handle) *Set {
	owned := make([]Handle, len(handles))
	copy(owned, handles)
	return &Set{handles: owned}
}

// Len returns the number of handles currently owned.
func (s *Set) Len() int {
	if s == nil || s.state != setOwned {
		return 0
	}
	return len(s.handles)
}

// At returns handle i without transferring ownership.
func (s *Set) At(i int) Handle {
	s.mustOwn("At")
	return s.handles[i]
}

// Moved reports whether the handles have been moved out or closed.
func (s *Set) Moved() bool {
	return s != nil && s.state != setOwned
}

// Take moves every handle out of the set. The set is empty afterwards and
// a second Take panics.
func (s *Set) Take() []Handle {
	s.mustOwn("Take")
	out := s.handles
	s.handles = nil
	s.state = setMoved
	return out
}

// Close closes every owned handle. Closing a set that was already closed or
// moved out panics.
func (s *Set) Close() error {
	s.mustOwn("Close")
	handles := s.handles
	s.handles = nil
	s.state = setClosed
	return CloseAll(handles)
}

func (s *Set) mustOwn(op string) {
	if s == nil {
		util.Panicf("handle: %s on nil set", op)
	}
	switch s.state {
	case setMoved:
		util.Panicf("handle: %s on a set whose handles were already moved out", op)
	case setClosed:
		util.Panicf("handle: %s on a closed set", op)
	}
}
