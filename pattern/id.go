package pattern

import (
	"strconv"
	"sync/atomic"
)

// ID identifies a pattern within one Pool. Ids are never zero and never
// reused until the pool is cleared.
type ID uint64

// NoID is the "invalid / not found" sentinel.
const NoID ID = 0

// Valid reports whether id could name a pattern.
func (id ID) Valid() bool {
	return id != NoID
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// idAllocator hands out strictly increasing ids starting at 1. The counter
// belongs to a Pool; two pools have independent id spaces.
type idAllocator struct {
	next atomic.Uint64
}

func (a *idAllocator) reset() {
	a.next.Store(1)
}

// allocate returns the current value and advances the counter.
func (a *idAllocator) allocate() ID {
	for {
		id := ID(a.next.Add(1) - 1)
		if id != NoID {
			return id
		}
	}
}

// peek returns the id the next allocate call will hand out.
func (a *idAllocator) peek() ID {
	id := ID(a.next.Load())
	if id == NoID {
		return 1
	}
	return id
}
