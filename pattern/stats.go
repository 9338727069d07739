package pattern

import "sync/atomic"

// poolStats is shared by a pool and every record it publishes, so releasing
// a snapshot can update the holder count without touching the pool.
type poolStats struct {
	created       atomic.Uint64
	cloned        atomic.Uint64
	removed       atomic.Uint64
	patched       atomic.Uint64
	patchFailures atomic.Uint64
	clears        atomic.Uint64
	holders       atomic.Int64
}

// Stats is a point-in-time view of pool counters.
type Stats struct {
	Patterns      int    // patterns currently in the pool
	NextID        ID     // id the next create or clone will receive
	Created       uint64 // CreateMidi, CreateAudio and CreateFrom successes
	Cloned        uint64
	Removed       uint64 // Remove calls that found their pattern
	Patched       uint64 // committed patches
	PatchFailures uint64 // patches refused by the mutator or by validation
	Clears        uint64
	Holders       int64 // snapshots handed out and not yet released
}

func (s *poolStats) acquire(n int) {
	s.holders.Add(int64(n))
}

func (s *poolStats) release() {
	s.holders.Add(-1)
}
