package pattern

import "strconv"

// Version counts mutations of a single pattern. A freshly created or cloned
// pattern is at InitialVersion; every committed Patch adds exactly one.
type Version uint64

// InitialVersion is the version of a pattern right after CreateMidi,
// CreateAudio or Clone.
const InitialVersion Version = 1

// Next returns the version after v. Wraps with unsigned arithmetic.
func (v Version) Next() Version {
	return v + 1
}

// Newer reports whether v was produced after other, treating the counter as
// a serial number so the comparison stays correct across a wrap.
func (v Version) Newer(other Version) bool {
	return v != other && v-other < 1<<63
}

func (v Version) String() string {
	return "v" + strconv.FormatUint(uint64(v), 10)
}
