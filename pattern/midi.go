package pattern

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// MIDI value ranges
const (
	MaxPitch    = 127
	MaxVelocity = 127
	MaxChannel  = 15
)

// Note is a single MIDI note event. Times are in beats.
type Note struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Pitch    uint8   `json:"pitch"`
	Velocity uint8   `json:"velocity"`
	Channel  uint8   `json:"channel"`
	Unit     uint64  `json:"unit,omitempty"` // instrument unit, 0 = any
}

// End returns the beat at which the note stops sounding.
func (n Note) End() float64 {
	return n.Start + n.Duration
}

// Validate checks the note's ranges.
func (n Note) Validate() error {
	switch {
	case math.IsNaN(n.Start) || math.IsInf(n.Start, 0) || n.Start < 0:
		return invalidf("note start %g must be a non-negative beat", n.Start)
	case math.IsNaN(n.Duration) || math.IsInf(n.Duration, 0) || n.Duration <= 0:
		return invalidf("note duration %g must be positive", n.Duration)
	case n.Pitch > MaxPitch:
		return invalidf("note pitch %d out of range 0-%d", n.Pitch, MaxPitch)
	case n.Velocity > MaxVelocity:
		return invalidf("note velocity %d out of range 0-%d", n.Velocity, MaxVelocity)
	case n.Channel > MaxChannel:
		return invalidf("note channel %d out of range 0-%d", n.Channel, MaxChannel)
	}
	return nil
}

// MidiPayload is an ordered sequence of notes. Canonical order is
// (Start, Pitch); a payload may be edited in any order and is re-sorted
// stably when committed to a pool.
type MidiPayload struct {
	Notes []Note `json:"notes"`
}

// NewMidiPayload builds a payload holding a copy of notes.
func NewMidiPayload(notes ...Note) MidiPayload {
	return MidiPayload{Notes: slices.Clone(notes)}
}

func (m *MidiPayload) Len() int {
	return len(m.Notes)
}

// Add appends a note.
func (m *MidiPayload) Add(n Note) {
	m.Notes = append(m.Notes, n)
}

// RemoveAt deletes the note at index i; out of range is a no-op.
func (m *MidiPayload) RemoveAt(i int) {
	if i < 0 || i >= len(m.Notes) {
		return
	}
	m.Notes = slices.Delete(m.Notes, i, i+1)
}

// Transpose shifts every pitch by semitones, clamped to 0-127.
func (m *MidiPayload) Transpose(semitones int) {
	for i := range m.Notes {
		p := int(m.Notes[i].Pitch) + semitones
		m.Notes[i].Pitch = uint8(max(0, min(MaxPitch, p)))
	}
}

// Sort orders notes canonically. Equal keys keep their relative order.
func (m *MidiPayload) Sort() {
	slices.SortStableFunc(m.Notes, compareNotes)
}

// Sorted reports whether notes are in canonical order.
func (m *MidiPayload) Sorted() bool {
	return slices.IsSortedFunc(m.Notes, compareNotes)
}

// Validate checks every note.
func (m *MidiPayload) Validate() error {
	for i, n := range m.Notes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
	}
	return nil
}

// LastEnd returns the latest note end, or 0 for an empty payload.
func (m *MidiPayload) LastEnd() float64 {
	end := 0.0
	for _, n := range m.Notes {
		end = max(end, n.End())
	}
	return end
}

func (m *MidiPayload) clone() *MidiPayload {
	return &MidiPayload{Notes: slices.Clone(m.Notes)}
}

func compareNotes(a, b Note) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Pitch, b.Pitch)
}
