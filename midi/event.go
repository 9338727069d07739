package midi

import (
	"cmp"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// PPQ is the tick resolution in ticks per beat (quarter note).
const PPQ = 960

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// CCAllNotesOff is the channel mode controller that silences a channel.
const CCAllNotesOff uint8 = 123

// Event represents a MIDI event scheduled by the player
type Event struct {
	Tick     int64 // absolute ticks from transport start
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8 // 0-15
	Note     uint8 // key, or controller number for CC
	Velocity uint8 // velocity, or controller value for CC
	Slot     int   // player slot that produced it
}

// BeatsToTicks converts a beat position to ticks, rounding to the nearest tick.
func BeatsToTicks(beats float64) int64 {
	return int64(math.Round(beats * PPQ))
}

// TicksToBeats converts ticks to beats.
func TicksToBeats(ticks int64) float64 {
	return float64(ticks) / PPQ
}

// Message converts the event to a wire message. A note-on with velocity 0
// would read as a note-off on the wire, so it is sent at velocity 1.
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, max(e.Velocity, 1))
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	case CC:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	}
	return nil
}

// Compare orders events by tick. At the same tick, note-offs and controller
// messages sort before note-ons so a retriggered key is released first.
func Compare(a, b Event) int {
	if c := cmp.Compare(a.Tick, b.Tick); c != 0 {
		return c
	}
	return cmp.Compare(rank(a.Type), rank(b.Type))
}

func rank(t uint8) int {
	if t == NoteOn {
		return 1
	}
	return 0
}
