package pattern

import "slices"

// Snapshot is a read-only handle to one published version of a pattern.
// Its contents never change while it is held. The zero Snapshot is invalid.
//
// Accessors return values, never memory shared with the pool, and none of
// them allocate except Notes.
type Snapshot struct {
	src *Source
}

// Valid reports whether the snapshot refers to a pattern.
func (s Snapshot) Valid() bool {
	return s.src != nil
}

func (s Snapshot) ID() ID {
	if s.src == nil {
		return NoID
	}
	return s.src.id
}

func (s Snapshot) Version() Version {
	if s.src == nil {
		return 0
	}
	return s.src.version
}

func (s Snapshot) Name() string {
	if s.src == nil {
		return ""
	}
	return s.src.Name
}

func (s Snapshot) LengthBeats() float64 {
	if s.src == nil {
		return 0
	}
	return s.src.LengthBeats
}

func (s Snapshot) Kind() Kind {
	if s.src == nil {
		return 0
	}
	return s.src.payload.kind
}

func (s Snapshot) Color() uint32 {
	if s.src == nil {
		return 0
	}
	return s.src.Color
}

func (s Snapshot) MixerChannel() int {
	if s.src == nil {
		return AutoMixerChannel
	}
	return s.src.MixerChannel
}

// NoteCount returns the number of notes (0 for audio patterns).
func (s Snapshot) NoteCount() int {
	if s.src == nil || s.src.payload.midi == nil {
		return 0
	}
	return len(s.src.payload.midi.Notes)
}

// Note returns the i-th note in canonical (start, pitch) order.
func (s Snapshot) Note(i int) Note {
	return s.src.payload.midi.Notes[i]
}

// EachNote calls fn for every note in canonical order until fn returns false.
func (s Snapshot) EachNote(fn func(Note) bool) {
	if s.src == nil || s.src.payload.midi == nil {
		return
	}
	for _, n := range s.src.payload.midi.Notes {
		if !fn(n) {
			return
		}
	}
}

// Notes returns a copy of the notes. Allocates; editor use only.
func (s Snapshot) Notes() []Note {
	if s.src == nil || s.src.payload.midi == nil {
		return nil
	}
	return slices.Clone(s.src.payload.midi.Notes)
}

// AudioSlice returns the audio payload; ok is false for MIDI patterns.
func (s Snapshot) AudioSlice() (slice AudioSlicePayload, ok bool) {
	if s.src == nil || s.src.payload.audio == nil {
		return AudioSlicePayload{}, false
	}
	return *s.src.payload.audio, true
}

// Match calls exactly one of onMidi or onAudio. Nil callbacks are skipped.
func (s Snapshot) Match(onMidi func(MidiView), onAudio func(AudioSlicePayload)) {
	if s.src == nil {
		return
	}
	s.src.payload.Match(
		func(m *MidiPayload) {
			if onMidi != nil {
				onMidi(MidiView{m: m})
			}
		},
		func(a *AudioSlicePayload) {
			if onAudio != nil {
				onAudio(*a)
			}
		},
	)
}

// Detach returns a mutable deep copy with no identity, suitable for
// Pool.CreateFrom or for editing outside the pool.
func (s Snapshot) Detach() *Source {
	if s.src == nil {
		return nil
	}
	return s.src.Clone()
}

// Release gives the handle back. Each snapshot obtained from a pool must be
// released once; the record itself is reclaimed when the last holder drops it.
func (s Snapshot) Release() {
	if s.src != nil && s.src.stats != nil {
		s.src.stats.release()
	}
}

// MidiView is read-only access to a published MIDI payload.
type MidiView struct {
	m *MidiPayload
}

func (v MidiView) Len() int {
	return len(v.m.Notes)
}

func (v MidiView) At(i int) Note {
	return v.m.Notes[i]
}

// LastEnd returns the latest note end in beats.
func (v MidiView) LastEnd() float64 {
	return v.m.LastEnd()
}
