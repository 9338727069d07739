package pattern

import "math"

// DefaultColor is the ARGB color given to new patterns.
const DefaultColor uint32 = 0xFFbb86fc

// AutoMixerChannel routes a pattern to its lane's default mixer channel.
const AutoMixerChannel = -1

// Source is a pattern record: identity, metadata, payload and version.
//
// A Source obtained from a Snapshot is never written after publication; the
// pool replaces it with a new record on every Patch. A Source handed to a
// Mutator is a private draft. Id, version and payload kind can only be set by
// the pool.
type Source struct {
	id      ID
	version Version
	payload Payload
	stats   *poolStats

	Name         string
	LengthBeats  float64
	Color        uint32 // ARGB
	MixerChannel int    // AutoMixerChannel or a mixer channel index
}

// NewMidiSource builds a detached MIDI source, ready for Pool.CreateFrom.
func NewMidiSource(name string, lengthBeats float64, p MidiPayload) *Source {
	return newSource(name, lengthBeats, MidiOf(p))
}

// NewAudioSource builds a detached audio source, ready for Pool.CreateFrom.
func NewAudioSource(name string, lengthBeats float64, p AudioSlicePayload) *Source {
	return newSource(name, lengthBeats, AudioOf(p))
}

func newSource(name string, lengthBeats float64, p Payload) *Source {
	return &Source{
		payload:      p,
		Name:         name,
		LengthBeats:  lengthBeats,
		Color:        DefaultColor,
		MixerChannel: AutoMixerChannel,
	}
}

// ID returns the pattern id (NoID for a detached source).
func (s *Source) ID() ID { return s.id }

// Version returns the pattern version (0 for a detached source).
func (s *Source) Version() Version { return s.version }

func (s *Source) Kind() Kind { return s.payload.kind }

func (s *Source) IsMidi() bool  { return s.payload.kind == KindMidi }
func (s *Source) IsAudio() bool { return s.payload.kind == KindAudio }

// Payload returns the tagged payload for exhaustive handling via Match.
func (s *Source) Payload() Payload { return s.payload }

// Midi returns the MIDI payload, or nil for an audio pattern.
func (s *Source) Midi() *MidiPayload {
	return s.payload.midi
}

// Audio returns the audio slice payload, or nil for a MIDI pattern.
func (s *Source) Audio() *AudioSlicePayload {
	return s.payload.audio
}

// HasCustomRouting reports whether the pattern overrides its lane's mixer channel.
func (s *Source) HasCustomRouting() bool {
	return s.MixerChannel >= 0
}

// Validate checks the record's invariants.
func (s *Source) Validate() error {
	if math.IsNaN(s.LengthBeats) || math.IsInf(s.LengthBeats, 0) || s.LengthBeats <= 0 {
		return invalidf("length %g beats must be positive", s.LengthBeats)
	}
	if s.MixerChannel < AutoMixerChannel {
		return invalidf("mixer channel %d", s.MixerChannel)
	}
	return s.payload.validate()
}

// Clone returns a detached deep copy (no id, no version).
func (s *Source) Clone() *Source {
	c := s.copy()
	c.id = NoID
	c.version = 0
	c.stats = nil
	return c
}

// copy duplicates the record including identity; payload memory is not shared.
func (s *Source) copy() *Source {
	c := *s
	c.payload = s.payload.clone()
	return &c
}
