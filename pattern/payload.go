package pattern

// Kind tags a pattern's payload. It is fixed when the pattern is created.
type Kind uint8

const (
	KindMidi Kind = iota + 1
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindMidi:
		return "midi"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Payload is the tagged union of a MIDI payload and an audio slice payload.
// Exactly one side is set, selected by Kind.
type Payload struct {
	kind  Kind
	midi  *MidiPayload
	audio *AudioSlicePayload
}

// MidiOf wraps a copy of p.
func MidiOf(p MidiPayload) Payload {
	return Payload{kind: KindMidi, midi: p.clone()}
}

// AudioOf wraps a copy of p.
func AudioOf(p AudioSlicePayload) Payload {
	return Payload{kind: KindAudio, audio: &p}
}

func (p Payload) Kind() Kind {
	return p.kind
}

// Match calls exactly one of onMidi or onAudio with the payload's data.
// A nil callback skips that case.
func (p Payload) Match(onMidi func(*MidiPayload), onAudio func(*AudioSlicePayload)) {
	switch p.kind {
	case KindMidi:
		if onMidi != nil {
			onMidi(p.midi)
		}
	case KindAudio:
		if onAudio != nil {
			onAudio(p.audio)
		}
	default:
		panic("pattern: payload without kind")
	}
}

func (p Payload) validate() error {
	switch p.kind {
	case KindMidi:
		if p.midi == nil {
			return invalidf("midi payload missing")
		}
		return p.midi.Validate()
	case KindAudio:
		if p.audio == nil {
			return invalidf("audio payload missing")
		}
		return p.audio.Validate()
	default:
		return invalidf("payload kind %d", p.kind)
	}
}

// clone deep-copies the payload. The audio asset is a value and is shared by
// reference semantics only.
func (p Payload) clone() Payload {
	c := Payload{kind: p.kind}
	p.Match(
		func(m *MidiPayload) { c.midi = m.clone() },
		func(a *AudioSlicePayload) {
			cp := *a
			c.audio = &cp
		},
	)
	return c
}

// normalize puts the payload into canonical form before publication.
func (p Payload) normalize() {
	if p.kind == KindMidi && !p.midi.Sorted() {
		p.midi.Sort()
	}
}
