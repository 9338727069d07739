package midi

import (
	"fmt"
	"io"
	"slices"

	"go-pattern/pattern"

	"gitlab.com/gomidi/midi/v2/smf"
)

// SMFOptions controls a Standard MIDI File export.
type SMFOptions struct {
	Tempo       float64 // BPM, defaults to 120
	BeatsPerBar uint8   // defaults to 4
	Loops       int     // pattern repetitions, defaults to 1
}

func (o SMFOptions) withDefaults() SMFOptions {
	if o.Tempo <= 0 {
		o.Tempo = 120
	}
	if o.BeatsPerBar == 0 {
		o.BeatsPerBar = 4
	}
	if o.Loops <= 0 {
		o.Loops = 1
	}
	return o
}

// PatternEvents expands a MIDI pattern into note-on/off events over loops
// repetitions. Notes running past the pattern end are cut at the loop point.
func PatternEvents(s pattern.Snapshot, loops int) ([]Event, error) {
	if s.Kind() != pattern.KindMidi {
		return nil, fmt.Errorf("midi: pattern %d is %s, not midi", s.ID(), s.Kind())
	}
	length := BeatsToTicks(s.LengthBeats())
	events := make([]Event, 0, 2*s.NoteCount()*loops)
	for loop := 0; loop < loops; loop++ {
		base := int64(loop) * length
		s.EachNote(func(n pattern.Note) bool {
			start := BeatsToTicks(n.Start)
			if start >= length {
				return true
			}
			end := min(BeatsToTicks(n.End()), length)
			events = append(events,
				Event{Tick: base + start, Type: NoteOn, Channel: n.Channel, Note: n.Pitch, Velocity: n.Velocity},
				Event{Tick: base + end, Type: NoteOff, Channel: n.Channel, Note: n.Pitch},
			)
			return true
		})
	}
	slices.SortStableFunc(events, Compare)
	return events, nil
}

// WriteSMF writes a MIDI pattern as a single-track format 0 file.
func WriteSMF(w io.Writer, s pattern.Snapshot, opts SMFOptions) error {
	opts = opts.withDefaults()
	events, err := PatternEvents(s, opts.Loops)
	if err != nil {
		return err
	}

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(PPQ)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(s.Name()))
	tr.Add(0, smf.MetaMeter(opts.BeatsPerBar, 4))
	tr.Add(0, smf.MetaTempo(opts.Tempo))

	var last int64
	for _, e := range events {
		tr.Add(uint32(e.Tick-last), e.Message())
		last = e.Tick
	}
	end := BeatsToTicks(s.LengthBeats()) * int64(opts.Loops)
	tr.Close(uint32(max(0, end-last)))

	if err := file.Add(tr); err != nil {
		return fmt.Errorf("midi: build smf: %w", err)
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write smf: %w", err)
	}
	return nil
}
