// Package project saves and restores pattern pools as timestamped JSON files.
package project

import (
	"fmt"
	"slices"

	"go-pattern/debug"
	"go-pattern/pattern"
)

// FormatVersion is the document format written by Save.
const FormatVersion = 1

// Document is one saved project.
type Document struct {
	Format   int          `json:"format"`
	Tempo    float64      `json:"tempo,omitempty"`
	Patterns []PatternDoc `json:"patterns"`
	Slots    []pattern.ID `json:"slots,omitempty"` // pattern per player slot, 0 = empty
}

// PatternDoc is the saved form of one pattern. Versions are not saved; a
// restored pattern starts over at its initial version.
type PatternDoc struct {
	ID           pattern.ID                 `json:"id"`
	Name         string                     `json:"name"`
	Kind         string                     `json:"kind"`
	LengthBeats  float64                    `json:"lengthBeats"`
	Color        uint32                     `json:"color"`
	MixerChannel int                        `json:"mixerChannel"`
	Notes        []pattern.Note             `json:"notes,omitempty"`
	Audio        *pattern.AudioSlicePayload `json:"audio,omitempty"`
}

// Capture records every pattern in pool, ordered by id.
func Capture(pool *pattern.Pool) Document {
	l := pool.List()
	defer l.Release()

	doc := Document{Format: FormatVersion, Patterns: make([]PatternDoc, 0, l.Len())}
	l.Each(func(s pattern.Snapshot) bool {
		pd := PatternDoc{
			ID:           s.ID(),
			Name:         s.Name(),
			Kind:         s.Kind().String(),
			LengthBeats:  s.LengthBeats(),
			Color:        s.Color(),
			MixerChannel: s.MixerChannel(),
		}
		s.Match(
			func(pattern.MidiView) { pd.Notes = s.Notes() },
			func(a pattern.AudioSlicePayload) { pd.Audio = &a },
		)
		doc.Patterns = append(doc.Patterns, pd)
		return true
	})
	return doc
}

// source builds a detached pattern from a saved one.
func (d PatternDoc) source() (*pattern.Source, error) {
	var src *pattern.Source
	switch d.Kind {
	case pattern.KindMidi.String():
		src = pattern.NewMidiSource(d.Name, d.LengthBeats, pattern.NewMidiPayload(d.Notes...))
	case pattern.KindAudio.String():
		if d.Audio == nil {
			return nil, fmt.Errorf("pattern %d: audio pattern without slice", d.ID)
		}
		src = pattern.NewAudioSource(d.Name, d.LengthBeats, *d.Audio)
	default:
		return nil, fmt.Errorf("pattern %d: unknown kind %q", d.ID, d.Kind)
	}
	src.Color = d.Color
	src.MixerChannel = d.MixerChannel
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("pattern %d: %w", d.ID, err)
	}
	return src, nil
}

// Restore replaces the contents of pool with doc. Every pattern is checked
// before the pool is cleared, so a bad document leaves pool untouched.
// Patterns are recreated in saved-id order and the returned map gives the
// new id of each saved id.
func Restore(pool *pattern.Pool, doc Document) (map[pattern.ID]pattern.ID, error) {
	pats := slices.Clone(doc.Patterns)
	slices.SortStableFunc(pats, func(a, b PatternDoc) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	srcs := make([]*pattern.Source, len(pats))
	for i, pd := range pats {
		src, err := pd.source()
		if err != nil {
			return nil, fmt.Errorf("project: restore: %w", err)
		}
		srcs[i] = src
	}

	pool.Clear()
	remap := make(map[pattern.ID]pattern.ID, len(pats))
	for i, src := range srcs {
		id, err := pool.CreateFrom(src)
		if err != nil {
			return nil, fmt.Errorf("project: restore pattern %d: %w", pats[i].ID, err)
		}
		remap[pats[i].ID] = id
	}
	debug.Log("project", "restored %d patterns", len(remap))
	return remap, nil
}

// RemapSlots translates saved slot assignments through remap. Slots naming
// a pattern that was not restored become empty.
func RemapSlots(slots []pattern.ID, remap map[pattern.ID]pattern.ID) []pattern.ID {
	out := make([]pattern.ID, len(slots))
	for i, id := range slots {
		out[i] = remap[id]
	}
	return out
}
