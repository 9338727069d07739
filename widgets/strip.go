package widgets

import (
	"strings"

	"go-pattern/pattern"
	"go-pattern/theme"
)

// NoteCells maps a pattern onto cells equal slices of its length. Audio
// patterns fill every cell with the audio symbol. playhead is a position in
// beats, or negative for none.
func NoteCells(s pattern.Snapshot, cells int, playhead float64, sym theme.Symbols) []rune {
	out := make([]rune, cells)
	for i := range out {
		out[i] = sym.StepEmpty
	}
	length := s.LengthBeats()
	if cells == 0 || length <= 0 {
		return out
	}
	cell := length / float64(cells)
	index := func(beat float64) int {
		return min(int(beat/cell), cells-1)
	}

	s.Match(
		func(v pattern.MidiView) {
			for i := range v.Len() {
				n := v.At(i)
				if n.Start >= length {
					break
				}
				first := index(n.Start)
				last := index(min(n.End(), length) - 1e-9)
				for c := first + 1; c <= last; c++ {
					if out[c] == sym.StepEmpty {
						out[c] = sym.StepHeld
					}
				}
				out[first] = sym.StepActive
			}
		},
		func(pattern.AudioSlicePayload) {
			for i := range out {
				out[i] = sym.Audio
			}
		},
	)

	if playhead >= 0 && playhead < length {
		out[index(playhead)] = sym.StepPlayhead
	}
	return out
}

// NoteStrip renders NoteCells in the pattern's color.
func NoteStrip(th *theme.Theme, s pattern.Snapshot, cells int, playhead float64) string {
	var b strings.Builder
	col := theme.FromARGB(s.Color())
	for _, r := range NoteCells(s, cells, playhead, th.Symbols) {
		if r == th.Symbols.StepEmpty {
			b.WriteString(RenderPad(th.Palette.Lookup(theme.RoleMuted), r))
			continue
		}
		b.WriteString(RenderPad(col, r))
	}
	return b.String()
}
