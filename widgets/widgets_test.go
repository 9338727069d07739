package widgets

import (
	"strings"
	"testing"

	"go-pattern/pattern"
	"go-pattern/theme"
)

func TestNoteCells(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id, _ := pool.CreateMidi("a", 4, pattern.NewMidiPayload(
		pattern.Note{Start: 0, Duration: 1.5, Pitch: 60, Velocity: 100},
		pattern.Note{Start: 3, Duration: 4, Pitch: 62, Velocity: 100},
	))
	s, _ := pool.Snapshot(id)
	defer s.Release()

	sym := theme.New(theme.Default()).Symbols
	got := string(NoteCells(s, 8, -1, sym))
	if got != "●──···●─" {
		t.Fatalf("cells = %q", got)
	}
	got = string(NoteCells(s, 8, 2.2, sym))
	if got != "●──·▶·●─" {
		t.Fatalf("cells with playhead = %q", got)
	}
}

func TestNoteCellsAudio(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id, _ := pool.CreateAudio("v", 2, pattern.AudioSlicePayload{Asset: pattern.NewAssetID(), Length: 10})
	s, _ := pool.Snapshot(id)
	defer s.Release()

	sym := theme.New(theme.Default()).Symbols
	if got := string(NoteCells(s, 3, -1, sym)); got != "≈≈≈" {
		t.Fatalf("cells = %q", got)
	}
}

func TestRenderSlotRow(t *testing.T) {
	th := theme.New(theme.Default())
	row := RenderSlotRow(th, []SlotState{{Playing: true, Color: pattern.DefaultColor}, {}, {Pending: true}, {Muted: true}})
	for _, want := range []string{"1", "■", "□", "▷", "×"} {
		if !strings.Contains(row, want) {
			t.Fatalf("row %q missing %q", row, want)
		}
	}
}
