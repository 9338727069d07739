package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Solid rune // ■ slot playing
	Empty rune // □ slot empty

	// Note strip cells
	StepEmpty    rune // · no note starts here
	StepActive   rune // ● a note starts here
	StepHeld     rune // ─ a note sounds through
	StepPlayhead rune // ▶ current position

	Pending rune // ▷ launch queued for next bar
	Muted   rune // × slot muted
	Audio   rune // ≈ audio slice
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			StepEmpty:    '·',
			StepActive:   '●',
			StepHeld:     '─',
			StepPlayhead: '▶',

			Pending: '▷',
			Muted:   '×',
			Audio:   '≈',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleCursor  = 0.6
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// PatternColor converts a pattern's ARGB color.
func (t *Theme) PatternColor(argb uint32) lipgloss.Color {
	return lipgloss.Color(FromARGB(argb).Hex())
}

// NextPatternColor picks a color for the n-th new pattern, walking the
// palette so neighbours differ.
func (t *Theme) NextPatternColor(n int) uint32 {
	cols := len(t.Palette.Colors)
	if cols == 0 {
		return 0
	}
	// Stride 3 visits every entry when cols is not a multiple of 3.
	i := (n * 3) % cols
	return t.Palette.Index(i).ARGB()
}
