package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-pattern/theme"
)

// RenderPad renders a single colored pad
func RenderPad(color theme.RGB, r rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color.Hex()))
	return style.Render(string(r))
}

// SlotState is what the slot row shows for one player slot.
type SlotState struct {
	Color   uint32 // ARGB of the playing pattern, ignored when empty
	Playing bool
	Pending bool
	Muted   bool
}

// RenderSlotRow renders one pad per player slot with its 1-based number.
func RenderSlotRow(th *theme.Theme, slots []SlotState) string {
	dim := th.Palette.Lookup(theme.RoleMuted)
	var out strings.Builder
	for i, s := range slots {
		if i > 0 {
			out.WriteString(" ")
		}
		fmt.Fprintf(&out, "%d", i+1)
		switch {
		case s.Muted:
			out.WriteString(RenderPad(theme.FromARGB(s.Color), th.Symbols.Muted))
		case s.Pending:
			out.WriteString(RenderPad(th.Palette.Lookup(theme.RoleCursor), th.Symbols.Pending))
		case s.Playing:
			out.WriteString(RenderPad(theme.FromARGB(s.Color), th.Symbols.Solid))
		default:
			out.WriteString(RenderPad(dim, th.Symbols.Empty))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
