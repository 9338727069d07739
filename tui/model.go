// Package tui is a terminal pattern browser: it lists the pool, edits
// patterns through pool patches and launches them into player slots.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-pattern/debug"
	"go-pattern/midi"
	"go-pattern/pattern"
	"go-pattern/player"
	"go-pattern/project"
	"go-pattern/theme"
	"go-pattern/widgets"
)

const (
	refreshRate = 50 * time.Millisecond
	stripCells  = 32
	// audioSliceFrames is the slice length given to new audio patterns.
	audioSliceFrames = 48000
)

// Transport starts and stops the player's output goroutine.
type Transport interface {
	Playing() bool
	Toggle()
}

// Deps are the collaborators a Model drives. Ports may be nil.
type Deps struct {
	Pool          *pattern.Pool
	Player        *player.Player
	Clock         *player.Clock
	Transport     Transport
	Store         *project.Store
	Project       string
	Theme         *theme.Theme
	DefaultLength float64
	Ports         <-chan midi.PortEvent
}

type mode int

const (
	modeBrowse mode = iota
	modeRename
)

type Model struct {
	Deps

	selected pattern.ID
	slot     int
	mode     mode
	input    textinput.Model
	help     help.Model
	status   string
	created  int
	quitting bool
}

type tickMsg time.Time

// PortEventMsg reports an output port appearing or going away.
type PortEventMsg midi.PortEvent

func NewModel(d Deps) Model {
	ti := textinput.New()
	ti.Prompt = "name: "
	ti.CharLimit = 40
	ti.Width = 40
	if d.DefaultLength <= 0 {
		d.DefaultLength = 4
	}
	if d.Project == "" {
		d.Project = "untitled"
	}
	return Model{
		Deps:  d,
		input: ti,
		help:  help.New(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func ListenForPorts(events <-chan midi.PortEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return PortEventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), ListenForPorts(m.Ports))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case PortEventMsg:
		m.status = fmt.Sprintf("%s %s", midi.PortEvent(msg).Type, msg.Name)
		return m, ListenForPorts(m.Ports)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.mode == modeRename {
			return m.updateRename(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		m.report(m.Pool.Rename(m.selected, strings.TrimSpace(m.input.Value())))
		fallthrough
	case key.Matches(msg, keys.Cancel):
		m.mode = modeBrowse
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		if m.Transport != nil && m.Transport.Playing() {
			m.Transport.Toggle()
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		m.move(-1)
	case key.Matches(msg, keys.Down):
		m.move(1)

	case key.Matches(msg, keys.NewMidi):
		m.create(pattern.NewMidiSource(fmt.Sprintf("pattern %d", m.created+1), m.DefaultLength, pattern.MidiPayload{}))
	case key.Matches(msg, keys.NewAudio):
		slice := pattern.AudioSlicePayload{Asset: pattern.NewAssetID(), Length: audioSliceFrames, Gain: 1}
		m.create(pattern.NewAudioSource(fmt.Sprintf("audio %d", m.created+1), m.DefaultLength, slice))
	case key.Matches(msg, keys.Clone):
		if id := m.Pool.Clone(m.selected); id != pattern.NoID {
			m.selected = id
		}
	case key.Matches(msg, keys.Delete):
		m.deleteSelected()

	case key.Matches(msg, keys.Rename):
		if snap, ok := m.Pool.Snapshot(m.selected); ok {
			m.input.SetValue(snap.Name())
			snap.Release()
			m.mode = modeRename
			return m, m.input.Focus()
		}

	case key.Matches(msg, keys.InsertNote):
		m.report(m.Pool.Patch(m.selected, appendNote))
	case key.Matches(msg, keys.RemoveNote):
		m.report(m.Pool.EditNotes(m.selected, func(p *pattern.MidiPayload) error {
			if p.Len() > 0 {
				p.RemoveAt(p.Len() - 1)
			}
			return nil
		}))
	case key.Matches(msg, keys.TransposeUp):
		m.report(m.Pool.EditNotes(m.selected, transpose(1)))
	case key.Matches(msg, keys.TransposeDown):
		m.report(m.Pool.EditNotes(m.selected, transpose(-1)))
	case key.Matches(msg, keys.Longer):
		m.resize(1)
	case key.Matches(msg, keys.Shorter):
		m.resize(-1)

	case key.Matches(msg, keys.Launch):
		m.slot = int(msg.String()[0] - '1')
		m.launch()
	case key.Matches(msg, keys.NextSlot):
		m.slot = (m.slot + 1) % player.NumSlots
	case key.Matches(msg, keys.StopSlot):
		m.Player.Launch(m.slot, pattern.NoID)
	case key.Matches(msg, keys.MuteSlot):
		_, _, muted := m.Player.Slot(m.slot)
		m.Player.SetMuted(m.slot, !muted)

	case key.Matches(msg, keys.Play):
		if m.Transport != nil {
			m.Transport.Toggle()
		}
	case key.Matches(msg, keys.TempoUp):
		m.setTempo(m.Clock.Tempo() + 5)
	case key.Matches(msg, keys.TempoDown):
		m.setTempo(m.Clock.Tempo() - 5)

	case key.Matches(msg, keys.Save):
		m.save()
	case key.Matches(msg, keys.Reload):
		m.reload()
	case key.Matches(msg, keys.Clear):
		m.stopAll()
		m.Pool.Clear()
		m.selected = pattern.NoID
		m.status = "pool cleared"

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// report turns a patch result into a status line. Unknown ids report
// nothing.
func (m *Model) report(v pattern.Version, err error) {
	switch {
	case err != nil:
		m.status = err.Error()
	case v != 0:
		m.status = fmt.Sprintf("v%d", v)
	}
}

func (m *Model) create(src *pattern.Source) {
	src.Color = m.Theme.NextPatternColor(m.created)
	m.created++
	id, err := m.Pool.CreateFrom(src)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.selected = id
}

// move shifts the selection through the listing, which is ordered by id.
func (m *Model) move(delta int) {
	l := m.Pool.List()
	defer l.Release()
	if l.Len() == 0 {
		m.selected = pattern.NoID
		return
	}
	i := m.index(l)
	if i < 0 {
		i = 0
	} else {
		i = max(0, min(l.Len()-1, i+delta))
	}
	m.selected = l.At(i).ID()
}

// index returns the listing position of the selection, or -1.
func (m *Model) index(l pattern.Listing) int {
	for i := range l.Len() {
		if l.At(i).ID() == m.selected {
			return i
		}
	}
	return -1
}

func (m *Model) deleteSelected() {
	l := m.Pool.List()
	i := m.index(l)
	l.Release()
	if i < 0 {
		return
	}

	m.Pool.Remove(m.selected)
	m.selected = pattern.NoID

	// Keep the cursor on the row the deleted pattern occupied.
	l = m.Pool.List()
	defer l.Release()
	if l.Len() > 0 {
		m.selected = l.At(min(i, l.Len()-1)).ID()
	}
}

// appendNote adds a quarter-beat C4 after the last note, or at 0.
func appendNote(s *pattern.Source) error {
	p := s.Midi()
	if p == nil {
		return fmt.Errorf("%q is an audio pattern", s.Name)
	}
	start := p.LastEnd()
	if start >= s.LengthBeats {
		return fmt.Errorf("%q is full", s.Name)
	}
	p.Add(pattern.Note{
		Start:    start,
		Duration: min(0.25, s.LengthBeats-start),
		Pitch:    60,
		Velocity: 100,
	})
	return nil
}

func transpose(semitones int) func(*pattern.MidiPayload) error {
	return func(p *pattern.MidiPayload) error {
		p.Transpose(semitones)
		return nil
	}
}

func (m *Model) resize(delta float64) {
	snap, ok := m.Pool.Snapshot(m.selected)
	if !ok {
		return
	}
	length := snap.LengthBeats() + delta
	snap.Release()
	if length < 1 {
		m.status = "pattern is already one beat long"
		return
	}
	m.report(m.Pool.Resize(m.selected, length))
}

func (m *Model) launch() {
	if !m.Pool.Contains(m.selected) {
		return
	}
	playing, pending, _ := m.Player.Slot(m.slot)
	if playing == m.selected && pending == pattern.NoID {
		m.Player.Launch(m.slot, pattern.NoID)
		return
	}
	m.Player.Launch(m.slot, m.selected)
}

func (m *Model) stopAll() {
	for i := range player.NumSlots {
		m.Player.Launch(i, pattern.NoID)
	}
}

func (m *Model) setTempo(bpm float64) {
	m.Clock.SetTempo(max(20, min(999, bpm)))
}

func (m *Model) save() {
	doc := project.Capture(m.Pool)
	doc.Tempo = m.Clock.Tempo()
	doc.Slots = make([]pattern.ID, player.NumSlots)
	for i := range doc.Slots {
		playing, pending, _ := m.Player.Slot(i)
		if pending != pattern.NoID {
			playing = pending
		}
		doc.Slots[i] = playing
	}
	info, err := m.Store.Save(m.Project, doc)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = "saved " + info.Filename
}

// reload restores the latest save of the project and relaunches its slots.
func (m *Model) reload() {
	doc, err := m.Store.Load(m.Project, "")
	if err != nil {
		m.status = err.Error()
		return
	}
	m.stopAll()
	remap, err := project.Restore(m.Pool, doc)
	if err != nil {
		m.status = err.Error()
		return
	}
	if doc.Tempo > 0 {
		m.setTempo(doc.Tempo)
	}
	for i, id := range project.RemapSlots(doc.Slots, remap) {
		if i < player.NumSlots && id != pattern.NoID {
			m.Player.Launch(i, id)
		}
	}
	m.selected = pattern.NoID
	m.move(0)
	m.status = fmt.Sprintf("loaded %d patterns", len(remap))
	debug.Log("tui", "reloaded project %q", m.Project)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := m.Theme
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(th.FG()).Background(th.Muted()).Padding(0, 1)

	playing := m.Transport != nil && m.Transport.Playing()
	playState := "STOP"
	if playing {
		playState = "PLAY"
	}
	header := headerStyle.Render(fmt.Sprintf("go-pattern  %s  %3.0fbpm  %s  slot:%d",
		playState, m.Clock.Tempo(), m.Project, m.slot+1))

	slots := make([]widgets.SlotState, player.NumSlots)
	for i := range slots {
		id, pending, muted := m.Player.Slot(i)
		slots[i] = widgets.SlotState{
			Playing: id != pattern.NoID,
			Pending: pending != pattern.NoID,
			Muted:   muted && id != pattern.NoID,
			Color:   colorOf(m.Pool, id),
		}
	}

	var now int64
	if playing {
		now = m.Clock.Now()
	}

	var rows []string
	l := m.Pool.List()
	l.Each(func(s pattern.Snapshot) bool {
		marker := "  "
		if s.ID() == m.selected {
			marker = cursorStyle.Render("> ")
		}
		detail := fmt.Sprintf("%d notes", s.NoteCount())
		if a, ok := s.AudioSlice(); ok {
			detail = fmt.Sprintf("%d frames", a.Length)
		}
		info := dimStyle.Render(fmt.Sprintf("%-5s %5gb v%-4d %s", s.Kind(), s.LengthBeats(), s.Version(), detail))
		strip := widgets.NoteStrip(th, s, stripCells, m.playhead(s.ID(), playing, now))
		rows = append(rows, fmt.Sprintf("%s%3d %-16s %s  %s", marker, s.ID(), truncate(s.Name(), 16), strip, info))
		return true
	})
	l.Release()
	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("  no patterns, press n to create one"))
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderSlotRow(th, slots))
	out.WriteString("\n\n")
	out.WriteString(strings.Join(rows, "\n"))
	out.WriteString("\n\n")
	if m.mode == modeRename {
		out.WriteString(m.input.View())
		out.WriteString("\n")
	}
	out.WriteString(m.help.View(keys))
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}
	return out.String()
}

// playhead returns the position in beats of id in the first slot playing
// it, or -1.
func (m Model) playhead(id pattern.ID, playing bool, now int64) float64 {
	if !playing {
		return -1
	}
	for i := range player.NumSlots {
		if p, _, _ := m.Player.Slot(i); p != id {
			continue
		}
		if off, _, ok := m.Player.Position(i, now); ok {
			return midi.TicksToBeats(off)
		}
	}
	return -1
}

func colorOf(pool *pattern.Pool, id pattern.ID) uint32 {
	snap, ok := pool.Snapshot(id)
	if !ok {
		return 0
	}
	defer snap.Release()
	return snap.Color()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
