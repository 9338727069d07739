package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	NewMidi       key.Binding
	NewAudio      key.Binding
	Clone         key.Binding
	Delete        key.Binding
	Rename        key.Binding
	InsertNote    key.Binding
	RemoveNote    key.Binding
	Longer        key.Binding
	Shorter       key.Binding
	TransposeUp   key.Binding
	TransposeDown key.Binding
	Launch        key.Binding
	NextSlot      key.Binding
	StopSlot      key.Binding
	MuteSlot      key.Binding
	Play          key.Binding
	TempoUp       key.Binding
	TempoDown     key.Binding
	Save          key.Binding
	Reload        key.Binding
	Clear         key.Binding
	Help          key.Binding
	Quit          key.Binding
	Confirm       key.Binding
	Cancel        key.Binding
}

func bind(help string, ks ...string) key.Binding {
	return key.NewBinding(key.WithKeys(ks...), key.WithHelp(ks[0], help))
}

var keys = keyMap{
	Up:            bind("up", "k", "up"),
	Down:          bind("down", "j", "down"),
	NewMidi:       bind("new midi", "n"),
	NewAudio:      bind("new audio", "a"),
	Clone:         bind("clone", "c"),
	Delete:        bind("delete", "d"),
	Rename:        bind("rename", "r"),
	InsertNote:    bind("add note", "i"),
	RemoveNote:    bind("drop note", "backspace"),
	Longer:        bind("longer", "]"),
	Shorter:       bind("shorter", "["),
	TransposeUp:   bind("transpose up", "t"),
	TransposeDown: bind("transpose down", "T"),
	Launch: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"),
		key.WithHelp("1-8", "launch in slot"),
	),
	NextSlot:  bind("next slot", "tab"),
	StopSlot:  bind("stop slot", "x"),
	MuteSlot:  bind("mute slot", "m"),
	Play:      bind("play/stop", "p"),
	TempoUp:   bind("tempo +5", "+", "="),
	TempoDown: bind("tempo -5", "-", "_"),
	Save:      bind("save", "s"),
	Reload:    bind("load latest", "L"),
	Clear:     bind("clear pool", "X"),
	Help:      bind("help", "?"),
	Quit:      bind("quit", "q", "ctrl+c"),
	Confirm:   bind("confirm", "enter"),
	Cancel:    bind("cancel", "esc"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewMidi, k.InsertNote, k.Launch, k.Play, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NewMidi, k.NewAudio, k.Clone, k.Delete, k.Rename},
		{k.InsertNote, k.RemoveNote, k.Longer, k.Shorter, k.TransposeUp, k.TransposeDown},
		{k.Launch, k.NextSlot, k.StopSlot, k.MuteSlot, k.Play, k.TempoUp, k.TempoDown},
		{k.Save, k.Reload, k.Clear, k.Help, k.Quit},
	}
}
