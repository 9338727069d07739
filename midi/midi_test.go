package midi

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"go-pattern/pattern"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"
)

func snapshotOf(t *testing.T, length float64, notes ...pattern.Note) pattern.Snapshot {
	t.Helper()
	p := pattern.NewPool(pattern.Options{})
	id, err := p.CreateMidi("clip", length, pattern.NewMidiPayload(notes...))
	if err != nil {
		t.Fatalf("CreateMidi: %v", err)
	}
	s, ok := p.Snapshot(id)
	if !ok {
		t.Fatal("snapshot missing")
	}
	t.Cleanup(s.Release)
	return s
}

func TestCompareReleasesBeforeRetrigger(t *testing.T) {
	events := []Event{
		{Tick: 10, Type: NoteOn, Note: 60},
		{Tick: 10, Type: NoteOff, Note: 60},
		{Tick: 5, Type: NoteOn, Note: 62},
	}
	slices.SortStableFunc(events, Compare)

	if events[0].Tick != 5 || events[1].Type != NoteOff || events[2].Type != NoteOn {
		t.Fatalf("order = %+v", events)
	}
}

func TestBeatTickConversion(t *testing.T) {
	if BeatsToTicks(1.5) != 1440 {
		t.Fatalf("BeatsToTicks(1.5) = %d", BeatsToTicks(1.5))
	}
	if TicksToBeats(480) != 0.5 {
		t.Fatalf("TicksToBeats(480) = %g", TicksToBeats(480))
	}
}

func TestEventMessage(t *testing.T) {
	var ch, key, vel uint8
	msg := Event{Type: NoteOn, Channel: 2, Note: 64, Velocity: 0}.Message()
	if !msg.GetNoteOn(&ch, &key, &vel) || ch != 2 || key != 64 || vel != 1 {
		t.Fatalf("note on = %v (ch=%d key=%d vel=%d)", msg, ch, key, vel)
	}
	if (Event{Type: 0x42}).Message() != nil {
		t.Fatal("unknown type should have no message")
	}
}

func TestPatternEventsLoopsAndCutsAtEnd(t *testing.T) {
	s := snapshotOf(t, 2,
		pattern.Note{Start: 0, Duration: 1, Pitch: 60, Velocity: 90},
		pattern.Note{Start: 1.5, Duration: 4, Pitch: 67, Velocity: 80, Channel: 9},
	)

	events, err := PatternEvents(s, 2)
	if err != nil {
		t.Fatalf("PatternEvents: %v", err)
	}
	if len(events) != 8 {
		t.Fatalf("got %d events, want 8", len(events))
	}
	want := []Event{
		{Tick: 0, Type: NoteOn, Note: 60, Velocity: 90},
		{Tick: 960, Type: NoteOff, Note: 60},
		{Tick: 1440, Type: NoteOn, Channel: 9, Note: 67, Velocity: 80},
		{Tick: 1920, Type: NoteOff, Channel: 9, Note: 67},
		{Tick: 1920, Type: NoteOn, Note: 60, Velocity: 90},
	}
	for i, w := range want {
		if events[i] != w {
			t.Fatalf("event %d = %+v, want %+v", i, events[i], w)
		}
	}
	if last := events[len(events)-1]; last.Tick != 3840 || last.Type != NoteOff {
		t.Fatalf("last event = %+v", last)
	}
}

func TestPatternEventsRejectsAudio(t *testing.T) {
	p := pattern.NewPool(pattern.Options{})
	id, _ := p.CreateAudio("a", 4, pattern.AudioSlicePayload{Asset: pattern.NewAssetID(), Length: 10})
	s, _ := p.Snapshot(id)
	defer s.Release()

	if _, err := PatternEvents(s, 1); err == nil {
		t.Fatal("expected error for audio pattern")
	}
	if err := WriteSMF(&bytes.Buffer{}, s, SMFOptions{}); err == nil {
		t.Fatal("expected error for audio pattern")
	}
}

func TestWriteSMFRoundTrip(t *testing.T) {
	s := snapshotOf(t, 4,
		pattern.Note{Start: 0, Duration: 1, Pitch: 36, Velocity: 100},
		pattern.Note{Start: 2, Duration: 0.5, Pitch: 38, Velocity: 70},
	)

	var buf bytes.Buffer
	if err := WriteSMF(&buf, s, SMFOptions{Tempo: 90}); err != nil {
		t.Fatalf("WriteSMF: %v", err)
	}

	file, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(file.Tracks) != 1 {
		t.Fatalf("tracks = %d", len(file.Tracks))
	}

	var (
		tick    int64
		ons     []int64
		tempo   float64
		ch, key uint8
		vel     uint8
	)
	for _, ev := range file.Tracks[0] {
		tick += int64(ev.Delta)
		var bpm float64
		if ev.Message.GetMetaTempo(&bpm) {
			tempo = bpm
		}
		if gomidi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
			ons = append(ons, tick)
		}
	}
	if tempo != 90 {
		t.Fatalf("tempo = %g", tempo)
	}
	if !slices.Equal(ons, []int64{0, 1920}) {
		t.Fatalf("note-on ticks = %v", ons)
	}
	if tick != 4*PPQ {
		t.Fatalf("track length = %d ticks, want %d", tick, 4*PPQ)
	}
}

func TestOutputMissingPort(t *testing.T) {
	o := NewOutput("nowhere")
	o.ports = func() []drivers.Out { return nil }

	err := o.Send(Event{Type: NoteOn, Note: 60, Velocity: 1})
	if !errors.Is(err, ErrNoPort) {
		t.Fatalf("err = %v, want ErrNoPort", err)
	}
	if err := o.Send(Event{Type: 0x42}); err == nil || errors.Is(err, ErrNoPort) {
		t.Fatalf("unsupported type err = %v", err)
	}
}

func TestOutputForgetPort(t *testing.T) {
	o := NewOutput("")
	o.senders["synth"] = func(gomidi.Message) error { return nil }
	o.opened["synth"] = "Synth Port 1"
	o.senders["other"] = func(gomidi.Message) error { return nil }
	o.opened["other"] = "Other"

	o.forgetPort("Synth Port 1")
	if _, ok := o.senders["synth"]; ok {
		t.Fatal("sender for vanished port kept")
	}
	if _, ok := o.senders["other"]; !ok {
		t.Fatal("unrelated sender dropped")
	}
}

func TestPortWatcherEvents(t *testing.T) {
	var mu sync.Mutex
	ports := []string{"A"}
	w := newPortWatcher(nil, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(ports)
	})
	w.pollRate = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	next := func() PortEvent {
		t.Helper()
		select {
		case ev := <-w.Events():
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for port event")
		}
		return PortEvent{}
	}

	if ev := next(); ev != (PortEvent{Type: PortConnected, Name: "A"}) {
		t.Fatalf("first event = %+v", ev)
	}

	mu.Lock()
	ports = []string{"B"}
	mu.Unlock()

	got := map[PortEvent]bool{next(): true, next(): true}
	if !got[PortEvent{Type: PortConnected, Name: "B"}] || !got[PortEvent{Type: PortDisconnected, Name: "A"}] {
		t.Fatalf("events = %v", got)
	}

	cancel()
	for range w.Events() {
	}
}
