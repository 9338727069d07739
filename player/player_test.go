package player

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"go-pattern/midi"
	"go-pattern/pattern"
)

const bar = 4 * midi.PPQ

func newMidi(t *testing.T, pool *pattern.Pool, length float64, notes ...pattern.Note) pattern.ID {
	t.Helper()
	id, err := pool.CreateMidi("p", length, pattern.NewMidiPayload(notes...))
	if err != nil {
		t.Fatalf("CreateMidi: %v", err)
	}
	return id
}

func note(start, dur float64, pitch uint8) pattern.Note {
	return pattern.Note{Start: start, Duration: dur, Pitch: pitch, Velocity: 100}
}

func on(tick int64, pitch uint8) midi.Event {
	return midi.Event{Tick: tick, Type: midi.NoteOn, Note: pitch, Velocity: 100}
}

func off(tick int64, pitch uint8) midi.Event {
	return midi.Event{Tick: tick, Type: midi.NoteOff, Note: pitch}
}

func render(p *Player, from, to int64) []midi.Event {
	return slices.Clone(p.Render(from, to, make([]midi.Event, 0, 256)))
}

func assertEvents(t *testing.T, got, want []midi.Event) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("events:\n got  %+v\n want %+v", got, want)
	}
}

func TestRenderLoopsPattern(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4, note(0, 1, 60))
	p := New(pool, Options{})
	p.Launch(0, id)

	assertEvents(t, render(p, 0, bar), []midi.Event{on(0, 60), off(960, 60)})
	assertEvents(t, render(p, bar, 2*bar), []midi.Event{on(bar, 60), off(bar+960, 60)})

	if playing, pending, _ := p.Slot(0); playing != id || pending != pattern.NoID {
		t.Fatalf("slot = (%d, %d)", playing, pending)
	}
}

func TestRenderIsChunkInvariant(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 3, note(0, 1, 60), note(1.5, 0.5, 64), note(2.5, 2, 67))

	whole := New(pool, Options{})
	whole.Launch(0, id)
	want := render(whole, 0, 4*bar)

	chunked := New(pool, Options{})
	chunked.Launch(0, id)
	var got []midi.Event
	for from := int64(0); from < 4*bar; from += 333 {
		got = append(got, render(chunked, from, min(from+333, 4*bar))...)
	}

	assertEvents(t, got, want)
	if len(want) == 0 {
		t.Fatal("no events rendered")
	}
}

func TestLongNotesAreCutAtLoopEnd(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 2, note(1, 5, 48))
	p := New(pool, Options{})
	p.Launch(0, id)

	assertEvents(t, render(p, 0, bar+1), []midi.Event{
		on(960, 48), off(1920, 48), on(2880, 48), off(3840, 48),
	})
}

func TestPatchTakesEffectAtNextBar(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4, note(0, 1, 60))
	p := New(pool, Options{})
	p.Launch(0, id)

	render(p, 0, bar/2)
	pool.EditNotes(id, func(m *pattern.MidiPayload) error {
		m.Add(note(3, 0.5, 72))
		return nil
	})

	// The rest of the bar still plays the old snapshot.
	assertEvents(t, render(p, bar/2, bar), nil)
	assertEvents(t, render(p, bar, 2*bar), []midi.Event{
		on(bar, 60), off(bar+960, 60), on(bar+2880, 72), off(bar+3360, 72),
	})
	if st := p.Stats(); st.Refreshes != 1 {
		t.Fatalf("refreshes = %d, want 1", st.Refreshes)
	}
}

func TestLaunchSwitchesAtBarAndReleasesHeldNotes(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	a := newMidi(t, pool, 8, note(0, 6, 40))
	b := newMidi(t, pool, 4, note(0, 1, 50))
	p := New(pool, Options{})
	p.Launch(0, a)

	assertEvents(t, render(p, 0, 1000), []midi.Event{on(0, 40)})
	p.Launch(0, b)
	if _, pending, _ := p.Slot(0); pending != b {
		t.Fatalf("pending = %d, want %d", pending, b)
	}

	assertEvents(t, render(p, 1000, 2*bar), []midi.Event{
		off(bar, 40), on(bar, 50), off(bar+960, 50),
	})
	if playing, _, _ := p.Slot(0); playing != b {
		t.Fatalf("playing = %d, want %d", playing, b)
	}
}

func TestStopAndRemoval(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	a := newMidi(t, pool, 8, note(0, 8, 40))
	b := newMidi(t, pool, 8, note(0, 8, 41))
	p := New(pool, Options{})
	p.Launch(0, a)
	p.Launch(1, b)
	render(p, 0, bar/2)

	p.Launch(0, pattern.NoID)
	pool.Remove(b)

	got := render(p, bar/2, 2*bar)
	assertEvents(t, got, []midi.Event{
		{Tick: bar, Type: midi.NoteOff, Note: 40},
		{Tick: bar, Type: midi.NoteOff, Note: 41, Slot: 1},
	})
	for i := 0; i < 2; i++ {
		if playing, _, _ := p.Slot(i); playing != pattern.NoID {
			t.Fatalf("slot %d still playing %d", i, playing)
		}
	}
	if st := pool.Stats(); st.Holders != 0 {
		t.Fatalf("player leaked %d snapshots", st.Holders)
	}
}

func TestMuteAndChannelOverride(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4, note(0, 2, 60), note(2, 1, 62))
	p := New(pool, Options{})
	p.Launch(0, id)
	p.SetChannel(0, 9)

	got := render(p, 0, 480)
	assertEvents(t, got, []midi.Event{{Tick: 0, Type: midi.NoteOn, Channel: 9, Note: 60, Velocity: 100}})

	p.SetMuted(0, true)
	got = render(p, 480, bar)
	assertEvents(t, got, []midi.Event{{Tick: 480, Type: midi.NoteOff, Channel: 9, Note: 60}})
}

func TestRenderDropsOnFullBuffer(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4, note(0, 1, 60), note(0, 1, 64), note(0, 1, 67))
	p := New(pool, Options{})
	p.Launch(0, id)

	got := p.Render(0, bar, make([]midi.Event, 0, 2))
	if len(got) != 2 || cap(got) != 2 {
		t.Fatalf("len=%d cap=%d", len(got), cap(got))
	}
	if st := p.Stats(); st.Overflows == 0 {
		t.Fatal("overflow not counted")
	}
}

func TestAudioPatternsRenderNothing(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id, _ := pool.CreateAudio("loop", 4, pattern.AudioSlicePayload{Asset: pattern.NewAssetID(), Length: 100})
	p := New(pool, Options{})
	p.Launch(0, id)

	assertEvents(t, render(p, 0, 2*bar), nil)
	if playing, _, _ := p.Slot(0); playing != id {
		t.Fatalf("audio slot not loaded: %d", playing)
	}
}

func TestRenderDoesNotAllocate(t *testing.T) {
	if raceEnabled {
		t.Skip("allocation counts are unreliable under the race detector")
	}
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4, note(0, 1, 60), note(1, 1, 62), note(2, 1, 64))
	p := New(pool, Options{})
	p.Launch(0, id)
	p.Launch(1, id)

	buf := make([]midi.Event, 0, 64)
	var tick int64
	allocs := testing.AllocsPerRun(200, func() {
		buf = p.Render(tick, tick+480, buf[:0])
		tick += 480
		if tick%(2*bar) == 0 {
			pool.Rename(id, "edited")
		}
	})
	// Rename allocates its draft; Render must add nothing on top.
	if allocs > 3 {
		t.Fatalf("Render allocates: %.1f allocs per run", allocs)
	}
}

func TestRecorderCommitsReleasedNotes(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	id := newMidi(t, pool, 4)
	p := New(pool, Options{})
	p.Launch(0, id)
	render(p, 0, 10)

	r := NewRecorder(pool, p, 0)
	r.Capture(midi.NoteEvent{Note: 65, Velocity: 90, Channel: 2}, bar+960)
	r.Capture(midi.NoteEvent{Note: 65}, bar+1440)
	r.Capture(midi.NoteEvent{Note: 70}, bar+1500) // release without press

	s, _ := pool.Snapshot(id)
	defer s.Release()
	if s.Version() != 2 || s.NoteCount() != 1 {
		t.Fatalf("version=%d notes=%d", s.Version(), s.NoteCount())
	}
	want := pattern.Note{Start: 1, Duration: 0.5, Pitch: 65, Velocity: 90, Channel: 2}
	if got := s.Note(0); got != want {
		t.Fatalf("note = %+v, want %+v", got, want)
	}
}

func TestRecorderIgnoresIdleSlot(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{})
	p := New(pool, Options{})
	r := NewRecorder(pool, p, 3)
	r.Capture(midi.NoteEvent{Note: 60, Velocity: 1}, 0)
	r.Capture(midi.NoteEvent{Note: 60}, 100)
	if st := pool.Stats(); st.Patched != 0 {
		t.Fatalf("patched = %d", st.Patched)
	}
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestClockTempoChangeKeepsPosition(t *testing.T) {
	f := &fakeNow{t: time.Unix(0, 0)}
	c := NewClock(120)
	c.now = f.now
	c.Start()

	f.advance(time.Second) // two beats at 120
	if got := c.Now(); got != 2*midi.PPQ {
		t.Fatalf("tick = %d, want %d", got, 2*midi.PPQ)
	}

	c.SetTempo(60)
	f.advance(time.Second) // one beat at 60
	if got := c.Now(); got != 3*midi.PPQ {
		t.Fatalf("tick after tempo change = %d, want %d", got, 3*midi.PPQ)
	}
	if got := c.TimeOf(4 * midi.PPQ); !got.Equal(time.Unix(3, 0)) {
		t.Fatalf("TimeOf = %v", got)
	}
	if got := c.Ticks(500 * time.Millisecond); got != midi.PPQ/2 {
		t.Fatalf("Ticks = %d", got)
	}
}

type recordSink struct {
	mu     sync.Mutex
	events []midi.Event
}

func (r *recordSink) Send(e midi.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func TestRunSendsAndReleases(t *testing.T) {
	pool := pattern.NewPool(pattern.Options{StrictRoles: true})
	id := newMidi(t, pool, 1, note(0, 0.5, 60))
	p := New(pool, Options{BeatsPerBar: 1})
	p.Launch(0, id)

	sink := &recordSink{}
	clock := NewClock(1200) // 50ms per beat
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, clock, sink, 20*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	if !pool.AudioRoleActive() || pool.Get(id) != nil {
		t.Error("audio role not claimed while running")
	}

	if err := <-done; err != context.DeadlineExceeded {
		t.Fatalf("Run = %v", err)
	}
	if pool.AudioRoleActive() {
		t.Fatal("audio role still active")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var ons, offs int
	for _, e := range sink.events {
		switch e.Type {
		case midi.NoteOn:
			ons++
		case midi.NoteOff:
			offs++
		}
	}
	if ons == 0 || ons != offs {
		t.Fatalf("ons=%d offs=%d", ons, offs)
	}
	if st := pool.Stats(); st.Holders != 0 {
		t.Fatalf("holders = %d after Run", st.Holders)
	}
}
