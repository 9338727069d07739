// Package player plays pattern snapshots through a set of launch slots.
//
// Render runs on the audio goroutine. It reads the pool only through
// snapshots, swaps them at bar boundaries and writes into a caller buffer,
// so it never allocates, logs or blocks on an editor.
package player

import (
	"slices"
	"sync/atomic"

	"go-pattern/midi"
	"go-pattern/pattern"
)

// NumSlots is the number of launch slots.
const NumSlots = 8

// maxHeld bounds the notes a slot can hold open at once.
const maxHeld = 128

// AutoChannel plays each note on its own channel.
const AutoChannel = -1

// Options configures a Player.
type Options struct {
	BeatsPerBar int // bar length for launch quantization, defaults to 4
}

type heldNote struct {
	channel uint8
	note    uint8
	end     int64
}

type slot struct {
	// Shared with editors.
	pending atomic.Uint64 // pattern id to launch at the next bar
	stop    atomic.Bool   // stop at the next bar
	playing atomic.Uint64 // pattern id currently sounding
	anchor  atomic.Int64  // tick at which the current pattern started
	muted   atomic.Bool
	channel atomic.Int32

	// Owned by the audio goroutine.
	snap    pattern.Snapshot
	length  int64
	held    [maxHeld]heldNote
	numHeld int
	wasMute bool
}

// Player renders the patterns assigned to its slots.
type Player struct {
	pool       *pattern.Pool
	barTicks   int64
	slots      [NumSlots]slot
	overflows  atomic.Uint64
	switches   atomic.Uint64
	refreshes  atomic.Uint64
	renderedTo atomic.Int64
}

// New creates a player reading from pool.
func New(pool *pattern.Pool, opts Options) *Player {
	if opts.BeatsPerBar <= 0 {
		opts.BeatsPerBar = 4
	}
	p := &Player{
		pool:     pool,
		barTicks: int64(opts.BeatsPerBar) * midi.PPQ,
	}
	for i := range p.slots {
		p.slots[i].channel.Store(AutoChannel)
	}
	return p
}

// Launch queues id to start on slot at the next bar boundary. Launching
// pattern.NoID stops the slot there instead.
func (p *Player) Launch(slot int, id pattern.ID) {
	s := &p.slots[slot]
	if id == pattern.NoID {
		s.stop.Store(true)
		s.pending.Store(0)
		return
	}
	s.stop.Store(false)
	s.pending.Store(uint64(id))
}

// SetMuted silences a slot without unloading it.
func (p *Player) SetMuted(slot int, muted bool) {
	p.slots[slot].muted.Store(muted)
}

// SetChannel forces every note of a slot onto channel, or AutoChannel.
func (p *Player) SetChannel(slot, channel int) {
	p.slots[slot].channel.Store(int32(channel))
}

// Slot reports what a slot is playing and what it will play next.
func (p *Player) Slot(slot int) (playing, pending pattern.ID, muted bool) {
	s := &p.slots[slot]
	return pattern.ID(s.playing.Load()), pattern.ID(s.pending.Load()), s.muted.Load()
}

// Position returns the tick offset into the pattern playing on slot at
// tick, or false if the slot is idle.
func (p *Player) Position(slot int, tick int64) (offset, length int64, ok bool) {
	s := &p.slots[slot]
	if s.playing.Load() == 0 {
		return 0, 0, false
	}
	id := pattern.ID(s.playing.Load())
	length = midi.BeatsToTicks(lengthOf(p.pool, id))
	if length <= 0 {
		return 0, 0, false
	}
	rel := tick - s.anchor.Load()
	return ((rel % length) + length) % length, length, true
}

func lengthOf(pool *pattern.Pool, id pattern.ID) float64 {
	snap, ok := pool.Snapshot(id)
	if !ok {
		return 0
	}
	defer snap.Release()
	return snap.LengthBeats()
}

// Stats are player counters.
type Stats struct {
	Overflows  uint64 // events dropped because a buffer or slot was full
	Switches   uint64 // launches and stops applied at bar boundaries
	Refreshes  uint64 // stale snapshots replaced at bar boundaries
	RenderedTo int64  // end tick of the last render
}

func (p *Player) Stats() Stats {
	return Stats{
		Overflows:  p.overflows.Load(),
		Switches:   p.switches.Load(),
		Refreshes:  p.refreshes.Load(),
		RenderedTo: p.renderedTo.Load(),
	}
}

// Render appends the events in ticks [from, to) to buf and returns it. It
// never grows buf; events that do not fit are dropped and counted. Windows
// must be rendered in order without gaps.
func (p *Player) Render(from, to int64, buf []midi.Event) []midi.Event {
	for i := range p.slots {
		s := &p.slots[i]
		start := from
		for start < to {
			bar := p.nextBar(start)
			if bar == start {
				buf = p.atBar(i, s, start, buf)
				bar = start + p.barTicks
			}
			end := min(bar, to)
			buf = p.play(i, s, start, end, buf)
			start = end
		}
	}
	slices.SortStableFunc(buf, midi.Compare)
	p.renderedTo.Store(to)
	return buf
}

// Silence releases every held note at tick and unloads all slots.
func (p *Player) Silence(tick int64, buf []midi.Event) []midi.Event {
	for i := range p.slots {
		s := &p.slots[i]
		buf = p.releaseAll(i, s, tick, buf)
		p.unload(s)
		s.pending.Store(0)
		s.stop.Store(false)
	}
	return buf
}

// nextBar returns the first bar boundary at or after tick.
func (p *Player) nextBar(tick int64) int64 {
	r := ((tick % p.barTicks) + p.barTicks) % p.barTicks
	if r == 0 {
		return tick
	}
	return tick + p.barTicks - r
}

// atBar applies queued launches and refreshes stale snapshots.
func (p *Player) atBar(idx int, s *slot, tick int64, buf []midi.Event) []midi.Event {
	if s.stop.Swap(false) {
		buf = p.releaseAll(idx, s, tick, buf)
		p.unload(s)
		p.switches.Add(1)
		return buf
	}

	if next := pattern.ID(s.pending.Swap(0)); next != pattern.NoID {
		buf = p.releaseAll(idx, s, tick, buf)
		p.unload(s)
		p.switches.Add(1)
		if snap, ok := p.pool.Snapshot(next); ok {
			p.load(s, snap, tick)
		}
		return buf
	}

	if !s.snap.Valid() {
		return buf
	}
	id := s.snap.ID()
	cur := p.pool.Version(id)
	switch {
	case cur == 0:
		// Removed from the pool: stop here.
		buf = p.releaseAll(idx, s, tick, buf)
		p.unload(s)
	case cur != s.snap.Version():
		if snap, ok := p.pool.Snapshot(id); ok {
			s.snap.Release()
			s.snap = snap
			s.length = midi.BeatsToTicks(snap.LengthBeats())
			p.refreshes.Add(1)
		}
	}
	return buf
}

func (p *Player) load(s *slot, snap pattern.Snapshot, tick int64) {
	s.snap = snap
	s.length = midi.BeatsToTicks(snap.LengthBeats())
	s.anchor.Store(tick)
	s.playing.Store(uint64(snap.ID()))
}

func (p *Player) unload(s *slot) {
	if s.snap.Valid() {
		s.snap.Release()
	}
	s.snap = pattern.Snapshot{}
	s.length = 0
	s.playing.Store(0)
}

// play renders one slot over [from, to), which never crosses a bar.
func (p *Player) play(idx int, s *slot, from, to int64, buf []midi.Event) []midi.Event {
	muted := s.muted.Load()
	if muted && !s.wasMute {
		buf = p.releaseAll(idx, s, from, buf)
	}
	s.wasMute = muted

	if !muted && s.snap.Valid() && s.snap.Kind() == pattern.KindMidi && s.length > 0 {
		buf = p.noteOns(idx, s, from, to, buf)
	}
	return p.noteOffs(idx, s, to, buf)
}

func (p *Player) noteOns(idx int, s *slot, from, to int64, buf []midi.Event) []midi.Event {
	anchor := s.anchor.Load()
	force := s.channel.Load()
	first := floorDiv(from-anchor, s.length)
	last := floorDiv(to-1-anchor, s.length)

	for loop := first; loop <= last; loop++ {
		base := anchor + loop*s.length
		for i := 0; i < s.snap.NoteCount(); i++ {
			n := s.snap.Note(i)
			start := midi.BeatsToTicks(n.Start)
			at := base + start
			if start >= s.length || at >= to {
				// Notes are in start order; the rest of this loop is later.
				break
			}
			if at < from {
				continue
			}
			if s.numHeld == maxHeld {
				p.overflows.Add(1)
				continue
			}
			ch := n.Channel
			if force != AutoChannel {
				ch = uint8(force)
			}
			var ok bool
			buf, ok = p.emit(buf, midi.Event{Tick: at, Type: midi.NoteOn, Channel: ch, Note: n.Pitch, Velocity: n.Velocity, Slot: idx})
			if ok {
				end := base + min(midi.BeatsToTicks(n.End()), s.length)
				s.held[s.numHeld] = heldNote{channel: ch, note: n.Pitch, end: max(end, at+1)}
				s.numHeld++
			}
		}
	}
	return buf
}

// noteOffs releases held notes that end before to.
func (p *Player) noteOffs(idx int, s *slot, to int64, buf []midi.Event) []midi.Event {
	for i := 0; i < s.numHeld; {
		h := s.held[i]
		if h.end >= to {
			i++
			continue
		}
		buf, _ = p.emit(buf, midi.Event{Tick: h.end, Type: midi.NoteOff, Channel: h.channel, Note: h.note, Slot: idx})
		s.numHeld--
		s.held[i] = s.held[s.numHeld]
	}
	return buf
}

func (p *Player) releaseAll(idx int, s *slot, tick int64, buf []midi.Event) []midi.Event {
	for i := 0; i < s.numHeld; i++ {
		h := s.held[i]
		buf, _ = p.emit(buf, midi.Event{Tick: tick, Type: midi.NoteOff, Channel: h.channel, Note: h.note, Slot: idx})
	}
	s.numHeld = 0
	return buf
}

func (p *Player) emit(buf []midi.Event, e midi.Event) ([]midi.Event, bool) {
	if len(buf) == cap(buf) {
		p.overflows.Add(1)
		return buf, false
	}
	return append(buf, e), true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
