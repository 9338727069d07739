package player

import (
	"go-pattern/debug"
	"go-pattern/midi"
	"go-pattern/pattern"
)

// Recorder captures keyboard notes into the pattern playing on a slot.
// Notes are committed through Pool.Patch when released, so every recorded
// note is one version. Not safe for concurrent use.
type Recorder struct {
	pool   *pattern.Pool
	player *Player
	slot   int
	open   map[uint8]openNote
}

type openNote struct {
	id       pattern.ID
	start    int64 // offset into the pattern
	length   int64
	at       int64 // transport tick of the press
	velocity uint8
	channel  uint8
}

func NewRecorder(pool *pattern.Pool, player *Player, slot int) *Recorder {
	return &Recorder{
		pool:   pool,
		player: player,
		slot:   slot,
		open:   make(map[uint8]openNote),
	}
}

// SetSlot changes the slot recorded into. Notes still held are dropped.
func (r *Recorder) SetSlot(slot int) {
	r.slot = slot
	clear(r.open)
}

// Capture handles one keyboard event at transport tick. A press with no
// pattern playing on the slot is ignored.
func (r *Recorder) Capture(ev midi.NoteEvent, tick int64) {
	if ev.Velocity > 0 {
		offset, length, ok := r.player.Position(r.slot, tick)
		if !ok {
			return
		}
		playing, _, _ := r.player.Slot(r.slot)
		r.open[ev.Note] = openNote{
			id:       playing,
			start:    offset,
			length:   length,
			at:       tick,
			velocity: ev.Velocity,
			channel:  ev.Channel,
		}
		return
	}

	on, ok := r.open[ev.Note]
	if !ok {
		return
	}
	delete(r.open, ev.Note)

	dur := min(max(tick-on.at, 1), on.length-on.start)
	note := pattern.Note{
		Start:    midi.TicksToBeats(on.start),
		Duration: midi.TicksToBeats(max(dur, 1)),
		Pitch:    ev.Note,
		Velocity: on.velocity,
		Channel:  on.channel,
	}
	v, err := r.pool.EditNotes(on.id, func(m *pattern.MidiPayload) error {
		m.Add(note)
		return nil
	})
	if err != nil {
		debug.Log("record", "pattern %d: %v", on.id, err)
		return
	}
	debug.Log("record", "pattern %d %s pitch=%d start=%.3f", on.id, v, note.Pitch, note.Start)
}
