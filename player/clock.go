package player

import (
	"sync"
	"time"

	"go-pattern/midi"
)

// Clock maps wall time to transport ticks at a tempo. Tempo changes keep
// the current position and only affect time after the change.
type Clock struct {
	mu    sync.Mutex
	t0    time.Time
	tick0 int64
	tempo float64
	now   func() time.Time
}

// NewClock creates a stopped clock at tick 0.
func NewClock(tempo float64) *Clock {
	return &Clock{tempo: tempo, now: time.Now}
}

// Start anchors tick 0 at the current time.
func (c *Clock) Start() {
	c.mu.Lock()
	c.t0 = c.now()
	c.tick0 = 0
	c.mu.Unlock()
}

// Tempo returns the current BPM.
func (c *Clock) Tempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempo
}

// SetTempo changes the BPM from now on.
func (c *Clock) SetTempo(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.tick0 = c.tickAt(now)
	c.t0 = now
	c.tempo = bpm
}

// Now returns the current transport tick.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickAt(c.now())
}

// TimeOf returns the wall time at which tick plays.
func (c *Clock) TimeOf(tick int64) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	beats := midi.TicksToBeats(tick - c.tick0)
	return c.t0.Add(time.Duration(beats * 60 / c.tempo * float64(time.Second)))
}

// Ticks converts a duration to ticks at the current tempo.
func (c *Clock) Ticks(d time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return midi.BeatsToTicks(d.Seconds() * c.tempo / 60)
}

func (c *Clock) tickAt(t time.Time) int64 {
	beats := t.Sub(c.t0).Seconds() * c.tempo / 60
	return c.tick0 + int64(beats*midi.PPQ)
}
