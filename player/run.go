package player

import (
	"context"
	"runtime"
	"time"

	"go-pattern/debug"
	"go-pattern/midi"
)

// DefaultLookahead is how far ahead of the clock events are rendered.
const DefaultLookahead = 100 * time.Millisecond

// eventBufferSize bounds the events rendered per pass.
const eventBufferSize = 1024

// Run renders ahead of clock and sends each event to out at its play time.
// It claims the pool's audio role until ctx is done, then releases every
// held note. Send errors are logged and do not stop playback.
func (p *Player) Run(ctx context.Context, clock *Clock, out midi.Sink, lookahead time.Duration) error {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.pool.EnterAudioRole()
	defer p.pool.LeaveAudioRole()

	buf := make([]midi.Event, 0, eventBufferSize)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	clock.Start()
	var rendered int64
	debug.Log("player", "run tempo=%.1f lookahead=%s", clock.Tempo(), lookahead)

	for {
		target := clock.Now() + clock.Ticks(lookahead)
		if target > rendered {
			buf = p.Render(rendered, target, buf[:0])
			rendered = target
			for i, e := range buf {
				if !wait(ctx, timer, time.Until(clock.TimeOf(e.Tick))) {
					p.shutdown(clock, out, buf, buf[i:])
					return ctx.Err()
				}
				if err := out.Send(e); err != nil {
					debug.LogEvery(100, "player", "send: %v", err)
				}
			}
		}
		if !wait(ctx, timer, lookahead/4) {
			p.shutdown(clock, out, buf, nil)
			return ctx.Err()
		}
	}
}

// shutdown sends the note-offs still queued in unsent, then releases every
// note the slots hold.
func (p *Player) shutdown(clock *Clock, out midi.Sink, buf, unsent []midi.Event) {
	for _, e := range unsent {
		if e.Type == midi.NoteOff {
			out.Send(e)
		}
	}
	buf = p.Silence(clock.Now(), buf[:0])
	for _, e := range buf {
		out.Send(e)
	}
	debug.Log("player", "stopped, released %d notes", len(buf))
}

// wait sleeps for d on timer; false means ctx ended first.
func wait(ctx context.Context, timer *time.Timer, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer.Reset(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
