package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-pattern/debug"
	"go-pattern/midi"
	"go-pattern/pattern"
	"go-pattern/player"
)

// transport owns the player's Run goroutine. Stopping remembers what each
// slot was playing so the next start relaunches it from the top.
type transport struct {
	mu        sync.Mutex
	parent    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	player    *player.Player
	clock     *player.Clock
	out       midi.Sink
	lookahead time.Duration
	resume    [player.NumSlots]pattern.ID
}

func newTransport(ctx context.Context, p *player.Player, clock *player.Clock, out midi.Sink, lookahead time.Duration) *transport {
	return &transport{parent: ctx, player: p, clock: clock, out: out, lookahead: lookahead}
}

func (t *transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *transport) Toggle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.stopLocked()
		return
	}

	for i, id := range t.resume {
		if id != pattern.NoID {
			t.player.Launch(i, id)
		}
	}
	ctx, cancel := context.WithCancel(t.parent)
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go func() {
		defer close(done)
		if err := t.player.Run(ctx, t.clock, t.out, t.lookahead); err != nil && !errors.Is(err, context.Canceled) {
			debug.Log("transport", "player stopped: %v", err)
		}
	}()
}

// Stop halts playback and waits for every note-off to be sent.
func (t *transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.stopLocked()
	}
}

func (t *transport) stopLocked() {
	for i := range t.resume {
		playing, pending, _ := t.player.Slot(i)
		if pending != pattern.NoID {
			playing = pending
		}
		t.resume[i] = playing
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}
