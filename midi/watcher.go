package midi

import (
	"context"
	"time"

	"go-pattern/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// PortEvent is emitted when an output port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

func (t PortEventType) String() string {
	if t == PortConnected {
		return "connected"
	}
	return "disconnected"
}

// PortWatcher handles hot-plug detection of MIDI output ports
type PortWatcher struct {
	list     func() []string
	output   *Output
	known    map[string]bool
	events   chan PortEvent
	pollRate time.Duration
	timeout  time.Duration
}

// NewPortWatcher creates a watcher over the system output ports. Cached
// senders on out are dropped when their port disconnects; out may be nil.
func NewPortWatcher(out *Output) *PortWatcher {
	return newPortWatcher(out, func() []string {
		var names []string
		for _, p := range gomidi.GetOutPorts() {
			names = append(names, p.String())
		}
		return names
	})
}

func newPortWatcher(out *Output, list func() []string) *PortWatcher {
	return &PortWatcher{
		list:     list,
		output:   out,
		known:    make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		timeout:  3 * time.Second,
	}
}

// Events returns a channel of port connect/disconnect events. It is closed
// when Run returns.
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	// Initial scan
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *PortWatcher) scan(ctx context.Context) {
	ch := make(chan []string, 1)
	go func() {
		ch <- w.list()
	}()

	var names []string
	select {
	case names = <-ch:
	case <-time.After(w.timeout):
		// CoreMIDI is hung - skip this scan
		debug.Log("midi", "port scan timed out")
		return
	case <-ctx.Done():
		return
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
		if !w.known[name] {
			w.known[name] = true
			w.emit(ctx, PortEvent{Type: PortConnected, Name: name})
		}
	}

	// Check for disconnects
	for name := range w.known {
		if seen[name] {
			continue
		}
		delete(w.known, name)
		if w.output != nil {
			w.output.forgetPort(name)
		}
		w.emit(ctx, PortEvent{Type: PortDisconnected, Name: name})
	}
}

func (w *PortWatcher) emit(ctx context.Context, ev PortEvent) {
	debug.Log("midi", "port %s: %q", ev.Type, ev.Name)
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
