// Package pattern is the thread-safe pattern repository shared by the editor
// and the audio goroutine.
//
// Records are published copy-on-write: every pool entry holds an atomic
// pointer to an immutable Source, and Patch swaps in a new record. Readers
// take a Snapshot under a short read lock and then read it without any
// further synchronization.
package pattern

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go-pattern/debug"
)

// Options configures a Pool.
type Options struct {
	// StrictRoles refuses Get while the audio role is active.
	StrictRoles bool
}

// Pool owns patterns keyed by ID.
type Pool struct {
	mu      sync.RWMutex // guards entries and id resets
	entries map[ID]*entry
	ids     idAllocator

	opts      Options
	audioRole atomic.Bool
	stats     *poolStats
}

// entry is one pattern slot. cur always points at a published record.
type entry struct {
	mu  sync.Mutex // serializes patches on this id
	cur atomic.Pointer[Source]
}

// NewPool creates an empty pool whose first id is 1.
func NewPool(opts Options) *Pool {
	p := &Pool{
		entries: make(map[ID]*entry),
		opts:    opts,
		stats:   &poolStats{},
	}
	p.ids.reset()
	return p
}

// CreateMidi adds a MIDI pattern and returns its id.
func (p *Pool) CreateMidi(name string, lengthBeats float64, payload MidiPayload) (ID, error) {
	return p.insert(newSource(name, lengthBeats, MidiOf(payload)), "create")
}

// CreateAudio adds an audio slice pattern and returns its id.
func (p *Pool) CreateAudio(name string, lengthBeats float64, payload AudioSlicePayload) (ID, error) {
	return p.insert(newSource(name, lengthBeats, AudioOf(payload)), "create")
}

// CreateFrom adds a copy of a detached source (name, length, color, routing
// and payload) as a new pattern at InitialVersion. Used when rebuilding a
// pool from a saved project.
func (p *Pool) CreateFrom(src *Source) (ID, error) {
	if src == nil {
		return NoID, invalidf("nil source")
	}
	if err := src.Validate(); err != nil {
		return NoID, fmt.Errorf("create pattern %q: %w", src.Name, err)
	}
	return p.insert(src.Clone(), "create")
}

// insert validates rec, assigns it an id and publishes it. rec must not be
// shared with the caller.
func (p *Pool) insert(rec *Source, op string) (ID, error) {
	if err := rec.Validate(); err != nil {
		return NoID, fmt.Errorf("%s %s pattern %q: %w", op, rec.Kind(), rec.Name, err)
	}
	rec.payload.normalize()
	rec.version = InitialVersion
	rec.stats = p.stats

	e := &entry{}

	p.mu.Lock()
	rec.id = p.ids.allocate()
	e.cur.Store(rec)
	p.entries[rec.id] = e
	p.mu.Unlock()

	if op == "clone" {
		p.stats.cloned.Add(1)
	} else {
		p.stats.created.Add(1)
	}
	debug.Log("pool", "%s id=%d kind=%s name=%q length=%g", op, rec.id, rec.Kind(), rec.Name, rec.LengthBeats)
	return rec.id, nil
}

// Clone copies an existing pattern under a new id with InitialVersion. The
// name is copied verbatim. Returns NoID if id is unknown.
func (p *Pool) Clone(id ID) ID {
	e := p.lookup(id)
	if e == nil {
		return NoID
	}
	// Copy outside the pool lock; the published record is immutable.
	rec := e.cur.Load().copy()
	newID, err := p.insert(rec, "clone")
	if err != nil {
		// Published records always validate.
		panic(fmt.Sprintf("pattern: clone of %d: %v", id, err))
	}
	return newID
}

// Remove deletes a pattern. Snapshots already handed out stay valid. Unknown
// ids are ignored.
func (p *Pool) Remove(id ID) {
	p.mu.Lock()
	_, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()

	if ok {
		p.stats.removed.Add(1)
		debug.Log("pool", "remove id=%d", id)
	}
}

// Clear drops every pattern and resets the id allocator to 1. Outstanding
// snapshots stay valid, but their ids may be handed out again.
func (p *Pool) Clear() {
	p.mu.Lock()
	n := len(p.entries)
	p.entries = make(map[ID]*entry)
	p.ids.reset()
	p.mu.Unlock()

	p.stats.clears.Add(1)
	debug.Log("pool", "clear dropped=%d holders=%d", n, p.stats.holders.Load())
}

// Get returns the live record for id, or nil.
//
// Editor-only legacy access: the record is shared with every outstanding
// snapshot, writes through it do not bump the version, and the caller must
// not race with other mutators. Use Patch instead. With StrictRoles set, Get
// refuses while the audio role is active.
func (p *Pool) Get(id ID) *Source {
	if p.opts.StrictRoles && p.audioRole.Load() {
		debug.Log("pool", "get id=%d refused: audio role active", id)
		return nil
	}
	e := p.lookup(id)
	if e == nil {
		return nil
	}
	return e.cur.Load()
}

// Snapshot returns a read-only handle to the current record for id. The
// handle stays valid across later patches, removal and Clear. It does not
// allocate and holds the pool lock only for the map lookup.
func (p *Pool) Snapshot(id ID) (Snapshot, bool) {
	p.mu.RLock()
	e := p.entries[id]
	var src *Source
	if e != nil {
		src = e.cur.Load()
	}
	p.mu.RUnlock()

	if src == nil {
		return Snapshot{}, false
	}
	p.stats.acquire(1)
	return Snapshot{src: src}, true
}

// List returns snapshots of every pattern present at the call, ordered by id.
func (p *Pool) List() Listing {
	p.mu.RLock()
	items := make([]Snapshot, 0, len(p.entries))
	for _, e := range p.entries {
		items = append(items, Snapshot{src: e.cur.Load()})
	}
	p.mu.RUnlock()

	p.stats.acquire(len(items))
	slices.SortFunc(items, func(a, b Snapshot) int {
		switch {
		case a.src.id < b.src.id:
			return -1
		case a.src.id > b.src.id:
			return 1
		}
		return 0
	})
	return Listing{items: items}
}

// Len returns the number of patterns.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Contains reports whether id is in the pool.
func (p *Pool) Contains(id ID) bool {
	return p.lookup(id) != nil
}

// Version returns the current version of id, or 0 if unknown.
func (p *Pool) Version(id ID) Version {
	e := p.lookup(id)
	if e == nil {
		return 0
	}
	return e.cur.Load().version
}

// EnterAudioRole marks the audio goroutine as running.
func (p *Pool) EnterAudioRole() {
	p.audioRole.Store(true)
}

// LeaveAudioRole marks the audio goroutine as stopped.
func (p *Pool) LeaveAudioRole() {
	p.audioRole.Store(false)
}

// AudioRoleActive reports whether the audio goroutine is running.
func (p *Pool) AudioRoleActive() bool {
	return p.audioRole.Load()
}

// Stats returns the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	n := len(p.entries)
	next := p.ids.peek()
	p.mu.RUnlock()

	return Stats{
		Patterns:      n,
		NextID:        next,
		Created:       p.stats.created.Load(),
		Cloned:        p.stats.cloned.Load(),
		Removed:       p.stats.removed.Load(),
		Patched:       p.stats.patched.Load(),
		PatchFailures: p.stats.patchFailures.Load(),
		Clears:        p.stats.clears.Load(),
		Holders:       p.stats.holders.Load(),
	}
}

func (p *Pool) lookup(id ID) *entry {
	p.mu.RLock()
	e := p.entries[id]
	p.mu.RUnlock()
	return e
}
