package pattern

import (
	"fmt"

	"go-pattern/debug"
)

// Mutator edits a private draft of a pattern. Returning nil commits the
// draft; returning an error discards it. A mutator must not call back into
// the pool for the same id (that deadlocks) and must not keep the draft after
// returning.
type Mutator func(draft *Source) error

// Patch applies fn to the pattern and publishes the result with the version
// incremented by exactly one. It returns the new version.
//
// Unknown ids are a no-op returning (0, nil). A mutator error comes back as a
// *MutatorError; a draft that breaks the record's invariants (non-positive
// length, invalid notes or slice) is refused with ErrInvalidArgument. In both
// cases nothing is published and the version is unchanged. A panic in fn
// propagates with the same guarantee.
//
// Patches on the same id are serialized with each other; snapshots taken
// concurrently observe either the previous or the new record.
func (p *Pool) Patch(id ID, fn Mutator) (Version, error) {
	e := p.lookup(id)
	if e == nil {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.cur.Load()
	draft := cur.copy()

	if err := fn(draft); err != nil {
		p.stats.patchFailures.Add(1)
		debug.Log("patch", "id=%d mutator failed: %v", id, err)
		return 0, &MutatorError{ID: id, Err: err}
	}

	if err := draft.Validate(); err != nil {
		p.stats.patchFailures.Add(1)
		debug.Log("patch", "id=%d refused: %v", id, err)
		return 0, fmt.Errorf("patch pattern %d: %w", id, err)
	}

	// Identity fields are unexported, but a draft could still have been
	// swapped wholesale through *draft = *other.
	draft.id = cur.id
	draft.stats = cur.stats
	if draft.payload.kind != cur.payload.kind {
		p.stats.patchFailures.Add(1)
		return 0, fmt.Errorf("patch pattern %d: %w", id, invalidf("payload kind changed from %s to %s", cur.Kind(), draft.Kind()))
	}

	draft.payload.normalize()
	draft.version = cur.version.Next()
	e.cur.Store(draft)

	p.stats.patched.Add(1)
	debug.LogEvery(100, "patch", "id=%d committed", id)
	return draft.version, nil
}

// Rename sets a pattern's name through Patch.
func (p *Pool) Rename(id ID, name string) (Version, error) {
	return p.Patch(id, func(s *Source) error {
		s.Name = name
		return nil
	})
}

// Resize sets a pattern's length in beats through Patch.
func (p *Pool) Resize(id ID, lengthBeats float64) (Version, error) {
	return p.Patch(id, func(s *Source) error {
		s.LengthBeats = lengthBeats
		return nil
	})
}

// EditNotes runs fn on the MIDI payload of a pattern through Patch. It fails
// with ErrInvalidArgument on an audio pattern.
func (p *Pool) EditNotes(id ID, fn func(*MidiPayload) error) (Version, error) {
	return p.Patch(id, func(s *Source) error {
		m := s.Midi()
		if m == nil {
			return invalidf("pattern %d is not a midi pattern", id)
		}
		return fn(m)
	})
}
