package pattern

// Listing is a point-in-time set of snapshots ordered by id.
type Listing struct {
	items []Snapshot
}

func (l Listing) Len() int {
	return len(l.items)
}

func (l Listing) At(i int) Snapshot {
	return l.items[i]
}

// IDs returns the listed ids in order.
func (l Listing) IDs() []ID {
	ids := make([]ID, len(l.items))
	for i, s := range l.items {
		ids[i] = s.ID()
	}
	return ids
}

// Find returns the listed snapshot for id.
func (l Listing) Find(id ID) (Snapshot, bool) {
	for _, s := range l.items {
		if s.ID() == id {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Each calls fn for every snapshot until fn returns false.
func (l Listing) Each(fn func(Snapshot) bool) {
	for _, s := range l.items {
		if !fn(s) {
			return
		}
	}
}

// Release releases every snapshot in the listing.
func (l Listing) Release() {
	for _, s := range l.items {
		s.Release()
	}
}
