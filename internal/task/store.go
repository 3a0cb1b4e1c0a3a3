package task

import "sort"

// Change records one item whose status differs from the previously stored
// snapshot.
type Change struct {
	UID    string
	Status ItemStatus
}

// Store retains the last-observed item map for the active task and computes
// which items changed between consecutive full snapshots. It is owned by
// the controller's event loop and is not safe for concurrent use.
type Store struct {
	items map[string]Item
	order []string
}

// NewStore returns an empty snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Ready reports whether an item inventory has been materialized.
func (s *Store) Ready() bool {
	return s.items != nil
}

// Materialize seeds the store from the initial inventory and fixes the row
// order: ascending by (GroupKey, Ordinal), with UID as a final tiebreaker
// so the order is total even against a misbehaving server.
func (s *Store) Materialize(items map[string]Item) []Item {
	s.items = make(map[string]Item, len(items))
	s.order = make([]string, 0, len(items))
	for uid, item := range items {
		s.items[uid] = item
		s.order = append(s.order, uid)
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, b := s.items[s.order[i]], s.items[s.order[j]]
		if a.GroupKey != b.GroupKey {
			return a.GroupKey < b.GroupKey
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.UID < b.UID
	})
	return s.Ordered()
}

// Apply diffs a later full snapshot against the stored one and replaces the
// retained copy wholesale. Only items whose status changed are returned; a
// resent identical snapshot yields no changes. Comparison is per key, never
// assuming monotonic status progression.
func (s *Store) Apply(items map[string]Item) []Change {
	if !s.Ready() {
		if len(items) == 0 {
			return nil
		}
		ordered := s.Materialize(items)
		changes := make([]Change, len(ordered))
		for i, item := range ordered {
			changes[i] = Change{UID: item.UID, Status: item.Status}
		}
		return changes
	}

	var changes []Change
	next := make(map[string]Item, len(items))
	for uid, item := range items {
		next[uid] = item
		if prev, ok := s.items[uid]; !ok || prev.Status != item.Status {
			changes = append(changes, Change{UID: uid, Status: item.Status})
		}
	}
	s.items = next

	// Deterministic change order for the renderer.
	sort.Slice(changes, func(i, j int) bool { return changes[i].UID < changes[j].UID })
	return changes
}

// Item returns the stored record for a uid.
func (s *Store) Item(uid string) (Item, bool) {
	item, ok := s.items[uid]
	return item, ok
}

// Ordered returns the stored items in materialized row order. Items that a
// later snapshot dropped keep their slot; rows are never deleted while the
// task is active.
func (s *Store) Ordered() []Item {
	out := make([]Item, 0, len(s.order))
	for _, uid := range s.order {
		if item, ok := s.items[uid]; ok {
			out = append(out, item)
		}
	}
	return out
}

// LoadingCount returns how many items are still pending or processing.
func (s *Store) LoadingCount() int {
	n := 0
	for _, item := range s.items {
		if item.Status.Loading() {
			n++
		}
	}
	return n
}

// Reset clears the inventory. Called when a new submission supersedes the
// task.
func (s *Store) Reset() {
	s.items = nil
	s.order = nil
}
