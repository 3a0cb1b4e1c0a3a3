package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory() map[string]Item {
	return map[string]Item{
		"u3": {UID: "u3", GroupKey: "US-2", Ordinal: 1, Status: ItemPending},
		"u1": {UID: "u1", GroupKey: "US-1", Ordinal: 1, Status: ItemPending},
		"u2": {UID: "u2", GroupKey: "US-1", Ordinal: 2, Status: ItemPending},
	}
}

func TestStore_MaterializeOrder(t *testing.T) {
	s := NewStore()

	ordered := s.Materialize(inventory())

	require.Len(t, ordered, 3)
	assert.Equal(t, "u1", ordered[0].UID)
	assert.Equal(t, "u2", ordered[1].UID)
	assert.Equal(t, "u3", ordered[2].UID)
	assert.True(t, s.Ready())
	assert.Equal(t, 3, s.LoadingCount())
}

func TestStore_MaterializeOrder_UIDTiebreak(t *testing.T) {
	s := NewStore()

	ordered := s.Materialize(map[string]Item{
		"b": {UID: "b", GroupKey: "US-1", Ordinal: 1},
		"a": {UID: "a", GroupKey: "US-1", Ordinal: 1},
	})

	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].UID)
	assert.Equal(t, "b", ordered[1].UID)
}

func TestStore_ApplyDiffsOnlyChanged(t *testing.T) {
	s := NewStore()
	s.Materialize(inventory())

	next := inventory()
	item := next["u2"]
	item.Status = ItemCompletedRelevant
	next["u2"] = item

	changes := s.Apply(next)

	require.Len(t, changes, 1)
	assert.Equal(t, Change{UID: "u2", Status: ItemCompletedRelevant}, changes[0])
	assert.Equal(t, 2, s.LoadingCount())

	stored, ok := s.Item("u2")
	require.True(t, ok)
	assert.Equal(t, ItemCompletedRelevant, stored.Status)
}

func TestStore_ApplyIdenticalSnapshotIsNoOp(t *testing.T) {
	s := NewStore()
	s.Materialize(inventory())

	assert.Empty(t, s.Apply(inventory()))
	assert.Empty(t, s.Apply(inventory()), "resending the same snapshot stays a no-op")
}

func TestStore_ApplyNotMonotonic(t *testing.T) {
	s := NewStore()
	s.Materialize(inventory())

	forward := inventory()
	item := forward["u1"]
	item.Status = ItemCompletedRelevant
	forward["u1"] = item
	require.Len(t, s.Apply(forward), 1)

	// A later snapshot may regress a status; the diff is pure comparison.
	changes := s.Apply(inventory())
	require.Len(t, changes, 1)
	assert.Equal(t, Change{UID: "u1", Status: ItemPending}, changes[0])
}

func TestStore_ApplyMaterializesFirstInventory(t *testing.T) {
	s := NewStore()

	assert.Empty(t, s.Apply(nil), "empty snapshot before inventory")
	changes := s.Apply(inventory())

	assert.Len(t, changes, 3, "first non-empty inventory repaints every row")
	assert.True(t, s.Ready())
	assert.Len(t, s.Ordered(), 3)
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Materialize(inventory())

	s.Reset()

	assert.False(t, s.Ready())
	assert.Empty(t, s.Ordered())
	assert.Equal(t, 0, s.LoadingCount())
}
