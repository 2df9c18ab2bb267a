package hashring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerOnEmptyRingFails(t *testing.T) {
	r := New[string]()
	_, err := r.Owner(42)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestSingleNodeOwnsEverything(t *testing.T) {
	r := New[string]()
	r.Add("a", "A")
	for key := uint64(0); key < 1000; key++ {
		owner, err := r.Owner(key)
		require.NoError(t, err)
		require.Equal(t, "A", owner)
	}
}

func TestOwnerIsStableAcrossCalls(t *testing.T) {
	r := New[string]()
	r.Add("a", "A")
	r.Add("b", "B")
	r.Add("c", "C")

	first, err := r.Owner(12345)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Owner(12345)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestDistributionCoversAllNodes(t *testing.T) {
	r := New[string]()
	r.Add("a", "A")
	r.Add("b", "B")
	r.Add("c", "C")

	seen := make(map[string]int)
	for key := uint64(0); key < 3000; key++ {
		owner, err := r.Owner(key)
		require.NoError(t, err)
		seen[owner]++
	}
	require.Len(t, seen, 3)
	for _, count := range seen {
		require.Greater(t, count, 0)
	}
}

func TestRemoveReassignsItsKeys(t *testing.T) {
	r := New[string]()
	r.Add("a", "A")
	r.Add("b", "B")
	require.Equal(t, 2, r.Len())

	r.Remove("a")
	require.Equal(t, 1, r.Len())

	owner, err := r.Owner(999)
	require.NoError(t, err)
	require.Equal(t, "B", owner)
}

func TestAddReplacesExistingNode(t *testing.T) {
	r := New[string]()
	r.Add("a", "A")
	r.Add("a", "A2")
	require.Equal(t, 1, r.Len())

	owner, err := r.Owner(1)
	require.NoError(t, err)
	require.Equal(t, "A2", owner)
}
