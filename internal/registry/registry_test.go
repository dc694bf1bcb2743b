package registry

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func newTestRegistry() *Registry {
	return New(zerolog.Nop())
}

func TestRegisterProducesDistinctIDs(t *testing.T) {
	r := newTestRegistry()
	id1, err := r.Register("10.0.0.1", 9001, 1000)
	require.NoError(t, err)
	id2, err := r.Register("10.0.0.1", 9001, 1000)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestRegisterRejectsInvalidPort(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register("10.0.0.1", 0, 1000)
	assert.Error(t, err)
	_, err = r.Register("10.0.0.1", 70000, 1000)
	assert.Error(t, err)
}

func TestKeepAliveUnknownNodeIsNoOp(t *testing.T) {
	r := newTestRegistry()
	assert.NotPanics(t, func() { r.KeepAlive("does-not-exist") })
}

func TestKeepAliveAdvancesLastSeenMonotonically(t *testing.T) {
	r := newTestRegistry()
	id, err := r.Register("10.0.0.1", 9001, 1000)
	require.NoError(t, err)

	n1, _ := r.Get(id)
	time.Sleep(2 * time.Millisecond)
	r.KeepAlive(id)
	n2, _ := r.Get(id)

	assert.True(t, n2.LastSeen.After(n1.LastSeen) || n2.LastSeen.Equal(n1.LastSeen))
}

func TestUpdateSpaceUnknownNodeFails(t *testing.T) {
	r := newTestRegistry()
	err := r.UpdateSpace("nope", 500)
	assert.ErrorIs(t, err, common.ErrNodeNotFound)
}

func TestSelectAvailableExcludesLowSpaceAndInactive(t *testing.T) {
	r := newTestRegistry()
	small, _ := r.Register("10.0.0.1", 9001, 100)
	big, _ := r.Register("10.0.0.2", 9002, 100000)
	inactive, _ := r.Register("10.0.0.3", 9003, 100000)

	r.mu.Lock()
	n := r.nodes[inactive]
	n.IsActive = false
	r.nodes[inactive] = n
	r.mu.Unlock()

	selected := r.SelectAvailable(10, 10000)
	ids := map[string]bool{}
	for _, n := range selected {
		ids[n.NodeID] = true
		assert.GreaterOrEqual(t, n.FreeSpace, int64(10000))
	}
	assert.True(t, ids[big])
	assert.False(t, ids[small])
	assert.False(t, ids[inactive])
}

func TestSelectAvailableSortsDescendingBySpace(t *testing.T) {
	r := newTestRegistry()
	r.Register("10.0.0.1", 9001, 500)
	r.Register("10.0.0.2", 9002, 900)
	r.Register("10.0.0.3", 9003, 700)

	selected := r.SelectAvailable(10, 0)
	require.Len(t, selected, 3)
	for i := 1; i < len(selected); i++ {
		assert.GreaterOrEqual(t, selected[i-1].FreeSpace, selected[i].FreeSpace)
	}
}

func TestSelectAvailableTruncatesToCount(t *testing.T) {
	r := newTestRegistry()
	r.Register("10.0.0.1", 9001, 500)
	r.Register("10.0.0.2", 9002, 900)
	r.Register("10.0.0.3", 9003, 700)

	selected := r.SelectAvailable(2, 0)
	assert.Len(t, selected, 2)
}

func TestSweepMarksTimedOutNodesInactiveButDoesNotEvict(t *testing.T) {
	r := newTestRegistry()
	id, err := r.Register("10.0.0.1", 9001, 500)
	require.NoError(t, err)

	n, _ := r.Get(id)
	n.LastSeen = time.Now().Add(-2 * common.NodeTimeout)
	r.mu.Lock()
	r.nodes[id] = n
	r.mu.Unlock()

	r.Sweep()

	after, ok := r.Get(id)
	require.True(t, ok, "sweep must not evict")
	assert.False(t, after.IsActive)
}

func TestUnregisterRemovesNode(t *testing.T) {
	r := newTestRegistry()
	id, err := r.Register("10.0.0.1", 9001, 500)
	require.NoError(t, err)

	assert.True(t, r.Unregister(id))
	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.False(t, r.Unregister(id))
}
