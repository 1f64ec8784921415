package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEdges is an in-memory EdgeSource keyed task -> direct dependencies.
type mapEdges map[uuid.UUID][]uuid.UUID

func (m mapEdges) EdgesFrom(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(ids))
	for _, id := range ids {
		if deps, ok := m[id]; ok {
			out[id] = deps
		}
	}
	return out, nil
}

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestWouldCreateCycleSelfLoop(t *testing.T) {
	id := uuid.New()
	w := NewWalker(mapEdges{})

	cyclic, err := w.WouldCreateCycle(context.Background(), id, id)
	require.NoError(t, err)
	assert.True(t, cyclic, "a task depending on itself is always a cycle")
}

func TestWouldCreateCycleChains(t *testing.T) {
	ctx := context.Background()

	// a -> b -> c -> d
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	edges := mapEdges{a: {b}, b: {c}, c: {d}}
	w := NewWalker(edges)

	// Length 1: b -> a closes a cycle.
	cyclic, err := w.WouldCreateCycle(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, cyclic)

	// Length 2 and 3+.
	for _, dep := range []uuid.UUID{a, b} {
		cyclic, err = w.WouldCreateCycle(ctx, d, dep)
		require.NoError(t, err)
		assert.True(t, cyclic)
	}

	// Forward edges and edges to unrelated tasks stay legal.
	cyclic, err = w.WouldCreateCycle(ctx, a, d)
	require.NoError(t, err)
	assert.False(t, cyclic)

	e := uuid.New()
	cyclic, err = w.WouldCreateCycle(ctx, e, a)
	require.NoError(t, err)
	assert.False(t, cyclic)
}

func TestWouldCreateCycleDiamond(t *testing.T) {
	ctx := context.Background()

	// a depends on b and c; both depend on d.
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	w := NewWalker(mapEdges{a: {b, c}, b: {d}, c: {d}})

	cyclic, err := w.WouldCreateCycle(ctx, d, a)
	require.NoError(t, err)
	assert.True(t, cyclic, "either diamond path reaches a from d's dependents")

	cyclic, err = w.WouldCreateCycle(ctx, b, c)
	require.NoError(t, err)
	assert.False(t, cyclic, "siblings sharing a dependency are not a cycle")
}

func TestClosureDiamondDeduplicates(t *testing.T) {
	ctx := context.Background()

	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	w := NewWalker(mapEdges{a: {b, c}, b: {d}, c: {d}})

	closure, err := w.Closure(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{b, c, d}, closure, "d is counted once")
	assert.NotContains(t, closure, a, "closure excludes the start")
}

func TestClosureIdempotent(t *testing.T) {
	ctx := context.Background()

	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	w := NewWalker(mapEdges{a: {b, c}, b: {d}})

	first, err := w.Closure(ctx, a)
	require.NoError(t, err)
	second, err := w.Closure(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClosureBFSOrder(t *testing.T) {
	ctx := context.Background()

	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	w := NewWalker(mapEdges{a: {b, c}, b: {d}})

	closure, err := w.Closure(ctx, a)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{b, c, d}, closure, "direct dependencies come before transitive ones")
}

func TestTraversalTerminatesOnCorruptCycle(t *testing.T) {
	ctx := context.Background()

	// A cycle should never be persisted, but traversal must still terminate.
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	w := NewWalker(mapEdges{a: {b}, b: {c}, c: {a}})

	closure, err := w.Closure(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{b, c}, closure)

	reachable, err := w.Reachable(ctx, a, uuid.New())
	require.NoError(t, err)
	assert.False(t, reachable)
}
