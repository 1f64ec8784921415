// Package graph implements the dependency-graph algorithms: transitive
// closure, reachability, and cycle detection over the task edge set.
//
// The package never caches adjacency across operations. Each walk pulls its
// own view through an EdgeSource so the graph it sees is the one the
// enclosing unit of work sees, and frontier batching keeps the cost at one
// query per BFS level instead of one per node.
package graph

import (
	"context"

	"github.com/google/uuid"
)

// EdgeSource yields the direct dependencies of each task in ids in a single
// batched lookup. IDs absent from the result map have no dependencies.
type EdgeSource interface {
	EdgesFrom(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

// Walker runs traversals over an EdgeSource.
type Walker struct {
	src EdgeSource
}

func NewWalker(src EdgeSource) *Walker {
	return &Walker{src: src}
}

// Closure returns the full transitive dependency set of start, in BFS
// order, excluding start itself. Diamond-shaped graphs yield each task once.
// The visited set also guarantees termination if the stored graph ever
// contains a cycle it should not.
func (w *Walker) Closure(ctx context.Context, start uuid.UUID) ([]uuid.UUID, error) {
	visited := map[uuid.UUID]bool{start: true}
	var order []uuid.UUID

	frontier := []uuid.UUID{start}
	for len(frontier) > 0 {
		adj, err := w.src.EdgesFrom(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []uuid.UUID
		for _, id := range frontier {
			for _, dep := range adj[id] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				order = append(order, dep)
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return order, nil
}

// Reachable reports whether target can be reached from start by following
// dependency edges. start itself does not count as reachable.
func (w *Walker) Reachable(ctx context.Context, start, target uuid.UUID) (bool, error) {
	visited := map[uuid.UUID]bool{start: true}

	frontier := []uuid.UUID{start}
	for len(frontier) > 0 {
		adj, err := w.src.EdgesFrom(ctx, frontier)
		if err != nil {
			return false, err
		}
		var next []uuid.UUID
		for _, id := range frontier {
			for _, dep := range adj[id] {
				if dep == target {
					return true, nil
				}
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return false, nil
}

// WouldCreateCycle decides whether adding the edge task -> dependency would
// make the graph cyclic. A self-loop is always a cycle; otherwise the edge
// closes a cycle exactly when task is already reachable from dependency.
func (w *Walker) WouldCreateCycle(ctx context.Context, taskID, dependencyID uuid.UUID) (bool, error) {
	if taskID == dependencyID {
		return true, nil
	}
	return w.Reachable(ctx, dependencyID, taskID)
}
