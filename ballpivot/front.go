// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ballpivot

import "github.com/golang/geo/r3"

type edgeState uint8

const (
	// stateActive marks an edge awaiting a pivot attempt.
	stateActive edgeState = iota
	// stateBoundary marks an edge whose pivot failed; it is never retried.
	stateBoundary
	// stateFrozen marks an edge with triangles on both sides.
	stateFrozen
)

// edge is an oriented mesh edge with the opposite vertex of the triangle that
// created it and that triangle's pivot-ball center.
type edge struct {
	a, b   int32
	opp    int32
	center r3.Vector
	state  edgeState
}

// pairKey identifies an unordered vertex pair.
type pairKey [2]int32

func keyOf(a, b int32) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// front holds the edge arena and the FIFO of active edges. An unordered pair
// appears at most once among non-frozen edges; byPair enforces the glue rule.
type front struct {
	edges  []edge
	queue  []int32
	head   int
	byPair map[pairKey]int32

	active int
	peak   int
}

func newFront() *front {
	return &front{byPair: make(map[pairKey]int32)}
}

// add records a new oriented edge. If a non-frozen edge already exists for the
// same unordered pair, the other side of that edge has now been meshed: both
// are frozen and nothing is queued. Otherwise the edge joins the front as
// active.
func (f *front) add(a, b, opp int32, center r3.Vector) {
	key := keyOf(a, b)
	if other, ok := f.byPair[key]; ok {
		f.freeze(other)
		return
	}

	ei := int32(len(f.edges))
	f.edges = append(f.edges, edge{a: a, b: b, opp: opp, center: center, state: stateActive})
	f.byPair[key] = ei
	f.queue = append(f.queue, ei)
	f.active++
	f.peak = max(f.peak, f.active)
}

// pop returns the next active edge, skipping edges frozen while queued.
func (f *front) pop() (int32, bool) {
	for f.head < len(f.queue) {
		ei := f.queue[f.head]
		f.head++
		if f.edges[ei].state == stateActive {
			return ei, true
		}
	}
	return 0, false
}

// boundary marks an edge as boundary: no further pivot attempts, but a later
// triangle on its far side may still freeze it through add.
func (f *front) boundary(ei int32) {
	if f.edges[ei].state == stateActive {
		f.active--
	}
	f.edges[ei].state = stateBoundary
}

// freeze marks an edge as meshed on both sides and releases its pair slot.
func (f *front) freeze(ei int32) {
	if f.edges[ei].state == stateActive {
		f.active--
	}
	f.edges[ei].state = stateFrozen
	delete(f.byPair, keyOf(f.edges[ei].a, f.edges[ei].b))
}
