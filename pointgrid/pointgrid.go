// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package pointgrid implements a uniform-grid spatial index over 3D points,
// supporting ball queries used by the reconstruction engines.

package pointgrid

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
)

// Index is an immutable uniform-grid bucketing of points by position.
// Cells store point indices in a CSR-like layout: cellOffsets slices
// cellIndices per flattened cell.
type Index struct {
	points   []r3.Vector
	cellSize float64
	origin   r3.Vector
	dims     [3]int

	cellIndices []int32
	cellOffsets []int32
}

// New builds an index over the given points with the given cell edge length.
// The points slice is referenced, not copied; it must not change while the
// index is in use. It panics if cellSize is not positive.
func New(points []r3.Vector, cellSize float64) *Index {
	if cellSize <= 0 {
		panic(fmt.Sprintf("New: cellSize must be positive, got %v", cellSize))
	}

	ix := &Index{
		points:   points,
		cellSize: cellSize,
		dims:     [3]int{1, 1, 1},
	}
	if len(points) == 0 {
		ix.cellOffsets = []int32{0, 0}
		return ix
	}

	minV, maxV := points[0], points[0]
	for _, p := range points[1:] {
		minV.X = min(minV.X, p.X)
		minV.Y = min(minV.Y, p.Y)
		minV.Z = min(minV.Z, p.Z)
		maxV.X = max(maxV.X, p.X)
		maxV.Y = max(maxV.Y, p.Y)
		maxV.Z = max(maxV.Z, p.Z)
	}
	ix.origin = minV
	ix.dims = [3]int{
		int((maxV.X-minV.X)/cellSize) + 1,
		int((maxV.Y-minV.Y)/cellSize) + 1,
		int((maxV.Z-minV.Z)/cellSize) + 1,
	}

	numCells := ix.dims[0] * ix.dims[1] * ix.dims[2]
	ix.cellOffsets = make([]int32, numCells+1)
	for _, p := range points {
		ix.cellOffsets[ix.flatten(ix.cellOf(p))+1]++
	}
	for i := range numCells {
		ix.cellOffsets[i+1] += ix.cellOffsets[i]
	}

	ix.cellIndices = make([]int32, len(points))
	nxt := make([]int32, numCells)
	copy(nxt, ix.cellOffsets[:numCells])
	for i, p := range points {
		c := ix.flatten(ix.cellOf(p))
		ix.cellIndices[nxt[c]] = int32(i)
		nxt[c]++
	}

	return ix
}

// NumPoints returns the number of indexed points.
func (ix *Index) NumPoints() int {
	return len(ix.points)
}

// Neighborhood returns the indices of all points within Euclidean distance r
// of q, in ascending index order. It panics if r is negative.
func (ix *Index) Neighborhood(q r3.Vector, r float64) []int {
	if r < 0 {
		panic(fmt.Sprintf("Neighborhood: radius must be non-negative, got %v", r))
	}
	if len(ix.points) == 0 {
		return nil
	}

	lo := ix.clampCell(ix.cellOf(r3.Vector{X: q.X - r, Y: q.Y - r, Z: q.Z - r}))
	hi := ix.clampCell(ix.cellOf(r3.Vector{X: q.X + r, Y: q.Y + r, Z: q.Z + r}))

	r2 := r * r
	var out []int
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for cz := lo[2]; cz <= hi[2]; cz++ {
				c := ix.flatten([3]int{cx, cy, cz})
				for _, i := range ix.cellIndices[ix.cellOffsets[c]:ix.cellOffsets[c+1]] {
					d := ix.points[i].Sub(q)
					if d.Dot(d) <= r2 {
						out = append(out, int(i))
					}
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// cellOf returns the unclamped cell coordinates containing p.
func (ix *Index) cellOf(p r3.Vector) [3]int {
	d := p.Sub(ix.origin)
	return [3]int{
		int(d.X / ix.cellSize),
		int(d.Y / ix.cellSize),
		int(d.Z / ix.cellSize),
	}
}

// clampCell clamps cell coordinates to the valid grid range.
func (ix *Index) clampCell(c [3]int) [3]int {
	for i := range c {
		c[i] = max(0, min(c[i], ix.dims[i]-1))
	}
	return c
}

func (ix *Index) flatten(c [3]int) int {
	return (c[0]*ix.dims[1]+c[1])*ix.dims[2] + c[2]
}
