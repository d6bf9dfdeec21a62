// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2delaunay

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	initVertexCount = 6
	initFaceCount   = 8

	// noTriangle marks an unassigned neighbor slot. The closed spherical hull
	// never exposes it after the initial hull is built.
	noTriangle = int32(-1)
)

// triangle is one face of the growing spherical mesh. v holds vertex indices
// into the vertex arena; n[i] is the triangle across edge (v[i], v[(i+1)%3]).
type triangle struct {
	v [3]int32
	n [3]int32
}

// mesh is the append-only triangle arena together with the vertex positions it
// indexes. Auxiliary vertices occupy the arena slots past aux.
type mesh struct {
	verts []r3.Vector
	aux   int
	tris  []triangle
	eps   float64

	walkSteps          int64
	localOptimizations int64
}

func (m *mesh) isAuxiliary(v int32) bool {
	return int(v) >= m.aux
}

// det3 computes the determinant of the 3x3 matrix with rows a, b, c using the
// left-handed sign convention, snapping near-zero results to zero so local
// optimization cannot cycle.
func (m *mesh) det3(a, b, c r3.Vector) float64 {
	return m.det([9]float64{
		a.X, a.Y, a.Z,
		b.X, b.Y, b.Z,
		c.X, c.Y, c.Z,
	})
}

func (m *mesh) det(mat [9]float64) float64 {
	// inversed for left handed coordinate system
	d := mat[2]*mat[4]*mat[6] +
		mat[0]*mat[5]*mat[7] +
		mat[1]*mat[3]*mat[8] -
		mat[0]*mat[4]*mat[8] -
		mat[1]*mat[5]*mat[6] -
		mat[2]*mat[3]*mat[7]

	if math.Abs(d) <= m.eps {
		return 0
	}
	return d
}

// hasCoincidentVertex reports whether any vertex of triangle ti sits at
// exactly the given position.
func (m *mesh) hasCoincidentVertex(ti int32, p r3.Vector) bool {
	t := m.tris[ti]
	return m.verts[t.v[0]] == p || m.verts[t.v[1]] == p || m.verts[t.v[2]] == p
}

// split replaces triangle ti, which contains vertex d in its spherical wedge,
// with three triangles sharing d, rewires the three external neighbors, and
// re-legalizes the three exposed edges.
func (m *mesh) split(ti, d int32) {
	t := m.tris[ti]
	n1 := int32(len(m.tris))
	n2 := n1 + 1

	m.tris = append(m.tris,
		triangle{
			v: [3]int32{d, t.v[1], t.v[2]},
			n: [3]int32{ti, t.n[1], n2},
		},
		triangle{
			v: [3]int32{d, t.v[2], t.v[0]},
			n: [3]int32{n1, t.n[2], ti},
		})
	m.tris[ti] = triangle{
		v: [3]int32{d, t.v[0], t.v[1]},
		n: [3]int32{n2, t.n[0], n1},
	}

	m.fixNeighborhood(t.n[1], ti, n1)
	m.fixNeighborhood(t.n[2], ti, n2)

	m.localOptimize(ti, m.tris[ti].n[1])
	m.localOptimize(n1, m.tris[n1].n[1])
	m.localOptimize(n2, m.tris[n2].n[1])
}

// fixNeighborhood rewrites the slot of target that pointed at oldNeighbor to
// point at newNeighbor.
func (m *mesh) fixNeighborhood(target, oldNeighbor, newNeighbor int32) {
	if target == noTriangle {
		return
	}
	for i := range 3 {
		if m.tris[target].n[i] == oldNeighbor {
			m.tris[target].n[i] = newNeighbor
			break
		}
	}
}

// localOptimize checks the edge shared by t0 and t1 against the Delaunay
// condition on the sphere and flips the diagonal when the opposite vertex of
// t1 lies above t0's plane. A non-positive determinant means the edge is
// already legal, so checking stops there.
func (m *mesh) localOptimize(t0, t1 int32) {
	if t1 == noTriangle {
		return
	}
	m.localOptimizations++

	for i := range 3 {
		w := m.tris[t1].v[i]
		if w == m.tris[t0].v[0] || w == m.tris[t0].v[1] || w == m.tris[t0].v[2] {
			continue
		}

		wp := m.verts[w]
		p0 := m.verts[m.tris[t0].v[0]]
		p1 := m.verts[m.tris[t0].v[1]]
		p2 := m.verts[m.tris[t0].v[2]]
		d := m.det([9]float64{
			wp.X - p0.X, wp.Y - p0.Y, wp.Z - p0.Z,
			wp.X - p1.X, wp.Y - p1.Y, wp.Z - p1.Z,
			wp.X - p2.X, wp.Y - p2.Y, wp.Z - p2.Z,
		})
		if d <= 0 {
			break
		}

		if m.trySwapDiagonal(t0, t1) {
			return
		}
	}
}

// trySwapDiagonal replaces the edge shared by t0 and t1 with the other
// diagonal of their quadrilateral, fixes the four external back-links, and
// re-legalizes the four exposed edges. It reports whether a swap happened.
func (m *mesh) trySwapDiagonal(t0, t1 int32) bool {
	for j := range 3 {
		for k := range 3 {
			if m.vertexInTriangle(m.tris[t0].v[j], t1) || m.vertexInTriangle(m.tris[t1].v[k], t0) {
				continue
			}

			m.tris[t0].v[(j+2)%3] = m.tris[t1].v[k]
			m.tris[t1].v[(k+2)%3] = m.tris[t0].v[j]

			m.tris[t0].n[(j+1)%3] = m.tris[t1].n[(k+2)%3]
			m.tris[t1].n[(k+1)%3] = m.tris[t0].n[(j+2)%3]
			m.tris[t0].n[(j+2)%3] = t1
			m.tris[t1].n[(k+2)%3] = t0

			m.fixNeighborhood(m.tris[t0].n[(j+1)%3], t1, t0)
			m.fixNeighborhood(m.tris[t1].n[(k+1)%3], t0, t1)

			m.localOptimize(t0, m.tris[t0].n[j])
			m.localOptimize(t0, m.tris[t0].n[(j+1)%3])
			m.localOptimize(t1, m.tris[t1].n[k])
			m.localOptimize(t1, m.tris[t1].n[(k+1)%3])

			return true
		}
	}

	return false
}

func (m *mesh) vertexInTriangle(v, ti int32) bool {
	t := m.tris[ti]
	return v == t.v[0] || v == t.v[1] || v == t.v[2]
}

// findNeighborSlot returns the slot i such that tris[ti].n[i] == ni, or -1 if
// the neighbor relation is inconsistent.
func (m *mesh) findNeighborSlot(ti, ni int32) int {
	for i := range 3 {
		if m.tris[ti].n[i] == ni {
			return i
		}
	}
	return -1
}
