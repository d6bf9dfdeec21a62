// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package s2delaunay implements incremental Delaunay triangulation on the S2
// sphere. Input points are projected radially onto the unit sphere, inserted
// into a bootstrap octahedron hull one by one, and locally optimized with
// Lawson flips; triangles touching the bootstrap vertices are swept away at
// the end.

package s2delaunay

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

const (
	// defaultEps is the near-zero snap threshold for determinants, one ulp at 1.
	defaultEps = 2.220446049250313e-16

	// vectorLength is the radius of the unit sphere the points are projected onto.
	vectorLength = 1.0
)

// Stats records the work done by a single triangulation run.
type Stats struct {
	// WalkSteps is the number of triangle-walk steps taken while locating
	// insertion faces.
	WalkSteps int64
	// LocalOptimizations is the number of local edge-legality checks.
	LocalOptimizations int64
	// Elapsed is the wall time of the whole run.
	Elapsed time.Duration
}

// Triangulation is a Delaunay triangulation of points projected onto the S2
// sphere.
type Triangulation struct {
	// Vertices are the projected input points on the unit sphere, in input
	// order. Coincident inputs keep their slots but only one of each
	// position participates in triangles.
	Vertices s2.PointVector
	// Triangles are the triangulation faces, each with three vertex indices
	// into Vertices, sorted CCW when looking out of the sphere.
	Triangles [][3]int
	// Stats describes the work done to build the triangulation.
	Stats Stats
}

// TriangulationOptions holds configuration options for Delaunay triangulation.
type TriangulationOptions struct {
	Eps float64
}

// TriangulationOption is a functional option type for triangulation configuration.
type TriangulationOption func(*TriangulationOptions) error

// WithEps sets the determinant snap epsilon for triangulation.
// It must be positive.
func WithEps(eps float64) TriangulationOption {
	return func(o *TriangulationOptions) error {
		if eps <= 0 {
			return fmt.Errorf("WithEps: eps must be positive got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

// DegenerateGeometryError reports an input point the engine cannot work with,
// located by its index.
type DegenerateGeometryError struct {
	Index  int
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("s2delaunay: degenerate geometry at point %d: %s", e.Index, e.Reason)
}

// NewTriangulation triangulates the given points on the unit sphere.
// Points are projected radially before insertion; coincident projections are
// skipped silently. Every position must be finite and non-zero so the
// projection exists. An empty input yields an empty triangulation.
func NewTriangulation(points []r3.Vector, setters ...TriangulationOption) (*Triangulation, error) {
	opts := TriangulationOptions{
		Eps: defaultEps,
	}
	for _, set := range setters {
		err := set(&opts)
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	n := len(points)

	m := &mesh{
		verts: make([]r3.Vector, 0, n+initVertexCount),
		aux:   n,
		eps:   opts.Eps,
	}
	for i, p := range points {
		norm := p.Norm()
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, &DegenerateGeometryError{Index: i, Reason: "non-finite position"}
		}
		if norm == 0 {
			return nil, &DegenerateGeometryError{Index: i, Reason: "zero-length position cannot be projected"}
		}
		m.verts = append(m.verts, p.Mul(vectorLength/norm))
	}
	for i := range initVertexCount {
		m.verts = append(m.verts, auxiliaryPosition(i))
	}

	capacity := initFaceCount
	if n > initVertexCount {
		capacity += 2 * (n - initVertexCount)
	}
	m.tris = make([]triangle, 0, capacity)

	visited := make([]bool, n)
	buildInitialHull(m, visited)

	for i := range n {
		if !visited[i] {
			insert(m, int32(i))
		}
	}

	t := &Triangulation{
		Vertices:  make(s2.PointVector, n),
		Triangles: collectTriangles(m),
	}
	for i := range n {
		t.Vertices[i] = s2.Point{Vector: m.verts[i]}
	}
	t.Stats = Stats{
		WalkSteps:          m.walkSteps,
		LocalOptimizations: m.localOptimizations,
		Elapsed:            time.Since(start),
	}
	return t, nil
}

// auxiliaryPosition returns the i-th bootstrap vertex: +x, -x, +y, -y, +z, -z.
func auxiliaryPosition(i int) r3.Vector {
	sign := vectorLength
	if i%2 != 0 {
		sign = -vectorLength
	}
	switch i / 2 {
	case 0:
		return r3.Vector{X: sign}
	case 1:
		return r3.Vector{Y: sign}
	default:
		return r3.Vector{Z: sign}
	}
}

// buildInitialHull builds the eight-face octahedron over the six auxiliary
// vertices, replacing each auxiliary with the input point closest to it when
// that point is closer to this axis than to any other. Seed points are marked
// visited so insertion skips them.
func buildInitialHull(m *mesh, visited []bool) {
	seeds := [initVertexCount]int32{}
	for i := range initVertexCount {
		seeds[i] = int32(m.aux + i)
	}

	var minDistance [initVertexCount]float64
	for i := range minDistance {
		minDistance[i] = math.Inf(1)
	}
	for j := range m.aux {
		var distance [initVertexCount]float64
		for i := range initVertexCount {
			distance[i] = m.verts[m.aux+i].Sub(m.verts[j]).Norm()
			if distance[i] < minDistance[i] {
				minDistance[i] = distance[i]
			}
		}

		for i := range initVertexCount {
			if minDistance[i] == distance[i] && isMinimumValueInArray(distance[:], i) {
				seeds[i] = int32(j)
			}
		}
	}

	vertex0Index := [initFaceCount]int{0, 0, 0, 0, 1, 1, 1, 1}
	vertex1Index := [initFaceCount]int{4, 3, 5, 2, 2, 4, 3, 5}
	vertex2Index := [initFaceCount]int{2, 4, 3, 5, 4, 3, 5, 2}

	for i := range initFaceCount {
		m.tris = append(m.tris, triangle{
			v: [3]int32{
				seeds[vertex0Index[i]],
				seeds[vertex1Index[i]],
				seeds[vertex2Index[i]],
			},
		})
	}

	neighbor0Index := [initFaceCount]int32{1, 2, 3, 0, 7, 4, 5, 6}
	neighbor1Index := [initFaceCount]int32{4, 5, 6, 7, 0, 1, 2, 3}
	neighbor2Index := [initFaceCount]int32{3, 0, 1, 2, 5, 6, 7, 4}

	for i := range initFaceCount {
		m.tris[i].n = [3]int32{neighbor0Index[i], neighbor1Index[i], neighbor2Index[i]}
	}

	for i := range initVertexCount {
		if int(seeds[i]) < m.aux {
			visited[seeds[i]] = true
		}
	}
}

// insert walks the triangulation to the face whose spherical wedge contains
// vertex d and splits it. Coincident positions are skipped. If no determinant
// is non-negative the walk restarts from the cursor's next face; this is a
// safety valve, not expected in normal operation.
func insert(m *mesh, d int32) {
	dp := m.verts[d]
	cursor := 0
	cur := int32(0)

	for cursor < len(m.tris) {
		m.walkSteps++

		t := m.tris[cur]
		det0 := m.det3(m.verts[t.v[0]], m.verts[t.v[1]], dp)
		det1 := m.det3(m.verts[t.v[1]], m.verts[t.v[2]], dp)
		det2 := m.det3(m.verts[t.v[2]], m.verts[t.v[0]], dp)

		switch {
		case det0 >= 0 && det1 >= 0 && det2 >= 0:
			if !m.hasCoincidentVertex(cur, dp) {
				m.split(cur, d)
			}
			return

		// on one side, search neighbors
		case det1 >= 0 && det2 >= 0:
			cur = t.n[0]
		case det0 >= 0 && det2 >= 0:
			cur = t.n[1]
		case det0 >= 0 && det1 >= 0:
			cur = t.n[2]

		// cannot determine effectively
		case det0 >= 0:
			cur = t.n[1]
		case det1 >= 0:
			cur = t.n[2]
		case det2 >= 0:
			cur = t.n[0]
		default:
			cur = int32(cursor)
			cursor++
		}
	}
}

// collectTriangles drops every face referencing an auxiliary vertex and
// orients the survivors CCW when looking out of the sphere.
func collectTriangles(m *mesh) [][3]int {
	out := make([][3]int, 0, len(m.tris))
	for _, t := range m.tris {
		if m.isAuxiliary(t.v[0]) || m.isAuxiliary(t.v[1]) || m.isAuxiliary(t.v[2]) {
			continue
		}
		tri := [3]int{int(t.v[0]), int(t.v[1]), int(t.v[2])}
		a, b, c := m.verts[t.v[0]], m.verts[t.v[1]], m.verts[t.v[2]]
		if b.Sub(a).Cross(c.Sub(a)).Dot(a) < 0 {
			tri[1], tri[2] = tri[2], tri[1]
		}
		out = append(out, tri)
	}
	return out
}

func isMinimumValueInArray(arr []float64, index int) bool {
	for i := range arr {
		if arr[i] < arr[index] {
			return false
		}
	}
	return true
}

// StatsString renders the run statistics as a human-readable report.
func (t *Triangulation) StatsString() string {
	return "\nTriangle count: " + groupThousands(int64(len(t.Triangles))) +
		"\nTriangle search operations: " + groupThousands(t.Stats.WalkSteps) +
		"\nLocal optimizations: " + groupThousands(t.Stats.LocalOptimizations) +
		"\nTriangulation cost: " + t.Stats.Elapsed.String() + "\n"
}

// groupThousands formats n with thousands separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	start := 0
	if s[0] == '-' {
		start = 1
	}
	for i := len(s) - 3; i > start; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
