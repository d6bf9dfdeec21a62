// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ballpivot

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2dChan/surfrec/cloud"
)

// assertManifold checks that no unordered edge is shared by more than two
// triangles and that no unordered vertex triple appears twice.
func assertManifold(t *testing.T, tris [][3]int) {
	t.Helper()

	edges := make(map[[2]int]int)
	seen := make(map[[3]int]bool)
	for _, tri := range tris {
		key := tri
		sort.Ints(key[:])
		assert.Falsef(t, seen[key], "triangle %v appears twice", tri)
		seen[key] = true

		for i := range 3 {
			a, b := tri[i], tri[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int{a, b}]++
			assert.LessOrEqualf(t, edges[[2]int{a, b}], 2, "edge (%d, %d) shared by more than two triangles", a, b)
		}
	}
}

// assertOriented checks that every triangle's geometric normal agrees with the
// averaged input normals at its vertices.
func assertOriented(t *testing.T, points []cloud.Point, tris [][3]int) {
	t.Helper()

	for _, tri := range tris {
		a, b, c := points[tri[0]].Pos, points[tri[1]].Pos, points[tri[2]].Pos
		n := b.Sub(a).Cross(c.Sub(a))
		avg := points[tri[0]].Normal.Add(points[tri[1]].Normal).Add(points[tri[2]].Normal)
		assert.GreaterOrEqualf(t, n.Dot(avg), 0.0, "triangle %v opposes the input normals", tri)
	}
}

// assertEmptyBalls checks the accepted ball of every triangle against all
// input points, up to the engine's relative tolerance.
func assertEmptyBalls(t *testing.T, points []cloud.Point, res *Result, radius float64) {
	t.Helper()

	limit := radius - relativeEps*radius - 1e-9
	for i, tri := range res.Triangles {
		center := res.Centers[i]
		for j, p := range points {
			if j == tri[0] || j == tri[1] || j == tri[2] {
				continue
			}
			assert.GreaterOrEqualf(t, p.Pos.Sub(center).Norm(), limit,
				"point %d lies inside the ball of triangle %v", j, tri)
		}
	}
}

func TestReconstruct_Octahedron(t *testing.T) {
	points := cloud.Octahedron()
	res, err := Reconstruct(points, 1.5)
	require.NoError(t, err)

	assert.False(t, res.Unreconstructable)
	assert.Len(t, res.Triangles, 8)
	assert.Len(t, res.Centers, 8)
	assertManifold(t, res.Triangles)
	assertOriented(t, points, res.Triangles)
	assertEmptyBalls(t, points, res, 1.5)

	// closed octahedron: every edge meshed from both sides
	edges := make(map[[2]int]int)
	for _, tri := range res.Triangles {
		for i := range 3 {
			a, b := tri[i], tri[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int{a, b}]++
		}
	}
	assert.Len(t, edges, 12)
	for pair, uses := range edges {
		assert.Equalf(t, 2, uses, "edge %v not meshed from both sides", pair)
	}
}

func TestReconstruct_Disk(t *testing.T) {
	const radius = 0.15
	points := cloud.GenDiskCloud(1000, 2, 1)
	res, err := Reconstruct(points, radius)
	require.NoError(t, err)

	assert.False(t, res.Unreconstructable)
	assert.Greater(t, len(res.Triangles), 500)
	assertManifold(t, res.Triangles)
	assertEmptyBalls(t, points, res, radius)

	// the cloud is sampled on the z=0 plane, so the mesh must stay in it
	for _, tri := range res.Triangles {
		for _, v := range tri {
			assert.LessOrEqual(t, math.Abs(points[v].Pos.Z), 0.01)
		}
	}

	// one component must cover the bulk of the meshed points
	assert.Greater(t, largestComponent(res.Triangles), usedCount(res.Triangles)/2)
}

func TestReconstruct_Sphere(t *testing.T) {
	points := cloud.GenSphericalCloud(20, 10)
	res, err := Reconstruct(points, 0.4)
	require.NoError(t, err)

	assert.False(t, res.Unreconstructable)
	assert.Greater(t, len(res.Triangles), 100)
	assertManifold(t, res.Triangles)
	assertOriented(t, points, res.Triangles)
	assertEmptyBalls(t, points, res, 0.4)
}

func TestReconstruct_SubRadiusSampling(t *testing.T) {
	const radius = 0.5
	points := []cloud.Point{
		{Pos: r3.Vector{}, Normal: r3.Vector{Z: 1}},
		{Pos: r3.Vector{X: 4 * radius}, Normal: r3.Vector{Z: 1}},
		{Pos: r3.Vector{X: 8 * radius}, Normal: r3.Vector{Z: 1}},
	}

	res, err := Reconstruct(points, radius)
	require.NoError(t, err)
	assert.True(t, res.Unreconstructable)
	assert.Empty(t, res.Triangles)
}

func TestReconstruct_CoincidentDuplicates(t *testing.T) {
	points := make([]cloud.Point, 10)
	for i := range points {
		points[i] = cloud.Point{Pos: r3.Vector{X: 1}, Normal: r3.Vector{X: 1}}
	}

	res, err := Reconstruct(points, 0.5)
	require.NoError(t, err)
	assert.True(t, res.Unreconstructable)
	assert.Empty(t, res.Triangles)
}

func TestReconstruct_InvalidRadius(t *testing.T) {
	for _, radius := range []float64{0, -1} {
		_, err := Reconstruct(cloud.Octahedron(), radius)
		assert.Errorf(t, err, "Reconstruct(..., %v) error = nil, want non-nil", radius)
	}
}

func TestReconstruct_Determinism(t *testing.T) {
	points := cloud.GenDiskCloud(500, 2, 7)

	first, err := Reconstruct(points, 0.2)
	require.NoError(t, err)
	second, err := Reconstruct(points, 0.2)
	require.NoError(t, err)
	assert.Equal(t, first.Triangles, second.Triangles)
	assert.Equal(t, first.Centers, second.Centers)
}

func TestMeasuredReconstruct(t *testing.T) {
	points := cloud.Octahedron()
	res, timing, err := MeasuredReconstruct(points, 1.5)
	require.NoError(t, err)
	require.NotNil(t, timing)

	assert.Equal(t, len(res.Triangles), timing.Triangles)
	assert.Greater(t, timing.Total, timing.SeedSearch)
	assert.Positive(t, timing.Total)
	assert.GreaterOrEqual(t, timing.FrontPeak, 3)
}

func TestBallCenter(t *testing.T) {
	p := &pivoter{radius: 1.5, eps: relativeEps * 1.5}

	a := r3.Vector{X: 1}
	b := r3.Vector{Y: 1}
	c := r3.Vector{Z: 1}
	n := b.Sub(a).Cross(c.Sub(a))

	center, ok := p.ballCenter(a, b, c, n)
	require.True(t, ok)
	for _, v := range []r3.Vector{a, b, c} {
		assert.InDelta(t, 1.5, center.Sub(v).Norm(), 1e-12)
	}
	// tangent on the side the normal points to
	assert.Positive(t, center.Dot(n))

	// circumradius above the ball radius: no center
	_, ok = p.ballCenter(a.Mul(4), b.Mul(4), c.Mul(4), n)
	assert.False(t, ok)

	// collinear points: no center
	_, ok = p.ballCenter(a, a.Mul(2), a.Mul(3), n)
	assert.False(t, ok)
}

func TestPivotAngle(t *testing.T) {
	a := r3.Vector{}
	b := r3.Vector{X: 1}
	c0 := r3.Vector{X: 0.5, Y: 1}

	tests := []struct {
		name string
		c1   r3.Vector
		want float64
	}{
		{"no rotation", r3.Vector{X: 0.5, Y: 1}, 0},
		{"quarter turn", r3.Vector{X: 0.5, Z: 1}, math.Pi / 2},
		{"half turn", r3.Vector{X: 0.5, Y: -1}, math.Pi},
		{"three quarters", r3.Vector{X: 0.5, Z: -1}, 3 * math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, pivotAngle(a, b, c0, tt.c1), 1e-12)
		})
	}
}

func usedCount(tris [][3]int) int {
	used := make(map[int]bool)
	for _, tri := range tris {
		for _, v := range tri {
			used[v] = true
		}
	}
	return len(used)
}

// largestComponent returns the size in vertices of the largest connected
// triangle component.
func largestComponent(tris [][3]int) int {
	parent := make(map[int]int)
	var find func(int) int
	find = func(x int) int {
		if parent[x] == x {
			return x
		}
		parent[x] = find(parent[x])
		return parent[x]
	}
	union := func(x, y int) {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if _, ok := parent[y]; !ok {
			parent[y] = y
		}
		parent[find(x)] = find(y)
	}

	for _, tri := range tris {
		union(tri[0], tri[1])
		union(tri[1], tri[2])
	}

	sizes := make(map[int]int)
	best := 0
	for v := range parent {
		root := find(v)
		sizes[root]++
		best = max(best, sizes[root])
	}
	return best
}

func BenchmarkReconstruct(b *testing.B) {
	sizes := []int{1e+2, 1e+3, 1e+4}
	for _, pointsCnt := range sizes {
		b.Run(fmt.Sprintf("N%d", pointsCnt), func(b *testing.B) {
			points := cloud.GenDiskCloud(pointsCnt, 2, 0)
			radius := 4 / math.Sqrt(float64(pointsCnt))

			b.ResetTimer()
			for b.Loop() {
				_, err := Reconstruct(points, radius)
				if err != nil {
					b.Fatalf("Reconstruct(...) error = %v, want nil", err)
				}
			}
		})
	}
}
