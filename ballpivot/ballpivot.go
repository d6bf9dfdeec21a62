// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package ballpivot reconstructs a triangle mesh from an oriented point cloud
// by walking a ball of fixed radius over the points: a seed triangle the ball
// can rest on is grown edge by edge, pivoting the ball around each front edge
// until it touches the next point.

package ballpivot

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/2dChan/surfrec/cloud"
	"github.com/2dChan/surfrec/pointgrid"
)

// relativeEps scales the pivot radius into the tolerance used by emptiness
// checks.
const relativeEps = 1e-6

// Result is a reconstructed mesh.
type Result struct {
	// Triangles are vertex-index triples into the input cloud, wound so the
	// geometric normal agrees with the input normals.
	Triangles [][3]int
	// Centers holds the pivot-ball center each triangle was accepted with,
	// parallel to Triangles.
	Centers []r3.Vector
	// Unreconstructable is set when no valid seed triangle exists and the
	// mesh is empty.
	Unreconstructable bool
}

// Timing is the wall-time breakdown of a measured reconstruction.
type Timing struct {
	// Total is the elapsed time of the whole call.
	Total time.Duration
	// SeedSearch is the time spent looking for seed triangles.
	SeedSearch time.Duration
	// Pivot is the time spent pivoting the front.
	Pivot time.Duration
	// Triangles is the number of triangles produced.
	Triangles int
	// FrontPeak is the largest number of simultaneously active edges.
	FrontPeak int
}

// Reconstruct builds a triangle mesh over the points with a pivot ball of the
// given radius. The radius must be positive. An empty mesh is reported through
// Result.Unreconstructable, not as an error.
func Reconstruct(points []cloud.Point, radius float64) (*Result, error) {
	res, _, err := reconstruct(points, radius)
	return res, err
}

// MeasuredReconstruct is Reconstruct plus a wall-time breakdown of the run.
func MeasuredReconstruct(points []cloud.Point, radius float64) (*Result, *Timing, error) {
	return reconstruct(points, radius)
}

func reconstruct(points []cloud.Point, radius float64) (*Result, *Timing, error) {
	if radius <= 0 {
		return nil, nil, fmt.Errorf("Reconstruct: radius must be positive, got %v", radius)
	}

	start := time.Now()
	positions := make([]r3.Vector, len(points))
	for i, p := range points {
		positions[i] = p.Pos
	}

	p := &pivoter{
		pts:      points,
		radius:   radius,
		eps:      relativeEps * radius,
		index:    pointgrid.New(positions, 2*radius),
		used:     make([]bool, len(points)),
		front:    newFront(),
		triCount: make(map[pairKey]uint8),
	}

	timing := &Timing{}
	for {
		t0 := time.Now()
		seeded := p.findSeed()
		timing.SeedSearch += time.Since(t0)
		if !seeded {
			break
		}

		t1 := time.Now()
		for {
			ei, ok := p.front.pop()
			if !ok {
				break
			}
			p.pivot(ei)
		}
		timing.Pivot += time.Since(t1)
	}

	res := &Result{
		Triangles:         p.tris,
		Centers:           p.centers,
		Unreconstructable: len(p.tris) == 0,
	}
	timing.Total = time.Since(start)
	timing.Triangles = len(p.tris)
	timing.FrontPeak = p.front.peak
	return res, timing, nil
}

// pivoter is the mutable state of one reconstruction run.
type pivoter struct {
	pts    []cloud.Point
	radius float64
	eps    float64
	index  *pointgrid.Index

	used     []bool
	front    *front
	tris     [][3]int
	centers  []r3.Vector
	triCount map[pairKey]uint8

	seedCursor int
}

// findSeed scans unused points for a triangle the pivot ball can rest on and
// starts a front from it. The cursor never rewinds: a point that fails to
// seed while unused fails forever, since candidate sets ignore used flags.
func (p *pivoter) findSeed() bool {
	for ; p.seedCursor < len(p.pts); p.seedCursor++ {
		i := p.seedCursor
		if p.used[i] {
			continue
		}

		neighborhood := p.index.Neighborhood(p.pts[i].Pos, 2*p.radius)
		for _, q := range neighborhood {
			if q == i {
				continue
			}
			for _, s := range neighborhood {
				if s == i || s == q {
					continue
				}
				if p.trySeed(i, q, s) {
					return true
				}
			}
		}
	}
	return false
}

// trySeed checks whether the ball can rest on (i, q, s) and, if so, emits the
// seed triangle and its three front edges.
func (p *pivoter) trySeed(i, q, s int) bool {
	a, b, c := int32(i), int32(q), int32(s)
	pa, pb, pc := p.pts[a].Pos, p.pts[b].Pos, p.pts[c].Pos

	// orient the triangle with the input normals
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	avg := p.pts[a].Normal.Add(p.pts[b].Normal).Add(p.pts[c].Normal)
	if n.Dot(avg) < 0 {
		b, c = c, b
		pb, pc = pc, pb
		n = n.Mul(-1)
	}

	center, ok := p.ballCenter(pa, pb, pc, n)
	if !ok || !p.ballEmpty(center, int(a), int(b), int(c)) {
		return false
	}
	if p.triCount[keyOf(a, b)] >= 2 || p.triCount[keyOf(b, c)] >= 2 || p.triCount[keyOf(c, a)] >= 2 {
		return false
	}

	p.emit(a, b, c, center)
	p.front.add(a, b, c, center)
	p.front.add(b, c, a, center)
	p.front.add(c, a, b, center)
	return true
}

// pivot rolls the ball around edge ei and accepts the first point it meets.
// On failure the edge becomes a boundary edge and is never retried.
func (p *pivoter) pivot(ei int32) {
	e := p.front.edges[ei]
	pa, pb := p.pts[e.a].Pos, p.pts[e.b].Pos
	mid := pa.Add(pb).Mul(0.5)

	best := -1
	bestAngle := 0.0
	var bestCenter r3.Vector

	for _, x := range p.index.Neighborhood(mid, 2*p.radius) {
		xi := int32(x)
		if xi == e.a || xi == e.b || xi == e.opp {
			continue
		}
		if p.triCount[keyOf(e.a, xi)] >= 2 || p.triCount[keyOf(xi, e.b)] >= 2 {
			continue
		}

		// orientation inherited from the edge: candidate triangle is (a, x, b)
		px := p.pts[x].Pos
		n := px.Sub(pa).Cross(pb.Sub(pa))
		center, ok := p.ballCenter(pa, px, pb, n)
		if !ok || !p.ballEmpty(center, int(e.a), x, int(e.b)) {
			continue
		}

		angle := pivotAngle(pa, pb, e.center, center)
		if best < 0 || angle < bestAngle {
			best = x
			bestAngle = angle
			bestCenter = center
		}
	}

	if best < 0 {
		p.front.boundary(ei)
		return
	}

	xi := int32(best)
	p.emit(e.a, xi, e.b, bestCenter)
	p.front.add(e.a, xi, e.b, bestCenter)
	p.front.add(xi, e.b, e.a, bestCenter)
	p.front.freeze(ei)
}

// emit appends a triangle, records its ball center, marks its vertices used,
// and counts its edges.
func (p *pivoter) emit(a, b, c int32, center r3.Vector) {
	p.tris = append(p.tris, [3]int{int(a), int(b), int(c)})
	p.centers = append(p.centers, center)
	p.used[a] = true
	p.used[b] = true
	p.used[c] = true
	p.triCount[keyOf(a, b)]++
	p.triCount[keyOf(b, c)]++
	p.triCount[keyOf(c, a)]++
}

// ballCenter returns the center of the radius-ρ ball tangent to a, b, c on the
// side the (unnormalized) normal n points to. It does not exist when the
// circumradius exceeds ρ or the points are collinear.
func (p *pivoter) ballCenter(a, b, c, n r3.Vector) (r3.Vector, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	abXac := ab.Cross(ac)
	norm2 := abXac.Dot(abXac)
	if norm2 <= p.eps*p.eps {
		return r3.Vector{}, false
	}

	toCircum := abXac.Cross(ab).Mul(ac.Dot(ac)).
		Add(ac.Cross(abXac).Mul(ab.Dot(ab))).
		Mul(1 / (2 * norm2))
	h2 := p.radius*p.radius - toCircum.Dot(toCircum)
	if h2 < 0 {
		return r3.Vector{}, false
	}

	return a.Add(toCircum).Add(n.Normalize().Mul(math.Sqrt(h2))), true
}

// ballEmpty reports whether no input point other than the triangle's own
// vertices lies inside the ball at center, up to the relative tolerance.
func (p *pivoter) ballEmpty(center r3.Vector, v0, v1, v2 int) bool {
	limit := p.radius - p.eps
	for _, j := range p.index.Neighborhood(center, p.radius) {
		if j == v0 || j == v1 || j == v2 {
			continue
		}
		if p.pts[j].Pos.Sub(center).Norm() < limit {
			return false
		}
	}
	return true
}

// pivotAngle measures how far the ball center rotates around the a-b axis
// from c0 to c1, in [0, 2π), increasing in the rolling direction.
func pivotAngle(a, b, c0, c1 r3.Vector) float64 {
	mid := a.Add(b).Mul(0.5)
	axis := b.Sub(a).Normalize()

	v0 := c0.Sub(mid)
	v0 = v0.Sub(axis.Mul(v0.Dot(axis)))
	u := v0.Normalize()
	t := axis.Cross(u)

	d := c1.Sub(mid)
	d = d.Sub(axis.Mul(d.Dot(axis)))

	angle := math.Atan2(d.Dot(t), d.Dot(u))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}
