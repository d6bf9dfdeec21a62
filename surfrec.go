// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package surfrec reconstructs triangulated surface meshes from unstructured,
// oriented 3D point clouds. Two engines are available: spherical Delaunay
// triangulation for closed, star-shaped inputs, and ball pivoting for general
// surfaces sampled densely enough for a fixed-radius ball to roll over.

package surfrec

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/2dChan/surfrec/ballpivot"
	"github.com/2dChan/surfrec/cloud"
	"github.com/2dChan/surfrec/s2delaunay"
)

// ErrInvalidInput reports input rejected at the call boundary: an empty point
// set, non-finite coordinates, a zero-length normal, or a non-positive radius.
var ErrInvalidInput = errors.New("surfrec: invalid input")

// Point is an oriented sample of the surface to reconstruct.
type Point = cloud.Point

// Result is a reconstructed mesh, as produced by the ball-pivoting engine.
type Result = ballpivot.Result

// Timing is the wall-time breakdown of a measured reconstruction.
type Timing = ballpivot.Timing

// DegenerateGeometryError reports geometry the Delaunay engine cannot work
// with, located by its input index.
type DegenerateGeometryError = s2delaunay.DegenerateGeometryError

// ReconstructDelaunay triangulates the points projected onto the unit sphere
// and returns the faces over original vertices, wound outward. Appropriate for
// closed, star-shaped clouds. Fewer than three points yield an empty mesh.
func ReconstructDelaunay(points []Point, setters ...s2delaunay.TriangulationOption) ([][3]int, error) {
	if err := validate(points); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, nil
	}

	positions := make([]r3.Vector, len(points))
	for i, p := range points {
		positions[i] = p.Pos
	}
	dt, err := s2delaunay.NewTriangulation(positions, setters...)
	if err != nil {
		return nil, err
	}
	return dt.Triangles, nil
}

// ReconstructBallPivoting walks a ball of the given radius over the points and
// returns the mesh it traces. A cloud no ball can rest on is reported through
// Result.Unreconstructable, not as an error.
func ReconstructBallPivoting(points []Point, radius float64) (*Result, error) {
	if err := validateRadius(radius); err != nil {
		return nil, err
	}
	if err := validate(points); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return &Result{Unreconstructable: true}, nil
	}
	return ballpivot.Reconstruct(points, radius)
}

// ReconstructBallPivotingMeasured is ReconstructBallPivoting plus a wall-time
// breakdown of the run.
func ReconstructBallPivotingMeasured(points []Point, radius float64) (*Result, *Timing, error) {
	if err := validateRadius(radius); err != nil {
		return nil, nil, err
	}
	if err := validate(points); err != nil {
		return nil, nil, err
	}
	if len(points) < 3 {
		return &Result{Unreconstructable: true}, &Timing{}, nil
	}
	return ballpivot.MeasuredReconstruct(points, radius)
}

// TriangleNormal returns the unit normal of an output triangle, oriented to
// agree with the input normals at its vertices. Consumers that light the mesh
// can use it instead of re-deriving normals from positions.
func TriangleNormal(points []Point, tri [3]int) r3.Vector {
	a, b, c := points[tri[0]].Pos, points[tri[1]].Pos, points[tri[2]].Pos
	n := b.Sub(a).Cross(c.Sub(a))
	avg := points[tri[0]].Normal.Add(points[tri[1]].Normal).Add(points[tri[2]].Normal)
	if n.Dot(avg) < 0 {
		n = n.Mul(-1)
	}
	return n.Normalize()
}

// validate checks the call-boundary input contract shared by both engines.
func validate(points []Point) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: empty point set", ErrInvalidInput)
	}
	for i, p := range points {
		if !finite(p.Pos) {
			return fmt.Errorf("%w: non-finite position at point %d", ErrInvalidInput, i)
		}
		if !finite(p.Normal) {
			return fmt.Errorf("%w: non-finite normal at point %d", ErrInvalidInput, i)
		}
		if p.Normal == (r3.Vector{}) {
			return fmt.Errorf("%w: zero-length normal at point %d", ErrInvalidInput, i)
		}
	}
	return nil
}

func validateRadius(radius float64) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidInput, radius)
	}
	return nil
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
