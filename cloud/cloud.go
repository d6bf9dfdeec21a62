// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package cloud provides the oriented-point type consumed by the reconstruction
// engines and deterministic generators for test and example clouds.

package cloud

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
)

// Point is an oriented sample: a position and a surface normal.
// Points are immutable after ingestion and identified by their slice index.
type Point struct {
	Pos    r3.Vector
	Normal r3.Vector
}

// Octahedron returns the six axis points at unit distance with radial normals.
func Octahedron() []Point {
	positions := []r3.Vector{
		{X: 1}, {X: -1},
		{Y: 1}, {Y: -1},
		{Z: 1}, {Z: -1},
	}
	points := make([]Point, len(positions))
	for i, p := range positions {
		points[i] = Point{Pos: p, Normal: p}
	}
	return points
}

// GenSphericalCloud generates a latitude/longitude grid on the unit sphere with
// outward normals: a south pole, slices*(stacks-1) ring points, and a north pole.
func GenSphericalCloud(slices, stacks int) []Point {
	points := make([]Point, 0, slices*(stacks-1)+2)
	points = append(points, Point{Pos: r3.Vector{Z: -1}, Normal: r3.Vector{Z: -1}})
	for slice := 0; slice < slices; slice++ {
		for stack := 1; stack < stacks; stack++ {
			yaw := (float64(slice) / float64(slices)) * 2 * math.Pi
			z := math.Sin((float64(stack)/float64(stacks) - 0.5) * math.Pi)
			r := math.Sqrt(1 - z*z)

			v := r3.Vector{
				X: r * math.Sin(yaw),
				Y: r * math.Cos(yaw),
				Z: z,
			}
			points = append(points, Point{Pos: v, Normal: v.Normalize()})
		}
	}
	points = append(points, Point{Pos: r3.Vector{Z: 1}, Normal: r3.Vector{Z: 1}})
	return points
}

// GenDiskCloud generates cnt points sampled uniformly on the z=0 disk of the
// given radius, all carrying the (0,1,0) normal. The seed ensures
// reproducibility.
func GenDiskCloud(cnt int, radius float64, seed int64) []Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]Point, cnt)

	for i := range cnt {
		r := radius * math.Sqrt(random.Float64())
		theta := random.Float64() * 2 * math.Pi
		points[i] = Point{
			Pos:    r3.Vector{X: r * math.Cos(theta), Y: r * math.Sin(theta)},
			Normal: r3.Vector{Y: 1},
		}
	}

	return points
}

// GenRandomSphereCloud generates cnt random points on the unit sphere with
// radial normals. The seed ensures reproducibility.
func GenRandomSphereCloud(cnt int, seed int64) []Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]Point, cnt)

	for i := range cnt {
		z := random.Float64()*2 - 1
		theta := random.Float64() * 2 * math.Pi
		r := math.Sqrt(1 - z*z)

		v := r3.Vector{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: z}
		points[i] = Point{Pos: v, Normal: v}
	}

	return points
}
