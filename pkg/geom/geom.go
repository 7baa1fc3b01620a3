// Package geom holds the 2D primitives the sector renderer is built on:
// convex hull, centroid and closed-curve smoothing.
package geom

import (
	"math"
	"sort"
)

// Point is a position in layout space.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Centroid returns the mean of the given points. Returns the zero Point for
// empty input.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(pts))
	c.Y /= float64(len(pts))
	return c
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull computes the convex hull of pts (monotone chain) in
// counter-clockwise order. It returns nil when the hull is undefined:
// fewer than 3 distinct points, or all points collinear.
func ConvexHull(pts []Point) []Point {
	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	// Dedupe. Coincident points would make the chain degenerate.
	uniq := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return nil
	}

	hull := make([]Point, 0, 2*len(uniq))

	// Lower chain.
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper chain.
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		// All collinear.
		return nil
	}
	return hull
}

// Expand scales each hull vertex away from the centroid by margin units,
// so the drawn region clears the node markers it encloses.
func Expand(hull []Point, margin float64) []Point {
	if len(hull) == 0 {
		return nil
	}
	c := Centroid(hull)
	out := make([]Point, len(hull))
	for i, p := range hull {
		d := Dist(c, p)
		if d == 0 {
			out[i] = p
			continue
		}
		scale := (d + margin) / d
		out[i] = Point{
			X: c.X + (p.X-c.X)*scale,
			Y: c.Y + (p.Y-c.Y)*scale,
		}
	}
	return out
}

// SmoothClosed samples a closed Catmull-Rom spline through the given
// boundary points, returning samplesPerSegment interpolated points per
// edge. The result is a denser closed outline suitable for a smooth filled
// region. Inputs with fewer than 3 points are returned unchanged.
func SmoothClosed(boundary []Point, samplesPerSegment int) []Point {
	n := len(boundary)
	if n < 3 || samplesPerSegment < 1 {
		return boundary
	}

	out := make([]Point, 0, n*samplesPerSegment)
	for i := 0; i < n; i++ {
		p0 := boundary[(i-1+n)%n]
		p1 := boundary[i]
		p2 := boundary[(i+1)%n]
		p3 := boundary[(i+2)%n]

		for s := 0; s < samplesPerSegment; s++ {
			t := float64(s) / float64(samplesPerSegment)
			t2 := t * t
			t3 := t2 * t
			out = append(out, Point{
				X: 0.5 * ((2 * p1.X) +
					(-p0.X+p2.X)*t +
					(2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 +
					(-p0.X+3*p1.X-3*p2.X+p3.X)*t3),
				Y: 0.5 * ((2 * p1.Y) +
					(-p0.Y+p2.Y)*t +
					(2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 +
					(-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3),
			})
		}
	}
	return out
}
