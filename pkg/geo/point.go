package geo

import (
	"math"

	"github.com/ctessum/geom"
)

// Pt is a shorthand constructor for geom.Point.
func Pt(x, y float64) geom.Point {
	return geom.Point{X: x, Y: y}
}

func sub(p, q geom.Point) geom.Point {
	return geom.Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func add(p, q geom.Point) geom.Point {
	return geom.Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// dot returns the dot product of p and q.
func dot(p, q geom.Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// cross returns the 2D cross product (z-component of 3D cross).
func cross(p, q geom.Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// perp returns p rotated 90 degrees counterclockwise.
func perp(p geom.Point) geom.Point {
	return geom.Point{X: -p.Y, Y: p.X}
}

// MidPoint returns the midpoint between p and q.
func MidPoint(p, q geom.Point) geom.Point {
	return geom.Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Snap rounds p to the nearest multiple of grid. A non-positive grid
// leaves p unchanged.
func Snap(p geom.Point, grid float64) geom.Point {
	if grid <= 0 {
		return p
	}
	return geom.Point{
		X: math.Round(p.X/grid) * grid,
		Y: math.Round(p.Y/grid) * grid,
	}
}

// orientation returns >0 if a→b→c turns left, <0 if right, 0 if collinear.
func orientation(a, b, c geom.Point) float64 {
	return cross(sub(b, a), sub(c, a))
}
