// Package scale maps coordinates recorded at one display resolution onto
// the resolution of the live display. Rescaling is proportional per axis
// and applied fresh from the original recorded coordinates before every
// pointer operation, so repeated rescaling never compounds rounding error.
package scale

import "math"

// Point is a pixel position in some display's coordinate space.
type Point struct {
	X int
	Y int
}

// Size is a display resolution in pixels.
type Size struct {
	W int
	H int
}

// Rescale maps p from the recorded resolution onto the current one. When
// either resolution is unknown (a dimension ≤ 0) or they match, p is
// returned unchanged.
func Rescale(p Point, recorded, current Size) Point {
	if recorded.W <= 0 || recorded.H <= 0 || current.W <= 0 || current.H <= 0 {
		return p
	}
	if recorded == current {
		return p
	}
	return Point{
		X: int(math.Round(float64(p.X) * float64(current.W) / float64(recorded.W))),
		Y: int(math.Round(float64(p.Y) * float64(current.H) / float64(recorded.H))),
	}
}
