package pose

import (
	"errors"
	"math"
)

// ErrDegenerateGeometry is returned when an angle is requested at a vertex
// with a zero-length adjacent segment.
var ErrDegenerateGeometry = errors.New("pose: degenerate geometry, zero-length segment")

// JointAngle computes the angle in degrees at vertex b of the triangle
// a-b-c, in pixel space. The result is in [0, 180]. The cosine is clamped
// to [-1, 1] before acos so floating-point overshoot cannot produce NaN.
func JointAngle(a, b, c Point) (float64, error) {
	v1 := Point{X: a.X - b.X, Y: a.Y - b.Y}
	v2 := Point{X: c.X - b.X, Y: c.Y - b.Y}

	m1 := math.Hypot(v1.X, v1.Y)
	m2 := math.Hypot(v2.X, v2.Y)
	if m1 == 0 || m2 == 0 {
		return 0, ErrDegenerateGeometry
	}

	cos := (v1.X*v2.X + v1.Y*v2.Y) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi, nil
}

// Distance is the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Unnormalize rescales normalized [0,1] landmark coordinates into the pixel
// space of a width x height frame. It returns a new slice and leaves the
// input untouched.
func Unnormalize(joints []Point, width, height int) []Point {
	out := make([]Point, len(joints))
	for i, j := range joints {
		out[i] = Point{
			X: j.X * float64(width),
			Y: j.Y * float64(height),
		}
	}
	return out
}
