// Package pose holds the 2D body-landmark geometry used by the saddle
// analysis: joint angles, facing-direction resolution and coordinate
// unnormalization.
package pose

// Body landmark indices following the MediaPipe 33-point convention.
// Only the indices the analysis reads are named.
const (
	LeftElbow  = 13
	RightElbow = 14
	LeftWrist  = 15
	RightWrist = 16
	LeftHip    = 23
	RightHip   = 24
	LeftKnee   = 25
	RightKnee  = 26
	LeftAnkle  = 27
	RightAnkle = 28

	NumLandmarks = 33
)

// Point is a 2D coordinate, normalized [0,1] or pixel space depending on
// where it sits in the pipeline.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Direction is the lateral body side used for angle measurements.
type Direction string

const (
	FacingLeft  Direction = "left"
	FacingRight Direction = "right"
)

// LegPoints returns the (hip, knee, ankle) landmark indices for the given
// facing direction.
func LegPoints(d Direction) (hip, knee, ankle int) {
	if d == FacingLeft {
		return LeftHip, LeftKnee, LeftAnkle
	}
	return RightHip, RightKnee, RightAnkle
}
