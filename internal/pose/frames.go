package pose

import "errors"

// ErrNoFrames is returned when frame selection runs on an empty sequence,
// e.g. when the pose model never detected a rider in any frame.
var ErrNoFrames = errors.New("pose: no frames to select from")

// MaxExtensionIndex returns the index of the frame with the largest knee
// angle, the point of fullest leg extension during the pedal stroke. Ties
// resolve to the first occurrence.
func MaxExtensionIndex(kneeAngles []float64) (int, error) {
	if len(kneeAngles) == 0 {
		return 0, ErrNoFrames
	}

	best := 0
	for i, angle := range kneeAngles {
		if angle > kneeAngles[best] {
			best = i
		}
	}
	return best, nil
}
