package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/pedalworks/bikefit/internal/models"
	"github.com/pedalworks/bikefit/internal/pose"
)

// The knee angle interval at full leg extension considered biomechanically
// correct for cycling. Inside it no adjustment is recommended; outside it
// the saddle is moved so the extended leg would reach the midpoint.
const (
	comfortKneeMin = 140.0
	comfortKneeMax = 150.0

	targetKneeAngle = (comfortKneeMin + comfortKneeMax) / 2
)

// ErrMissingPayload is returned when the calculation is invoked without one
// of its required inputs.
var ErrMissingPayload = errors.New("analysis: missing payload")

// inComfortRange reports whether the knee angle needs no correction. Both
// bounds are inclusive.
func inComfortRange(angle float64) bool {
	return angle >= comfortKneeMin && angle <= comfortKneeMax
}

// SaddleOffset derives the vertical saddle correction for a rider of
// heightCM centimeters from the photo silhouette and the video pose
// sequence.
//
// The frame with the widest knee angle (fullest extension) is measured in
// video pixel space. If its knee angle already sits in the comfort range the
// adjustment is zero. Otherwise the law of cosines gives the hip-to-foot
// length that would produce the target knee angle, and the pixel difference
// to the current length is converted to centimeters with the rider's height
// against the photo-measured body length.
//
// The sign convention: positive SaddleYCM means raise the saddle.
func SaddleOffset(photo *PhotoResult, video *VideoResult, heightCM int) (models.SaddleAdjustment, error) {
	var zero models.SaddleAdjustment

	if photo == nil || video == nil {
		return zero, ErrMissingPayload
	}
	if len(video.Frames) == 0 {
		return zero, fmt.Errorf("selecting frame: %w", pose.ErrNoFrames)
	}

	kneeAngles := make([]float64, len(video.Frames))
	for i, frame := range video.Frames {
		kneeAngles[i] = frame.KneeAngle
	}
	selected, err := pose.MaxExtensionIndex(kneeAngles)
	if err != nil {
		return zero, fmt.Errorf("selecting frame: %w", err)
	}

	joints := pose.Unnormalize(video.Frames[selected].Joints, video.Width, video.Height)

	facing := video.FacingDirection
	if facing == "" {
		facing = pose.Facing(joints)
	}
	hipIdx, kneeIdx, ankleIdx := pose.LegPoints(facing)
	hip, knee, foot := joints[hipIdx], joints[kneeIdx], joints[ankleIdx]

	kneeAngle, err := pose.JointAngle(foot, knee, hip)
	if err != nil {
		return zero, fmt.Errorf("measuring knee angle: %w", err)
	}

	if inComfortRange(kneeAngle) {
		return models.SaddleAdjustment{}, nil
	}

	thigh := pose.Distance(hip, knee)
	shin := pose.Distance(knee, foot)
	current := pose.Distance(hip, foot)

	// Law of cosines: the hip-foot length at the target knee angle.
	ideal := math.Sqrt(thigh*thigh + shin*shin -
		2*thigh*shin*math.Cos(targetKneeAngle*math.Pi/180))

	deltaPx := ideal - current

	ratio, err := pxToCM(photo, video, heightCM)
	if err != nil {
		return zero, err
	}

	return models.SaddleAdjustment{
		SaddleXCM: 0,
		SaddleYCM: ratio * deltaPx,
	}, nil
}

// pxToCM derives the centimeters-per-video-pixel ratio. The body length
// measured on the photo is first brought into the video frame's pixel scale
// before dividing the rider's real height by it.
func pxToCM(photo *PhotoResult, video *VideoResult, heightCM int) (float64, error) {
	bodyPx := math.Abs(photo.HighestPoint - photo.LowestPoint)
	bodyPx /= float64(photo.Height) / float64(video.Height)

	if bodyPx == 0 {
		return 0, fmt.Errorf("photo silhouette: %w", pose.ErrDegenerateGeometry)
	}
	return float64(heightCM) / bodyPx, nil
}
