// Package analysis turns the two modality payloads of a scan into a saddle
// height recommendation. It owns the readiness wait between the photo and
// video producers, the per-scan single-flight guard and the terminal write
// of the scan result.
package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/pedalworks/bikefit/internal/models"
	"github.com/pedalworks/bikefit/internal/pose"
)

// PhotoResult is the silhouette measurement of the reference photo:
// the highest and lowest body pixel in photo y-units.
type PhotoResult struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	HighestPoint float64 `json:"highest_point"`
	LowestPoint  float64 `json:"lowest_point"`
}

// Frame is one video frame's pose estimate. Joints are normalized [0,1]
// coordinates indexed by the MediaPipe landmark id. The elbow angle is part
// of the worker output but unused by the saddle calculation.
type Frame struct {
	KneeAngle  float64      `json:"knee_angle"`
	ElbowAngle float64      `json:"elbow_angle"`
	Joints     []pose.Point `json:"joints"`
}

// VideoResult is the per-frame pose sequence of the riding video. The
// facing direction may be pre-resolved by the worker; when absent it is
// resolved here from the selected frame's landmarks.
type VideoResult struct {
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	FacingDirection pose.Direction `json:"facing_direction"`
	Frames          []Frame        `json:"frames"`
}

func (p *PhotoResult) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("photo payload: invalid dimensions %dx%d", p.Width, p.Height)
	}
	if p.HighestPoint == p.LowestPoint {
		return fmt.Errorf("photo payload: silhouette extremes are equal")
	}
	return nil
}

func (v *VideoResult) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("video payload: invalid dimensions %dx%d", v.Width, v.Height)
	}
	switch v.FacingDirection {
	case "", pose.FacingLeft, pose.FacingRight:
	default:
		return fmt.Errorf("video payload: unknown facing direction %q", v.FacingDirection)
	}
	if len(v.Frames) == 0 {
		return fmt.Errorf("video payload: no frames")
	}
	for i, frame := range v.Frames {
		if len(frame.Joints) != pose.NumLandmarks {
			return fmt.Errorf("video payload: frame %d has %d joints, want %d", i, len(frame.Joints), pose.NumLandmarks)
		}
	}
	return nil
}

// ValidatePayload decodes and checks a raw callback payload for the given
// modality. It is the gate that turns the worker's loose JSON into the
// typed structures the calculator reads.
func ValidatePayload(modality models.Modality, raw json.RawMessage) error {
	switch modality {
	case models.ModalityPhoto:
		var photo PhotoResult
		if err := json.Unmarshal(raw, &photo); err != nil {
			return fmt.Errorf("decoding photo payload: %w", err)
		}
		return photo.Validate()
	case models.ModalityVideo:
		var video VideoResult
		if err := json.Unmarshal(raw, &video); err != nil {
			return fmt.Errorf("decoding video payload: %w", err)
		}
		return video.Validate()
	default:
		return fmt.Errorf("unknown modality %q", modality)
	}
}
