package pose

// Facing resolves which body side faces the camera from one frame's
// landmarks, by comparing the wrist's x-coordinate against the elbow's:
// on a rider seen from their left side the hands sit in front of
// (at lower x than) the elbows.
//
// The left-side comparison decides; if its wrist and elbow x are equal the
// right-side comparison is used instead, and if both are ambiguous the
// resolver defaults to left.
func Facing(joints []Point) Direction {
	if d, ok := compareSide(joints[LeftWrist].X, joints[LeftElbow].X); ok {
		return d
	}
	if d, ok := compareSide(joints[RightWrist].X, joints[RightElbow].X); ok {
		return d
	}
	return FacingLeft
}

func compareSide(wristX, elbowX float64) (Direction, bool) {
	switch {
	case wristX < elbowX:
		return FacingLeft, true
	case wristX > elbowX:
		return FacingRight, true
	default:
		return "", false
	}
}
