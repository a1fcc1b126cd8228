package device

import "fmt"

// jpegOrientations maps display rotation in degrees to the JPEG
// orientation tag written for a sensor mounted at 90 degrees.
var jpegOrientations = map[int]int{
	0:   90,
	90:  0,
	180: 270,
	270: 180,
}

func validRotation(deg int) bool {
	_, ok := jpegOrientations[deg]
	return ok
}

// JPEGOrientation returns the orientation tag for a still captured while the
// display is rotated by displayRotation degrees. Sensors mounted at 270
// degrees (typically front cameras) are read half a turn further round.
func JPEGOrientation(displayRotation, sensorOrientation int) (int, error) {
	if !validRotation(displayRotation) {
		return 0, fmt.Errorf("unsupported display rotation %d", displayRotation)
	}
	if !validRotation(sensorOrientation) {
		return 0, fmt.Errorf("unsupported sensor orientation %d", sensorOrientation)
	}
	rotation := displayRotation
	if sensorOrientation == 270 {
		rotation = (rotation + 180) % 360
	}
	return jpegOrientations[rotation], nil
}

// SwapDimensions reports whether the sensor's axes are transposed relative
// to the display, in which case preview bounds must be swapped.
func SwapDimensions(displayRotation, sensorOrientation int) bool {
	switch displayRotation {
	case 0, 180:
		return sensorOrientation == 90 || sensorOrientation == 270
	case 90, 270:
		return sensorOrientation == 0 || sensorOrientation == 180
	default:
		return false
	}
}
