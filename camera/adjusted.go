package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereopipeline/bundleadjust/spatialmath"
)

// Adjusted wraps an underlying camera with a rigid 6-dof correction. Moving
// the camera by the correction is equivalent to projecting the
// inverse-corrected point through the unmoved camera, which is how the
// projection is computed. A zero correction reproduces the underlying camera
// exactly.
type Adjusted struct {
	underlying Camera
	correction spatialmath.Pose
}

// NewAdjusted wraps a camera with a rigid correction.
func NewAdjusted(underlying Camera, correction spatialmath.Pose) (*Adjusted, error) {
	if underlying == nil {
		return nil, errors.New("cannot adjust a nil camera")
	}
	return &Adjusted{underlying: underlying, correction: correction}, nil
}

// Correction returns the rigid correction applied on top of the underlying camera.
func (a *Adjusted) Correction() spatialmath.Pose {
	return a.correction
}

// PointToPixel projects a 3D world point through the corrected camera.
func (a *Adjusted) PointToPixel(pt r3.Vector) (r2.Point, error) {
	return a.underlying.PointToPixel(a.correction.InvTransformPoint(pt))
}
