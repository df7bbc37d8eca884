// Package camera implements the pinhole camera model with lens distortion
// used to project adjusted 3D points into image space.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrProjection is the recoverable failure returned when a 3D point does not
// project into the valid geometry of a camera. Callers are expected to treat
// it as a bad hypothesis, not a defect.
var ErrProjection = errors.New("point does not project into the camera")

// NewProjectionError annotates ErrProjection with the geometric reason.
func NewProjectionError(msg string) error {
	return errors.Wrap(ErrProjection, msg)
}

// IsProjectionError reports whether err comes from a failed projection.
func IsProjectionError(err error) bool {
	return errors.Is(err, ErrProjection)
}

// Camera projects world points to pixel coordinates.
type Camera interface {
	// PointToPixel projects a 3D world point into the image plane.
	// It returns a projection error when the point falls outside the
	// camera's valid geometry, e.g. behind the image plane.
	PointToPixel(pt r3.Vector) (r2.Point, error)
}
