package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/stereopipeline/bundleadjust/spatialmath"
)

// Pinhole is a perspective camera with a single focal length, a principal
// point, a lens distortion model and a rigid pose placing the camera in the
// world frame. The pose maps camera-frame coordinates to world coordinates;
// the camera looks down its +Z axis. A Pinhole is read-only after
// construction and safe for concurrent projection.
type Pinhole struct {
	Pose       spatialmath.Pose
	Focal      float64
	Center     r2.Point
	Distortion Distorter
}

// NewPinhole validates and assembles a pinhole camera. A nil distortion is
// replaced with the identity lens.
func NewPinhole(pose spatialmath.Pose, focal float64, center r2.Point, distortion Distorter) (*Pinhole, error) {
	if focal <= 0 {
		return nil, errors.Errorf("invalid focal length %v", focal)
	}
	if distortion == nil {
		distortion = &NoDistortion{}
	}
	if err := distortion.CheckValid(); err != nil {
		return nil, err
	}
	return &Pinhole{Pose: pose, Focal: focal, Center: center, Distortion: distortion}, nil
}

// PointToPixel projects a 3D world point into the image plane.
func (c *Pinhole) PointToPixel(pt r3.Vector) (r2.Point, error) {
	p := c.Pose.InvTransformPoint(pt)
	if p.Z <= 0 {
		return r2.Point{}, NewProjectionError("point is behind the camera")
	}
	x, y := c.Distortion.Transform(p.X/p.Z, p.Y/p.Z)
	return r2.Point{
		X: c.Focal*x + c.Center.X,
		Y: c.Focal*y + c.Center.Y,
	}, nil
}

// CameraMatrix returns the 3x3 intrinsic matrix
// [[f 0 cx], [0 f cy], [0 0 1]].
func (c *Pinhole) CameraMatrix() *mat.Dense {
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, c.Focal)
	cameraMatrix.Set(1, 1, c.Focal)
	cameraMatrix.Set(0, 2, c.Center.X)
	cameraMatrix.Set(1, 2, c.Center.Y)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}
