package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// PoseVectorSize is the length of the flattened pose representation used by
// optimizer parameter blocks: three translation components followed by three
// R3 axis-angle rotation components.
const PoseVectorSize = 6

// Pose is a rigid transform in 3D: a rotation followed by a translation.
// Poses are value types and safe to share across goroutines.
type Pose struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPose creates a pose from a translation and an R3 axis-angle rotation.
func NewPose(translation, axisAngle r3.Vector) Pose {
	return Pose{Translation: translation, Rotation: R3ToR4(axisAngle).ToQuat()}
}

// NewPoseFromVector unpacks a 6-dof pose vector [tx ty tz rx ry rz].
func NewPoseFromVector(vec []float64) (Pose, error) {
	if len(vec) != PoseVectorSize {
		return Pose{}, errors.Errorf("pose vector must have %d elements, got %d", PoseVectorSize, len(vec))
	}
	return NewPose(
		r3.Vector{X: vec[0], Y: vec[1], Z: vec[2]},
		r3.Vector{X: vec[3], Y: vec[4], Z: vec[5]},
	), nil
}

// Vector flattens the pose into its 6-dof vector form.
func (p Pose) Vector() []float64 {
	aa := QuatToR4AA(p.Rotation).ToR3()
	return []float64{p.Translation.X, p.Translation.Y, p.Translation.Z, aa.X, aa.Y, aa.Z}
}

// TransformPoint applies the pose to a point: R*pt + t.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return RotateVectorByQuat(p.Rotation, pt).Add(p.Translation)
}

// InvTransformPoint applies the inverse of the pose to a point: R^-1*(pt - t).
func (p Pose) InvTransformPoint(pt r3.Vector) r3.Vector {
	return RotateVectorByQuat(quat.Conj(p.Rotation), pt.Sub(p.Translation))
}

// Compose returns the pose equivalent to applying o first and then p.
func (p Pose) Compose(o Pose) Pose {
	return Pose{
		Translation: p.TransformPoint(o.Translation),
		Rotation:    quat.Mul(p.Rotation, o.Rotation),
	}
}

// Invert returns the inverse rigid transform.
func (p Pose) Invert() Pose {
	inv := quat.Conj(p.Rotation)
	return Pose{
		Translation: RotateVectorByQuat(inv, p.Translation.Mul(-1)),
		Rotation:    inv,
	}
}
