// Package adjust implements the residual layer of the bundle-adjustment
// engine: camera parameterizations that unpack optimizer-owned parameter
// blocks into pixel projections, and the cost functions (reprojection,
// cross-view disparity, ground control, pose priors) registered with the
// optimizer.
package adjust

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereopipeline/bundleadjust/camera"
	"github.com/stereopipeline/bundleadjust/spatialmath"
)

const (
	// NumPointParams is the size of the 3D point parameter block.
	NumPointParams = 3
	// NumPoseParams is the size of the 6-dof pose parameter block.
	NumPoseParams = spatialmath.PoseVectorSize
)

// BundleCamera unpacks optimizer parameter blocks into a camera model that
// projects 3D points. The first block is always the 3D point and the second
// is always the 6-dof pose; whatever follows is variant-specific intrinsics.
// The block layout is fixed for the lifetime of the instance, and Project
// must be safe for concurrent calls with different parameter values.
type BundleCamera interface {
	// NumIntrinsicParams is the count of camera parameters other than pose.
	NumIntrinsicParams() int
	// NumParams is the total count across all parameter blocks.
	NumParams() int
	// NumParameterBlocks returns the number of parameter blocks.
	NumParameterBlocks() int
	// BlockSizes returns the size of each parameter block, summing to NumParams.
	BlockSizes() []int
	// Project reads all parameter blocks and produces a pixel. A projection
	// error means the point does not land in the camera's valid geometry; any
	// other error means the blocks do not match the declared layout.
	Project(blocks [][]float64) (r2.Point, error)
}

func checkBlocks(bc BundleCamera, blocks [][]float64) error {
	sizes := bc.BlockSizes()
	if len(blocks) != len(sizes) {
		return errors.Errorf("expected %d parameter blocks, got %d", len(sizes), len(blocks))
	}
	for i, size := range sizes {
		if len(blocks[i]) != size {
			return errors.Errorf("parameter block %d must have %d elements, got %d", i, size, len(blocks[i]))
		}
	}
	return nil
}

func pointFromBlock(block []float64) r3.Vector {
	return r3.Vector{X: block[0], Y: block[1], Z: block[2]}
}

// AdjustedBundleCamera varies only a rigid 6-dof correction on top of a fixed
// underlying camera. Blocks: (point), (pose correction).
type AdjustedBundleCamera struct {
	nominal camera.Camera
}

// NewAdjustedBundleCamera wraps a preconfigured camera whose intrinsics stay fixed.
func NewAdjustedBundleCamera(nominal camera.Camera) (*AdjustedBundleCamera, error) {
	if nominal == nil {
		return nil, errors.New("cannot parameterize a nil camera")
	}
	return &AdjustedBundleCamera{nominal: nominal}, nil
}

// NumIntrinsicParams is the count of camera parameters other than pose.
func (abc *AdjustedBundleCamera) NumIntrinsicParams() int {
	return 0
}

// NumParams is the total count across all parameter blocks.
func (abc *AdjustedBundleCamera) NumParams() int {
	return NumPointParams + NumPoseParams
}

// NumParameterBlocks returns the number of parameter blocks.
func (abc *AdjustedBundleCamera) NumParameterBlocks() int {
	return 2
}

// BlockSizes returns the size of each parameter block.
func (abc *AdjustedBundleCamera) BlockSizes() []int {
	return []int{NumPointParams, NumPoseParams}
}

// Project applies the pose correction to the underlying camera and projects the point.
func (abc *AdjustedBundleCamera) Project(blocks [][]float64) (r2.Point, error) {
	if err := checkBlocks(abc, blocks); err != nil {
		return r2.Point{}, err
	}
	correction, err := spatialmath.NewPoseFromVector(blocks[1])
	if err != nil {
		return r2.Point{}, err
	}
	cam, err := camera.NewAdjusted(abc.nominal, correction)
	if err != nil {
		return r2.Point{}, err
	}
	return cam.PointToPixel(pointFromBlock(blocks[0]))
}

// PinholeBundleCamera varies the full camera: pose plus intrinsics. Blocks:
// (point), (pose), (optical center), (focal length), (lens distortion). The
// intrinsic blocks hold scale factors over the nominal camera's values, so
// parameter vectors near 1.0 stay well conditioned regardless of the
// nominal magnitudes. A nominal intrinsic of exactly zero is a known
// limitation of this encoding: no scale factor can move it off zero.
type PinholeBundleCamera struct {
	nominal *camera.Pinhole
}

// NewPinholeBundleCamera wraps the pinhole camera supplying the nominal
// intrinsic values. If the current run does not want to solve for all of the
// intrinsics, those blocks should be held constant by the optimizer.
func NewPinholeBundleCamera(nominal *camera.Pinhole) (*PinholeBundleCamera, error) {
	if nominal == nil {
		return nil, errors.New("cannot parameterize a nil camera")
	}
	return &PinholeBundleCamera{nominal: nominal}, nil
}

// NumDistortionParams is the number of lens distortion coefficients.
func (pbc *PinholeBundleCamera) NumDistortionParams() int {
	return len(pbc.nominal.Distortion.Parameters())
}

// NumIntrinsicParams is the count of camera parameters other than pose:
// optical center, focal length, and lens distortion.
func (pbc *PinholeBundleCamera) NumIntrinsicParams() int {
	return 3 + pbc.NumDistortionParams()
}

// NumParams is the total count across all parameter blocks.
func (pbc *PinholeBundleCamera) NumParams() int {
	return NumPointParams + NumPoseParams + pbc.NumIntrinsicParams()
}

// NumParameterBlocks returns the number of parameter blocks.
func (pbc *PinholeBundleCamera) NumParameterBlocks() int {
	return 5
}

// BlockSizes returns the size of each parameter block.
func (pbc *PinholeBundleCamera) BlockSizes() []int {
	return []int{NumPointParams, NumPoseParams, 2, 1, pbc.NumDistortionParams()}
}

// Project rebuilds the effective camera from the parameter blocks and
// projects the point through it. The pose block is the absolute pose of the
// effective camera, not a correction. A fresh camera is constructed on every
// call so concurrent evaluations never share mutable state; callers needing
// reuse must cache outside this type.
func (pbc *PinholeBundleCamera) Project(blocks [][]float64) (r2.Point, error) {
	if err := checkBlocks(pbc, blocks); err != nil {
		return r2.Point{}, err
	}
	pose, err := spatialmath.NewPoseFromVector(blocks[1])
	if err != nil {
		return r2.Point{}, err
	}

	center := r2.Point{
		X: blocks[2][0] * pbc.nominal.Center.X,
		Y: blocks[2][1] * pbc.nominal.Center.Y,
	}
	focal := blocks[3][0] * pbc.nominal.Focal

	nominalLens := pbc.nominal.Distortion.Parameters()
	lens := make([]float64, len(nominalLens))
	for i, v := range nominalLens {
		lens[i] = v * blocks[4][i]
	}
	distortion, err := camera.NewDistorter(pbc.nominal.Distortion.ModelType(), lens)
	if err != nil {
		return r2.Point{}, err
	}

	cam, err := camera.NewPinhole(pose, focal, center, distortion)
	if err != nil {
		return r2.Point{}, err
	}
	return cam.PointToPixel(pointFromBlock(blocks[0]))
}
