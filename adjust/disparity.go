package adjust

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereopipeline/bundleadjust/disparity"
)

// DisparityCost ties the adjustment to an externally measured stereo
// correspondence. A fixed reference point is projected into the left camera,
// mapped through the disparity field to a right-image pixel, and that pixel
// is compared against the reference point's direct projection into the right
// camera.
//
// The reference point is not an optimized block: the registered parameter
// blocks are the left camera's non-point blocks followed by the right
// camera's non-point blocks.
//
// Unlike ReprojectionCost, this residual never reports failure. A reference
// point that projects out of the field, hits an invalid disparity sample, or
// fails to project at all is penalized with a bounded sentinel residual and
// reported as a success, leaving it to the robust loss layer to down-weight
// the term. It touches no diagnostics and emits no logs.
type DisparityCost struct {
	refBlock      []float64
	field         *disparity.Field
	left          BundleCamera
	right         BundleCamera
	maxError      float64
	terrainWeight float64
}

// NewDisparityCost builds the residual for one reference terrain point
// observed by a camera pair. maxError bounds the penalty for an unusable
// hypothesis and terrainWeight scales the whole residual.
func NewDisparityCost(
	referencePoint r3.Vector,
	field *disparity.Field,
	left, right BundleCamera,
	maxError, terrainWeight float64,
) (*DisparityCost, error) {
	if field == nil {
		return nil, errors.New("disparity cost needs a disparity field")
	}
	if left == nil || right == nil {
		return nil, errors.New("disparity cost needs two camera parameterizations")
	}
	if maxError < 0 {
		return nil, errors.Errorf("max disparity error must be non-negative, got %v", maxError)
	}
	return &DisparityCost{
		refBlock:      []float64{referencePoint.X, referencePoint.Y, referencePoint.Z},
		field:         field,
		left:          left,
		right:         right,
		maxError:      maxError,
		terrainWeight: terrainWeight,
	}, nil
}

// NumResiduals is the fixed length of the residual vector.
func (dc *DisparityCost) NumResiduals() int {
	return 2
}

// BlockSizes is the declared size of each parameter block: every block of
// the left camera except the shared point, then the same for the right.
func (dc *DisparityCost) BlockSizes() []int {
	sizes := make([]int, 0, dc.left.NumParameterBlocks()+dc.right.NumParameterBlocks()-2)
	sizes = append(sizes, dc.left.BlockSizes()[1:]...)
	sizes = append(sizes, dc.right.BlockSizes()[1:]...)
	return sizes
}

func (dc *DisparityCost) sentinel(residuals []float64) bool {
	residuals[0] = dc.maxError * dc.terrainWeight
	residuals[1] = dc.maxError * dc.terrainWeight
	return true
}

// Evaluate computes (leftPixel + disparity - rightPixel) * terrainWeight.
func (dc *DisparityCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	numLeft := dc.left.NumParameterBlocks()
	numRight := dc.right.NumParameterBlocks()

	// both cameras see the same fixed reference point block
	leftBlocks := make([][]float64, 0, numLeft)
	leftBlocks = append(leftBlocks, dc.refBlock)
	leftBlocks = append(leftBlocks, blocks[:numLeft-1]...)
	rightBlocks := make([][]float64, 0, numRight)
	rightBlocks = append(rightBlocks, dc.refBlock)
	rightBlocks = append(rightBlocks, blocks[numLeft-1:]...)

	leftPixel, err := dc.left.Project(leftBlocks)
	if err != nil {
		return dc.sentinel(residuals)
	}
	rightPixel, err := dc.right.Project(rightBlocks)
	if err != nil {
		return dc.sentinel(residuals)
	}

	if !dc.field.InBounds(leftPixel) {
		return dc.sentinel(residuals)
	}
	disp, ok := dc.field.Sample(leftPixel)
	if !ok {
		return dc.sentinel(residuals)
	}

	rightFromDisparity := leftPixel.Add(disp)
	residuals[0] = (rightFromDisparity.X - rightPixel.X) * dc.terrainWeight
	residuals[1] = (rightFromDisparity.Y - rightPixel.Y) * dc.terrainWeight
	return true
}
