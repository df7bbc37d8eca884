package adjust

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// FailedResidual is the sentinel written into residuals when a projection
// cannot be computed at all.
const FailedResidual = 1e20

// ReprojectionCost compares a camera's predicted pixel against an observed
// pixel, normalized per axis by the observation's uncertainty. It owns the
// parameter blocks of exactly one camera/point pair.
type ReprojectionCost struct {
	observation r2.Point
	pixelSigma  r2.Point
	cam         BundleCamera
	diag        *Diagnostics
}

// NewReprojectionCost builds the residual for one pixel observation. The
// block layout is taken from the camera parameterization.
func NewReprojectionCost(observation, pixelSigma r2.Point, cam BundleCamera, diag *Diagnostics) (*ReprojectionCost, error) {
	if cam == nil {
		return nil, errors.New("reprojection cost needs a camera parameterization")
	}
	if diag == nil {
		return nil, errors.New("reprojection cost needs a diagnostics tracker")
	}
	if pixelSigma.X <= 0 || pixelSigma.Y <= 0 {
		return nil, errors.Errorf("pixel sigma must be positive, got (%v, %v)", pixelSigma.X, pixelSigma.Y)
	}
	return &ReprojectionCost{
		observation: observation,
		pixelSigma:  pixelSigma,
		cam:         cam,
		diag:        diag,
	}, nil
}

// NumResiduals is the fixed length of the residual vector.
func (rc *ReprojectionCost) NumResiduals() int {
	return 2
}

// BlockSizes is the declared size of each parameter block.
func (rc *ReprojectionCost) BlockSizes() []int {
	return rc.cam.BlockSizes()
}

// Evaluate computes (predicted - observed) / sigma per axis. Any error out
// of the projection, geometric or otherwise, is absorbed here: the failure
// is counted and rate-limit logged, the residuals are set to the sentinel,
// and false is returned so the optimizer can reject the step instead of the
// error crossing its call boundary.
func (rc *ReprojectionCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	prediction, err := rc.cam.Project(blocks)
	if err != nil {
		rc.diag.RecordFailure(err)
		residuals[0] = FailedResidual
		residuals[1] = FailedResidual
		return false
	}
	// input units are pixels
	residuals[0] = (prediction.X - rc.observation.X) / rc.pixelSigma.X
	residuals[1] = (prediction.Y - rc.observation.Y) / rc.pixelSigma.Y
	return true
}
