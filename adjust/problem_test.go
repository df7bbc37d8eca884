package adjust

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/stereopipeline/bundleadjust/camera"
	"github.com/stereopipeline/bundleadjust/spatialmath"
)

func TestProblemRegistration(t *testing.T) {
	logger := golog.NewTestLogger(t)
	p := NewProblem(logger)
	test.That(t, p.NumCosts(), test.ShouldEqual, 0)
	test.That(t, p.Diagnostics(), test.ShouldNotBeNil)

	anchor, err := NewPointAnchorCost(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)

	point := []float64{1, 2, 3}
	test.That(t, p.AddCost(anchor, point), test.ShouldBeNil)
	test.That(t, p.NumCosts(), test.ShouldEqual, 1)
	test.That(t, p.NumResiduals(), test.ShouldEqual, 3)

	// wrong number of blocks is rejected, not padded
	test.That(t, p.AddCost(anchor), test.ShouldNotBeNil)
	test.That(t, p.AddCost(anchor, point, point), test.ShouldNotBeNil)
	// wrong block length is rejected, not truncated
	test.That(t, p.AddCost(anchor, []float64{1, 2}), test.ShouldNotBeNil)
	test.That(t, p.AddCost(nil, point), test.ShouldNotBeNil)
	test.That(t, p.NumCosts(), test.ShouldEqual, 1)
}

func TestProblemEvaluate(t *testing.T) {
	logger := golog.NewTestLogger(t)
	p := NewProblem(logger)

	cam, err := camera.NewPinhole(spatialmath.NewZeroPose(), 1000, r2.Point{X: 500, Y: 500}, nil)
	test.That(t, err, test.ShouldBeNil)
	abc, err := NewAdjustedBundleCamera(cam)
	test.That(t, err, test.ShouldBeNil)

	goodPoint := []float64{0, 0, 10}
	badPoint := []float64{0, 0, -10}
	pose := []float64{0, 0, 0, 0, 0, 0}

	reproj, err := NewReprojectionCost(r2.Point{X: 500, Y: 500}, r2.Point{X: 1, Y: 1}, abc, p.Diagnostics())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AddCost(reproj, goodPoint, pose), test.ShouldBeNil)

	failing, err := NewReprojectionCost(r2.Point{X: 500, Y: 500}, r2.Point{X: 1, Y: 1}, abc, p.Diagnostics())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AddCost(failing, badPoint, pose), test.ShouldBeNil)

	anchor, err := NewPointAnchorCost(r3.Vector{X: 0, Y: 0, Z: 8}, r3.Vector{X: 1, Y: 1, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AddCost(anchor, goodPoint), test.ShouldBeNil)

	residuals, failures := p.Evaluate()
	test.That(t, len(residuals), test.ShouldEqual, 7)
	test.That(t, failures, test.ShouldEqual, 1)
	test.That(t, residuals[0], test.ShouldEqual, 0)
	test.That(t, residuals[1], test.ShouldEqual, 0)
	test.That(t, residuals[2], test.ShouldEqual, FailedResidual)
	test.That(t, residuals[3], test.ShouldEqual, FailedResidual)
	test.That(t, residuals[6], test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Diagnostics().Failures(), test.ShouldEqual, 1)

	// optimizer nudges the parameter block in place; re-evaluation sees it
	badPoint[2] = 10
	_, failures = p.Evaluate()
	test.That(t, failures, test.ShouldEqual, 0)
}

func TestNumericJacobianAnchor(t *testing.T) {
	anchor, err := NewPointAnchorCost(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 1, Y: 2, Z: 5})
	test.That(t, err, test.ShouldBeNil)

	jac, err := NumericJacobian(anchor, [][]float64{{4, 4, 4}}, 1e-6)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := jac.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 3)
	// the anchor residual is linear: the jacobian is diag(1/sigma)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1 / []float64{1, 2, 5}[i]
			}
			test.That(t, jac.At(i, j), test.ShouldAlmostEqual, want, 1e-6)
		}
	}
}

func TestNumericJacobianReprojection(t *testing.T) {
	cam, err := camera.NewPinhole(spatialmath.NewZeroPose(), 1000, r2.Point{X: 500, Y: 500}, nil)
	test.That(t, err, test.ShouldBeNil)
	abc, err := NewAdjustedBundleCamera(cam)
	test.That(t, err, test.ShouldBeNil)
	diag, _ := observedDiagnostics()
	cost, err := NewReprojectionCost(r2.Point{X: 500, Y: 500}, r2.Point{X: 1, Y: 1}, abc, diag)
	test.That(t, err, test.ShouldBeNil)

	blocks := [][]float64{{0, 0, 10}, {0, 0, 0, 0, 0, 0}}
	jac, err := NumericJacobian(cost, blocks, 1e-6)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := jac.Dims()
	test.That(t, rows, test.ShouldEqual, 2)
	test.That(t, cols, test.ShouldEqual, 9)

	// at depth Z with focal f, the pixel moves f/Z per unit of point X or Y
	test.That(t, jac.At(0, 0), test.ShouldAlmostEqual, 100, 1e-3)
	test.That(t, jac.At(1, 1), test.ShouldAlmostEqual, 100, 1e-3)
	// a point on the optical axis does not move when Z changes
	test.That(t, jac.At(0, 2), test.ShouldAlmostEqual, 0, 1e-3)

	// the caller's blocks come back untouched
	test.That(t, blocks[0], test.ShouldResemble, []float64{0, 0, 10})
	test.That(t, diag.Failures(), test.ShouldEqual, 0)
}

func TestNumericJacobianFailure(t *testing.T) {
	cam, err := camera.NewPinhole(spatialmath.NewZeroPose(), 1000, r2.Point{X: 500, Y: 500}, nil)
	test.That(t, err, test.ShouldBeNil)
	abc, err := NewAdjustedBundleCamera(cam)
	test.That(t, err, test.ShouldBeNil)
	diag, _ := observedDiagnostics()
	cost, err := NewReprojectionCost(r2.Point{X: 500, Y: 500}, r2.Point{X: 1, Y: 1}, abc, diag)
	test.That(t, err, test.ShouldBeNil)

	// perturbing Z across the image plane makes an evaluation fail
	_, err = NumericJacobian(cost, [][]float64{{0, 0, 1e-9}, {0, 0, 0, 0, 0, 0}}, 1e-6)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NumericJacobian(cost, [][]float64{{0, 0, 10}, {0, 0, 0, 0, 0, 0}}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NumericJacobian(nil, nil, 1e-6)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NumericJacobian(cost, [][]float64{{0, 0, 10}}, 1e-6)
	test.That(t, err, test.ShouldNotBeNil)
}
