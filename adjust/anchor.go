package adjust

import (
	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"

	"github.com/stereopipeline/bundleadjust/geodesy"
)

func checkSigma(sigma r3.Vector) error {
	if sigma.X <= 0 || sigma.Y <= 0 || sigma.Z <= 0 {
		return errors.Errorf("sigma must be positive in all components, got %v", sigma)
	}
	return nil
}

// PointAnchorCost pins a floating 3D point to a surveyed ground control
// location in Cartesian coordinates. One 3-element point block, three
// residuals, no failure path.
type PointAnchorCost struct {
	reference r3.Vector
	sigma     r3.Vector
}

// NewPointAnchorCost builds the anchor for one ground control point; sigma
// is in linear distance units.
func NewPointAnchorCost(reference, sigma r3.Vector) (*PointAnchorCost, error) {
	if err := checkSigma(sigma); err != nil {
		return nil, err
	}
	return &PointAnchorCost{reference: reference, sigma: sigma}, nil
}

// NumResiduals is the fixed length of the residual vector.
func (pac *PointAnchorCost) NumResiduals() int {
	return 3
}

// BlockSizes is the declared size of each parameter block.
func (pac *PointAnchorCost) BlockSizes() []int {
	return []int{NumPointParams}
}

// Evaluate computes (point - reference) / sigma elementwise.
func (pac *PointAnchorCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	point := blocks[0]
	residuals[0] = (point[0] - pac.reference.X) / pac.sigma.X
	residuals[1] = (point[1] - pac.reference.Y) / pac.sigma.Y
	residuals[2] = (point[2] - pac.reference.Z) / pac.sigma.Z
	return true
}

// GeodeticAnchorCost pins a floating 3D point to a ground control location
// in geodetic coordinates. Both the floating point and the reference are
// converted to longitude/latitude/height before differencing, so horizontal
// and vertical uncertainty can be weighted independently even though the
// optimizer works in Cartesian coordinates, e.g. a loose height sigma with a
// tight lon/lat sigma when only the horizontal fix is trusted.
//
// No special handling exists at the poles or across the antimeridian; a
// point and reference straddling the longitude wrap produce a large
// longitude residual.
type GeodeticAnchorCost struct {
	referenceLLH [3]float64
	sigma        r3.Vector
	datum        geodesy.Datum
}

// NewGeodeticAnchorCost builds the anchor for one ground control point given
// in Cartesian coordinates; sigma is in (degrees, degrees, meters).
func NewGeodeticAnchorCost(reference, sigma r3.Vector, datum geodesy.Datum) (*GeodeticAnchorCost, error) {
	if err := checkSigma(sigma); err != nil {
		return nil, err
	}
	if err := datum.CheckValid(); err != nil {
		return nil, err
	}
	lon, lat, height := datum.CartesianToGeodetic(reference)
	return &GeodeticAnchorCost{
		referenceLLH: [3]float64{lon, lat, height},
		sigma:        sigma,
		datum:        datum,
	}, nil
}

// NewGeodeticAnchorCostFromGeoPoint builds the anchor from a 2D geodetic
// location plus a height above the ellipsoid.
func NewGeodeticAnchorCostFromGeoPoint(point *geo.Point, height float64, sigma r3.Vector, datum geodesy.Datum) (*GeodeticAnchorCost, error) {
	if point == nil {
		return nil, errors.New("geodetic anchor needs a reference point")
	}
	return NewGeodeticAnchorCost(datum.CartesianFromGeoPoint(point, height), sigma, datum)
}

// NumResiduals is the fixed length of the residual vector.
func (gac *GeodeticAnchorCost) NumResiduals() int {
	return 3
}

// BlockSizes is the declared size of each parameter block.
func (gac *GeodeticAnchorCost) BlockSizes() []int {
	return []int{NumPointParams}
}

// Evaluate converts the floating point to geodetic coordinates and computes
// (pointLLH - referenceLLH) / sigma elementwise.
func (gac *GeodeticAnchorCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	lon, lat, height := gac.datum.CartesianToGeodetic(pointFromBlock(blocks[0]))
	residuals[0] = (lon - gac.referenceLLH[0]) / gac.sigma.X
	residuals[1] = (lat - gac.referenceLLH[1]) / gac.sigma.Y
	residuals[2] = (height - gac.referenceLLH[2]) / gac.sigma.Z
	return true
}
