package geodesy

import (
	"testing"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"go.viam.com/test"
)

func TestDatumCheckValid(t *testing.T) {
	test.That(t, WGS84.CheckValid(), test.ShouldBeNil)
	test.That(t, Datum{Name: "flat"}.CheckValid(), test.ShouldNotBeNil)
	bad := Datum{Name: "inverted", SemiMajorAxis: 1, SemiMinorAxis: 2}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestKnownGeodeticPoints(t *testing.T) {
	// a point on the equator at the prime meridian
	lon, lat, h := WGS84.CartesianToGeodetic(r3.Vector{X: WGS84.SemiMajorAxis})
	test.That(t, lon, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, lat, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, h, test.ShouldAlmostEqual, 0, 1e-6)

	// the north pole sits one semi-minor axis up
	_, lat, h = WGS84.CartesianToGeodetic(r3.Vector{Z: WGS84.SemiMinorAxis + 100})
	test.That(t, lat, test.ShouldAlmostEqual, 90, 1e-9)
	test.That(t, h, test.ShouldAlmostEqual, 100, 1e-6)

	// 90 degrees east on the equator
	lon, lat, _ = WGS84.CartesianToGeodetic(r3.Vector{Y: WGS84.SemiMajorAxis + 50})
	test.That(t, lon, test.ShouldAlmostEqual, 90, 1e-9)
	test.That(t, lat, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestGeodeticRoundTrip(t *testing.T) {
	cases := []struct {
		lon, lat, height float64
	}{
		{0, 0, 0},
		{-122.42, 37.77, 35},
		{151.21, -33.87, 120},
		{179.9999, 10, 500},
		{-179.9999, -10, 500},
		{0, 89.9, 2000},
	}
	for _, c := range cases {
		pt := WGS84.GeodeticToCartesian(c.lon, c.lat, c.height)
		lon, lat, h := WGS84.CartesianToGeodetic(pt)
		test.That(t, lon, test.ShouldAlmostEqual, c.lon, 1e-7)
		test.That(t, lat, test.ShouldAlmostEqual, c.lat, 1e-7)
		test.That(t, h, test.ShouldAlmostEqual, c.height, 1e-4)
	}
}

func TestGeoPointInterop(t *testing.T) {
	pt := WGS84.GeodeticToCartesian(-71.06, 42.36, 10)
	gp := WGS84.GeoPoint(pt)
	test.That(t, gp.Lat(), test.ShouldAlmostEqual, 42.36, 1e-7)
	test.That(t, gp.Lng(), test.ShouldAlmostEqual, -71.06, 1e-7)

	back := WGS84.CartesianFromGeoPoint(geo.NewPoint(42.36, -71.06), 10)
	test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-5)
	test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-5)
	test.That(t, back.Z, test.ShouldAlmostEqual, pt.Z, 1e-5)
}
