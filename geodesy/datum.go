// Package geodesy converts between Earth-centered Cartesian coordinates and
// geodetic longitude/latitude/height on a reference ellipsoid.
package geodesy

import (
	"math"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
)

// Datum is a reference ellipsoid. Longitude and latitude are in degrees,
// heights and axes in meters.
type Datum struct {
	Name          string  `json:"name"`
	SemiMajorAxis float64 `json:"semi_major_axis_m"`
	SemiMinorAxis float64 `json:"semi_minor_axis_m"`
}

// WGS84 is the default datum for ground control and terrain data.
var WGS84 = Datum{
	Name:          "WGS84",
	SemiMajorAxis: 6378137.0,
	SemiMinorAxis: 6356752.314245,
}

// CheckValid checks if the fields for Datum have valid inputs.
func (d Datum) CheckValid() error {
	if d.SemiMajorAxis <= 0 || d.SemiMinorAxis <= 0 {
		return errors.Errorf("datum %q has non-positive axes", d.Name)
	}
	if d.SemiMinorAxis > d.SemiMajorAxis {
		return errors.Errorf("datum %q semi-minor axis exceeds semi-major axis", d.Name)
	}
	return nil
}

// eccentricity2 is the first eccentricity squared of the ellipsoid.
func (d Datum) eccentricity2() float64 {
	a2 := d.SemiMajorAxis * d.SemiMajorAxis
	b2 := d.SemiMinorAxis * d.SemiMinorAxis
	return (a2 - b2) / a2
}

// GeodeticToCartesian converts geodetic lon/lat (degrees) and height (meters)
// to Earth-centered Cartesian coordinates.
func (d Datum) GeodeticToCartesian(lon, lat, height float64) r3.Vector {
	lonRad := lon * math.Pi / 180
	latRad := lat * math.Pi / 180
	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	n := d.SemiMajorAxis / math.Sqrt(1-d.eccentricity2()*sinLat*sinLat)
	return r3.Vector{
		X: (n + height) * cosLat * math.Cos(lonRad),
		Y: (n + height) * cosLat * math.Sin(lonRad),
		Z: (n*(1-d.eccentricity2()) + height) * sinLat,
	}
}

// CartesianToGeodetic converts an Earth-centered Cartesian point to geodetic
// longitude, latitude (degrees) and height above the ellipsoid (meters),
// using Bowring's method.
func (d Datum) CartesianToGeodetic(pt r3.Vector) (lon, lat, height float64) {
	a := d.SemiMajorAxis
	b := d.SemiMinorAxis
	e2 := d.eccentricity2()
	ep2 := (a*a - b*b) / (b * b)

	p := math.Hypot(pt.X, pt.Y)
	lonRad := math.Atan2(pt.Y, pt.X)

	if p == 0 {
		// on the polar axis the longitude is arbitrary
		lat = math.Copysign(90, pt.Z)
		height = math.Abs(pt.Z) - b
		return 0, lat, height
	}

	theta := math.Atan2(pt.Z*a, p*b)
	sinTheta := math.Sin(theta)
	cosTheta := math.Cos(theta)
	latRad := math.Atan2(pt.Z+ep2*b*sinTheta*sinTheta*sinTheta, p-e2*a*cosTheta*cosTheta*cosTheta)

	sinLat := math.Sin(latRad)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	height = p/math.Cos(latRad) - n

	return lonRad * 180 / math.Pi, latRad * 180 / math.Pi, height
}

// GeoPoint converts a Cartesian point to its 2D geodetic location, dropping
// the height component.
func (d Datum) GeoPoint(pt r3.Vector) *geo.Point {
	lon, lat, _ := d.CartesianToGeodetic(pt)
	return geo.NewPoint(lat, lon)
}

// CartesianFromGeoPoint converts a 2D geodetic location plus a height above
// the ellipsoid to Cartesian coordinates.
func (d Datum) CartesianFromGeoPoint(p *geo.Point, height float64) r3.Vector {
	return d.GeodeticToCartesian(p.Lng(), p.Lat(), height)
}
