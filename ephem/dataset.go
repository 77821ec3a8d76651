package ephem

import (
	"math"

	"github.com/signalsfoundry/astrogator/model"
)

// Dataset is a source of geometric body states. State returns the J2000
// state of id relative to Center() in km and km/s.
type Dataset interface {
	Name() string
	Center() BodyID
	Covers(id BodyID) bool
	State(id BodyID, et float64) (model.StateVector, error)
}

// eclipticToEquatorial rotates a J2000 ecliptic vector into J2000 equatorial
// coordinates.
func eclipticToEquatorial(v model.Vec3) model.Vec3 {
	s, c := math.Sincos(obliquityJ2000)
	return model.Vec3{
		X: v.X,
		Y: c*v.Y - s*v.Z,
		Z: s*v.Y + c*v.Z,
	}
}

// sphericalToCartesian converts longitude/latitude (radians) and radius.
func sphericalToCartesian(lon, lat, r float64) model.Vec3 {
	sB, cB := math.Sincos(lat)
	sL, cL := math.Sincos(lon)
	return model.Vec3{X: r * cB * cL, Y: r * cB * sL, Z: r * sB}
}
