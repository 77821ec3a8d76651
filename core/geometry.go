package core

import (
	"errors"
	"math"

	"github.com/signalsfoundry/astrogator/model"
)

// ErrDegenerateVector is returned when angles are requested for a zero-length
// vector.
var ErrDegenerateVector = errors.New("degenerate vector")

const radToDeg = 180.0 / math.Pi

// Angles is a spherical decomposition of a relative position. The zero value
// (Valid == false) is the sentinel reported when no direction could be
// computed.
type Angles struct {
	Range  float64 // km
	RADeg  float64 // [0, 360)
	DecDeg float64 // [-90, 90]
	Valid  bool
}

// VectorToAngles decomposes v into range, right ascension and declination.
func VectorToAngles(v model.Vec3) (Angles, error) {
	if !v.IsFinite() {
		return Angles{}, ErrDegenerateVector
	}
	r := v.Norm()
	if r == 0 || math.IsInf(r, 0) {
		return Angles{}, ErrDegenerateVector
	}

	ra := math.Atan2(v.Y, v.X) * radToDeg
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra = 0
	}

	sinDec := v.Z / r
	if sinDec > 1 {
		sinDec = 1
	} else if sinDec < -1 {
		sinDec = -1
	}

	return Angles{
		Range:  r,
		RADeg:  ra,
		DecDeg: math.Asin(sinDec) * radToDeg,
		Valid:  true,
	}, nil
}

// AngularSeparationDeg returns the angle between two directions in degrees.
// A zero vector on either side yields 0.
func AngularSeparationDeg(a, b model.Vec3) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	cosGamma := a.Dot(b) / (na * nb)
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	return math.Acos(cosGamma) * radToDeg
}
