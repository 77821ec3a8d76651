package ephem

import (
	"fmt"
	"math"
	"strings"

	"github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/nutation"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/astrogator/model"
)

// Frame names a reference frame.
type Frame string

const (
	// J2000 is the mean equator and equinox of J2000, the canonical frame.
	J2000 Frame = "J2000"
	// EclipJ2000 is the mean ecliptic and equinox of J2000.
	EclipJ2000 Frame = "ECLIPJ2000"
)

const iauPrefix = "IAU_"

// IAUFrame returns the body-fixed frame of the named body.
func IAUFrame(body string) Frame {
	return Frame(iauPrefix + strings.ToUpper(body))
}

// ParseFrame validates a frame name.
func ParseFrame(name string) (Frame, error) {
	f := Frame(strings.ToUpper(strings.TrimSpace(name)))
	switch {
	case f == J2000 || f == EclipJ2000:
		return f, nil
	case strings.HasPrefix(string(f), iauPrefix):
		if _, ok := bodyFixed[strings.TrimPrefix(string(f), iauPrefix)]; ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown frame %q", ErrEphemerisUnavailable, name)
}

// obliquityJ2000 is the mean obliquity of the ecliptic at J2000 in radians.
var obliquityJ2000 = nutation.MeanObliquity(base.J2000).Rad()

// Frames builds state transformation matrices between supported frames.
type Frames struct {
	times *TimeConverter
}

// NewFrames returns a frame model. The converter supplies UTC for the Earth
// rotation angle; nil selects the built-in leap second table.
func NewFrames(times *TimeConverter) *Frames {
	if times == nil {
		times = defaultConverter
	}
	return &Frames{times: times}
}

var defaultFrames = NewFrames(nil)

// StateTransform returns the 6x6 matrix taking a J2000-style state
// (position, velocity) expressed in from into to at et.
func StateTransform(from, to Frame, et float64) (*mat.Dense, error) {
	return defaultFrames.StateTransform(from, to, et)
}

// StateTransform returns the 6x6 matrix taking a state expressed in from into
// to at et.
func (f *Frames) StateTransform(from, to Frame, et float64) (*mat.Dense, error) {
	if math.IsNaN(et) || math.IsInf(et, 0) {
		return nil, fmt.Errorf("%w: non-finite epoch", ErrEphemerisUnavailable)
	}
	fromR, fromDR, err := f.rotation(from, et)
	if err != nil {
		return nil, err
	}
	toR, toDR, err := f.rotation(to, et)
	if err != nil {
		return nil, err
	}

	var out mat.Dense
	out.Mul(stateMatrix(toR, toDR), inverseStateMatrix(fromR, fromDR))
	return &out, nil
}

// Apply transforms state from one frame into another.
func (f *Frames) Apply(state model.StateVector, from, to Frame, et float64) (model.StateVector, error) {
	if from == to {
		if _, err := ParseFrame(string(from)); err != nil {
			return model.StateVector{}, err
		}
		return state, nil
	}
	m, err := f.StateTransform(from, to, et)
	if err != nil {
		return model.StateVector{}, err
	}
	in := state.Array()
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(6, in[:]))
	var arr [6]float64
	for i := range arr {
		arr[i] = out.AtVec(i)
	}
	return model.StateFromArray(arr), nil
}

// rotation returns R and dR/dt taking J2000 vectors into frame.
func (f *Frames) rotation(frame Frame, et float64) (r, dr *mat.Dense, err error) {
	switch frame {
	case J2000:
		return identity3(), mat.NewDense(3, 3, nil), nil
	case EclipJ2000:
		return r1(obliquityJ2000), mat.NewDense(3, 3, nil), nil
	}
	name := strings.TrimPrefix(string(frame), iauPrefix)
	pole, ok := bodyFixed[name]
	if !ok || !strings.HasPrefix(string(frame), iauPrefix) {
		return nil, nil, fmt.Errorf("%w: unknown frame %q", ErrEphemerisUnavailable, frame)
	}

	days := et / SecondsPerDay
	centuries := days / 36525
	ra := (pole.ra0 + pole.ra1*centuries) * math.Pi / 180
	dec := (pole.dec0 + pole.dec1*centuries) * math.Pi / 180

	var w, wDot float64
	if name == "EARTH" {
		w = satellite.ThetaG_JD(f.times.utcJulianDate(et))
		wDot = earthRotationRate
	} else {
		w = math.Mod(pole.w0+pole.wDot*days, 360) * math.Pi / 180
		wDot = pole.wDot * math.Pi / 180 / SecondsPerDay
	}

	var poleRot mat.Dense
	poleRot.Mul(r1(math.Pi/2-dec), r3(math.Pi/2+ra))

	r = new(mat.Dense)
	r.Mul(r3(w), &poleRot)

	dr = new(mat.Dense)
	dr.Mul(dr3(w), &poleRot)
	dr.Scale(wDot, dr)
	return r, dr, nil
}

// stateMatrix builds [[R, 0], [dR, R]].
func stateMatrix(r, dr *mat.Dense) *mat.Dense {
	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, r.At(i, j))
			out.Set(i+3, j+3, r.At(i, j))
			out.Set(i+3, j, dr.At(i, j))
		}
	}
	return out
}

// inverseStateMatrix builds [[R^T, 0], [dR^T, R^T]].
func inverseStateMatrix(r, dr *mat.Dense) *mat.Dense {
	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, r.At(j, i))
			out.Set(i+3, j+3, r.At(j, i))
			out.Set(i+3, j, dr.At(j, i))
		}
	}
	return out
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// r1 rotates the frame about x by theta.
func r1(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// r3 rotates the frame about z by theta.
func r3(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// dr3 is d(r3)/d(theta).
func dr3(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(3, 3, []float64{-s, c, 0, -c, -s, 0, 0, 0, 0})
}
