package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/model"
)

// ErrInvalidSampleCount is returned when fewer than one segment is requested.
var ErrInvalidSampleCount = errors.New("invalid sample count")

// DefaultPeriodDays is used for bodies missing from the period table.
const DefaultPeriodDays = 365.0

// orbitalPeriodDays holds approximate sidereal periods used only to size
// visualization polylines.
var orbitalPeriodDays = map[string]float64{
	"MERCURY": 88,
	"VENUS":   224.7,
	"EARTH":   365.2,
	"MARS":    687,
	"JUPITER": 4331,
	"SATURN":  10747,
	"URANUS":  30589,
	"NEPTUNE": 59800,
	"PLUTO":   90560,
}

// OrbitalPeriodDays returns the table period for body, ignoring a
// " BARYCENTER" suffix, or DefaultPeriodDays.
func OrbitalPeriodDays(body string) float64 {
	key := strings.ToUpper(strings.TrimSpace(body))
	key = strings.TrimSpace(strings.TrimSuffix(key, "BARYCENTER"))
	if p, ok := orbitalPeriodDays[key]; ok {
		return p
	}
	return DefaultPeriodDays
}

// OrbitSampler discretizes one orbital period into a closed polyline.
type OrbitSampler struct {
	eph    EphemerisSource
	frame  ephem.Frame
	center string
}

// SamplerOption configures an OrbitSampler.
type SamplerOption func(*OrbitSampler)

// WithFrame selects the output frame (default ECLIPJ2000).
func WithFrame(frame ephem.Frame) SamplerOption {
	return func(s *OrbitSampler) { s.frame = frame }
}

// WithCenter selects the body positions are relative to (default SUN).
func WithCenter(body string) SamplerOption {
	return func(s *OrbitSampler) { s.center = body }
}

// NewOrbitSampler returns a sampler backed by eph.
func NewOrbitSampler(eph EphemerisSource, opts ...SamplerOption) *OrbitSampler {
	s := &OrbitSampler{eph: eph, frame: ephem.EclipJ2000, center: ReferenceBody}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleOrbit returns n+1 positions of body evenly spaced over one period
// starting at startET. The first and last points are one period apart. Any
// failed point fails the whole sample.
func (s *OrbitSampler) SampleOrbit(ctx context.Context, body string, startET float64, n int) ([]model.Vec3, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, n)
	}
	period := OrbitalPeriodDays(body) * ephem.SecondsPerDay
	step := period / float64(n)

	points := make([]model.Vec3, 0, n+1)
	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ephem.ErrEphemerisUnavailable, err)
		}
		st, err := s.eph.BodyState(ctx, body, s.center, s.frame, startET+float64(i)*step)
		if err != nil {
			return nil, fmt.Errorf("sample %s point %d: %w", body, i, err)
		}
		points = append(points, st.Position)
	}
	return points, nil
}
