package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/model"
)

// fakeEphemeris places bodies on circular heliocentric orbits in the J2000
// x-y plane. Bodies listed in fail return ErrEphemerisUnavailable.
type fakeEphemeris struct {
	mu      sync.Mutex
	radius  map[string]float64
	period  map[string]float64 // seconds
	fail    map[string]bool
	queries []string
	frames  *ephem.Frames
}

func newFakeEphemeris() *fakeEphemeris {
	return &fakeEphemeris{
		radius: map[string]float64{"EARTH": 1.496e8, "MARS": 2.279e8, "JUPITER": 7.785e8},
		period: map[string]float64{
			"EARTH":   365.2 * ephem.SecondsPerDay,
			"MARS":    687 * ephem.SecondsPerDay,
			"JUPITER": 4331 * ephem.SecondsPerDay,
		},
		fail:   map[string]bool{},
		frames: ephem.NewFrames(nil),
	}
}

func (f *fakeEphemeris) helio(body string, et float64) (model.StateVector, error) {
	key := strings.ToUpper(body)
	if key == "SUN" {
		return model.StateVector{}, nil
	}
	if f.fail[key] {
		return model.StateVector{}, fmt.Errorf("%w: %s", ephem.ErrEphemerisUnavailable, body)
	}
	r, ok := f.radius[key]
	if !ok {
		return model.StateVector{}, fmt.Errorf("%w: %s", ephem.ErrEphemerisUnavailable, body)
	}
	w := 2 * math.Pi / f.period[key]
	s, c := math.Sincos(w * et)
	return model.NewStateVector(r*c, r*s, 0, -r*w*s, r*w*c, 0), nil
}

func (f *fakeEphemeris) BodyState(ctx context.Context, target, observer string, frame ephem.Frame, et float64) (model.StateVector, error) {
	f.mu.Lock()
	f.queries = append(f.queries, target)
	f.mu.Unlock()
	t, err := f.helio(target, et)
	if err != nil {
		return model.StateVector{}, err
	}
	o, err := f.helio(observer, et)
	if err != nil {
		return model.StateVector{}, err
	}
	return f.FrameTransform(t.Sub(o), ephem.J2000, frame, et)
}

func (f *fakeEphemeris) FrameTransform(state model.StateVector, from, to ephem.Frame, et float64) (model.StateVector, error) {
	return f.frames.Apply(state, from, to, et)
}

func (f *fakeEphemeris) LightTimeCorrectedState(ctx context.Context, target, observer string, et float64) (model.StateVector, error) {
	return f.BodyState(ctx, target, observer, ephem.J2000, et)
}
