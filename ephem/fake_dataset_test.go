package ephem

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/signalsfoundry/astrogator/model"
)

// circular describes a body on a circular orbit in the J2000 x-y plane, or a
// fixed point when rate is zero.
type circular struct {
	radius float64 // km
	rate   float64 // rad/s
	fixed  model.StateVector
}

type fakeDataset struct {
	center BodyID
	bodies map[BodyID]circular
	calls  atomic.Int64
}

func newFakeDataset(bodies map[BodyID]circular) *fakeDataset {
	return &fakeDataset{center: Sun, bodies: bodies}
}

func (f *fakeDataset) Name() string   { return "FAKE" }
func (f *fakeDataset) Center() BodyID { return f.center }

func (f *fakeDataset) Covers(id BodyID) bool {
	if id == f.center {
		return true
	}
	_, ok := f.bodies[id]
	return ok
}

func (f *fakeDataset) State(id BodyID, et float64) (model.StateVector, error) {
	f.calls.Add(1)
	b, ok := f.bodies[id]
	if !ok {
		return model.StateVector{}, fmt.Errorf("%w: fake has no %s", ErrEphemerisUnavailable, id)
	}
	if b.rate == 0 {
		return b.fixed, nil
	}
	s, c := math.Sincos(b.rate * et)
	return model.NewStateVector(
		b.radius*c, b.radius*s, 0,
		-b.radius*b.rate*s, b.radius*b.rate*c, 0,
	), nil
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
