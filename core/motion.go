package core

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/astrogator/model"
)

// DefaultFuel is the delta-v budget, in km/s, given to a new spacecraft.
const DefaultFuel = 1000.0

var (
	// ErrInsufficientFuel is returned when a burn's magnitude exceeds the
	// remaining fuel.
	ErrInsufficientFuel = errors.New("insufficient fuel")
	// ErrInvalidBurn is returned for non-finite delta-v vectors.
	ErrInvalidBurn = errors.New("invalid burn")
)

// Spacecraft is one user-controlled vessel. It is not safe for concurrent
// use; the registry scopes access per spacecraft.
type Spacecraft struct {
	ID    string            `json:"id"`
	State model.StateVector `json:"state"`
	ET    float64           `json:"et"`
	Fuel  float64           `json:"fuel"`
}

// NewSpacecraft returns a spacecraft with the given state at et.
func NewSpacecraft(id string, state model.StateVector, et, fuel float64) *Spacecraft {
	return &Spacecraft{ID: id, State: state, ET: et, Fuel: fuel}
}

// Propagate advances the spacecraft clock to toET. Position and velocity are
// left untouched: no dynamics are integrated.
func (s *Spacecraft) Propagate(toET float64) {
	if toET == s.ET {
		return
	}
	s.ET = toET
}

// ApplyBurn adds an impulsive delta-v (km/s) to the velocity and charges its
// magnitude against the fuel budget. On error the spacecraft is unchanged.
func (s *Spacecraft) ApplyBurn(dv model.Vec3) error {
	if !dv.IsFinite() {
		return fmt.Errorf("%w: non-finite delta-v %+v", ErrInvalidBurn, dv)
	}
	cost := floats.Norm(dv.Slice(), 2)
	if cost > s.Fuel {
		return fmt.Errorf("%w: burn needs %.6f km/s, %.6f left", ErrInsufficientFuel, cost, s.Fuel)
	}
	s.State.Velocity = s.State.Velocity.Add(dv)
	s.Fuel = math.Max(0, s.Fuel-cost)
	return nil
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *Spacecraft) Snapshot() Spacecraft {
	return *s
}
