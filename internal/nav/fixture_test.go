package nav

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/auth"
	"github.com/signalsfoundry/astrogator/internal/catalog"
	sim "github.com/signalsfoundry/astrogator/internal/sim/state"
	"github.com/signalsfoundry/astrogator/model"
	"github.com/signalsfoundry/astrogator/timectrl"
)

var epoch = time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)

type orbit struct {
	radius float64 // km
	days   float64
}

// circularDataset places bodies on circular heliocentric J2000 orbits.
type circularDataset struct {
	bodies map[ephem.BodyID]orbit
}

func newCircularDataset() *circularDataset {
	return &circularDataset{bodies: map[ephem.BodyID]orbit{
		ephem.Mercury:           {5.79e7, 88},
		ephem.Venus:             {1.082e8, 224.7},
		ephem.Earth:             {1.496e8, 365.25},
		ephem.MarsBarycenter:    {2.279e8, 687},
		ephem.JupiterBarycenter: {7.785e8, 4331},
		ephem.SaturnBarycenter:  {1.4335e9, 10747},
	}}
}

func (d *circularDataset) Name() string         { return "CIRCULAR" }
func (d *circularDataset) Center() ephem.BodyID { return ephem.Sun }
func (d *circularDataset) Covers(id ephem.BodyID) bool {
	if id == ephem.Sun {
		return true
	}
	_, ok := d.bodies[id]
	return ok
}

func (d *circularDataset) State(id ephem.BodyID, et float64) (model.StateVector, error) {
	o, ok := d.bodies[id]
	if !ok {
		return model.StateVector{}, fmt.Errorf("%w: %s", ephem.ErrEphemerisUnavailable, id)
	}
	w := 2 * math.Pi / (o.days * ephem.SecondsPerDay)
	s, c := math.Sincos(w * et)
	return model.NewStateVector(o.radius*c, o.radius*s, 0, -o.radius*w*s, o.radius*w*c, 0), nil
}

const testUsers = `{"alice": "tok-alice", "bob": "tok-bob", "admin": "tok-admin"}`

type fixture struct {
	provider *ephem.Provider
	registry *sim.Registry
	users    *auth.Users
	service  *Service
}

func newFixture(t *testing.T, ds ephem.Dataset, opts ...Option) *fixture {
	t.Helper()
	users, err := auth.ParseUsers(strings.NewReader(testUsers), "admin")
	if err != nil {
		t.Fatalf("ParseUsers: %v", err)
	}
	return newFixtureWithUsers(t, ds, users, opts...)
}

func newFixtureWithUsers(t *testing.T, ds ephem.Dataset, users *auth.Users, opts ...Option) *fixture {
	t.Helper()
	provider := ephem.NewProvider(ds)
	clock := timectrl.NewTimeController(epoch, time.Second, timectrl.RealTime)
	reg := sim.NewRegistry(context.Background(), provider, clock, users.IDs(), sim.DefaultConfig(), nil)

	stars := catalog.New([]model.Star{{Name: "Sirius", RADeg: 101.287, DecDeg: -16.716, Magnitude: -1.46}})
	opts = append([]Option{WithCatalog(stars)}, opts...)
	return &fixture{
		provider: provider,
		registry: reg,
		users:    users,
		service:  NewService(reg, provider, opts...),
	}
}
