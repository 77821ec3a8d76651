package ephem

import (
	"fmt"

	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"

	"github.com/signalsfoundry/astrogator/model"
)

// vsopStep is the half-width in seconds of the central difference used for
// VSOP87 velocities.
const vsopStep = 600.0

var vsopPlanets = map[BodyID]int{
	Mercury: planetposition.Mercury,
	Venus:   planetposition.Venus,
	Earth:   planetposition.Earth,
	Mars:    planetposition.Mars,
	Jupiter: planetposition.Jupiter,
	Saturn:  planetposition.Saturn,
	Uranus:  planetposition.Uranus,
	Neptune: planetposition.Neptune,
}

// VSOP87Dataset evaluates the VSOP87B theory for the planets, the Meeus
// Pluto series and the ELP-based lunar series. States are heliocentric.
// The lunar series is referred to the equinox of date, which is accurate to
// a few thousand km near the present epoch.
type VSOP87Dataset struct {
	planets map[BodyID]*planetposition.V87Planet
}

// OpenVSOP87 loads the VSOP87B.* files from dir.
func OpenVSOP87(dir string) (*VSOP87Dataset, error) {
	ds := &VSOP87Dataset{planets: make(map[BodyID]*planetposition.V87Planet, len(vsopPlanets))}
	for id, ibody := range vsopPlanets {
		p, err := planetposition.LoadPlanetPath(ibody, dir)
		if err != nil {
			return nil, fmt.Errorf("load VSOP87 %s from %s: %w", id, dir, err)
		}
		ds.planets[id] = p
	}
	return ds, nil
}

func (d *VSOP87Dataset) Name() string   { return "VSOP87B" }
func (d *VSOP87Dataset) Center() BodyID { return Sun }

func (d *VSOP87Dataset) Covers(id BodyID) bool {
	switch id {
	case Sun, Pluto, Moon:
		return true
	}
	_, ok := d.planets[id]
	return ok
}

// State returns the heliocentric J2000 equatorial state of id.
func (d *VSOP87Dataset) State(id BodyID, et float64) (model.StateVector, error) {
	if !d.Covers(id) {
		return model.StateVector{}, fmt.Errorf("%w: VSOP87B has no body %s", ErrEphemerisUnavailable, id)
	}
	if id == Sun {
		return model.StateVector{}, nil
	}
	before, err := d.position(id, et-vsopStep)
	if err != nil {
		return model.StateVector{}, err
	}
	pos, err := d.position(id, et)
	if err != nil {
		return model.StateVector{}, err
	}
	after, err := d.position(id, et+vsopStep)
	if err != nil {
		return model.StateVector{}, err
	}
	return model.StateVector{
		Position: pos,
		Velocity: after.Sub(before).Scale(1 / (2 * vsopStep)),
	}, nil
}

func (d *VSOP87Dataset) position(id BodyID, et float64) (model.Vec3, error) {
	jde := JulianEphemerisDate(et)
	switch id {
	case Pluto:
		l, b, r := pluto.Heliocentric(jde)
		return eclipticToEquatorial(sphericalToCartesian(l.Rad(), b.Rad(), r*AUKm)), nil
	case Moon:
		earth, err := d.position(Earth, et)
		if err != nil {
			return model.Vec3{}, err
		}
		lon, lat, dist := moonposition.Position(jde)
		geo := eclipticToEquatorial(sphericalToCartesian(lon.Rad(), lat.Rad(), dist))
		return earth.Add(geo), nil
	}
	l, b, r := d.planets[id].Position2000(jde)
	return eclipticToEquatorial(sphericalToCartesian(l.Rad(), b.Rad(), r*AUKm)), nil
}
