package ephem

import (
	"fmt"
	"sync"

	"github.com/mshafiee/jpleph"

	"github.com/signalsfoundry/astrogator/model"
)

// deTargets maps NAIF ids onto the JPL pleph numbering.
var deTargets = map[BodyID]jpleph.Planet{
	SolarSystemBarycenter: jpleph.SolarSystemBarycenter,
	MercuryBarycenter:     jpleph.Mercury,
	Mercury:               jpleph.Mercury,
	VenusBarycenter:       jpleph.Venus,
	Venus:                 jpleph.Venus,
	EarthMoonBarycenter:   jpleph.EarthMoonBarycenter,
	Earth:                 jpleph.Earth,
	Moon:                  jpleph.Moon,
	MarsBarycenter:        jpleph.Mars,
	JupiterBarycenter:     jpleph.Jupiter,
	SaturnBarycenter:      jpleph.Saturn,
	UranusBarycenter:      jpleph.Uranus,
	NeptuneBarycenter:     jpleph.Neptune,
	PlutoBarycenter:       jpleph.Pluto,
	Sun:                   jpleph.Sun,
}

// DEDataset reads a JPL DE binary ephemeris. States are relative to the
// solar system barycenter.
type DEDataset struct {
	mu       sync.Mutex
	eph      *jpleph.Ephemeris
	name     string
	au       float64
	startJED float64
	endJED   float64
}

// OpenDE opens a JPL DE binary file such as linux_p1550p2650.440.
func OpenDE(path string) (*DEDataset, error) {
	eph, err := jpleph.NewEphemeris(path, true)
	if err != nil {
		return nil, fmt.Errorf("open DE ephemeris %s: %w", path, err)
	}
	au := eph.GetEphemerisDouble(jpleph.AUinKM)
	if au <= 0 {
		au = AUKm
	}
	ds := &DEDataset{
		eph:      eph,
		name:     fmt.Sprintf("DE%d", eph.GetEphemerisLong(jpleph.EphemerisVersion)),
		au:       au,
		startJED: eph.GetEphemerisDouble(jpleph.EphemerisStartJD),
		endJED:   eph.GetEphemerisDouble(jpleph.EphemerisEndJD),
	}
	return ds, nil
}

func (d *DEDataset) Name() string   { return d.name }
func (d *DEDataset) Center() BodyID { return SolarSystemBarycenter }

func (d *DEDataset) Covers(id BodyID) bool {
	_, ok := deTargets[id]
	return ok
}

// State interpolates the Chebyshev records for id at et.
func (d *DEDataset) State(id BodyID, et float64) (model.StateVector, error) {
	target, ok := deTargets[id]
	if !ok {
		return model.StateVector{}, fmt.Errorf("%w: %s has no body %s", ErrEphemerisUnavailable, d.name, id)
	}
	jed := JulianEphemerisDate(et)
	if jed < d.startJED || jed > d.endJED {
		return model.StateVector{}, fmt.Errorf("%w: JED %.3f outside %s coverage [%.1f, %.1f]",
			ErrEphemerisUnavailable, jed, d.name, d.startJED, d.endJED)
	}
	if id == SolarSystemBarycenter {
		return model.StateVector{}, nil
	}

	d.mu.Lock()
	pos, vel, err := d.eph.CalculatePV(jed, target, jpleph.CenterSolarSystemBarycenter, true)
	d.mu.Unlock()
	if err != nil {
		return model.StateVector{}, fmt.Errorf("%w: %s %s: %v", ErrEphemerisUnavailable, d.name, id, err)
	}

	kmPerDay := d.au / SecondsPerDay
	return model.StateVector{
		Position: model.Vec3{X: pos.X * d.au, Y: pos.Y * d.au, Z: pos.Z * d.au},
		Velocity: model.Vec3{X: vel.DX * kmPerDay, Y: vel.DY * kmPerDay, Z: vel.DZ * kmPerDay},
	}, nil
}

// Close releases the underlying file.
func (d *DEDataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eph.Close()
}
