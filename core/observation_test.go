package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/model"
)

func TestApparentAnglesFromSun(t *testing.T) {
	eph := newFakeEphemeris()
	obs := NewObserver(eph, nil)

	a, err := obs.ApparentAngles(context.Background(), "EARTH", HeliocentricJ2000(model.Vec3{}), 0)
	if err != nil {
		t.Fatalf("ApparentAngles: %v", err)
	}
	if !a.Valid || math.Abs(a.Range-1.496e8) > 1e-3 || math.Abs(a.RADeg) > 1e-9 || math.Abs(a.DecDeg) > 1e-9 {
		t.Fatalf("angles = %+v", a)
	}
}

func TestApparentAnglesSubtractsObserver(t *testing.T) {
	eph := newFakeEphemeris()
	obs := NewObserver(eph, nil)

	// observer sits beyond Earth on the +x axis, looking back at it
	a, err := obs.ApparentAngles(context.Background(), "EARTH", HeliocentricJ2000(model.Vec3{X: 2e8}), 0)
	if err != nil {
		t.Fatalf("ApparentAngles: %v", err)
	}
	if math.Abs(a.Range-(2e8-1.496e8)) > 1e-3 || math.Abs(a.RADeg-180) > 1e-9 {
		t.Fatalf("angles = %+v, want range %.0f at RA 180", a, 2e8-1.496e8)
	}
}

func TestApparentAnglesConvertsObserverCenter(t *testing.T) {
	eph := newFakeEphemeris()
	obs := NewObserver(eph, nil)
	ctx := context.Background()

	geo := ObserverPosition{Position: model.Vec3{Y: 1000}, Center: "EARTH", Frame: ephem.J2000}
	got, err := obs.ApparentAngles(ctx, "MARS", geo, 0)
	if err != nil {
		t.Fatalf("ApparentAngles geocentric: %v", err)
	}
	helio := HeliocentricJ2000(model.Vec3{X: 1.496e8, Y: 1000})
	want, err := obs.ApparentAngles(ctx, "MARS", helio, 0)
	if err != nil {
		t.Fatalf("ApparentAngles heliocentric: %v", err)
	}
	if math.Abs(got.Range-want.Range) > 1e-3 || math.Abs(got.RADeg-want.RADeg) > 1e-9 {
		t.Fatalf("geocentric observer %+v != heliocentric %+v", got, want)
	}
}

func TestApparentAnglesConvertsObserverFrame(t *testing.T) {
	eph := newFakeEphemeris()
	obs := NewObserver(eph, nil)
	ctx := context.Background()

	helio := model.Vec3{X: 1e8, Y: 5e7, Z: 2e7}
	ecl, err := eph.FrameTransform(model.StateVector{Position: helio}, ephem.J2000, ephem.EclipJ2000, 0)
	if err != nil {
		t.Fatalf("FrameTransform: %v", err)
	}

	got, err := obs.ApparentAngles(ctx, "JUPITER", ObserverPosition{Position: ecl.Position, Center: "SUN", Frame: ephem.EclipJ2000}, 0)
	if err != nil {
		t.Fatalf("ApparentAngles: %v", err)
	}
	want, _ := obs.ApparentAngles(ctx, "JUPITER", HeliocentricJ2000(helio), 0)
	if math.Abs(got.RADeg-want.RADeg) > 1e-9 || math.Abs(got.DecDeg-want.DecDeg) > 1e-9 {
		t.Fatalf("ecliptic observer %+v != equatorial %+v", got, want)
	}
}

func TestApparentAnglesFailureReturnsSentinel(t *testing.T) {
	eph := newFakeEphemeris()
	eph.fail["MARS"] = true
	obs := NewObserver(eph, nil)

	a, err := obs.ApparentAngles(context.Background(), "MARS", HeliocentricJ2000(model.Vec3{}), 0)
	if !errors.Is(err, ephem.ErrEphemerisUnavailable) {
		t.Fatalf("err = %v, want ErrEphemerisUnavailable", err)
	}
	if a != (Angles{}) {
		t.Fatalf("angles = %+v, want zero sentinel", a)
	}

	_, err = obs.ApparentAngles(context.Background(), "EARTH", ObserverPosition{Center: "VULCAN"}, 0)
	if !errors.Is(err, ephem.ErrEphemerisUnavailable) {
		t.Fatalf("unknown center err = %v, want ErrEphemerisUnavailable", err)
	}
}

func TestObserveAbsorbsFailure(t *testing.T) {
	eph := newFakeEphemeris()
	eph.fail["JUPITER"] = true
	obs := NewObserver(eph, nil)
	ctx := context.Background()

	rec := obs.Observe(ctx, "JUPITER", HeliocentricJ2000(model.Vec3{}), 0)
	want := model.ObservationRecord{Name: "JUPITER", Magnitude: UnknownMagnitude}
	if rec != want {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}

	rec = obs.Observe(ctx, "MARS", HeliocentricJ2000(model.Vec3{}), 0)
	if rec.Range == 0 || rec.Name != "MARS" || rec.Magnitude != UnknownMagnitude {
		t.Fatalf("record = %+v", rec)
	}
}

func TestObservePeer(t *testing.T) {
	obs := NewObserver(newFakeEphemeris(), nil)
	ctx := context.Background()

	rec := obs.ObservePeer(ctx, "bob", model.Vec3{X: 1e8}, model.Vec3{X: 1e8, Z: 500})
	if rec.Name != "bob" || math.Abs(rec.Range-500) > 1e-9 || math.Abs(rec.DecDeg-90) > 1e-9 {
		t.Fatalf("peer record = %+v", rec)
	}

	rec = obs.ObservePeer(ctx, "twin", model.Vec3{X: 1}, model.Vec3{X: 1})
	if rec.Range != 0 || rec.RADeg != 0 || rec.DecDeg != 0 {
		t.Fatalf("coincident peer record = %+v, want zero sentinel", rec)
	}
}
