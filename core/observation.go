package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/logging"
	"github.com/signalsfoundry/astrogator/model"
)

// ReferenceBody is the body every observer position is expressed against.
const ReferenceBody = "SUN"

// UnknownMagnitude is reported until a photometric model exists.
const UnknownMagnitude = -1.0

// EphemerisSource is the subset of the ephemeris provider used by the core
// models.
type EphemerisSource interface {
	BodyState(ctx context.Context, target, observer string, frame ephem.Frame, et float64) (model.StateVector, error)
	FrameTransform(state model.StateVector, from, to ephem.Frame, et float64) (model.StateVector, error)
	LightTimeCorrectedState(ctx context.Context, target, observer string, et float64) (model.StateVector, error)
}

// ObserverPosition is an observer location together with the body it is
// measured from and the frame of its components. The zero Center and Frame
// mean the Sun and J2000.
type ObserverPosition struct {
	Position model.Vec3
	Center   string
	Frame    ephem.Frame
}

// HeliocentricJ2000 wraps a Sun-relative J2000 position.
func HeliocentricJ2000(p model.Vec3) ObserverPosition {
	return ObserverPosition{Position: p, Center: ReferenceBody, Frame: ephem.J2000}
}

// Observer computes apparent directions to solar system bodies.
type Observer struct {
	eph EphemerisSource
	log logging.Logger
}

// NewObserver returns an Observer backed by eph.
func NewObserver(eph EphemerisSource, log logging.Logger) *Observer {
	if log == nil {
		log = logging.Noop()
	}
	return &Observer{eph: eph, log: log}
}

// heliocentric converts obs into a Sun-relative J2000 position.
func (o *Observer) heliocentric(ctx context.Context, obs ObserverPosition, et float64) (model.Vec3, error) {
	pos := obs.Position
	if !pos.IsFinite() {
		return model.Vec3{}, fmt.Errorf("%w: non-finite observer position", ErrDegenerateVector)
	}
	if obs.Frame != "" && obs.Frame != ephem.J2000 {
		rotated, err := o.eph.FrameTransform(model.StateVector{Position: pos}, obs.Frame, ephem.J2000, et)
		if err != nil {
			return model.Vec3{}, fmt.Errorf("observer frame %s: %w", obs.Frame, err)
		}
		pos = rotated.Position
	}
	center := strings.ToUpper(strings.TrimSpace(obs.Center))
	if center != "" && center != ReferenceBody {
		offset, err := o.eph.BodyState(ctx, center, ReferenceBody, ephem.J2000, et)
		if err != nil {
			return model.Vec3{}, fmt.Errorf("observer center %s: %w", center, err)
		}
		pos = pos.Add(offset.Position)
	}
	return pos, nil
}

// ApparentAngles returns the light-time and aberration corrected direction of
// target as seen from obs at et. On failure it returns the zero sentinel
// together with the cause.
func (o *Observer) ApparentAngles(ctx context.Context, target string, obs ObserverPosition, et float64) (Angles, error) {
	observer, err := o.heliocentric(ctx, obs, et)
	if err != nil {
		return Angles{}, err
	}
	apparent, err := o.eph.LightTimeCorrectedState(ctx, target, ReferenceBody, et)
	if err != nil {
		return Angles{}, err
	}
	return VectorToAngles(apparent.Position.Sub(observer))
}

// Observe builds the sensor record for target. Failures degrade to a record
// with zero range and angles; the cause is logged.
func (o *Observer) Observe(ctx context.Context, target string, obs ObserverPosition, et float64) model.ObservationRecord {
	angles, err := o.ApparentAngles(ctx, target, obs, et)
	if err != nil {
		o.log.Warn(ctx, "observation degraded to sentinel",
			logging.String("target", target),
			logging.Float64("et", et),
			logging.Err(err),
		)
	}
	return record(target, angles)
}

// ObservePeer builds a geometric bearing record from observer to peer, both
// Sun-relative J2000 positions. No light time is applied.
func (o *Observer) ObservePeer(ctx context.Context, name string, observer, peer model.Vec3) model.ObservationRecord {
	angles, err := VectorToAngles(peer.Sub(observer))
	if err != nil {
		o.log.Debug(ctx, "peer bearing undefined",
			logging.String("peer", name),
			logging.Err(err),
		)
	}
	return record(name, angles)
}

func record(name string, a Angles) model.ObservationRecord {
	return model.ObservationRecord{
		Name:      name,
		Range:     a.Range,
		RADeg:     a.RADeg,
		DecDeg:    a.DecDeg,
		Magnitude: UnknownMagnitude,
	}
}
