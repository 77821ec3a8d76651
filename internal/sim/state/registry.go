// Package state holds the simulation registry: the set of spacecraft, one per
// non-privileged user, and the per-spacecraft locking that keeps refreshes
// and burns from losing updates.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/iancoleman/orderedmap"

	"github.com/signalsfoundry/astrogator/core"
	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/logging"
	"github.com/signalsfoundry/astrogator/model"
	"github.com/signalsfoundry/astrogator/timectrl"
)

var (
	// ErrSpacecraftNotFound indicates an unknown spacecraft id.
	ErrSpacecraftNotFound = errors.New("spacecraft not found")
	// ErrInsufficientFuel re-exports the core burn failure.
	ErrInsufficientFuel = core.ErrInsufficientFuel
	// ErrInvalidBurn re-exports the core burn validation failure.
	ErrInvalidBurn = core.ErrInvalidBurn
)

// FallbackAnchor is the seeding state used when the reference body cannot be
// queried at startup: roughly 1.5 million km sunward of Earth.
var FallbackAnchor = model.NewStateVector(1.48e8, 0, 0, 0, 29.78, 0)

// Config controls registry seeding.
type Config struct {
	// AdminID is the privileged user; it never owns a spacecraft.
	AdminID string
	// ObserverAlias, when set, is the spacecraft the admin observes from.
	ObserverAlias string
	// InitialFuel is the delta-v budget of each new spacecraft (km/s).
	InitialFuel float64
	// AnchorScale multiplies the reference body's position and velocity.
	AnchorScale float64
	// PositionJitterKm and VelocityJitterKmS bound the uniform per-axis
	// offsets applied around the anchor.
	PositionJitterKm  float64
	VelocityJitterKmS float64
	// Seed drives the jitter source.
	Seed uint64
	// ReferenceBody is the body the anchor is derived from.
	ReferenceBody string
}

// DefaultConfig returns the stock seeding parameters.
func DefaultConfig() Config {
	return Config{
		AdminID:           "admin",
		InitialFuel:       core.DefaultFuel,
		AnchorScale:       0.99,
		PositionJitterKm:  10000,
		VelocityJitterKmS: 0.01,
		Seed:              1,
		ReferenceBody:     "EARTH",
	}
}

// AnchorSource supplies the reference body state at startup.
type AnchorSource interface {
	BodyState(ctx context.Context, target, observer string, frame ephem.Frame, et float64) (model.StateVector, error)
}

// TimeSource converts wall-clock instants into ephemeris time.
type TimeSource interface {
	TimeToET(t time.Time) (float64, error)
}

// MetricsRecorder receives fleet gauges and burn outcomes.
type MetricsRecorder interface {
	SetFleetSize(n int)
	SetFuel(id string, fuel float64)
	ObserveBurn(result string)
}

// RegistryOption customises Registry construction.
type RegistryOption func(*Registry)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithTimeSource overrides the UTC to ephemeris time conversion.
func WithTimeSource(ts TimeSource) RegistryOption {
	return func(r *Registry) {
		if ts != nil {
			r.times = ts
		}
	}
}

// WithRand overrides the jitter source.
func WithRand(src *rand.Rand) RegistryOption {
	return func(r *Registry) { r.rng = src }
}

type entry struct {
	mu sync.Mutex
	sc *core.Spacecraft
}

// Registry owns every spacecraft for the lifetime of the process. The id set
// is fixed at construction, so the index needs no lock; each spacecraft is
// guarded by its own mutex.
type Registry struct {
	cfg     Config
	clock   timectrl.Clock
	times   TimeSource
	log     logging.Logger
	metrics MetricsRecorder
	rng     *rand.Rand

	order []string
	ships map[string]*entry

	anchor         model.StateVector
	anchorFallback bool
	startET        float64
}

// NewRegistry seeds one spacecraft per non-privileged id in ids, in order.
// Failure to derive the anchor from eph is logged and the FallbackAnchor is
// used instead; construction itself never fails.
func NewRegistry(ctx context.Context, eph AnchorSource, clock timectrl.Clock, ids []string, cfg Config, log logging.Logger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = logging.Noop()
	}
	if clock == nil {
		clock = timectrl.WallClock{}
	}
	r := &Registry{
		cfg:   cfg,
		clock: clock,
		times: ephem.NewTimeConverter(nil),
		log:   log,
		ships: make(map[string]*entry, len(ids)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	}

	now := clock.Now()
	startET, err := r.times.TimeToET(now)
	if err != nil {
		r.log.Warn(ctx, "start time conversion failed, starting at J2000",
			logging.String("now", now.String()),
			logging.Err(err),
		)
		startET = 0
	}
	r.startET = startET
	r.anchor, r.anchorFallback = r.computeAnchor(ctx, eph, startET)

	for _, id := range ids {
		if id == "" || id == cfg.AdminID {
			continue
		}
		if _, dup := r.ships[id]; dup {
			r.log.Warn(ctx, "duplicate user id ignored", logging.String("id", id))
			continue
		}
		state := r.anchor.Add(model.NewStateVector(
			r.jitter(cfg.PositionJitterKm), r.jitter(cfg.PositionJitterKm), r.jitter(cfg.PositionJitterKm),
			r.jitter(cfg.VelocityJitterKmS), r.jitter(cfg.VelocityJitterKmS), r.jitter(cfg.VelocityJitterKmS),
		))
		r.ships[id] = &entry{sc: core.NewSpacecraft(id, state, startET, cfg.InitialFuel)}
		r.order = append(r.order, id)
		if r.metrics != nil {
			r.metrics.SetFuel(id, cfg.InitialFuel)
		}
	}
	if r.metrics != nil {
		r.metrics.SetFleetSize(len(r.order))
	}

	r.log.Info(ctx, "registry initialised",
		logging.Int("spacecraft", len(r.order)),
		logging.Float64("start_et", startET),
		logging.Any("fallback_anchor", r.anchorFallback),
	)
	return r
}

func (r *Registry) computeAnchor(ctx context.Context, eph AnchorSource, et float64) (model.StateVector, bool) {
	if eph == nil {
		r.log.Warn(ctx, "no ephemeris source, using fallback anchor")
		return FallbackAnchor, true
	}
	ref, err := eph.BodyState(ctx, r.cfg.ReferenceBody, core.ReferenceBody, ephem.J2000, et)
	if err != nil {
		r.log.Warn(ctx, "anchor query failed, using fallback anchor",
			logging.String("body", r.cfg.ReferenceBody),
			logging.Err(err),
		)
		return FallbackAnchor, true
	}
	return ref.Scale(r.cfg.AnchorScale), false
}

func (r *Registry) jitter(bound float64) float64 {
	if bound <= 0 {
		return 0
	}
	return (r.rng.Float64()*2 - 1) * bound
}

// Anchor returns the seeding state and whether it is the hard-coded fallback.
func (r *Registry) Anchor() (model.StateVector, bool) {
	return r.anchor, r.anchorFallback
}

// StartET is the ephemeris time the fleet was created at.
func (r *Registry) StartET() float64 { return r.startET }

// IDs returns spacecraft ids in creation order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of spacecraft.
func (r *Registry) Len() int { return len(r.order) }

// IsPrivileged reports whether id is the admin id.
func (r *Registry) IsPrivileged(id string) bool {
	return id != "" && id == r.cfg.AdminID
}

// ResolveID maps the privileged id onto its observer spacecraft, when one is
// configured. Other ids are returned unchanged.
func (r *Registry) ResolveID(id string) string {
	if r.IsPrivileged(id) && r.cfg.ObserverAlias != "" {
		return r.cfg.ObserverAlias
	}
	return id
}

// Get refreshes the spacecraft to the current clock and returns a copy.
func (r *Registry) Get(ctx context.Context, id string) (core.Spacecraft, error) {
	return r.Update(ctx, id, nil)
}

// Update runs fn on the refreshed spacecraft while holding its lock and
// returns the resulting copy. fn may be nil. When fn fails the copy still
// reflects the refresh.
func (r *Registry) Update(ctx context.Context, id string, fn func(*core.Spacecraft) error) (core.Spacecraft, error) {
	e, ok := r.ships[id]
	if !ok {
		return core.Spacecraft{}, fmt.Errorf("%w: %q", ErrSpacecraftNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	r.refresh(ctx, e.sc)
	if fn != nil {
		if err := fn(e.sc); err != nil {
			return e.sc.Snapshot(), err
		}
	}
	return e.sc.Snapshot(), nil
}

// ApplyBurn refreshes the spacecraft and applies dv under one lock.
func (r *Registry) ApplyBurn(ctx context.Context, id string, dv model.Vec3) (core.Spacecraft, error) {
	sc, err := r.Update(ctx, id, func(sc *core.Spacecraft) error {
		return sc.ApplyBurn(dv)
	})
	if r.metrics != nil {
		r.metrics.ObserveBurn(burnResult(err))
		if err == nil {
			r.metrics.SetFuel(id, sc.Fuel)
		}
	}
	if err != nil {
		r.log.Info(ctx, "burn rejected", logging.String("id", id), logging.Err(err))
		return sc, err
	}
	r.log.Info(ctx, "burn executed",
		logging.String("id", id),
		logging.Any("delta_v", dv),
		logging.Float64("fuel", sc.Fuel),
	)
	return sc, nil
}

func burnResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFuel):
		return "insufficient_fuel"
	case errors.Is(err, ErrSpacecraftNotFound):
		return "not_found"
	default:
		return "invalid"
	}
}

// refresh propagates sc to the clock's current time. A conversion failure
// leaves the last known state in place.
func (r *Registry) refresh(ctx context.Context, sc *core.Spacecraft) {
	now := r.clock.Now()
	et, err := r.times.TimeToET(now)
	if err != nil {
		r.log.Warn(ctx, "refresh skipped, keeping last known state",
			logging.String("id", sc.ID),
			logging.Err(err),
		)
		return
	}
	sc.Propagate(et)
}

// List refreshes every spacecraft under its own lock and returns them in
// creation order. The result is not a transactional snapshot: ships are
// refreshed one after another.
func (r *Registry) List(ctx context.Context) *Fleet {
	ships := make([]core.Spacecraft, 0, len(r.order))
	for _, id := range r.order {
		sc, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		ships = append(ships, sc)
	}
	return &Fleet{ships: ships}
}

// PublishMetrics pushes current fleet gauges to the recorder.
func (r *Registry) PublishMetrics(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	fleet := r.List(ctx)
	r.metrics.SetFleetSize(fleet.Len())
	for _, sc := range fleet.ships {
		r.metrics.SetFuel(sc.ID, sc.Fuel)
	}
}

// Fleet is an ordered set of spacecraft copies.
type Fleet struct {
	ships []core.Spacecraft
}

// Len returns the number of spacecraft.
func (f *Fleet) Len() int { return len(f.ships) }

// Ships returns the copies in creation order.
func (f *Fleet) Ships() []core.Spacecraft {
	return append([]core.Spacecraft(nil), f.ships...)
}

// First returns the first spacecraft, if any.
func (f *Fleet) First() (core.Spacecraft, bool) {
	if len(f.ships) == 0 {
		return core.Spacecraft{}, false
	}
	return f.ships[0], true
}

// Lookup finds a spacecraft by id.
func (f *Fleet) Lookup(id string) (core.Spacecraft, bool) {
	for _, sc := range f.ships {
		if sc.ID == id {
			return sc, true
		}
	}
	return core.Spacecraft{}, false
}

// MarshalJSON encodes the fleet as an object keyed by id in creation order.
func (f *Fleet) MarshalJSON() ([]byte, error) {
	o := orderedmap.New()
	for _, sc := range f.ships {
		o.Set(sc.ID, sc)
	}
	return json.Marshal(o)
}
