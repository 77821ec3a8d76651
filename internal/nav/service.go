// Package nav implements the navigation service behind the HTTP API: orrery
// views, sensor readouts, burn commands and privileged truth queries.
package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iancoleman/orderedmap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/astrogator/core"
	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/catalog"
	"github.com/signalsfoundry/astrogator/internal/logging"
	sim "github.com/signalsfoundry/astrogator/internal/sim/state"
	"github.com/signalsfoundry/astrogator/model"
)

// FallbackUTC is the orrery epoch used while no spacecraft exists.
const FallbackUTC = "2026-01-01T00:00:00"

// DefaultOrbitPoints is the polyline resolution of OrreryPaths.
const DefaultOrbitPoints = 120

// BurnStatus is reported for every accepted burn.
const BurnStatus = "Burn executed"

var (
	// OrreryBodies are the bodies drawn on the orrery, in display order.
	OrreryBodies = []string{"MERCURY", "VENUS", "EARTH", "MARS", "JUPITER", "SATURN"}
	// SensorTargets are the bodies every sensor readout reports.
	SensorTargets = []string{"SUN", "MERCURY", "VENUS", "EARTH", "MARS", "JUPITER", "SATURN", "URANUS", "NEPTUNE", "PLUTO"}
)

// Registry is the subset of the spacecraft registry used by the service.
type Registry interface {
	Get(ctx context.Context, id string) (core.Spacecraft, error)
	ApplyBurn(ctx context.Context, id string, dv model.Vec3) (core.Spacecraft, error)
	List(ctx context.Context) *sim.Fleet
	ResolveID(id string) string
	IsPrivileged(id string) bool
}

// Point is a position serialized as [x, y, z] kilometres.
type Point [3]float64

func toPoint(v model.Vec3) Point { return Point{v.X, v.Y, v.Z} }

// Named is an ordered set of values keyed by name.
type Named[T any] struct {
	keys   []string
	values map[string]T
}

func newNamed[T any]() *Named[T] {
	return &Named[T]{values: make(map[string]T)}
}

func (n *Named[T]) set(key string, v T) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = v
}

// Keys returns the names in insertion order.
func (n *Named[T]) Keys() []string { return append([]string(nil), n.keys...) }

// Get returns the value stored under key.
func (n *Named[T]) Get(key string) (T, bool) {
	v, ok := n.values[key]
	return v, ok
}

// Len returns the number of entries.
func (n *Named[T]) Len() int { return len(n.keys) }

// MarshalJSON encodes the set as an object in insertion order.
func (n *Named[T]) MarshalJSON() ([]byte, error) {
	o := orderedmap.New()
	for _, k := range n.keys {
		o.Set(k, n.values[k])
	}
	return json.Marshal(o)
}

// LiveOrrery is the current position of every orrery body.
type LiveOrrery struct {
	ET     float64       `json:"et"`
	UTC    string        `json:"utc"`
	Bodies *Named[Point] `json:"bodies"`
}

// TimeTag is an instant in both scales.
type TimeTag struct {
	ET  float64 `json:"et"`
	UTC string  `json:"utc"`
}

// Observables groups the sensor records.
type Observables struct {
	Bodies []model.ObservationRecord `json:"bodies"`
}

// SensorState is one spacecraft's instrument readout.
type SensorState struct {
	Time        TimeTag     `json:"time"`
	Fuel        float64     `json:"fuel"`
	Observables Observables `json:"observables"`
}

// BurnResult acknowledges an executed burn.
type BurnResult struct {
	Status        string  `json:"status"`
	RemainingFuel float64 `json:"remaining_fuel"`
}

// TruthState is the raw state of a spacecraft.
type TruthState struct {
	ID    string     `json:"id"`
	State [6]float64 `json:"state"`
	ET    float64    `json:"et"`
	UTC   string     `json:"utc"`
}

// Service implements the navigation operations.
type Service struct {
	reg      Registry
	eph      core.EphemerisSource
	times    *ephem.TimeConverter
	observer *core.Observer
	sampler  *core.OrbitSampler
	stars    *catalog.Catalog
	log      logging.Logger

	orbitPoints int
	burnLimit   rate.Limit
	burnBurst   int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option customises a Service.
type Option func(*Service)

// WithCatalog sets the star catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.stars = c }
}

// WithTimeConverter overrides the UTC/ET converter.
func WithTimeConverter(tc *ephem.TimeConverter) Option {
	return func(s *Service) {
		if tc != nil {
			s.times = tc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOrbitPoints sets the default polyline resolution.
func WithOrbitPoints(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.orbitPoints = n
		}
	}
}

// WithBurnRate limits each user to perMinute burns with the given burst.
func WithBurnRate(perMinute float64, burst int) Option {
	return func(s *Service) {
		if perMinute > 0 && burst > 0 {
			s.burnLimit = rate.Limit(perMinute / 60)
			s.burnBurst = burst
		}
	}
}

// NewService wires a Service.
func NewService(reg Registry, eph core.EphemerisSource, opts ...Option) *Service {
	s := &Service{
		reg:         reg,
		eph:         eph,
		times:       ephem.NewTimeConverter(nil),
		log:         logging.Noop(),
		orbitPoints: DefaultOrbitPoints,
		burnLimit:   rate.Limit(0.5),
		burnBurst:   5,
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.observer = core.NewObserver(eph, s.log)
	s.sampler = core.NewOrbitSampler(eph)
	return s
}

// epoch is the time of the first live spacecraft, or FallbackUTC.
func (s *Service) epoch(ctx context.Context) (float64, error) {
	if sc, ok := s.reg.List(ctx).First(); ok {
		return sc.ET, nil
	}
	return s.times.UTCToET(FallbackUTC)
}

// OrreryLive returns heliocentric ecliptic positions of the orrery bodies.
// Bodies the ephemeris cannot serve are left out.
func (s *Service) OrreryLive(ctx context.Context) (LiveOrrery, error) {
	et, err := s.epoch(ctx)
	if err != nil {
		return LiveOrrery{}, err
	}
	bodies := newNamed[Point]()
	for _, b := range OrreryBodies {
		st, err := s.eph.BodyState(ctx, b, core.ReferenceBody, ephem.EclipJ2000, et)
		if err != nil {
			s.log.Warn(ctx, "orrery body unavailable", logging.String("body", b), logging.Err(err))
			continue
		}
		bodies.set(b, toPoint(st.Position))
	}
	return LiveOrrery{ET: et, UTC: s.times.ETToUTC(et), Bodies: bodies}, nil
}

// OrreryPaths samples one period of every orrery body with n segments
// (n <= 0 selects the configured default). Bodies are sampled concurrently;
// failed bodies are left out.
func (s *Service) OrreryPaths(ctx context.Context, n int) (*Named[[]Point], error) {
	if n <= 0 {
		n = s.orbitPoints
	}
	et, err := s.epoch(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([][]Point, len(OrreryBodies))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range OrreryBodies {
		g.Go(func() error {
			pts, err := s.sampler.SampleOrbit(gctx, b, et, n)
			if err != nil {
				s.log.Warn(gctx, "orbit path unavailable", logging.String("body", b), logging.Err(err))
				return nil
			}
			line := make([]Point, len(pts))
			for j, p := range pts {
				line[j] = toPoint(p)
			}
			paths[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ephem.ErrEphemerisUnavailable, err)
	}

	out := newNamed[[]Point]()
	for i, b := range OrreryBodies {
		if paths[i] != nil {
			out.set(b, paths[i])
		}
	}
	return out, nil
}

// authorize checks that user may address spacecraft id.
func (s *Service) authorize(user, id string) error {
	if user == "" {
		return ErrForbidden
	}
	if user != id && !s.reg.IsPrivileged(user) {
		return fmt.Errorf("%w: %s may not access %s", ErrForbidden, user, id)
	}
	return nil
}

// SensorState returns the time, fuel and sky observations of spacecraft id.
// Users may read their own spacecraft; the privileged user may read any and
// additionally sees a bearing to every other spacecraft.
func (s *Service) SensorState(ctx context.Context, user, id string) (SensorState, error) {
	if err := s.authorize(user, id); err != nil {
		return SensorState{}, err
	}
	shipID := s.reg.ResolveID(id)
	sc, err := s.reg.Get(ctx, shipID)
	if err != nil {
		return SensorState{}, err
	}

	obs := core.HeliocentricJ2000(sc.State.Position)
	records := make([]model.ObservationRecord, 0, len(SensorTargets))
	for _, target := range SensorTargets {
		records = append(records, s.observer.Observe(ctx, target, obs, sc.ET))
	}
	if s.reg.IsPrivileged(user) {
		for _, peer := range s.reg.List(ctx).Ships() {
			if peer.ID == sc.ID {
				continue
			}
			records = append(records, s.observer.ObservePeer(ctx, peer.ID, sc.State.Position, peer.State.Position))
		}
	}

	return SensorState{
		Time:        TimeTag{ET: sc.ET, UTC: s.times.ETToUTC(sc.ET)},
		Fuel:        sc.Fuel,
		Observables: Observables{Bodies: records},
	}, nil
}

func (s *Service) limiter(user string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[user]
	if !ok {
		l = rate.NewLimiter(s.burnLimit, s.burnBurst)
		s.limiters[user] = l
	}
	return l
}

// Burn applies dv to the user's own spacecraft.
func (s *Service) Burn(ctx context.Context, user, id string, dv model.Vec3) (BurnResult, error) {
	if user == "" || user != id {
		return BurnResult{}, fmt.Errorf("%w: %s may not command %s", ErrForbidden, user, id)
	}
	if !s.limiter(user).Allow() {
		return BurnResult{}, ErrRateLimited
	}
	sc, err := s.reg.ApplyBurn(ctx, id, dv)
	if err != nil {
		return BurnResult{}, err
	}
	return BurnResult{Status: BurnStatus, RemainingFuel: sc.Fuel}, nil
}

// Truth returns the raw J2000 state of spacecraft id.
func (s *Service) Truth(ctx context.Context, id string) (TruthState, error) {
	sc, err := s.reg.Get(ctx, s.reg.ResolveID(id))
	if err != nil {
		return TruthState{}, err
	}
	return TruthState{
		ID:    sc.ID,
		State: sc.State.Array(),
		ET:    sc.ET,
		UTC:   s.times.ETToUTC(sc.ET),
	}, nil
}

// FleetTruth returns every spacecraft position in ECLIPJ2000 for the
// privileged user. Ships whose transform fails are left out.
func (s *Service) FleetTruth(ctx context.Context, user string) (*Named[Point], error) {
	if !s.reg.IsPrivileged(user) {
		return nil, fmt.Errorf("%w: fleet view is privileged", ErrForbidden)
	}
	out := newNamed[Point]()
	for _, sc := range s.reg.List(ctx).Ships() {
		st, err := s.eph.FrameTransform(sc.State, ephem.J2000, ephem.EclipJ2000, sc.ET)
		if err != nil {
			s.log.Warn(ctx, "fleet transform failed", logging.String("id", sc.ID), logging.Err(err))
			continue
		}
		out.set(sc.ID, toPoint(st.Position))
	}
	return out, nil
}

// Stars returns the star catalog unmodified.
func (s *Service) Stars() []model.Star {
	return s.stars.Stars()
}
