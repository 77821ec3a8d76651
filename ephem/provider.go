package ephem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/astrogator/internal/logging"
	"github.com/signalsfoundry/astrogator/model"
)

const tracerName = "github.com/signalsfoundry/astrogator/ephem"

// DefaultCacheSize is the number of query results kept by a Provider.
const DefaultCacheSize = 4096

// lightTimePasses is the number of light-time iterations; three passes
// converge well below a metre for solar system distances.
const lightTimePasses = 3

// QueryRecorder receives one observation per provider query.
type QueryRecorder interface {
	ObserveEphemerisQuery(op, result string)
}

type queryKey struct {
	target    BodyID
	observer  BodyID
	frame     Frame
	et        float64
	corrected bool
}

// Provider answers body state and frame queries against one Dataset. It is
// safe for concurrent use.
type Provider struct {
	ds        Dataset
	fallbacks FallbackTable
	times     *TimeConverter
	frames    *Frames
	cache     *lru.Cache[queryKey, model.StateVector]
	cacheSize int
	log       logging.Logger
	metrics   QueryRecorder
	tracer    trace.Tracer
}

// Option configures a Provider.
type Option func(*Provider)

// WithFallbacks replaces the default planet -> barycenter table.
func WithFallbacks(table FallbackTable) Option {
	return func(p *Provider) { p.fallbacks = table }
}

// WithCacheSize sets the query cache capacity; zero disables caching.
func WithCacheSize(n int) Option {
	return func(p *Provider) { p.cacheSize = n }
}

// WithLogger sets the provider logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithQueryRecorder wires query metrics.
func WithQueryRecorder(r QueryRecorder) Option {
	return func(p *Provider) { p.metrics = r }
}

// WithTimeConverter sets the leap second model used for Earth rotation.
func WithTimeConverter(tc *TimeConverter) Option {
	return func(p *Provider) {
		if tc != nil {
			p.times = tc
		}
	}
}

// NewProvider wraps ds. A nil ds yields a provider on which every query
// fails with ErrEphemerisUnavailable.
func NewProvider(ds Dataset, opts ...Option) *Provider {
	p := &Provider{
		ds:        ds,
		fallbacks: DefaultFallbacks(),
		times:     defaultConverter,
		cacheSize: DefaultCacheSize,
		log:       logging.Noop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.frames = NewFrames(p.times)
	if p.cacheSize > 0 {
		cache, err := lru.New[queryKey, model.StateVector](p.cacheSize)
		if err == nil {
			p.cache = cache
		}
	}
	return p
}

// Available reports whether a dataset is loaded.
func (p *Provider) Available() bool { return p.ds != nil }

// DatasetName returns the loaded dataset name, or "" when none is loaded.
func (p *Provider) DatasetName() string {
	if p.ds == nil {
		return ""
	}
	return p.ds.Name()
}

// Times returns the time converter the provider uses.
func (p *Provider) Times() *TimeConverter { return p.times }

// Fallbacks returns the active fallback table.
func (p *Provider) Fallbacks() FallbackTable { return p.fallbacks }

// Close closes the dataset when it holds resources.
func (p *Provider) Close() error {
	if c, ok := p.ds.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resolve maps a body name or numeric id onto the id that will actually be
// queried: the primary id when the dataset covers it, else its fallback.
func (p *Provider) Resolve(name string) (BodyID, error) {
	id, err := ParseBody(name)
	if err != nil {
		return 0, err
	}
	return p.resolveID(id)
}

func (p *Provider) resolveID(id BodyID) (BodyID, error) {
	if p.ds == nil {
		return 0, fmt.Errorf("%w: no ephemeris dataset loaded", ErrEphemerisUnavailable)
	}
	if p.ds.Covers(id) {
		return id, nil
	}
	if sub, ok := p.fallbacks.Lookup(id); ok && p.ds.Covers(sub) {
		return sub, nil
	}
	return 0, fmt.Errorf("%w: %s not covered by %s", ErrEphemerisUnavailable, id, p.ds.Name())
}

// BodyState returns the geometric state of target relative to observer in
// frame at et.
func (p *Provider) BodyState(ctx context.Context, target, observer string, frame Frame, et float64) (state model.StateVector, err error) {
	ctx, span := p.start(ctx, "ephem.BodyState", target, observer, frame, et)
	defer func() { p.finish(ctx, span, "body_state", err) }()

	tgt, obs, err := p.pair(ctx, target, observer, et)
	if err != nil {
		return model.StateVector{}, err
	}
	if _, err := ParseFrame(string(frame)); err != nil {
		return model.StateVector{}, err
	}

	key := queryKey{target: tgt, observer: obs, frame: frame, et: et}
	if cached, ok := p.cached(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	tState, err := p.rootState(tgt, et)
	if err != nil {
		return model.StateVector{}, err
	}
	oState, err := p.rootState(obs, et)
	if err != nil {
		return model.StateVector{}, err
	}
	state = tState.Sub(oState)
	if frame != J2000 {
		if state, err = p.frames.Apply(state, J2000, frame, et); err != nil {
			return model.StateVector{}, err
		}
	}
	p.store(key, state)
	return state, nil
}

// FrameTransform re-expresses state from one frame in another at et.
func (p *Provider) FrameTransform(state model.StateVector, from, to Frame, et float64) (out model.StateVector, err error) {
	defer func() { p.record("frame_transform", err) }()
	out, err = p.frames.Apply(state, from, to, et)
	if err != nil && !errors.Is(err, ErrEphemerisUnavailable) {
		err = fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}
	return out, err
}

// LightTimeCorrectedState returns the apparent J2000 state of target as seen
// from observer at et: the target is evaluated at the light-time retarded
// epoch and the line of sight is corrected for stellar aberration using the
// observer's velocity relative to the dataset root.
func (p *Provider) LightTimeCorrectedState(ctx context.Context, target, observer string, et float64) (state model.StateVector, err error) {
	ctx, span := p.start(ctx, "ephem.LightTimeCorrectedState", target, observer, J2000, et)
	defer func() { p.finish(ctx, span, "light_time", err) }()

	tgt, obs, err := p.pair(ctx, target, observer, et)
	if err != nil {
		return model.StateVector{}, err
	}

	key := queryKey{target: tgt, observer: obs, frame: J2000, et: et, corrected: true}
	if cached, ok := p.cached(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	oState, err := p.rootState(obs, et)
	if err != nil {
		return model.StateVector{}, err
	}

	var (
		lt     float64
		tState model.StateVector
	)
	for i := 0; i < lightTimePasses; i++ {
		if tState, err = p.rootState(tgt, et-lt); err != nil {
			return model.StateVector{}, err
		}
		lt = tState.Position.Sub(oState.Position).Norm() / SpeedOfLight
	}
	if tState, err = p.rootState(tgt, et-lt); err != nil {
		return model.StateVector{}, err
	}

	rel := tState.Sub(oState)
	rel.Position = stellarAberration(rel.Position, oState.Velocity)
	span.SetAttributes(attribute.Float64("light_time_s", lt))

	p.store(key, rel)
	return rel, nil
}

func (p *Provider) pair(ctx context.Context, target, observer string, et float64) (BodyID, BodyID, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}
	if math.IsNaN(et) || math.IsInf(et, 0) {
		return 0, 0, fmt.Errorf("%w: non-finite epoch", ErrEphemerisUnavailable)
	}
	tgt, err := p.Resolve(target)
	if err != nil {
		return 0, 0, err
	}
	obs, err := p.Resolve(observer)
	if err != nil {
		return 0, 0, err
	}
	return tgt, obs, nil
}

func (p *Provider) rootState(id BodyID, et float64) (model.StateVector, error) {
	if id == p.ds.Center() {
		return model.StateVector{}, nil
	}
	s, err := p.ds.State(id, et)
	if err != nil {
		if !errors.Is(err, ErrEphemerisUnavailable) {
			err = fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
		}
		return model.StateVector{}, err
	}
	return s, nil
}

func (p *Provider) cached(key queryKey) (model.StateVector, bool) {
	if p.cache == nil {
		return model.StateVector{}, false
	}
	return p.cache.Get(key)
}

func (p *Provider) store(key queryKey, state model.StateVector) {
	if p.cache != nil {
		p.cache.Add(key, state)
	}
}

func (p *Provider) start(ctx context.Context, name, target, observer string, frame Frame, et float64) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("ephem.target", target),
		attribute.String("ephem.observer", observer),
		attribute.String("ephem.frame", string(frame)),
		attribute.Float64("ephem.et", et),
	))
}

func (p *Provider) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Debug(ctx, "ephemeris query failed",
			logging.String("op", op),
			logging.Err(err),
		)
	}
	span.End()
	p.record(op, err)
}

func (p *Provider) record(op string, err error) {
	if p.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "unavailable"
	}
	p.metrics.ObserveEphemerisQuery(op, result)
}
