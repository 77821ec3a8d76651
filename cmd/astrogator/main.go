package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/auth"
	"github.com/signalsfoundry/astrogator/internal/catalog"
	"github.com/signalsfoundry/astrogator/internal/config"
	"github.com/signalsfoundry/astrogator/internal/logging"
	"github.com/signalsfoundry/astrogator/internal/nav"
	"github.com/signalsfoundry/astrogator/internal/observability"
	sim "github.com/signalsfoundry/astrogator/internal/sim/state"
	"github.com/signalsfoundry/astrogator/timectrl"
)

func main() {
	cfgPath := flag.String("config", "", "Path to an astrogator.yaml config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen", logging.String("addr", cfg.HTTP.Addr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis, prometheus.DefaultRegisterer); err != nil {
		log.Error(ctx, "astrogator exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires every component and serves HTTP on lis until ctx is done.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener, reg prometheus.Registerer) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	times := ephem.NewTimeConverter(loadLeapSeconds(ctx, cfg.Ephemeris.LeapSecondsFile, log))
	provider := ephem.NewProvider(
		openDataset(ctx, cfg.Ephemeris, log),
		ephem.WithTimeConverter(times),
		ephem.WithCacheSize(cfg.Ephemeris.CacheSize),
		ephem.WithLogger(log),
		ephem.WithQueryRecorder(collector),
	)
	defer provider.Close()

	users := loadUsers(ctx, cfg.Sim.UsersFile, cfg.Sim.AdminID, log)

	clock, err := simulationClock(ctx, cfg.Sim.StartTime)
	if err != nil {
		return err
	}

	registry := sim.NewRegistry(ctx, provider, clock, users.IDs(), sim.Config{
		AdminID:           cfg.Sim.AdminID,
		ObserverAlias:     cfg.Sim.ObserverAlias,
		InitialFuel:       cfg.Sim.InitialFuel,
		AnchorScale:       cfg.Sim.AnchorScale,
		PositionJitterKm:  cfg.Sim.PositionJitterKm,
		VelocityJitterKmS: cfg.Sim.VelocityJitterKmS,
		Seed:              cfg.Sim.Seed,
		ReferenceBody:     "EARTH",
	}, log, sim.WithMetricsRecorder(collector), sim.WithTimeSource(times))

	if cfg.Sim.MetricsInterval > 0 {
		publisher := timectrl.NewTimeController(time.Now().UTC(), cfg.Sim.MetricsInterval, timectrl.RealTime)
		publisher.AddListener(func(time.Time) { registry.PublishMetrics(ctx) })
		go publisher.Run(ctx)
	}

	svc := nav.NewService(registry, provider,
		nav.WithCatalog(loadCatalog(ctx, cfg.Nav.StarsFile, log)),
		nav.WithTimeConverter(times),
		nav.WithLogger(log),
		nav.WithOrbitPoints(cfg.Nav.OrbitPoints),
		nav.WithBurnRate(cfg.Nav.BurnRatePerMin, cfg.Nav.BurnBurst),
	)
	server := nav.NewServer(svc, users,
		nav.WithCollector(collector),
		nav.WithServerLogger(log),
		nav.WithStaticDir(cfg.HTTP.StaticDir),
		nav.WithDatasetName(provider.DatasetName()),
	)

	srv := &http.Server{
		Handler:      server.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving astrogator API", logging.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down astrogator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func loadLeapSeconds(ctx context.Context, path string, log logging.Logger) *ephem.LeapSecondTable {
	if path == "" {
		return ephem.BuiltinLeapSeconds()
	}
	table, err := ephem.LoadLeapSeconds(path)
	if err != nil {
		log.Warn(ctx, "using builtin leap second table", logging.String("path", path), logging.Err(err))
		return ephem.BuiltinLeapSeconds()
	}
	log.Info(ctx, "loaded leap seconds", logging.String("path", path), logging.Int("entries", table.Len()))
	return table
}

// openDataset loads the configured ephemeris. A missing file is not fatal:
// queries then fail with ErrEphemerisUnavailable.
func openDataset(ctx context.Context, cfg config.EphemerisConfig, log logging.Logger) ephem.Dataset {
	switch strings.ToLower(cfg.Backend) {
	case "de":
		ds, err := ephem.OpenDE(cfg.DEFile)
		if err != nil {
			log.Warn(ctx, "ephemeris unavailable", logging.String("path", cfg.DEFile), logging.Err(err))
			return nil
		}
		log.Info(ctx, "loaded ephemeris", logging.String("dataset", ds.Name()))
		return ds
	case "vsop87":
		ds, err := ephem.OpenVSOP87(cfg.VSOP87Dir)
		if err != nil {
			log.Warn(ctx, "ephemeris unavailable", logging.String("dir", cfg.VSOP87Dir), logging.Err(err))
			return nil
		}
		log.Info(ctx, "loaded ephemeris", logging.String("dataset", ds.Name()))
		return ds
	default:
		log.Warn(ctx, "no ephemeris backend configured")
		return nil
	}
}

func loadUsers(ctx context.Context, path, adminID string, log logging.Logger) *auth.Users {
	users, err := auth.LoadUsers(path, adminID)
	if err != nil {
		log.Warn(ctx, "starting without users", logging.String("path", path), logging.Err(err))
		empty, _ := auth.NewUsers(nil, nil, adminID)
		return empty
	}
	log.Info(ctx, "loaded users", logging.String("path", path), logging.Int("count", len(users.IDs())))
	return users
}

func loadCatalog(ctx context.Context, path string, log logging.Logger) *catalog.Catalog {
	stars, err := catalog.Load(path)
	if err != nil {
		log.Warn(ctx, "starting with an empty star catalog", logging.String("path", path), logging.Err(err))
		return catalog.New(nil)
	}
	log.Info(ctx, "loaded star catalog", logging.String("path", path), logging.Int("stars", stars.Len()))
	return stars
}

// simulationClock returns the wall clock, or a controller started at start
// and advancing in real time until ctx is done.
func simulationClock(ctx context.Context, start string) (timectrl.Clock, error) {
	if start == "" {
		return timectrl.WallClock{}, nil
	}
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("sim.start_time: %w", err)
	}
	tc := timectrl.NewTimeController(t.UTC(), time.Second, timectrl.RealTime)
	go tc.Run(ctx)
	return tc, nil
}
