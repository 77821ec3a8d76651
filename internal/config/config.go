// Package config loads process configuration from defaults, an optional
// YAML file, and ASTROGATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, so http.addr is read
// from ASTROGATOR_HTTP_ADDR.
const EnvPrefix = "ASTROGATOR"

// ErrInvalidConfig indicates a value outside its accepted range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full process configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Ephemeris EphemerisConfig `mapstructure:"ephemeris"`
	Sim       SimConfig       `mapstructure:"sim"`
	Nav       NavConfig       `mapstructure:"nav"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EphemerisConfig selects and locates the ephemeris data.
type EphemerisConfig struct {
	Backend         string `mapstructure:"backend"` // de | vsop87 | none
	DEFile          string `mapstructure:"de_file"`
	VSOP87Dir       string `mapstructure:"vsop87_dir"`
	LeapSecondsFile string `mapstructure:"leapseconds_file"`
	CacheSize       int    `mapstructure:"cache_size"`
}

// SimConfig controls the spacecraft registry.
type SimConfig struct {
	UsersFile         string        `mapstructure:"users_file"`
	AdminID           string        `mapstructure:"admin_id"`
	ObserverAlias     string        `mapstructure:"observer_alias"`
	InitialFuel       float64       `mapstructure:"initial_fuel"`
	AnchorScale       float64       `mapstructure:"anchor_scale"`
	PositionJitterKm  float64       `mapstructure:"position_jitter_km"`
	VelocityJitterKmS float64       `mapstructure:"velocity_jitter_kms"`
	Seed              uint64        `mapstructure:"seed"`
	StartTime         string        `mapstructure:"start_time"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
}

// NavConfig controls the navigation service.
type NavConfig struct {
	StarsFile      string  `mapstructure:"stars_file"`
	BurnRatePerMin float64 `mapstructure:"burn_rate_per_min"`
	BurnBurst      int     `mapstructure:"burn_burst"`
	OrbitPoints    int     `mapstructure:"orbit_points"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.static_dir", "")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("ephemeris.backend", "de")
	v.SetDefault("ephemeris.de_file", "data/de440.bin")
	v.SetDefault("ephemeris.vsop87_dir", "data/vsop87")
	v.SetDefault("ephemeris.leapseconds_file", "")
	v.SetDefault("ephemeris.cache_size", 4096)

	v.SetDefault("sim.users_file", "data/users.json")
	v.SetDefault("sim.admin_id", "admin")
	v.SetDefault("sim.observer_alias", "")
	v.SetDefault("sim.initial_fuel", 1000.0)
	v.SetDefault("sim.anchor_scale", 0.99)
	v.SetDefault("sim.position_jitter_km", 10000.0)
	v.SetDefault("sim.velocity_jitter_kms", 0.01)
	v.SetDefault("sim.seed", 1)
	v.SetDefault("sim.start_time", "")
	v.SetDefault("sim.metrics_interval", 15*time.Second)

	v.SetDefault("nav.stars_file", "data/stars.json")
	v.SetDefault("nav.burn_rate_per_min", 30.0)
	v.SetDefault("nav.burn_burst", 5)
	v.SetDefault("nav.orbit_points", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "astrogator")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are consulted.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values the rest of the process relies on.
func (c Config) Validate() error {
	switch strings.ToLower(c.Ephemeris.Backend) {
	case "de", "vsop87", "none":
	default:
		return fmt.Errorf("%w: unknown ephemeris backend %q", ErrInvalidConfig, c.Ephemeris.Backend)
	}
	if c.Ephemeris.CacheSize < 0 {
		return fmt.Errorf("%w: ephemeris.cache_size must be >= 0", ErrInvalidConfig)
	}
	if c.Sim.AdminID == "" {
		return fmt.Errorf("%w: sim.admin_id is required", ErrInvalidConfig)
	}
	if c.Sim.InitialFuel < 0 {
		return fmt.Errorf("%w: sim.initial_fuel must be >= 0", ErrInvalidConfig)
	}
	if c.Nav.BurnRatePerMin <= 0 || c.Nav.BurnBurst < 1 {
		return fmt.Errorf("%w: burn rate and burst must be positive", ErrInvalidConfig)
	}
	if c.Nav.OrbitPoints < 1 {
		return fmt.Errorf("%w: nav.orbit_points must be >= 1", ErrInvalidConfig)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}
