package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"authserver/internal/platform/database"
)

// Config is the process configuration, read from AUTHSERVER_* variables.
// SessionDB falls back to ClientDB when no session DSN is set.
type Config struct {
	Server       Server
	Log          Log
	ClientDB     Datasource `envPrefix:"CLIENT_DB_"`
	SessionDB    Datasource `envPrefix:"SESSION_DB_"`
	MaxOpenConns int        `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	Seed         SeedClient `envPrefix:"SEED_CLIENT_"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Datasource is one relational database.
type Datasource struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN"`
}

// SeedClient is an optional client registered at startup. Seeding is skipped
// when ClientID is empty.
type SeedClient struct {
	ClientID    string `env:"ID"`
	Secret      string `env:"SECRET"`
	RedirectURI string `env:"REDIRECT_URI"`
}

// FromEnv builds the configuration from the environment.
func FromEnv() (Config, error) {
	return parse(env.Options{Prefix: "AUTHSERVER_"})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionDB.DSN == "" {
		cfg.SessionDB = cfg.ClientDB
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules that tags cannot express.
func (c Config) Validate() error {
	var errs []error
	for name, ds := range map[string]Datasource{"client": c.ClientDB, "session": c.SessionDB} {
		if ds.DSN == "" {
			errs = append(errs, fmt.Errorf("%s datasource dsn is required", name))
		}
		if _, err := database.Driver(ds.Driver).Dialect(); err != nil {
			errs = append(errs, fmt.Errorf("%s datasource: %w", name, err))
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Log.Format))
	}
	if c.Seed.ClientID != "" && c.Seed.RedirectURI == "" {
		errs = append(errs, errors.New("seed client requires a redirect uri"))
	}
	return errors.Join(errs...)
}

// Database returns the database.Config for ds.
func (c Config) Database(ds Datasource) database.Config {
	return database.Config{
		Driver:       database.Driver(ds.Driver),
		DSN:          ds.DSN,
		MaxOpenConns: c.MaxOpenConns,
	}
}

// SeparateSessionDB reports whether sessions live in their own database.
func (c Config) SeparateSessionDB() bool {
	return c.SessionDB != c.ClientDB
}
