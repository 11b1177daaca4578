// Package config loads server configuration from flags with TUNEHUB_* environment fallbacks.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config is the full server configuration.
type Config struct {
	Addr string

	Store        string // accounts: postgres | memory
	SessionStore string // sessions: postgres | redis | memory
	DSN          string

	RedisAddrs    []string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	AccessKey  string
	RefreshKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string

	TLSCert  string
	TLSKey   string
	Insecure bool

	Dev      bool // development logger and gRPC reflection
	LogLevel string

	LoginMaxFails int
	LoginWindow   time.Duration
	LoginBlockFor time.Duration

	HousekeepingInterval time.Duration
	ShutdownTimeout      time.Duration
}

// envPrefix is prepended to the upper-cased, underscored flag name: -access-ttl -> TUNEHUB_ACCESS_TTL.
const envPrefix = "TUNEHUB_"

// EnvName returns the environment variable consulted for flag name.
func EnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Load parses args (without the program name). Precedence: flag, environment, default.
func Load(args []string, getenv func(string) string) (Config, error) {
	var c Config
	var redisAddrs string

	fs := flag.NewFlagSet("tunehub-server", flag.ContinueOnError)
	fs.StringVar(&c.Addr, "addr", ":8443", "listen address")
	fs.StringVar(&c.Store, "store", DriverPostgres, "account store: postgres|memory")
	fs.StringVar(&c.SessionStore, "session-store", DriverPostgres, "session store: postgres|redis|memory")
	fs.StringVar(&c.DSN, "dsn", "", "PostgreSQL DSN")
	fs.StringVar(&redisAddrs, "redis-addrs", "", "comma-separated Redis addresses")
	fs.StringVar(&c.RedisUsername, "redis-username", "", "Redis ACL username")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&c.AccessKey, "access-key", "", "HS256 access token key (required)")
	fs.StringVar(&c.RefreshKey, "refresh-key", "", "HS256 refresh token key (required)")
	fs.DurationVar(&c.AccessTTL, "access-ttl", 15*time.Minute, "access token TTL")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", 720*time.Hour, "refresh token TTL")
	fs.StringVar(&c.Issuer, "issuer", "tunehub", "token issuer claim")
	fs.StringVar(&c.TLSCert, "tls-cert", "", "TLS certificate (PEM)")
	fs.StringVar(&c.TLSKey, "tls-key", "", "TLS private key (PEM)")
	fs.BoolVar(&c.Insecure, "insecure", false, "serve without TLS")
	fs.BoolVar(&c.Dev, "dev", false, "development logging and server reflection")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.IntVar(&c.LoginMaxFails, "login-max-fails", 5, "failed logins before lockout")
	fs.DurationVar(&c.LoginWindow, "login-window", 15*time.Minute, "failed login counting window")
	fs.DurationVar(&c.LoginBlockFor, "login-block", 15*time.Minute, "lockout duration")
	fs.DurationVar(&c.HousekeepingInterval, "housekeeping-interval", time.Hour, "expired session purge interval")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := applyEnv(fs, getenv); err != nil {
		return Config{}, err
	}
	// redisAddrs may have been set from the environment by applyEnv.
	for _, a := range strings.Split(redisAddrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			c.RedisAddrs = append(c.RedisAddrs, a)
		}
	}
	return c, c.Validate()
}

// applyEnv sets every flag not given on the command line from its environment variable.
func applyEnv(fs *flag.FlagSet, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var errs []error
	fs.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] {
			return
		}
		v := getenv(EnvName(f.Name))
		if v == "" {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(f.Name), err))
		}
	})
	return errors.Join(errs...)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.SessionStore {
	case DriverPostgres, DriverRedis, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.SessionStore))
	}
	if c.SessionStore == DriverPostgres && c.Store != DriverPostgres {
		errs = append(errs, errors.New("postgres session store requires the postgres account store"))
	}
	if (c.Store == DriverPostgres || c.SessionStore == DriverPostgres) && c.DSN == "" {
		errs = append(errs, errors.New("dsn is required for postgres"))
	}
	if c.SessionStore == DriverRedis && len(c.RedisAddrs) == 0 {
		errs = append(errs, errors.New("redis-addrs is required for the redis session store"))
	}
	if c.AccessKey == "" || c.RefreshKey == "" {
		errs = append(errs, errors.New("access-key and refresh-key are required"))
	} else if c.AccessKey == c.RefreshKey {
		errs = append(errs, errors.New("access-key and refresh-key must differ"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, fmt.Errorf("need 0 < access-ttl < refresh-ttl, got %s and %s", c.AccessTTL, c.RefreshTTL))
	}
	if !c.Insecure && (c.TLSCert == "" || c.TLSKey == "") {
		errs = append(errs, errors.New("tls-cert and tls-key are required unless -insecure"))
	}
	if c.LoginMaxFails < 1 {
		errs = append(errs, errors.New("login-max-fails must be at least 1"))
	}
	if c.LoginWindow <= 0 || c.LoginBlockFor <= 0 {
		errs = append(errs, errors.New("login-window and login-block must be positive"))
	}
	return errors.Join(errs...)
}

// String renders the configuration without secrets.
func (c Config) String() string {
	var b strings.Builder
	b.WriteString("addr=" + c.Addr)
	b.WriteString(" store=" + c.Store)
	b.WriteString(" session-store=" + c.SessionStore)
	b.WriteString(" redis-addrs=" + strings.Join(c.RedisAddrs, ","))
	b.WriteString(" access-ttl=" + c.AccessTTL.String())
	b.WriteString(" refresh-ttl=" + c.RefreshTTL.String())
	b.WriteString(" insecure=" + strconv.FormatBool(c.Insecure))
	b.WriteString(" dev=" + strconv.FormatBool(c.Dev))
	return b.String()
}
