// Package config reads the forum server's settings from the environment.
// Unset or empty variables take their defaults. Malformed values are
// reported by Load together with any rule violations.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type CORSConfig struct {
	AllowedOrigins []string // empty allows any origin
}

type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export over OTLP/gRPC.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// DBConfig picks sqlite (Path) or postgres (DSN).
type DBConfig struct {
	Driver string
	Path   string
	DSN    string
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Config is the full server configuration.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string

	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool

	AppName string
	// ForumMountPath is where the forum engine lives, e.g. "/forums". It can
	// never be "/" because the home page and /users belong to the host app.
	ForumMountPath string
	SeedPath       string
	MarkupMaxBytes int // 0 disables the cap

	DB      DBConfig
	Session SessionConfig

	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// Load builds a Config from the environment.
func Load() (Config, error) {
	e := newEnv()
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.num("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(e.str("GIN_MODE", "release")),

		LogLevel:       logLevel(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),

		AppName:        e.str("APP_NAME", "Beast Forums"),
		ForumMountPath: normalizeBasePath(e.str("FORUM_MOUNT_PATH", "/forums")),
		SeedPath:       e.str("SEED_PATH", ""),
		MarkupMaxBytes: e.num("MARKUP_MAX_BYTES", 64<<10),

		DB: DBConfig{
			Driver: dbDriver(e.str("DB_DRIVER", "sqlite")),
			Path:   e.str("DB_PATH", "app.db"),
			DSN:    e.str("DB_DSN", ""),
		},
		Session: SessionConfig{
			CookieName: e.str("SESSION_COOKIE", "_beast_session"),
			TTL:        e.dur("SESSION_TTL", 14*24*time.Hour),
			Secure:     e.flag("SESSION_SECURE", false),
		},

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.num("RATE_BURST", 10),

		CORS:     CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{EnableHSTS: e.flag("ENABLE_HSTS", false), HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour)},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "beast-forums"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	if err := e.errs.Filter(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field rules. Error keys are the environment
// variable names.
func (c Config) Validate() error {
	positive := validation.By(func(v any) error {
		if d, _ := v.(time.Duration); d <= 0 {
			return errors.New("must be a positive duration")
		}
		return nil
	})
	errs := validation.Errors{
		"LOG_LEVEL":               validation.Validate(c.LogLevel, validation.In("debug", "info", "warn", "error", "fatal", "panic")),
		"PORT":                    validation.Validate(strings.TrimSpace(c.Port), validation.Required),
		"READ_TIMEOUT":            validation.Validate(c.ReadTimeout, positive),
		"READ_HEADER_TIMEOUT":     validation.Validate(c.ReadHeaderTimeout, positive),
		"WRITE_TIMEOUT":           validation.Validate(c.WriteTimeout, positive),
		"IDLE_TIMEOUT":            validation.Validate(c.IdleTimeout, positive),
		"MAX_HEADER_BYTES":        validation.Validate(c.MaxHeaderBytes, validation.Required, validation.Min(1)),
		"FORUM_MOUNT_PATH":        validation.Validate(c.ForumMountPath, validation.NotIn("/").Error("must not be the root path")),
		"DB_DRIVER":               validation.Validate(c.DB.Driver, validation.In("sqlite", "postgres")),
		"DB_PATH":                 validation.Validate(strings.TrimSpace(c.DB.Path), validation.When(c.DB.Driver == "sqlite", validation.Required)),
		"DB_DSN":                  validation.Validate(strings.TrimSpace(c.DB.DSN), validation.When(c.DB.Driver == "postgres", validation.Required)),
		"SESSION_COOKIE":          validation.Validate(strings.TrimSpace(c.Session.CookieName), validation.Required),
		"SESSION_TTL":             validation.Validate(c.Session.TTL, positive),
		"MARKUP_MAX_BYTES":        validation.Validate(c.MarkupMaxBytes, validation.Min(0)),
		"RATE_RPS":                validation.Validate(c.RateRPS, validation.Min(0.0)),
		"RATE_BURST":              validation.Validate(c.RateBurst, validation.Required, validation.Min(1)),
		"HSTS_MAX_AGE":            validation.Validate(c.Security.HSTSMaxAge, validation.Min(time.Duration(0))),
		"IDEMPOTENCY_TTL":         validation.Validate(c.IdempotencyTTL, positive),
		"OTEL_TRACES_SAMPLER_ARG": validation.Validate(c.OTEL.SampleRatio, validation.Min(0.0), validation.Max(1.0)),
	}
	return errs.Filter()
}

// env reads variables and remembers the ones that fail to parse.
type env struct {
	errs validation.Errors
}

func newEnv() *env { return &env{errs: validation.Errors{}} }

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) num(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs[k] = fmt.Errorf("%q is not an integer", v)
		return def
	}
	return n
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.errs[k] = fmt.Errorf("%q is not a number", v)
		return def
	}
	return f
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.errs[k] = fmt.Errorf("%q is not a duration", v)
		return def
	}
	return d
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.errs[k] = fmt.Errorf("%q is not a boolean", v)
	return def
}

func ginMode(s string) string {
	switch s = strings.ToLower(s); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

func logLevel(s string) string {
	if s = strings.ToLower(s); s == "warning" {
		return "warn"
	}
	return s
}

func dbDriver(s string) string {
	switch s = strings.ToLower(s); s {
	case "postgresql", "pg":
		return "postgres"
	}
	return s
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns "/" or a path with one leading slash and no
// trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
