package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dalgona/diary/internal/database"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Registration RegistrationConfig
	Log          LogConfig
	Metrics      MetricsConfig
	Tracing      TracingConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	TokenCleanup TokenCleanupConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host        string
	Port        string
	Namespace   string
	Database    string
	User        string
	Password    string
	AutoMigrate bool
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath  string
	PublicKeyPath   string
	ExpirationMins  int
	Issuer          string
	Audience        string
	RefreshDuration time.Duration
	BcryptCost      int
}

// RegistrationConfig holds sign-up workflow settings
type RegistrationConfig struct {
	// NextRoute is where a completed sign-up sends the client
	NextRoute string
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRate  float64
}

type RateLimitConfig struct {
	Rate    int
	Window  time.Duration
	Burst   int
	MaxKeys int
}

type IdempotencyConfig struct {
	TTL time.Duration
}

type TokenCleanupConfig struct {
	Interval time.Duration
}

// defaults is every key Load knows about. Environment variables override
// them with the key upper-cased and dots turned into underscores, so
// "db.host" reads DB_HOST.
var defaults = map[string]any{
	"server.port":             "8080",
	"server.env":              "development",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,
	"cors.allowed_origins":    "http://localhost:3000",

	"db.host":         "localhost",
	"db.port":         "8000",
	"db.namespace":    "dalgona",
	"db.database":     "diary",
	"db.user":         "root",
	"db.password":     "root",
	"db.auto_migrate": true,

	"jwt.private_key_path": "./keys/private.pem",
	"jwt.public_key_path":  "./keys/public.pem",
	"jwt.expiration_mins":  15,
	"jwt.issuer":           "dalgona-diary",
	"jwt.audience":         "",
	"jwt.refresh_duration": 30 * 24 * time.Hour,
	"jwt.bcrypt_cost":      12,

	"registration.next_route": "/sign-up/profile",

	"log.level": "info",

	"metrics.enabled": true,
	"metrics.path":    "/metrics",

	"tracing.enabled":      false,
	"tracing.service_name": "dalgona-diary",
	"tracing.sample_rate":  1.0,

	"ratelimit.rate":     100,
	"ratelimit.window":   time.Minute,
	"ratelimit.burst":    20,
	"ratelimit.max_keys": 10000,

	"idempotency.ttl": 24 * time.Hour,

	"token_cleanup.interval": time.Hour,
}

// New returns a viper instance with defaults and environment lookup wired.
// Callers may bind flags to it before passing it to FromViper.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the environment and, when path is not
// empty, from a YAML file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from an already prepared viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			Env:             v.GetString("server.env"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  stringList(v, "cors.allowed_origins"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("db.host"),
			Port:        v.GetString("db.port"),
			Namespace:   v.GetString("db.namespace"),
			Database:    v.GetString("db.database"),
			User:        v.GetString("db.user"),
			Password:    v.GetString("db.password"),
			AutoMigrate: v.GetBool("db.auto_migrate"),
		},
		JWT: JWTConfig{
			PrivateKeyPath:  v.GetString("jwt.private_key_path"),
			PublicKeyPath:   v.GetString("jwt.public_key_path"),
			ExpirationMins:  v.GetInt("jwt.expiration_mins"),
			Issuer:          v.GetString("jwt.issuer"),
			Audience:        v.GetString("jwt.audience"),
			RefreshDuration: v.GetDuration("jwt.refresh_duration"),
			BcryptCost:      v.GetInt("jwt.bcrypt_cost"),
		},
		Registration: RegistrationConfig{
			NextRoute: v.GetString("registration.next_route"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
			SampleRate:  v.GetFloat64("tracing.sample_rate"),
		},
		RateLimit: RateLimitConfig{
			Rate:    v.GetInt("ratelimit.rate"),
			Window:  v.GetDuration("ratelimit.window"),
			Burst:   v.GetInt("ratelimit.burst"),
			MaxKeys: v.GetInt("ratelimit.max_keys"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("idempotency.ttl"),
		},
		TokenCleanup: TokenCleanupConfig{
			Interval: v.GetDuration("token_cleanup.interval"),
		},
	}
}

// stringList accepts both a YAML list and a comma-separated string
func stringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	var parts []string
	if s, ok := raw.(string); ok {
		parts = strings.Split(s, ",")
	} else {
		parts = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Connection converts the settings for the database package
func (d DatabaseConfig) Connection() database.Config {
	return database.Config{
		Host:      d.Host,
		Port:      d.Port,
		User:      d.User,
		Password:  d.Password,
		Namespace: d.Namespace,
		Database:  d.Database,
	}
}

// SlogLevel parses Level, falling back to info
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.IsProduction() {
		for _, o := range c.Server.AllowedOrigins {
			if o == "*" {
				errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not be '*' in production"))
			}
		}
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH is required in production"))
		}
		if c.JWT.PublicKeyPath == "" {
			errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH is required in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}
	if c.JWT.RefreshDuration <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_DURATION must be positive"))
	}
	// bcrypt accepts 4 through 31
	if c.JWT.BcryptCost < 4 || c.JWT.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("JWT_BCRYPT_COST must be between 4 and 31, got %d", c.JWT.BcryptCost))
	}

	if !strings.HasPrefix(c.Registration.NextRoute, "/") {
		errs = append(errs, fmt.Errorf("REGISTRATION_NEXT_ROUTE must be an absolute path, got '%s'", c.Registration.NextRoute))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("METRICS_PATH must start with '/'"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE must be within [0, 1], got %v", c.Tracing.SampleRate))
	}

	if c.RateLimit.Rate <= 0 {
		errs = append(errs, errors.New("RATELIMIT_RATE must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATELIMIT_WINDOW must be positive"))
	}
	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if c.TokenCleanup.Interval <= 0 {
		errs = append(errs, errors.New("TOKEN_CLEANUP_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}
