package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Token     TokenConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	S3        S3Config
	HTTP      HTTPConfig
	Security  SecurityConfig
	Evictions EvictionConfig
}

type TokenConfig struct {
	AccessSecret  string `env:"ACCESS_TOKEN_SECRET,  required"`
	AccessTTL     Expiry `env:"ACCESS_TOKEN_EXPIRY,  required"`
	RefreshSecret string `env:"REFRESH_TOKEN_SECRET, required"`
	RefreshTTL    Expiry `env:"REFRESH_TOKEN_EXPIRY, required"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=account_service"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type S3Config struct {
	Bucket        string `env:"S3_BUCKET,          default=assets"`
	Region        string `env:"S3_REGION,          default=us-east-1"`
	Endpoint      string `env:"S3_ENDPOINT"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type HTTPConfig struct {
	CookieSecure   bool    `env:"COOKIE_SECURE,    default=true"`
	CORSOrigin     string  `env:"CORS_ORIGIN,      default=*"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,   default=10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST, default=20"`
	MaxUploadBytes int64   `env:"MAX_UPLOAD_BYTES, default=10485760"`
}

type SecurityConfig struct {
	BcryptCost       int           `env:"BCRYPT_COST,        default=10"`
	LoginMaxAttempts int64         `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT,      default=15m"`
}

type EvictionConfig struct {
	Workers int `env:"EVICTION_WORKERS, default=4"`
}

// Expiry is a token lifetime. Besides Go durations ("15m", "36h") it accepts a
// whole number of days ("10d") and a bare number of seconds ("900").
type Expiry time.Duration

func (e *Expiry) EnvDecode(val string) error {
	d, err := parseExpiry(val)
	if err != nil {
		return err
	}
	*e = Expiry(d)
	return nil
}

func (e Expiry) Duration() time.Duration { return time.Duration(e) }

func parseExpiry(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if days, ok := strings.CutSuffix(val, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry %q", val)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q", val)
	}
	return d, nil
}

// IsDevelopment reports whether human-readable logs and insecure cookies are acceptable.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for process startup: a bad configuration is fatal.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	t := c.Token
	switch {
	case strings.TrimSpace(t.AccessSecret) == "" || strings.TrimSpace(t.RefreshSecret) == "":
		return errors.New("token secrets must not be blank")
	case t.AccessSecret == t.RefreshSecret:
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	case t.AccessTTL <= 0 || t.RefreshTTL <= 0:
		return errors.New("token expiries must be positive")
	case t.AccessTTL >= t.RefreshTTL:
		return errors.New("ACCESS_TOKEN_EXPIRY must be shorter than REFRESH_TOKEN_EXPIRY")
	case c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31:
		return fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.Security.BcryptCost)
	case c.Evictions.Workers < 1:
		return errors.New("EVICTION_WORKERS must be at least 1")
	}
	return nil
}
