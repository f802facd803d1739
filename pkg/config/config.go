package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/velmora/unicart/pkg/enums"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Commerce     CommerceConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.StorageBackend == StorageBackendDB {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"UNICART_APP_ENV" required:"true"`
	Port         string `envconfig:"UNICART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"UNICART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"UNICART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"UNICART_DB_DSN"`
	Driver string `envconfig:"UNICART_DB_DRIVER" default:"sqlite"`

	Host     string `envconfig:"UNICART_DB_HOST"`
	Port     int    `envconfig:"UNICART_DB_PORT" default:"5432"`
	User     string `envconfig:"UNICART_DB_USER"`
	Password string `envconfig:"UNICART_DB_PASSWORD"`
	Name     string `envconfig:"UNICART_DB_NAME"`
	SSLMode  string `envconfig:"UNICART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNICART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNICART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNICART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNICART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"UNICART_REDIS_URL"`
	Address      string        `envconfig:"UNICART_REDIS_ADDR"`
	Password     string        `envconfig:"UNICART_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNICART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNICART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNICART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNICART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNICART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNICART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"UNICART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"UNICART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"UNICART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CommerceConfig struct {
	BaseURL string        `envconfig:"UNICART_COMMERCE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"UNICART_COMMERCE_TIMEOUT" default:"10s"`
}

// Storage backends for the guest cart store.
const (
	StorageBackendRedis = "redis"
	StorageBackendDB    = "db"
)

type CartConfig struct {
	StorageBackend string        `envconfig:"UNICART_CART_STORAGE_BACKEND" default:"redis"`
	MergePolicy    string        `envconfig:"UNICART_CART_MERGE_POLICY" default:"sum"`
	StockCeiling   int           `envconfig:"UNICART_CART_STOCK_CEILING" default:"10000"`
	GuestTTL       time.Duration `envconfig:"UNICART_CART_GUEST_TTL" default:"720h"`
	IdleEviction   time.Duration `envconfig:"UNICART_CART_IDLE_EVICTION" default:"30m"`
}

func (c CartConfig) validate() error {
	switch c.StorageBackend {
	case StorageBackendRedis, StorageBackendDB:
	default:
		return fmt.Errorf("unknown cart storage backend %q", c.StorageBackend)
	}
	if !enums.MergePolicy(c.MergePolicy).IsValid() {
		return fmt.Errorf("unknown cart merge policy %q", c.MergePolicy)
	}
	if c.StockCeiling <= 0 {
		return fmt.Errorf("cart stock ceiling must be positive")
	}
	return nil
}

func (c CartConfig) Policy() enums.MergePolicy {
	return enums.MergePolicy(c.MergePolicy)
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"UNICART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == "sqlite" {
		db.DSN = "unicart.db"
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"UNICART_DB_HOST": db.Host,
		"UNICART_DB_USER": db.User,
		"UNICART_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either UNICART_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
