package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const devJWTSecret = "recipebox-dev-secret-change-in-production"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Media    MediaConfig    `yaml:"media"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	Env             string        `yaml:"env"              env:"APP_ENV"                 env-default:"development"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds connection settings for either SQLite or PostgreSQL.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"            env:"DB_DRIVER"             env-default:"sqlite"`
	DSN             string        `yaml:"dsn"               env:"DB_DSN"                env-default:"recipebox.db"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DB_MAX_IDLE_CONNS"     env-default:"10"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"     env-default:"50"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"  env-default:"1h"`
	LogLevel        string        `yaml:"log_level"         env:"DB_LOG_LEVEL"          env-default:"warn"`
	WaitAttempts    int           `yaml:"wait_attempts"     env:"DB_WAIT_ATTEMPTS"      env-default:"30"`
	WaitInterval    time.Duration `yaml:"wait_interval"     env:"DB_WAIT_INTERVAL"      env-default:"1s"`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"          env:"JWT_SECRET"          env-default:"recipebox-dev-secret-change-in-production"`
	TokenTTL          time.Duration `yaml:"token_ttl"           env:"JWT_TTL"             env-default:"24h"`
	MinPasswordLength int           `yaml:"min_password_length" env:"MIN_PASSWORD_LENGTH" env-default:"5"`
}

// MediaConfig selects and configures the recipe image blob store.
type MediaConfig struct {
	Backend        string `yaml:"backend"          env:"MEDIA_BACKEND"          env-default:"local"`
	Dir            string `yaml:"dir"              env:"MEDIA_DIR"              env-default:"media"`
	URLPrefix      string `yaml:"url_prefix"       env:"MEDIA_URL_PREFIX"       env-default:"/media"`
	GCSBucket      string `yaml:"gcs_bucket"       env:"MEDIA_GCS_BUCKET"`
	GCSCredentials string `yaml:"gcs_credentials"  env:"MEDIA_GCS_CREDENTIALS"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"MEDIA_MAX_UPLOAD_BYTES" env-default:"10485760"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads configuration from an optional .env file, an optional YAML file
// and the environment. Priority: ENV > YAML > defaults.
// The YAML path comes from RECIPEBOX_CONFIG; when it is unset only the
// environment and defaults are used.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("RECIPEBOX_CONFIG"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Database.WaitAttempts < 1 {
		errs = append(errs, errors.New("database.wait_attempts must be at least 1"))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.MinPasswordLength < 1 {
		errs = append(errs, errors.New("auth.min_password_length must be at least 1"))
	}
	if c.IsProduction() && (c.Auth.JWTSecret == devJWTSecret || len(c.Auth.JWTSecret) < 32) {
		errs = append(errs, errors.New("auth.jwt_secret must be set to at least 32 characters in production"))
	}

	switch c.Media.Backend {
	case "local":
		if c.Media.Dir == "" {
			errs = append(errs, errors.New("media.dir is required for the local backend"))
		}
	case "gcs":
		if c.Media.GCSBucket == "" {
			errs = append(errs, errors.New("media.gcs_bucket is required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("media.backend must be local or gcs, got %q", c.Media.Backend))
	}
	if c.Media.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("media.max_upload_bytes must be positive"))
	}

	return errors.Join(errs...)
}
