package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Address string `env:"ADDRESS" envDefault:":3000"`
	// Public origin used when building media URLs and JWT issuer URLs.
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	MaxUploadBytes int    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Auth     AuthConfig
	Storage  StorageConfig
	Log      LogConfig `envPrefix:"LOG_"`
}

type DatabaseConfig struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"`
	URL      string `env:"URL"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"snap-thumbs"`
	TokenDuration  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieDuration time.Duration `env:"COOKIE_TTL" envDefault:"168h"`
	AvatarDir      string        `env:"AVATAR_DIR" envDefault:"/tmp/avatars"`
}

type StorageConfig struct {
	Driver       string `env:"STORAGE_DRIVER" envDefault:"local"`
	UploadPrefix string `env:"UPLOAD_PREFIX" envDefault:"thumbnails/"`

	MediaDir    string `env:"MEDIA_DIR" envDefault:"./media"`
	MediaPrefix string `env:"MEDIA_PREFIX" envDefault:"/media"`

	GCSProjectID  string `env:"GCS_PROJECT_ID"`
	GCSBucketName string `env:"GCS_BUCKET_NAME"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Key       string `env:"S3_ACCESS_KEY"`
	S3Secret    string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	File   string `env:"FILE"`
	Pretty bool   `env:"PRETTY" envDefault:"true"`
}

// Load reads .env (if present) and parses the environment into Config.
func Load() (Config, error) {
	// a missing .env is fine, the variables may come from the real environment
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL not set")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "gcs":
		if c.Storage.GCSBucketName == "" {
			return errors.New("GCS_BUCKET_NAME not set")
		}
	case "s3":
		if c.Storage.S3Bucket == "" || c.Storage.S3Endpoint == "" {
			return errors.New("S3_BUCKET and S3_ENDPOINT must be set")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// RequireJWTSecret is checked only by commands that issue or verify tokens.
func (c Config) RequireJWTSecret() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET not set")
	}
	return nil
}
