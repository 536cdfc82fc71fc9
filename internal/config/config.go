// Package config gathers runtime settings from the environment (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"winery_backend/pkg/utils"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	Log      LogConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
	Sensor   SensorConfig
	Admin    BootstrapAdminConfig
}

type LogConfig struct {
	Level  string
	Format string // console or json
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// DSN returns the lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RedisConfig is optional; an empty Addr disables Redis and in-process stores are used instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type HTTPConfig struct {
	CORSAllowedOrigins []string
	LoginRateLimit     string // ulule limiter format, e.g. "5-M"
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// SensorConfig is the acceptable temperature band used to flag readings.
type SensorConfig struct {
	BandMin float64
	BandMax float64
}

type BootstrapAdminConfig struct {
	Username string
	Password string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port: utils.Getenv("PORT", "8080"),
		Log: LogConfig{
			Level:  utils.Getenv("LOG_LEVEL", "info"),
			Format: utils.Getenv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:            utils.Getenv("DB_HOST", "localhost"),
			Port:            utils.Getenv("DB_PORT", "5432"),
			User:            utils.Getenv("DB_USER", "winery"),
			Password:        utils.Getenv("DB_PASSWORD", "winery"),
			Name:            utils.Getenv("DB_NAME", "winery"),
			SSLMode:         utils.Getenv("DB_SSLMODE", "disable"),
			MaxOpenConns:    utils.GetenvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    utils.GetenvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: utils.GetenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  utils.GetenvBool("DB_MIGRATE_ON_START", true),
		},
		JWT: JWTConfig{
			Secret: utils.Getenv("JWT_SECRET", ""),
			TTL:    utils.GetenvDuration("JWT_TTL", 8*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     utils.Getenv("REDIS_ADDR", ""),
			Password: utils.Getenv("REDIS_PASSWORD", ""),
			DB:       utils.GetenvInt("REDIS_DB", 0),
			CacheTTL: utils.GetenvDuration("REDIS_CACHE_TTL", 30*time.Second),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins: utils.GetenvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			LoginRateLimit:     utils.Getenv("LOGIN_RATE_LIMIT", "10-M"),
			ReadTimeout:        utils.GetenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       utils.GetenvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Sensor: SensorConfig{
			BandMin: utils.GetenvFloat("SENSOR_BAND_MIN", 10),
			BandMax: utils.GetenvFloat("SENSOR_BAND_MAX", 18),
		},
		Admin: BootstrapAdminConfig{
			Username: utils.Getenv("BOOTSTRAP_ADMIN_USERNAME", ""),
			Password: utils.Getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be set and at least 32 characters long")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Sensor.BandMin > c.Sensor.BandMax {
		return fmt.Errorf("SENSOR_BAND_MIN (%v) must not exceed SENSOR_BAND_MAX (%v)", c.Sensor.BandMin, c.Sensor.BandMax)
	}
	// report cache writes are not fenced against invalidation, so the TTL is the staleness bound
	if c.Redis.Enabled() && c.Redis.CacheTTL <= 0 {
		return errors.New("REDIS_CACHE_TTL must be positive when REDIS_ADDR is set")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}
