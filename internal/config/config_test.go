package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SENSOR_BAND_MAX", "20.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 20.5, cfg.Sensor.BandMax)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			JWT:    JWTConfig{Secret: strings.Repeat("x", 40), TTL: time.Hour},
			Sensor: SensorConfig{BandMin: 10, BandMax: 18},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("inverted sensor band", func(t *testing.T) {
		cfg := base()
		cfg.Sensor.BandMin = 30
		assert.Error(t, cfg.Validate())
	})

	t.Run("report cache without expiry", func(t *testing.T) {
		cfg := base()
		cfg.Redis = RedisConfig{Addr: "localhost:6379", CacheTTL: 0}
		assert.Error(t, cfg.Validate())
		cfg.Redis.CacheTTL = 30 * time.Second
		assert.NoError(t, cfg.Validate())
	})

	t.Run("half configured bootstrap admin", func(t *testing.T) {
		cfg := base()
		cfg.Admin.Username = "root"
		assert.Error(t, cfg.Validate())
	})
}
