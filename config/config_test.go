package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
http:
  address: ":9000"
database:
  host: db
  user: flights
  password: secret
  name: flightorders
redis:
  addr: redis:6379
kafka:
  brokers: ["kafka:9092"]
auth:
  jwt_secret: s3cret
flights:
  cache_ttl_seconds: 45
`

func TestParse_FileAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "order-events", cfg.Kafka.OrderEventsTopic)
	assert.Equal(t, 45*time.Second, cfg.Flights.CacheTTL())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval())
	assert.Equal(t, time.Minute, cfg.Worker.Lease())
	assert.Equal(t, "host=db port=5432 user=flights password=secret dbname=flightorders sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "pgx5://flights:secret@db:5432/flightorders?sslmode=disable", cfg.Database.MigrateURL())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("FLIGHTORDERS_DATABASE_HOST", "override-db")
	t.Setenv("FLIGHTORDERS_AUTH_ACCESS_TTL_MINUTES", "5")
	t.Setenv("FLIGHTORDERS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "override-db", cfg.Database.Host)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "flights", cfg.Database.User)
}

func TestParse_MissingSecret(t *testing.T) {
	_, err := Parse([]byte("database:\n  host: db\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Database.Host)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
