package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. FLIGHTORDERS_DATABASE_HOST.
const EnvPrefix = "FLIGHTORDERS"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Flights  FlightsConfig  `yaml:"flights"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// MigrateURL is the database URL understood by the migrate pgx/v5 driver.
func (d DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	OrderEventsTopic string   `yaml:"order_events_topic" split_words:"true"`
	GroupID          string   `yaml:"group_id" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret" split_words:"true"`
	AccessTTLMinutes  int    `yaml:"access_ttl_minutes" split_words:"true"`
	RefreshTTLMinutes int    `yaml:"refresh_ttl_minutes" split_words:"true"`
	BcryptCost        int    `yaml:"bcrypt_cost" split_words:"true"`
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLMinutes) * time.Minute
}

type FlightsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" split_words:"true"`
}

func (f FlightsConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLSeconds) * time.Second
}

type WorkerConfig struct {
	OutboxPollSeconds  int `yaml:"outbox_poll_seconds" split_words:"true"`
	OutboxBatchSize    int `yaml:"outbox_batch_size" split_words:"true"`
	OutboxLeaseSeconds int `yaml:"outbox_lease_seconds" split_words:"true"`
}

func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.OutboxPollSeconds) * time.Second
}

// Lease is how long a claimed outbox event may stay in processing.
func (w WorkerConfig) Lease() time.Duration {
	return time.Duration(w.OutboxLeaseSeconds) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	WorkerAddress string `yaml:"worker_address" split_words:"true"`
}

func defaults() Config {
	return Config{
		HTTP:     HTTPConfig{Address: ":8080"},
		Database: DatabaseConfig{Port: 5432, SSLMode: "disable"},
		Kafka:    KafkaConfig{OrderEventsTopic: "order-events", GroupID: "flightorders-audit"},
		Auth:     AuthConfig{AccessTTLMinutes: 15, RefreshTTLMinutes: 60 * 24, BcryptCost: 10},
		Flights:  FlightsConfig{CacheTTLSeconds: 30},
		Worker:   WorkerConfig{OutboxPollSeconds: 2, OutboxBatchSize: 50, OutboxLeaseSeconds: 60},
		Log:      LogConfig{Level: "info", Format: "text"},
		Metrics:  MetricsConfig{WorkerAddress: ":9093"},
	}
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "apply env overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.AccessTTLMinutes <= 0 || c.Auth.RefreshTTLMinutes <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if c.Worker.OutboxPollSeconds <= 0 {
		return errors.New("worker.outbox_poll_seconds must be positive")
	}
	return nil
}
