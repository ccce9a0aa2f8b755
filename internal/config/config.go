package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Proximity ProximityConfig
	Analytics AnalyticsConfig
	Tracing   TracingConfig
	LogLevel  string
	LogPretty bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	Mode            string // gin mode: debug, release, test
	ShutdownTimeout time.Duration
}

// StorageConfig selects the repository implementation
type StorageConfig struct {
	Driver string
	// SeedFile is a YAML fixture loaded into the memory driver at startup
	SeedFile string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the analytics topic configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

// ProximityConfig tunes the proximity resolver
type ProximityConfig struct {
	// UnlockDebounce suppresses repeat unlock/visit analytics for the same
	// user within the window. Zero logs every poll.
	UnlockDebounce time.Duration
}

// AnalyticsConfig tunes the analytics sink
type AnalyticsConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// TracingConfig holds OpenTelemetry configuration. An empty endpoint disables export.
type TracingConfig struct {
	ServiceName    string
	JaegerEndpoint string
}

// Load loads configuration from .env, an optional config.yaml and
// environment variables, in increasing order of precedence. Nested keys map
// to environment variables with underscores, e.g. MONGODB_URI.
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Comma-separated env values arrive as a single string
	cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("Server.AllowedOrigins"))
	cfg.Kafka.Brokers = splitList(v.GetStringSlice("Kafka.Brokers"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")
	v.SetDefault("Server.AllowedOrigins", []string{"*"})
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.ShutdownTimeout", 5*time.Second)
	v.SetDefault("Storage.Driver", StorageMongoDB)
	v.SetDefault("Storage.SeedFile", "")
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "mall-navigator")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Kafka.Brokers", []string{})
	v.SetDefault("Kafka.Topic", "mall.analytics")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)
	v.SetDefault("Proximity.UnlockDebounce", 15*time.Minute)
	v.SetDefault("Analytics.QueueSize", 1024)
	v.SetDefault("Analytics.WriteTimeout", 5*time.Second)
	v.SetDefault("Tracing.ServiceName", "mall-navigator-api")
	v.SetDefault("Tracing.JaegerEndpoint", "")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogPretty", false)
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI is required for the mongodb storage driver")
		}
		if c.Storage.SeedFile != "" {
			return errors.New("STORAGE_SEEDFILE only applies to the memory driver; use cmd/seed for mongodb")
		}
	case StorageMemory:
	default:
		return errors.New("STORAGE_DRIVER must be mongodb or memory")
	}
	if c.Proximity.UnlockDebounce < 0 {
		return errors.New("PROXIMITY_UNLOCKDEBOUNCE must not be negative")
	}
	return nil
}

func splitList(values []string) []string {
	out := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
