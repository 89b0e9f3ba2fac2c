package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Storage     StorageConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Reservation ReservationConfig
	Tracing     TracingConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// StorageConfig selects the ledger backend: "postgres" or "memory".
type StorageConfig struct {
	Driver      string
	AutoMigrate bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// AvailabilityTTL bounds how long a cached availability answer lives.
	AvailabilityTTL time.Duration
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	Topic       string
	GroupID     string
	EventsTopic string
}

type ReservationConfig struct {
	CartTTL        time.Duration
	CheckoutTTL    time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
}

type TracingConfig struct {
	Enabled       bool
	ServiceName   string
	Endpoint      string
	URLPath       string
	Insecure      bool
	SampleRatio   float64
	ExportTimeout time.Duration
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			GRPCPort: getEnv("GRPC_PORT", ":8083"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
			AutoMigrate: getEnvBool("STORAGE_AUTO_MIGRATE", false),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_inventory"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Enabled:         getEnvBool("REDIS_ENABLED", true),
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvInt("REDIS_DB", 0),
			AvailabilityTTL: getEnvDuration("REDIS_AVAILABILITY_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvBool("KAFKA_ENABLED", true),
			Brokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:       getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
			GroupID:     getEnv("KAFKA_GROUP_INVENTORY", "inventory"),
			EventsTopic: getEnv("KAFKA_TOPIC_INVENTORY", "inventory.events"),
		},
		Reservation: ReservationConfig{
			CartTTL:        getEnvDuration("RESERVATION_CART_TTL", 15*time.Minute),
			CheckoutTTL:    getEnvDuration("RESERVATION_CHECKOUT_TTL", 30*time.Minute),
			SweepInterval:  getEnvDuration("RESERVATION_SWEEP_INTERVAL", 5*time.Minute),
			SweepBatchSize: getEnvInt("RESERVATION_SWEEP_BATCH_SIZE", 500),
		},
		Tracing: TracingConfig{
			Enabled:       getEnvBool("OTEL_ENABLED", false),
			ServiceName:   getEnv("OTEL_SERVICE_NAME", "omnipos-inventory-service"),
			Endpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			URLPath:       getEnv("OTEL_EXPORTER_OTLP_TRACES_PATH", "/v1/traces"),
			Insecure:      getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio:   getEnvFloat("OTEL_SAMPLE_RATIO", 1.0),
			ExportTimeout: getEnvDuration("OTEL_EXPORT_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "15m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
