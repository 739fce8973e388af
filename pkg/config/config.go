// Package config loads the route-generation service's configuration from
// environment variables (and an optional .env file) into a validated,
// strongly-typed Config, and builds the backing Postgres pool and Redis
// client the rest of the service wires against.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Config holds all configuration for the route-generation service.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Router    RouterConfig
	Generator GeneratorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"SERVER_HOST" validate:"required"`
	Port            int           `mapstructure:"SERVER_PORT" validate:"required,min=1,max=65535"`
	MonitoringPort  int           `mapstructure:"SERVER_MONITORING_PORT" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"SERVER_READ_TIMEOUT" validate:"required"`
	WriteTimeout    time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT" validate:"required"`
	IdleTimeout     time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"SERVER_SHUTDOWN_TIMEOUT" validate:"required"`
}

// PostgresConfig holds PostgreSQL connection settings. Backend is "memory"
// or "postgres"; the pool is only built when Backend is "postgres".
type PostgresConfig struct {
	Backend  string `mapstructure:"POSTGRES_BACKEND" validate:"required,oneof=memory postgres"`
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	Table    string `mapstructure:"POSTGRES_TABLE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS" validate:"gte=0"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS" validate:"gte=0"`
}

// RedisConfig holds Redis connection settings. Backend is "memory" or
// "redis"; the client is only built when Backend is "redis".
type RedisConfig struct {
	Backend         string        `mapstructure:"REDIS_BACKEND" validate:"required,oneof=memory redis"`
	Host            string        `mapstructure:"REDIS_HOST"`
	Port            int           `mapstructure:"REDIS_PORT"`
	Password        string        `mapstructure:"REDIS_PASSWORD"`
	DB              int           `mapstructure:"REDIS_DB"`
	PoolSize       int           `mapstructure:"REDIS_POOL_SIZE" validate:"gte=0"`
	MemoryCapacity int           `mapstructure:"CACHE_MEMORY_CAPACITY" validate:"gte=0"`
	MemoryTTL      time.Duration `mapstructure:"CACHE_MEMORY_TTL"`
}

// RouterConfig holds credentials and dial settings for the external
// road-routing backend.
type RouterConfig struct {
	BaseURL          string        `mapstructure:"ROUTER_BASE_URL" validate:"required,url"`
	APIKey           string        `mapstructure:"ROUTER_API_KEY" validate:"required"`
	AuthMode         string        `mapstructure:"ROUTER_AUTH_MODE" validate:"required,oneof=direct_token bearer_header"`
	RateLimitPerSec  float64       `mapstructure:"ROUTER_RATE_LIMIT_PER_SEC" validate:"gt=0"`
	RateLimitBurst   int           `mapstructure:"ROUTER_RATE_LIMIT_BURST" validate:"gt=0"`
	RequestTimeout   time.Duration `mapstructure:"ROUTER_REQUEST_TIMEOUT" validate:"required"`
	MaxRetryAttempts int           `mapstructure:"ROUTER_MAX_RETRY_ATTEMPTS" validate:"gte=1"`
}

// GeneratorConfig mirrors the orchestrator's tunable knobs (generator.Config)
// so they can be overridden per deployment without a recompile.
type GeneratorConfig struct {
	POISearchRadiusMultiplier float64 `mapstructure:"GENERATOR_POI_SEARCH_RADIUS_MULTIPLIER" validate:"gt=0"`
	POILimitMin               int     `mapstructure:"GENERATOR_POI_LIMIT_MIN" validate:"gte=0"`
	POILimitMax               int     `mapstructure:"GENERATOR_POI_LIMIT_MAX" validate:"gtfield=POILimitMin"`
	CandidateLimitMin         int     `mapstructure:"GENERATOR_CANDIDATE_LIMIT_MIN" validate:"gte=0"`
	CandidateLimitMax         int     `mapstructure:"GENERATOR_CANDIDATE_LIMIT_MAX" validate:"gtfield=CandidateLimitMin"`
	ToleranceLevelRelaxed     float64 `mapstructure:"GENERATOR_TOLERANCE_LEVEL_RELAXED" validate:"gt=0"`
	ToleranceLevelVeryRelaxed float64 `mapstructure:"GENERATOR_TOLERANCE_LEVEL_VERY_RELAXED" validate:"gtfield=ToleranceLevelRelaxed"`
	MaxRouteGenerationRetries int     `mapstructure:"GENERATOR_MAX_ROUTE_GENERATION_RETRIES" validate:"gte=1"`
	SnapRadiusMeters          float64 `mapstructure:"GENERATOR_SNAP_RADIUS_METERS" validate:"gt=0"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MonitoringAddr returns the monitoring server listen address.
func (s *ServerConfig) MonitoringAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.MonitoringPort)
}

// Load reads configuration from environment variables and an optional
// .env file, applies defaults, and validates the result.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	// Tolerated to fail: a missing .env is normal in containerized
	// deployments where env vars are injected directly.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:            viper.GetString("SERVER_HOST"),
			Port:            viper.GetInt("SERVER_PORT"),
			MonitoringPort:  viper.GetInt("SERVER_MONITORING_PORT"),
			ReadTimeout:     viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     viper.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: viper.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Backend:  viper.GetString("POSTGRES_BACKEND"),
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			Table:    viper.GetString("POSTGRES_TABLE"),
			MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
		},
		Redis: RedisConfig{
			Backend:        viper.GetString("REDIS_BACKEND"),
			Host:           viper.GetString("REDIS_HOST"),
			Port:           viper.GetInt("REDIS_PORT"),
			Password:       viper.GetString("REDIS_PASSWORD"),
			DB:             viper.GetInt("REDIS_DB"),
			PoolSize:       viper.GetInt("REDIS_POOL_SIZE"),
			MemoryCapacity: viper.GetInt("CACHE_MEMORY_CAPACITY"),
			MemoryTTL:      viper.GetDuration("CACHE_MEMORY_TTL"),
		},
		Router: RouterConfig{
			BaseURL:          viper.GetString("ROUTER_BASE_URL"),
			APIKey:           viper.GetString("ROUTER_API_KEY"),
			AuthMode:         viper.GetString("ROUTER_AUTH_MODE"),
			RateLimitPerSec:  viper.GetFloat64("ROUTER_RATE_LIMIT_PER_SEC"),
			RateLimitBurst:   viper.GetInt("ROUTER_RATE_LIMIT_BURST"),
			RequestTimeout:   viper.GetDuration("ROUTER_REQUEST_TIMEOUT"),
			MaxRetryAttempts: viper.GetInt("ROUTER_MAX_RETRY_ATTEMPTS"),
		},
		Generator: GeneratorConfig{
			POISearchRadiusMultiplier: viper.GetFloat64("GENERATOR_POI_SEARCH_RADIUS_MULTIPLIER"),
			POILimitMin:               viper.GetInt("GENERATOR_POI_LIMIT_MIN"),
			POILimitMax:               viper.GetInt("GENERATOR_POI_LIMIT_MAX"),
			CandidateLimitMin:         viper.GetInt("GENERATOR_CANDIDATE_LIMIT_MIN"),
			CandidateLimitMax:         viper.GetInt("GENERATOR_CANDIDATE_LIMIT_MAX"),
			ToleranceLevelRelaxed:     viper.GetFloat64("GENERATOR_TOLERANCE_LEVEL_RELAXED"),
			ToleranceLevelVeryRelaxed: viper.GetFloat64("GENERATOR_TOLERANCE_LEVEL_VERY_RELAXED"),
			MaxRouteGenerationRetries: viper.GetInt("GENERATOR_MAX_ROUTE_GENERATION_RETRIES"),
			SnapRadiusMeters:          viper.GetFloat64("GENERATOR_SNAP_RADIUS_METERS"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_MONITORING_PORT", 9090)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "15s")

	viper.SetDefault("POSTGRES_BACKEND", "memory")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "looproute")
	viper.SetDefault("POSTGRES_PASSWORD", "looproute")
	viper.SetDefault("POSTGRES_DB", "looproute")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_TABLE", "pois")
	viper.SetDefault("POSTGRES_MAX_CONNS", 50)
	viper.SetDefault("POSTGRES_MIN_CONNS", 10)

	viper.SetDefault("REDIS_BACKEND", "memory")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)
	viper.SetDefault("CACHE_MEMORY_CAPACITY", 1000)
	viper.SetDefault("CACHE_MEMORY_TTL", "24h")

	viper.SetDefault("ROUTER_BASE_URL", "https://api.mapbox.com/directions/v5/mapbox")
	viper.SetDefault("ROUTER_API_KEY", "")
	viper.SetDefault("ROUTER_AUTH_MODE", "direct_token")
	viper.SetDefault("ROUTER_RATE_LIMIT_PER_SEC", 5)
	viper.SetDefault("ROUTER_RATE_LIMIT_BURST", 5)
	viper.SetDefault("ROUTER_REQUEST_TIMEOUT", "10s")
	viper.SetDefault("ROUTER_MAX_RETRY_ATTEMPTS", 3)

	viper.SetDefault("GENERATOR_POI_SEARCH_RADIUS_MULTIPLIER", 1.5)
	viper.SetDefault("GENERATOR_POI_LIMIT_MIN", 50)
	viper.SetDefault("GENERATOR_POI_LIMIT_MAX", 500)
	viper.SetDefault("GENERATOR_CANDIDATE_LIMIT_MIN", 20)
	viper.SetDefault("GENERATOR_CANDIDATE_LIMIT_MAX", 100)
	viper.SetDefault("GENERATOR_TOLERANCE_LEVEL_RELAXED", 0.15)
	viper.SetDefault("GENERATOR_TOLERANCE_LEVEL_VERY_RELAXED", 0.30)
	viper.SetDefault("GENERATOR_MAX_ROUTE_GENERATION_RETRIES", 5)
	viper.SetDefault("GENERATOR_SNAP_RADIUS_METERS", 100.0)
}

// validate runs struct-tag validation over cfg, catching misconfiguration
// (an empty router API key, an inverted tolerance band, a port out of
// range) at startup instead of at first use.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

// NewPostgresPool creates a connection pool to PostgreSQL, sized from cfg.
func NewPostgresPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.MaxConnLifetime = 1 * time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	return pool, nil
}

// PostgresHealthCheck pings pool and returns nil if healthy.
func PostgresHealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return pool.Ping(pingCtx)
}

// NewRedisClient creates a Redis client with connection pooling, sized
// from cfg.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return client, nil
}

// RedisHealthCheck pings client and returns nil if healthy.
func RedisHealthCheck(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}
