package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		RecommendationEvents string `mapstructure:"recommendation_events"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Staff   int           `mapstructure:"staff"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig carries the scoring weights and result-shaping policy
// of the recommendation engine. Content weights sum to 1.0.
type RecommendationConfig struct {
	Weights WeightConfig `mapstructure:"weights"`

	// MinResults is the floor the backfill policy tops results up to;
	// MaxResults is the hard ceiling of the auto-selecting path.
	MinResults int `mapstructure:"min_results"`
	MaxResults int `mapstructure:"max_results"`

	DefaultTopCount int `mapstructure:"default_top_count"`
	MaxTopCount     int `mapstructure:"max_top_count"`

	SpecialtyBoost     float64 `mapstructure:"specialty_boost"`
	UnavailablePenalty float64 `mapstructure:"unavailable_penalty"`

	// Bound filters are skipped when they would leave fewer candidates than
	// these thresholds, measured against the unfiltered population.
	MinViableFiltered  int `mapstructure:"min_viable_filtered"`
	MinViableSpecialty int `mapstructure:"min_viable_specialty"`

	// AssumedMaxExperience is the fixed experience bound used by the
	// specialty-scoped scoring variant, which has no population to
	// normalize against.
	AssumedMaxExperience int `mapstructure:"assumed_max_experience"`
}

type WeightConfig struct {
	Specialty  float64 `mapstructure:"specialty"`
	Rating     float64 `mapstructure:"rating"`
	Experience float64 `mapstructure:"experience"`
	History    float64 `mapstructure:"history"`

	PopularityRating     float64 `mapstructure:"popularity_rating"`
	PopularityExperience float64 `mapstructure:"popularity_experience"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.recommendation_events", "recommendation-events")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.default", 1000)
	viper.SetDefault("auth.rate_limit.staff", 10000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation engine defaults
	viper.SetDefault("recommendation.weights.specialty", 0.4)
	viper.SetDefault("recommendation.weights.rating", 0.3)
	viper.SetDefault("recommendation.weights.experience", 0.2)
	viper.SetDefault("recommendation.weights.history", 0.1)
	viper.SetDefault("recommendation.weights.popularity_rating", 0.7)
	viper.SetDefault("recommendation.weights.popularity_experience", 0.3)
	viper.SetDefault("recommendation.min_results", 5)
	viper.SetDefault("recommendation.max_results", 6)
	viper.SetDefault("recommendation.default_top_count", 5)
	viper.SetDefault("recommendation.max_top_count", 20)
	viper.SetDefault("recommendation.specialty_boost", 1.2)
	viper.SetDefault("recommendation.unavailable_penalty", 0.8)
	viper.SetDefault("recommendation.min_viable_filtered", 5)
	viper.SetDefault("recommendation.min_viable_specialty", 3)
	viper.SetDefault("recommendation.assumed_max_experience", 30)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
