package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// EngineConfig holds the analysis and scheduling thresholds. The values
// here are worked defaults, deliberately configurable rather than baked in.
type EngineConfig struct {
	// TrendEpsilon is the half-to-half mean gap that separates a real
	// trend from noise.
	TrendEpsilon float64 `mapstructure:"trend_epsilon"`
	// MinWindowSize below which the analyzer always reports stable.
	MinWindowSize int `mapstructure:"min_window_size"`
	// HighRiskAverage and ModerateRiskAverage are the base risk cutoffs.
	HighRiskAverage     float64 `mapstructure:"high_risk_average"`
	ModerateRiskAverage float64 `mapstructure:"moderate_risk_average"`
	// LowMoodScore marks an individual entry as a low-mood day.
	LowMoodScore int `mapstructure:"low_mood_score"`
	// SustainedHighCycles of consecutive high risk to reach severe.
	SustainedHighCycles int `mapstructure:"sustained_high_cycles"`
	// TimeTolerance around a configured time-of-day trigger.
	TimeTolerance time.Duration `mapstructure:"time_tolerance"`
	// MaxPerPass caps non-critical notifications per evaluation pass.
	MaxPerPass int `mapstructure:"max_per_pass"`
	// FollowUpWindow bounds the analytics effectiveness attribution.
	FollowUpWindow time.Duration `mapstructure:"follow_up_window"`
	// WindowSize is the number of recent entries an evaluation pass reads.
	WindowSize int `mapstructure:"window_size"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type WorkerConfig struct {
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	RedeliveryInterval time.Duration `mapstructure:"redelivery_interval"`
	RedeliveryBatch    int           `mapstructure:"redelivery_batch"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Engine    EngineConfig    `mapstructure:"engine"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

func setEngineDefaults() {
	viper.SetDefault("engine.trend_epsilon", 0.5)
	viper.SetDefault("engine.min_window_size", 3)
	viper.SetDefault("engine.high_risk_average", 3.0)
	viper.SetDefault("engine.moderate_risk_average", 6.0)
	viper.SetDefault("engine.low_mood_score", 4)
	viper.SetDefault("engine.sustained_high_cycles", 2)
	viper.SetDefault("engine.time_tolerance", 5*time.Minute)
	viper.SetDefault("engine.max_per_pass", 3)
	viper.SetDefault("engine.follow_up_window", 24*time.Hour)
	viper.SetDefault("engine.window_size", 14)

	viper.SetDefault("worker.tick_interval", time.Minute)
	viper.SetDefault("worker.redelivery_interval", 5*time.Minute)
	viper.SetDefault("worker.redelivery_batch", 20)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 25.0)
	viper.SetDefault("rate_limit.burst", 50)

	viper.SetDefault("jwt.expiry_hours", 72)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	setEngineDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// DefaultEngineConfig returns the worked defaults without touching viper,
// for tests and for callers that configure everything programmatically.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TrendEpsilon:        0.5,
		MinWindowSize:       3,
		HighRiskAverage:     3.0,
		ModerateRiskAverage: 6.0,
		LowMoodScore:        4,
		SustainedHighCycles: 2,
		TimeTolerance:       5 * time.Minute,
		MaxPerPass:          3,
		FollowUpWindow:      24 * time.Hour,
		WindowSize:          14,
	}
}
