package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes     int      `mapstructure:"JWT_TTL_MINUTES"`
	FallbackDir       string   `mapstructure:"FALLBACK_DIR"`
	MonitorInterval   int      `mapstructure:"MONITOR_INTERVAL"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	QueueNumberPrefix string   `mapstructure:"QUEUE_NUMBER_PREFIX"`
	CounterStart      int      `mapstructure:"COUNTER_START"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_TTL_MINUTES", 480)
	v.SetDefault("FALLBACK_DIR", "./fallback-data")
	v.SetDefault("MONITOR_INTERVAL", 30)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("QUEUE_NUMBER_PREFIX", "P")
	v.SetDefault("COUNTER_START", 1000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_MINUTES")
	v.BindEnv("FALLBACK_DIR")
	v.BindEnv("MONITOR_INTERVAL")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("QUEUE_NUMBER_PREFIX")
	v.BindEnv("COUNTER_START")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MonitorPollInterval returns the inventory monitor interval as a Duration.
func (c *Config) MonitorPollInterval() time.Duration {
	if c.MonitorInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.MonitorInterval) * time.Second
}

// JWTTTL returns the access token lifetime as a Duration.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory so real authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.CounterStart < 0 {
		return fmt.Errorf("COUNTER_START must not be negative, got %d", c.CounterStart)
	}
	if c.MonitorInterval < 0 {
		return fmt.Errorf("MONITOR_INTERVAL must not be negative, got %d", c.MonitorInterval)
	}
	return nil
}
