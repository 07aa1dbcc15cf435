package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/hydration-bot/internal/domain"
)

// Blacklist backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string  `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string  `envconfig:"DB_PATH" default:"./data/hydration.db"`
	LogLevel string  `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr string  `envconfig:"HTTP_ADDR" default:":8080"` // health endpoints
	AdminIDs []int64 `envconfig:"ADMIN_IDS"`                 // comma separated Telegram user IDs

	DefaultGoalML      int    `envconfig:"DEFAULT_GOAL_ML" default:"2500"`
	DefaultIntervalMin int    `envconfig:"DEFAULT_INTERVAL_MIN" default:"60"`
	DefaultActiveStart string `envconfig:"DEFAULT_ACTIVE_START" default:"08:00"`
	DefaultActiveEnd   string `envconfig:"DEFAULT_ACTIVE_END" default:"22:00"`
	DefaultTZOffset    int    `envconfig:"DEFAULT_TZ_OFFSET" default:"8"`

	InactivityDays int `envconfig:"INACTIVITY_DAYS" default:"7"`

	BlacklistBackend string `envconfig:"BLACKLIST_BACKEND" default:"sqlite"` // sqlite|redis
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`
}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN: must not be empty")
	}
	if c.DefaultGoalML < 1 || c.DefaultGoalML > domain.MaxGoalML {
		return fmt.Errorf("DEFAULT_GOAL_ML: %d out of range 1..%d", c.DefaultGoalML, domain.MaxGoalML)
	}
	if c.DefaultIntervalMin < 1 || c.DefaultIntervalMin > domain.MaxIntervalMin {
		return fmt.Errorf("DEFAULT_INTERVAL_MIN: %d out of range 1..%d", c.DefaultIntervalMin, domain.MaxIntervalMin)
	}
	if c.DefaultTZOffset < domain.MinTZOffset || c.DefaultTZOffset > domain.MaxTZOffset {
		return fmt.Errorf("DEFAULT_TZ_OFFSET: %d out of range %d..%d", c.DefaultTZOffset, domain.MinTZOffset, domain.MaxTZOffset)
	}
	if _, err := domain.ParseClock(c.DefaultActiveStart); err != nil {
		return fmt.Errorf("DEFAULT_ACTIVE_START: %w", err)
	}
	if _, err := domain.ParseClock(c.DefaultActiveEnd); err != nil {
		return fmt.Errorf("DEFAULT_ACTIVE_END: %w", err)
	}
	if c.InactivityDays < 1 {
		return fmt.Errorf("INACTIVITY_DAYS: must be positive, got %d", c.InactivityDays)
	}
	switch c.BlacklistBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("BLACKLIST_BACKEND: unknown backend %q", c.BlacklistBackend)
	}
	return nil
}

// Defaults returns the settings applied to new profiles.
func (c Config) Defaults() domain.Settings {
	start, end, _ := domain.ParseTimeRange(c.DefaultActiveStart, c.DefaultActiveEnd)
	return domain.Settings{
		DailyGoalML: c.DefaultGoalML,
		IntervalMin: c.DefaultIntervalMin,
		ActiveStart: start,
		ActiveEnd:   end,
		TZOffset:    c.DefaultTZOffset,
	}
}
