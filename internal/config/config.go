package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	Database DatabaseConfig
	Trigger  TriggerConfig
	Telegram TelegramConfig
	Logger   LoggerConfig
	Timezone string
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

// TriggerConfig controls the recurring schedule-trigger job.
type TriggerConfig struct {
	JobName     string
	Interval    time.Duration
	Second      int
	TickTimeout time.Duration
}

type TelegramConfig struct {
	Token      string
	RatePerSec int
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(getString("DATABASE_DRIVER", "sqlite")),
			URL:    getString("DATABASE_URL", "desk_planner.db"),
		},
		Trigger: TriggerConfig{
			JobName:     getString("TRIGGER_JOB_NAME", "check_schedule_triggers"),
			Interval:    getDuration("TRIGGER_INTERVAL", time.Minute),
			Second:      getInt("TRIGGER_SECOND", 2),
			TickTimeout: getDuration("TICK_TIMEOUT", 30*time.Second),
		},
		Telegram: TelegramConfig{
			Token:      getString("TELEGRAM_TOKEN", ""),
			RatePerSec: getInt("TELEGRAM_RATE_PER_SEC", 20),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Timezone: getString("APP_TIMEZONE", "Local"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver)
	}
	if c.Trigger.Interval < time.Minute || c.Trigger.Interval%time.Minute != 0 {
		return fmt.Errorf("TRIGGER_INTERVAL must be a whole number of minutes, got %s", c.Trigger.Interval)
	}
	if c.Trigger.Second < 0 || c.Trigger.Second > 59 {
		return fmt.Errorf("TRIGGER_SECOND must be within 0..59, got %d", c.Trigger.Second)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone used for trigger matching.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if minutes, err := strconv.Atoi(val); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return fallback
}
