package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string  `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN         string  `mapstructure:"DB_DSN"`
	Environment   string  `mapstructure:"ENV"`
	MigrationsDir string  `mapstructure:"MIGRATIONS_DIR"` // empty = embedded migrations
	BotAdminIDs   []int64 `mapstructure:"BOT_ADMIN_IDS"`
	BotTimezone   string  `mapstructure:"BOT_TIMEZONE"` // zone the bot renders dates in

	Generation Generation
}

// Generation holds the materialization defaults.
type Generation struct {
	MonthsAhead         int           `mapstructure:"GENERATION_MONTHS_AHEAD"`
	MaxOccurrences      int           `mapstructure:"GENERATION_MAX_OCCURRENCES"`
	MutationMonthsAhead int           `mapstructure:"MUTATION_MONTHS_AHEAD"`
	SweepCron           string        `mapstructure:"GENERATION_SWEEP_CRON"`
	SweepTimezone       string        `mapstructure:"GENERATION_SWEEP_TZ"`
	Timeout             time.Duration `mapstructure:"GENERATION_TIMEOUT"`
	Workers             int           `mapstructure:"GENERATION_WORKERS"`
}

func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:         getenv("DB_DSN"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		Environment:   getenv("ENV"),
		MigrationsDir: getenv("MIGRATIONS_DIR"),
		BotTimezone:   getenv("BOT_TIMEZONE"),
		Generation: Generation{
			SweepCron:     getenv("GENERATION_SWEEP_CRON"),
			SweepTimezone: getenv("GENERATION_SWEEP_TZ"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Generation.SweepCron == "" {
		cfg.Generation.SweepCron = "0 3 * * *"
	}
	if cfg.Generation.SweepTimezone == "" {
		cfg.Generation.SweepTimezone = "UTC"
	}
	if cfg.BotTimezone == "" {
		cfg.BotTimezone = "UTC"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"GENERATION_MONTHS_AHEAD", &cfg.Generation.MonthsAhead, 6},
		{"GENERATION_MAX_OCCURRENCES", &cfg.Generation.MaxOccurrences, 200},
		{"MUTATION_MONTHS_AHEAD", &cfg.Generation.MutationMonthsAhead, 3},
		{"GENERATION_WORKERS", &cfg.Generation.Workers, 4},
	}
	for _, v := range ints {
		n, err := positiveInt(getenv(v.key), v.def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = n
	}

	timeout, err := duration(getenv("GENERATION_TIMEOUT"), 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("GENERATION_TIMEOUT: %w", err)
	}
	cfg.Generation.Timeout = timeout

	if _, err := time.LoadLocation(cfg.Generation.SweepTimezone); err != nil {
		return nil, fmt.Errorf("GENERATION_SWEEP_TZ: %w", err)
	}
	if _, err := time.LoadLocation(cfg.BotTimezone); err != nil {
		return nil, fmt.Errorf("BOT_TIMEZONE: %w", err)
	}

	cfg.BotAdminIDs, err = idList(getenv("BOT_ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("BOT_ADMIN_IDS: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// IsAdmin reports whether the Telegram user may change data.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.BotAdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func positiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func duration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func idList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
