package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DB_DSN": "postgres://localhost/jobs"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 6, cfg.Generation.MonthsAhead)
	assert.Equal(t, 200, cfg.Generation.MaxOccurrences)
	assert.Equal(t, 3, cfg.Generation.MutationMonthsAhead)
	assert.Equal(t, 4, cfg.Generation.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Generation.Timeout)
	assert.Equal(t, "0 3 * * *", cfg.Generation.SweepCron)
	assert.Equal(t, "UTC", cfg.Generation.SweepTimezone)
	assert.Empty(t, cfg.BotAdminIDs)
	assert.Empty(t, cfg.MigrationsDir)
	assert.Equal(t, "UTC", cfg.BotTimezone)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_DSN":                     "postgres://localhost/jobs",
		"ENV":                        "production",
		"GENERATION_MONTHS_AHEAD":    "12",
		"GENERATION_MAX_OCCURRENCES": "500",
		"GENERATION_TIMEOUT":         "30s",
		"GENERATION_SWEEP_TZ":        "America/Chicago",
		"BOT_ADMIN_IDS":              "101, 202,,303",
	}))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 12, cfg.Generation.MonthsAhead)
	assert.Equal(t, 500, cfg.Generation.MaxOccurrences)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, []int64{101, 202, 303}, cfg.BotAdminIDs)
	assert.True(t, cfg.IsAdmin(202))
	assert.False(t, cfg.IsAdmin(404))
}

func TestFromEnvErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing dsn":       {},
		"bad months":        {"DB_DSN": "x", "GENERATION_MONTHS_AHEAD": "six"},
		"zero max":          {"DB_DSN": "x", "GENERATION_MAX_OCCURRENCES": "0"},
		"bad timeout":       {"DB_DSN": "x", "GENERATION_TIMEOUT": "soon"},
		"bad sweep zone":    {"DB_DSN": "x", "GENERATION_SWEEP_TZ": "Moon/Base"},
		"bad admin id list": {"DB_DSN": "x", "BOT_ADMIN_IDS": "1,two"},
		"bad bot zone":      {"DB_DSN": "x", "BOT_TIMEZONE": "Nowhere"},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(values))
			assert.Error(t, err)
		})
	}
}
