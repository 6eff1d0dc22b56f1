package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDriverDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5, cfg.Progression.MaxRetries)
	assert.True(t, cfg.Progression.DecaySweepEnabled)
	assert.Equal(t, "00:05", cfg.Progression.DecaySweepAt)
	assert.False(t, cfg.Features.IsEnabled(FeatureOneStreakPerDay, ""))
	assert.True(t, cfg.Features.IsEnabled(FeatureDashboardDecay, ""))
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=memory\nHTTP_PORT=9191\nAPP_TIMEZONE=Asia/Almaty\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables that are already set.
	for _, key := range []string{"HTTP_PORT", "STORE_DRIVER", "APP_TIMEZONE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTP.Port)
	assert.Equal(t, "Asia/Almaty", cfg.App.Timezone)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		App:         AppConfig{Timezone: "Nowhere/City"},
		Store:       StoreConfig{Driver: StoreDriverPostgres},
		HTTP:        HTTPConfig{Port: 0},
		Session:     SessionConfig{TTL: 0},
		Progression: ProgressionConfig{MaxRetries: 0, BcryptCost: 2, DecaySweepEnabled: true, DecaySweepAt: "midnight"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"DATABASE_URL", "HTTP_PORT", "SESSION_TTL", "PROGRESSION_MAX_RETRIES", "BCRYPT_COST", "DECAY_SWEEP_AT", "APP_TIMEZONE"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_MemoryStoreRejectedInProduction(t *testing.T) {
	cfg := &Config{
		App:         AppConfig{Environment: EnvProduction, Timezone: "UTC"},
		Store:       StoreConfig{Driver: StoreDriverMemory},
		HTTP:        HTTPConfig{Port: 8080},
		Session:     SessionConfig{TTL: time.Hour},
		Progression: ProgressionConfig{MaxRetries: 3, BcryptCost: 10},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed in production")
}

func TestFeatureFlags_EnvOverrideAndRollout(t *testing.T) {
	t.Setenv("FEATURE_PROGRESSION_ONE_STREAK_PER_DAY", "true")
	t.Setenv("FEATURE_PROGRESSION_DASHBOARD_DECAY", "false")

	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FeatureOneStreakPerDay, "u-1"))
	assert.False(t, ff.IsEnabled(FeatureDashboardDecay, "u-1"))

	all := ff.GetAllFeatures()
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[FeatureDashboardDecay].RolloutPercent)
	assert.Equal(t, 100, all[FeatureOneStreakPerDay].RolloutPercent)
	assert.True(t, all[FeatureOneStreakPerDay].Enabled)
}

func TestFeatureFlags_PercentRollout(t *testing.T) {
	t.Setenv("FEATURE_PROGRESSION_ONE_STREAK_PER_DAY", "50")
	t.Setenv("FEATURE_PROGRESSION_DASHBOARD_DECAY", "250")

	ff := LoadFeatureFlags()
	all := ff.GetAllFeatures()
	assert.True(t, all[FeatureOneStreakPerDay].Enabled)
	assert.Equal(t, 50, all[FeatureOneStreakPerDay].RolloutPercent)
	// Out-of-range values leave the default in place.
	assert.Equal(t, 100, all[FeatureDashboardDecay].RolloutPercent)

	// The global setting is on whenever any users are rolled in.
	assert.True(t, ff.IsEnabled(FeatureOneStreakPerDay, ""))

	enabled := 0
	for i := 0; i < 200; i++ {
		userID := fmt.Sprintf("user-%d", i)
		on := ff.IsEnabled(FeatureOneStreakPerDay, userID)
		assert.Equal(t, on, ff.IsEnabled(FeatureOneStreakPerDay, userID), "bucket must be stable")
		if on {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 200)
}

func TestFeatureFlags_NilIsDisabled(t *testing.T) {
	var ff *FeatureFlags
	assert.False(t, ff.IsEnabled(FeatureDashboardDecay, ""))
}
