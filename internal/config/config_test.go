package config

import (
    "testing"

    "github.com/stretchr/testify/require"
)

// setRequiredEnv fills in the env vars Load() refuses to start without.
func setRequiredEnv(t *testing.T) {
    t.Helper()
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8080")
    t.Setenv("DB_USER", "root")
    t.Setenv("DB_HOST", "localhost")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "reservations")
    t.Setenv("JWT_SECRET", "secret")
    t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
    t.Setenv("BCRYPT_COST", "10")
}

func TestLoadSelectorDefaults(t *testing.T) {
    setRequiredEnv(t)
    cfg := Load()

    require.Equal(t, 3, cfg.SelectorKMax)
    require.Equal(t, 4, cfg.SelectorMaxWaste)
    require.Equal(t, 50, cfg.SelectorMaxPlansPerTier)
    require.Equal(t, 500, cfg.SelectorMaxEvaluations)

    require.Equal(t, 1.0, cfg.SelectorWeightWaste)
    require.Equal(t, 0.6, cfg.SelectorWeightTableCount)
    require.Equal(t, 0.8, cfg.SelectorWeightScarcity)
    require.Equal(t, 0.4, cfg.SelectorWeightFragmentation)
    require.Equal(t, 0.3, cfg.SelectorWeightZoneBalance)
    require.Equal(t, 0.5, cfg.SelectorWeightAdjacency)
}

func TestLoadSelectorOverrides(t *testing.T) {
    setRequiredEnv(t)
    t.Setenv("SELECTOR_KMAX", "2")
    t.Setenv("SELECTOR_MAX_WASTE", "6")
    t.Setenv("SELECTOR_MAX_PLANS_PER_TIER", "25")
    t.Setenv("SELECTOR_MAX_EVALUATIONS", "1000")
    t.Setenv("SELECTOR_WEIGHT_WASTE", "2.5")
    t.Setenv("SELECTOR_WEIGHT_SCARCITY", "0")

    cfg := Load()
    require.Equal(t, 2, cfg.SelectorKMax)
    require.Equal(t, 6, cfg.SelectorMaxWaste)
    require.Equal(t, 25, cfg.SelectorMaxPlansPerTier)
    require.Equal(t, 1000, cfg.SelectorMaxEvaluations)
    require.Equal(t, 2.5, cfg.SelectorWeightWaste)
    require.Equal(t, 0.0, cfg.SelectorWeightScarcity)
}

func TestEnvFloatMalformedFallsBack(t *testing.T) {
    t.Setenv("SELECTOR_WEIGHT_WASTE", "not-a-number")
    require.Equal(t, 1.0, envFloat("SELECTOR_WEIGHT_WASTE", 1.0))
}
