package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/analytics"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "STORE_BACKEND", "DATABASE_URL", "DATABASE_PATH", "LOW_STOCK_THRESHOLD", "TOP_SELLERS_LIMIT",
		"COST_BASIS", "LOSS_SCOPE", "ASSISTANT_CACHE_TTL_SECONDS", "REPORT_CRON_SCHEDULE", "ALLOWED_ORIGIN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "data/venom_shop.db", cfg.DatabasePath)
	assert.Equal(t, 10.0, cfg.LowStockThreshold)
	assert.Equal(t, 5, cfg.TopSellersLimit)
	assert.Equal(t, analytics.CostBasisLive, cfg.CostBasis)
	assert.Equal(t, analytics.LossScopeRange, cfg.LossScope)
	assert.Equal(t, "0 20 * * *", cfg.ReportCronSchedule)
	require.NoError(t, cfg.Validate())
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("COST_BASIS", "fifo")
	t.Setenv("LOSS_SCOPE", "forever")
	t.Setenv("LOW_STOCK_THRESHOLD", "-3")
	t.Setenv("TOP_SELLERS_LIMIT", "many")

	cfg := Load()
	assert.Equal(t, analytics.CostBasisLive, cfg.CostBasis)
	assert.Equal(t, analytics.LossScopeRange, cfg.LossScope)
	assert.Equal(t, 10.0, cfg.LowStockThreshold)
	assert.Equal(t, 5, cfg.TopSellersLimit)
}

func TestLoadReadsAnalyticsSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("COST_BASIS", "snapshot")
	t.Setenv("LOSS_SCOPE", "all_time")
	t.Setenv("LOW_STOCK_THRESHOLD", "2.5")

	opts := Load().Analytics()
	assert.Equal(t, analytics.CostBasisSnapshot, opts.CostBasis)
	assert.Equal(t, analytics.LossScopeAllTime, opts.LossScope)
	assert.Equal(t, 2.5, opts.LowStockThreshold)
}

func TestBackendSelection(t *testing.T) {
	tests := []struct {
		requested string
		url       string
		want      string
	}{
		{"", "", BackendSQLite},
		{"", "postgres://db/venom", BackendPostgres},
		{BackendMemory, "postgres://db/venom", BackendMemory},
		{"mongo", "", BackendSQLite},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveBackend(tt.requested, tt.url), "requested=%q url=%q", tt.requested, tt.url)
	}
}

func TestValidateRejectsBadPortAndCron(t *testing.T) {
	cfg := Config{Port: "http", StoreBackend: BackendSQLite, ReportCronSchedule: "0 20 * * *"}
	assert.Error(t, cfg.Validate())

	cfg.Port = "8080"
	cfg.ReportCronSchedule = "at eight"
	assert.Error(t, cfg.Validate())

	cfg.ReportCronSchedule = "0 20 * * *"
	cfg.StoreBackend = BackendPostgres
	assert.Error(t, cfg.Validate())
}
