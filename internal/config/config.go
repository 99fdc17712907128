package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"venomshop/backend/internal/analytics"
	"venomshop/backend/internal/scheduler"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	LogLevel                 string
	StoreBackend             string
	DatabasePath             string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	SettingsPath             string
	LowStockThreshold        float64
	TopSellersLimit          int
	CostBasis                analytics.CostBasis
	LossScope                analytics.LossScope
	OpenRouterAPIKey         string
	ModelName                string
	AssistantCacheTTLSeconds int
	ReportCronSchedule       string
}

// Load reads the environment, after merging a .env file from the working directory when present.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	threshold, err := strconv.ParseFloat(getEnv("LOW_STOCK_THRESHOLD", "10"), 64)
	if err != nil || threshold <= 0 {
		threshold = 10
	}
	topLimit, err := strconv.Atoi(getEnv("TOP_SELLERS_LIMIT", "5"))
	if err != nil || topLimit < 1 {
		topLimit = 5
	}
	ttl, err := strconv.Atoi(getEnv("ASSISTANT_CACHE_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	costBasis, err := analytics.ParseCostBasis(getEnv("COST_BASIS", string(analytics.CostBasisLive)))
	if err != nil {
		costBasis = analytics.CostBasisLive
	}
	lossScope, err := analytics.ParseLossScope(getEnv("LOSS_SCOPE", string(analytics.LossScopeRange)))
	if err != nil {
		lossScope = analytics.LossScopeRange
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		DatabasePath:             getEnv("DATABASE_PATH", "data/venom_shop.db"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		SettingsPath:             getEnv("SETTINGS_PATH", "data/date_range.json"),
		LowStockThreshold:        threshold,
		TopSellersLimit:          topLimit,
		CostBasis:                costBasis,
		LossScope:                lossScope,
		OpenRouterAPIKey:         strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		ModelName:                getEnv("MODEL_NAME", "meta-llama/llama-3.2-3b-instruct:free"),
		AssistantCacheTTLSeconds: ttl,
		ReportCronSchedule:       getEnv("REPORT_CRON_SCHEDULE", "0 20 * * *"),
	}
	cfg.StoreBackend = resolveBackend(strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))), cfg.DatabaseURL)

	return cfg
}

// resolveBackend honours an explicit choice, else prefers postgres when a URL is configured.
func resolveBackend(requested string, databaseURL string) string {
	switch requested {
	case BackendSQLite, BackendPostgres, BackendMemory:
		return requested
	}
	if databaseURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.StoreBackend == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("STORE_BACKEND=postgres requires DATABASE_URL")
	}
	if err := scheduler.ValidateSchedule(c.ReportCronSchedule); err != nil {
		return fmt.Errorf("REPORT_CRON_SCHEDULE: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AssistantCacheTTL() time.Duration {
	return time.Duration(c.AssistantCacheTTLSeconds) * time.Second
}

// Analytics maps the analytics settings onto aggregator options.
func (c Config) Analytics() analytics.Options {
	return analytics.Options{
		CostBasis:         c.CostBasis,
		LossScope:         c.LossScope,
		LowStockThreshold: c.LowStockThreshold,
		TopLimit:          c.TopSellersLimit,
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
