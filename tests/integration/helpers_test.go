//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/redis"
	"github.com/Sosajunior/crm-sub000/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	cfg := &config.RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_REDIS_PORT", 6379),
		Password: getEnv("TEST_REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("TEST_REDIS_DB", 0),
	}

	client, err := redis.NewClient(cfg)
	require.NoError(t, err, "Failed to create redis client")
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Host:         getEnv("TEST_DB_HOST", "localhost"),
		Port:         getEnvAsInt("TEST_DB_PORT", 5432),
		User:         getEnv("TEST_DB_USER", "postgres"),
		Password:     getEnv("TEST_DB_PASSWORD", "postgres"),
		Database:     getEnv("TEST_DB_NAME", "clinic_funnel_test"),
		SSLMode:      getEnv("TEST_DB_SSLMODE", "disable"),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}

	client, err := postgres.NewClient(cfg)
	require.NoError(t, err, "Failed to create postgres client")
	t.Cleanup(func() { client.Close() })

	applySchema(t, client)
	return client
}

// applySchema loads the funnel DDL and empties every table
func applySchema(t *testing.T, client *postgres.Client) {
	t.Helper()

	_, file, _, _ := runtime.Caller(0)
	ddl, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "migrations", "001_funnel.sql"))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.DB().ExecContext(ctx, string(ddl))
	require.NoError(t, err, "Failed to apply schema")

	_, err = client.DB().ExecContext(ctx, `TRUNCATE TABLE funnel_events, metric_counters, patients, procedures`)
	require.NoError(t, err, "Failed to reset tables")
}
