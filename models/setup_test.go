package models_test

import (
	"context"
	"path/filepath"
	"testing"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// setupStore points config at a fresh sqlite file and an in-memory Redis.
func setupStore(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "dashboard.db"))
	t.Setenv("REDIS_ADDRESS", mr.Addr())
	t.Setenv("ALERT_EVENTS_ENABLED", "")
	t.Setenv("DAILY_SUMMARY_ALLOW_BACKFILL", "")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	require.NoError(t, models.MigrateTable())

	t.Cleanup(func() {
		if sqlDB, err := config.GetDB().DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.DisconnectRedis()
	})
	return mr
}

func createDashboard(t *testing.T, companyId string) *models.Dashboard {
	t.Helper()
	dashboard, err := models.CreateDashboard(context.Background(), companyId, nil, "creator")
	require.NoError(t, err)
	return dashboard
}

func ptr[T any](v T) *T {
	return &v
}
