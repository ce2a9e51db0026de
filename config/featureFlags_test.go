package config_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"github.com/stretchr/testify/assert"
)

func TestFeatureFlags(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes", " y "} {
		t.Setenv("ALERT_EVENTS_ENABLED", v)
		assert.True(t, config.AlertEventsEnabled(), v)
	}
	for _, v := range []string{"", "false", "0", "off"} {
		t.Setenv("DAILY_SUMMARY_ALLOW_BACKFILL", v)
		assert.False(t, config.DailySummaryAllowBackfill(), v)
	}
}
