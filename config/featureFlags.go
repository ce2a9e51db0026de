package config

import (
	"os"
	"strings"
)

func envFlag(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DailySummaryAllowBackfill lets callers supply the summary date instead of having it stamped with now().
// Off by default so history cannot be backdated.
//
// Set via env:
// - DAILY_SUMMARY_ALLOW_BACKFILL=true
func DailySummaryAllowBackfill() bool {
	return envFlag("DAILY_SUMMARY_ALLOW_BACKFILL")
}

// AlertEventsEnabled turns on the alert outbox: lifecycle transitions are recorded
// and published to Pub/Sub by the dispatcher.
//
// Set via env:
// - ALERT_EVENTS_ENABLED=true
func AlertEventsEnabled() bool {
	return envFlag("ALERT_EVENTS_ENABLED")
}
