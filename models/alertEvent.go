package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox publish statuses for AlertEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// AlertEventRecord is the transactional outbox row for one alert lifecycle transition.
type AlertEventRecord struct {
	ID               int              `gorm:"primary_key" json:"id"`
	CompanyId        string           `gorm:"size:64;not null;index" json:"company_id"`
	AlertId          string           `gorm:"size:36;not null;index" json:"alert_id"`
	Action           AlertEventAction `gorm:"size:20;not null" json:"action"`
	Payload          []byte           `json:"payload"`
	OccurredAt       time.Time        `gorm:"not null" json:"occurred_at"`
	CorrelationId    string           `gorm:"size:64" json:"correlation_id"`
	PublishStatus    string           `gorm:"size:20;not null;index:idx_alert_event_publish" json:"publish_status"`
	PublishAttempts  int              `gorm:"not null" json:"publish_attempts"`
	NextAttemptAt    *time.Time       `gorm:"index:idx_alert_event_publish" json:"next_attempt_at"`
	LockedAt         *time.Time       `json:"locked_at"`
	LockedBy         *string          `gorm:"size:64" json:"locked_by"`
	LastPublishError *string          `gorm:"type:text" json:"last_publish_error"`
	PubSubMessageId  *string          `gorm:"size:255" json:"pub_sub_message_id"`
	PublishedAt      *time.Time       `json:"published_at"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// recordAlertEvent must run inside the transaction that changed the alert.
func recordAlertEvent(ctx context.Context, tx *gorm.DB, alert *Alert, action AlertEventAction) error {
	if !config.AlertEventsEnabled() {
		return nil
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	record := AlertEventRecord{
		CompanyId:     alert.CompanyId,
		AlertId:       alert.ID,
		Action:        action,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
		CorrelationId: correlationIdFromContextOrNew(ctx),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToAlertEventMessage(rec AlertEventRecord) config.AlertEventMessage {
	return config.AlertEventMessage{
		ID:            rec.ID,
		CompanyId:     rec.CompanyId,
		AlertId:       rec.AlertId,
		Action:        string(rec.Action),
		OccurredAt:    rec.OccurredAt,
		Payload:       rec.Payload,
		CorrelationId: rec.CorrelationId,
	}
}

// ListAlertEvents returns the outbox rows for one alert, oldest first.
func ListAlertEvents(ctx context.Context, companyId string, alertId string) ([]*AlertEventRecord, error) {
	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	results := make([]*AlertEventRecord, 0)
	err := config.GetDB().WithContext(ctx).
		Where("company_id = ? AND alert_id = ?", companyId, alertId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ReplayAlertEvent re-queues a FAILED or DEAD outbox row for the dispatcher.
// (may return RecordNotFound)
func ReplayAlertEvent(ctx context.Context, recordId int) (*AlertEventRecord, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, utils.ErrorForbidden
	}

	db := config.GetDB()
	res := db.WithContext(ctx).
		Model(&AlertEventRecord{}).
		Where("id = ? AND publish_status IN ?", recordId, []string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	var record AlertEventRecord
	if err := db.WithContext(ctx).Where("id = ?", recordId).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
