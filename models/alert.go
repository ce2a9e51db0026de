package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alert is addressed by its generated id. Seq keeps insertion order stable
// when several alerts share a created_at.
type Alert struct {
	ID              string        `gorm:"primary_key;size:36" json:"id"`
	CompanyId       string        `gorm:"size:64;not null;index:idx_alert_company_seq" json:"company_id"`
	Seq             int64         `gorm:"not null;index:idx_alert_company_seq" json:"seq"`
	Type            AlertType     `gorm:"size:30;not null" json:"type"`
	Severity        AlertSeverity `gorm:"size:20;not null" json:"severity"`
	Message         string        `gorm:"type:text;not null" json:"message"`
	MachineId       string        `gorm:"size:64" json:"machine_id"`
	OrderId         string        `gorm:"size:64" json:"order_id"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	IsAcknowledged  bool          `gorm:"not null;index" json:"is_acknowledged"`
	AcknowledgedBy  string        `gorm:"size:64" json:"acknowledged_by"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at"`
	IsResolved      bool          `gorm:"not null;index" json:"is_resolved"`
	ResolvedBy      string        `gorm:"size:64" json:"resolved_by"`
	ResolvedAt      *time.Time    `json:"resolved_at"`
	ResolutionNotes string        `gorm:"type:text" json:"resolution_notes"`
}

func (Alert) TableName() string {
	return "production_alerts"
}

func (a Alert) State() AlertState {
	switch {
	case a.IsResolved:
		return AlertStateResolved
	case a.IsAcknowledged:
		return AlertStateAcknowledged
	default:
		return AlertStateOpen
	}
}

type NewAlert struct {
	Type      AlertType     `json:"type" validate:"required,oneof=low_efficiency high_rejection overdue_order machine_breakdown quality_issue"`
	Severity  AlertSeverity `json:"severity" validate:"required,oneof=low medium high critical"`
	Message   string        `json:"message" validate:"required,max=2000"`
	MachineId string        `json:"machine_id" validate:"max=64"`
	OrderId   string        `json:"order_id" validate:"max=64"`
}

func requireAlertId(alertId string) error {
	if strings.TrimSpace(alertId) == "" {
		return utils.NewValidationError("alert_id", "required")
	}
	return nil
}

func fetchAlert(ctx context.Context, tx *gorm.DB, companyId string, alertId string) (*Alert, error) {
	var alert Alert
	err := tx.WithContext(ctx).Where("company_id = ? AND id = ?", companyId, alertId).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// GetActiveAlerts returns unresolved alerts in creation order.
func GetActiveAlerts(ctx context.Context, companyId string) ([]*Alert, error) {
	ctx, span := tracer.Start(ctx, "GetActiveAlerts")
	defer span.End()

	return ListAlerts(ctx, companyId, false)
}

// ListAlerts returns the alert log, optionally including resolved alerts.
func ListAlerts(ctx context.Context, companyId string, includeResolved bool) ([]*Alert, error) {
	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	results := make([]*Alert, 0)
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if !includeResolved {
		dbCtx = dbCtx.Where("is_resolved = ?", false)
	}
	if err := dbCtx.Order("seq").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func AddAlert(ctx context.Context, companyId string, input *NewAlert) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "AddAlert")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if input == nil {
		input = &NewAlert{}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alert := Alert{
		ID:        uuid.NewString(),
		CompanyId: companyId,
		Seq:       now.UnixNano(),
		Type:      input.Type,
		Severity:  input.Severity,
		Message:   input.Message,
		MachineId: input.MachineId,
		OrderId:   input.OrderId,
		CreatedAt: now,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		if err := tx.Create(&alert).Error; err != nil {
			return err
		}
		return recordAlertEvent(ctx, tx, &alert, AlertEventActionCreated)
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), moduleName, "AddAlert", "create alert", input, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}

// AcknowledgeAlert moves an open alert to acknowledged.
// Alerts already acknowledged or resolved are left untouched.
func AcknowledgeAlert(ctx context.Context, companyId string, alertId string, userId string) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "AcknowledgeAlert")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if err := requireAlertId(alertId); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		if _, err := fetchAlert(ctx, tx, companyId, alertId); err != nil {
			return err
		}
		res := tx.Model(&Alert{}).
			Where("company_id = ? AND id = ? AND is_acknowledged = ? AND is_resolved = ?", companyId, alertId, false, false).
			Updates(map[string]interface{}{
				"is_acknowledged": true,
				"acknowledged_by": userId,
				"acknowledged_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		alert, err := fetchAlert(ctx, tx, companyId, alertId)
		if err != nil {
			return err
		}
		return recordAlertEvent(ctx, tx, alert, AlertEventActionAcknowledged)
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), moduleName, "AcknowledgeAlert", "acknowledge alert", alertId, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}

// ResolveAlert closes an open or acknowledged alert. The first resolution is kept.
func ResolveAlert(ctx context.Context, companyId string, alertId string, userId string, notes string) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "ResolveAlert")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if err := requireAlertId(alertId); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		if _, err := fetchAlert(ctx, tx, companyId, alertId); err != nil {
			return err
		}
		res := tx.Model(&Alert{}).
			Where("company_id = ? AND id = ? AND is_resolved = ?", companyId, alertId, false).
			Updates(map[string]interface{}{
				"is_resolved":      true,
				"resolved_by":      userId,
				"resolved_at":      now,
				"resolution_notes": notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		alert, err := fetchAlert(ctx, tx, companyId, alertId)
		if err != nil {
			return err
		}
		return recordAlertEvent(ctx, tx, alert, AlertEventActionResolved)
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), moduleName, "ResolveAlert", "resolve alert", alertId, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}
