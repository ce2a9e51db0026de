package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"gorm.io/gorm"
)

const dashboardConfigCacheTTL = time.Hour

// DashboardConfig is handed to client polling; thresholds are stored, never evaluated here.
type DashboardConfig struct {
	RefreshInterval        int     `gorm:"not null" json:"refresh_interval"`
	LowEfficiencyThreshold float64 `gorm:"not null" json:"low_efficiency_threshold"`
	HighRejectionThreshold float64 `gorm:"not null" json:"high_rejection_threshold"`
	OverdueOrderDays       int     `gorm:"not null" json:"overdue_order_days"`
	ShowPrintingStatus     bool    `gorm:"not null" json:"show_printing_status"`
}

func defaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		RefreshInterval:        30,
		LowEfficiencyThreshold: 70,
		HighRejectionThreshold: 5,
		OverdueOrderDays:       1,
		ShowPrintingStatus:     true,
	}
}

type DashboardConfigInput struct {
	RefreshInterval        *int     `json:"refresh_interval" validate:"omitempty,min=5,max=3600"`
	LowEfficiencyThreshold *float64 `json:"low_efficiency_threshold" validate:"omitempty,min=0,max=100"`
	HighRejectionThreshold *float64 `json:"high_rejection_threshold" validate:"omitempty,min=0,max=100"`
	OverdueOrderDays       *int     `json:"overdue_order_days" validate:"omitempty,min=0"`
	ShowPrintingStatus     *bool    `json:"show_printing_status"`
}

func (input *DashboardConfigInput) apply(c *DashboardConfig) {
	if input == nil {
		return
	}
	if input.RefreshInterval != nil {
		c.RefreshInterval = *input.RefreshInterval
	}
	if input.LowEfficiencyThreshold != nil {
		c.LowEfficiencyThreshold = *input.LowEfficiencyThreshold
	}
	if input.HighRejectionThreshold != nil {
		c.HighRejectionThreshold = *input.HighRejectionThreshold
	}
	if input.OverdueOrderDays != nil {
		c.OverdueOrderDays = *input.OverdueOrderDays
	}
	if input.ShowPrintingStatus != nil {
		c.ShowPrintingStatus = *input.ShowPrintingStatus
	}
}

func (input *DashboardConfigInput) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if input.RefreshInterval != nil {
		cols["config_refresh_interval"] = *input.RefreshInterval
	}
	if input.LowEfficiencyThreshold != nil {
		cols["config_low_efficiency_threshold"] = *input.LowEfficiencyThreshold
	}
	if input.HighRejectionThreshold != nil {
		cols["config_high_rejection_threshold"] = *input.HighRejectionThreshold
	}
	if input.OverdueOrderDays != nil {
		cols["config_overdue_order_days"] = *input.OverdueOrderDays
	}
	if input.ShowPrintingStatus != nil {
		cols["config_show_printing_status"] = *input.ShowPrintingStatus
	}
	return cols
}

func dashboardConfigCacheKey(companyId string) string {
	return "DashboardConfig:" + companyId
}

// GetDashboardConfig reads through the Redis cache.
// (may return RecordNotFound)
func GetDashboardConfig(ctx context.Context, companyId string) (*DashboardConfig, error) {
	ctx, span := tracer.Start(ctx, "GetDashboardConfig")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}

	var cached DashboardConfig
	exists, err := config.GetRedisObject(dashboardConfigCacheKey(companyId), &cached)
	if err != nil {
		config.LogError(config.GetLogger(), moduleName, "GetDashboardConfig", "read config cache", companyId, err)
	} else if exists {
		return &cached, nil
	}

	row, err := fetchDashboardRow(ctx, config.GetDB(), companyId)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(dashboardConfigCacheKey(companyId), &row.DashboardConfig, dashboardConfigCacheTTL); err != nil {
		config.LogError(config.GetLogger(), moduleName, "GetDashboardConfig", "write config cache", companyId, err)
	}
	return &row.DashboardConfig, nil
}

func UpdateDashboardConfig(ctx context.Context, companyId string, input *DashboardConfigInput) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "UpdateDashboardConfig")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if input == nil {
		input = &DashboardConfigInput{}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		cols := input.columns()
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&ProductionDashboard{}).Where("company_id = ?", companyId).Updates(cols).Error
	})
	if err != nil {
		return nil, err
	}

	// clear cache
	if err := config.RemoveRedisKey(dashboardConfigCacheKey(companyId)); err != nil {
		config.LogError(config.GetLogger(), moduleName, "UpdateDashboardConfig", "clear config cache", companyId, err)
	}
	return loadDashboard(ctx, db, companyId)
}
