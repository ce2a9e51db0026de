package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PerformanceMetrics is a last-writer-wins snapshot; no history is kept.
type PerformanceMetrics struct {
	OverallEfficiency float64         `gorm:"not null" json:"overall_efficiency"`
	TotalProduction   int64           `gorm:"not null" json:"total_production"`
	TotalOrders       int             `gorm:"not null" json:"total_orders"`
	CompletedOrders   int             `gorm:"not null" json:"completed_orders"`
	PendingOrders     int             `gorm:"not null" json:"pending_orders"`
	ActiveMachines    int             `gorm:"not null" json:"active_machines"`
	AverageQuality    float64         `gorm:"not null" json:"average_quality"`
	TotalCost         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_cost"`
	LastUpdated       *time.Time      `json:"last_updated"`
}

type PerformanceMetricsInput struct {
	OverallEfficiency *float64         `json:"overall_efficiency" validate:"omitempty,min=0,max=100"`
	TotalProduction   *int64           `json:"total_production" validate:"omitempty,min=0"`
	TotalOrders       *int             `json:"total_orders" validate:"omitempty,min=0"`
	CompletedOrders   *int             `json:"completed_orders" validate:"omitempty,min=0"`
	PendingOrders     *int             `json:"pending_orders" validate:"omitempty,min=0"`
	ActiveMachines    *int             `json:"active_machines" validate:"omitempty,min=0"`
	AverageQuality    *float64         `json:"average_quality" validate:"omitempty,min=0,max=100"`
	TotalCost         *decimal.Decimal `json:"total_cost"`
}

func (input *PerformanceMetricsInput) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.TotalCost != nil && input.TotalCost.IsNegative() {
		return utils.NewValidationError("total_cost", "min=0")
	}
	return nil
}

func (input *PerformanceMetricsInput) apply(m *PerformanceMetrics) {
	if input == nil {
		return
	}
	if input.OverallEfficiency != nil {
		m.OverallEfficiency = *input.OverallEfficiency
	}
	if input.TotalProduction != nil {
		m.TotalProduction = *input.TotalProduction
	}
	if input.TotalOrders != nil {
		m.TotalOrders = *input.TotalOrders
	}
	if input.CompletedOrders != nil {
		m.CompletedOrders = *input.CompletedOrders
	}
	if input.PendingOrders != nil {
		m.PendingOrders = *input.PendingOrders
	}
	if input.ActiveMachines != nil {
		m.ActiveMachines = *input.ActiveMachines
	}
	if input.AverageQuality != nil {
		m.AverageQuality = *input.AverageQuality
	}
	if input.TotalCost != nil {
		m.TotalCost = *input.TotalCost
	}
}

// only the provided fields, keyed by column
func (input *PerformanceMetricsInput) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if input.OverallEfficiency != nil {
		cols["metrics_overall_efficiency"] = *input.OverallEfficiency
	}
	if input.TotalProduction != nil {
		cols["metrics_total_production"] = *input.TotalProduction
	}
	if input.TotalOrders != nil {
		cols["metrics_total_orders"] = *input.TotalOrders
	}
	if input.CompletedOrders != nil {
		cols["metrics_completed_orders"] = *input.CompletedOrders
	}
	if input.PendingOrders != nil {
		cols["metrics_pending_orders"] = *input.PendingOrders
	}
	if input.ActiveMachines != nil {
		cols["metrics_active_machines"] = *input.ActiveMachines
	}
	if input.AverageQuality != nil {
		cols["metrics_average_quality"] = *input.AverageQuality
	}
	if input.TotalCost != nil {
		cols["metrics_total_cost"] = *input.TotalCost
	}
	return cols
}

// (may return RecordNotFound)
func GetPerformanceMetrics(ctx context.Context, companyId string) (*PerformanceMetrics, error) {
	ctx, span := tracer.Start(ctx, "GetPerformanceMetrics")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	row, err := fetchDashboardRow(ctx, config.GetDB(), companyId)
	if err != nil {
		return nil, err
	}
	return &row.PerformanceMetrics, nil
}

// UpdatePerformanceMetrics shallow-merges the provided fields and stamps last_updated.
func UpdatePerformanceMetrics(ctx context.Context, companyId string, input *PerformanceMetricsInput) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "UpdatePerformanceMetrics")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if input == nil {
		input = &PerformanceMetricsInput{}
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	cols := input.columns()
	cols["metrics_last_updated"] = time.Now().UTC()

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		return tx.Model(&ProductionDashboard{}).Where("company_id = ?", companyId).Updates(cols).Error
	})
	if err != nil {
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}
