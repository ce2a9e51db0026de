package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailySummary is append-only; rows are never updated after insert.
type DailySummary struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	CompanyId            string          `gorm:"size:64;not null;index:idx_daily_summary_company_date" json:"company_id"`
	Date                 time.Time       `gorm:"not null;index:idx_daily_summary_company_date" json:"date"`
	FirmId               string          `gorm:"size:64" json:"firm_id"`
	MachineId            string          `gorm:"size:64;not null" json:"machine_id"`
	MachineName          string          `gorm:"size:255" json:"machine_name"`
	Shift                Shift           `gorm:"size:20" json:"shift"`
	TotalOrders          int             `gorm:"not null" json:"total_orders"`
	CompletedOrders      int             `gorm:"not null" json:"completed_orders"`
	PendingOrders        int             `gorm:"not null" json:"pending_orders"`
	TotalQuantity        int             `gorm:"not null" json:"total_quantity"`
	CompletedQuantity    int             `gorm:"not null" json:"completed_quantity"`
	ApprovedQuantity     int             `gorm:"not null" json:"approved_quantity"`
	RejectedQuantity     int             `gorm:"not null" json:"rejected_quantity"`
	ReworkQuantity       int             `gorm:"not null" json:"rework_quantity"`
	QualityGrade         QualityGrade    `gorm:"size:2" json:"quality_grade"`
	RunTimeMinutes       int             `gorm:"not null" json:"run_time_minutes"`
	IdleTimeMinutes      int             `gorm:"not null" json:"idle_time_minutes"`
	BreakdownTimeMinutes int             `gorm:"not null" json:"breakdown_time_minutes"`
	SetupTimeMinutes     int             `gorm:"not null" json:"setup_time_minutes"`
	Efficiency           float64         `gorm:"not null" json:"efficiency"`
	MaterialCost         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"material_cost"`
	LaborCost            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"labor_cost"`
	MachineCost          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"machine_cost"`
	OverheadCost         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"overhead_cost"`
	TotalCost            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_cost"`
	CostPerUnit          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost_per_unit"`
	Issues               string          `gorm:"type:text" json:"issues"`
	Notes                string          `gorm:"type:text" json:"notes"`
	SupervisorId         string          `gorm:"size:64" json:"supervisor_id"`
	VerifiedBy           string          `gorm:"size:64" json:"verified_by"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (DailySummary) TableName() string {
	return "production_daily_summaries"
}

type NewDailySummary struct {
	// honoured only when backfill is enabled
	Date                 *time.Time      `json:"date"`
	FirmId               string          `json:"firm_id"`
	MachineId            string          `json:"machine_id" validate:"required,max=64"`
	MachineName          string          `json:"machine_name" validate:"max=255"`
	Shift                Shift           `json:"shift" validate:"omitempty,oneof=day night general"`
	TotalOrders          int             `json:"total_orders" validate:"min=0"`
	CompletedOrders      int             `json:"completed_orders" validate:"min=0"`
	PendingOrders        int             `json:"pending_orders" validate:"min=0"`
	TotalQuantity        int             `json:"total_quantity" validate:"min=0"`
	CompletedQuantity    int             `json:"completed_quantity" validate:"min=0"`
	ApprovedQuantity     int             `json:"approved_quantity" validate:"min=0"`
	RejectedQuantity     int             `json:"rejected_quantity" validate:"min=0"`
	ReworkQuantity       int             `json:"rework_quantity" validate:"min=0"`
	QualityGrade         QualityGrade    `json:"quality_grade" validate:"omitempty,oneof=A B C D F"`
	RunTimeMinutes       int             `json:"run_time_minutes" validate:"min=0"`
	IdleTimeMinutes      int             `json:"idle_time_minutes" validate:"min=0"`
	BreakdownTimeMinutes int             `json:"breakdown_time_minutes" validate:"min=0"`
	SetupTimeMinutes     int             `json:"setup_time_minutes" validate:"min=0"`
	MaterialCost         decimal.Decimal `json:"material_cost"`
	LaborCost            decimal.Decimal `json:"labor_cost"`
	MachineCost          decimal.Decimal `json:"machine_cost"`
	OverheadCost         decimal.Decimal `json:"overhead_cost"`
	Issues               string          `json:"issues"`
	Notes                string          `json:"notes"`
	SupervisorId         string          `json:"supervisor_id"`
	VerifiedBy           string          `json:"verified_by"`
}

func (input *NewDailySummary) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	costs := map[string]decimal.Decimal{
		"material_cost": input.MaterialCost,
		"labor_cost":    input.LaborCost,
		"machine_cost":  input.MachineCost,
		"overhead_cost": input.OverheadCost,
	}
	for field, cost := range costs {
		if cost.IsNegative() {
			return utils.NewValidationError(field, "min=0")
		}
	}
	return nil
}

// SummaryEfficiency is run time as a percentage of all tracked minutes, 2 dp.
func SummaryEfficiency(run, idle, breakdown, setup int) float64 {
	total := run + idle + breakdown + setup
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(run)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		InexactFloat64()
}

// SummaryCostPerUnit divides total cost over completed quantity, 4 dp.
func SummaryCostPerUnit(totalCost decimal.Decimal, completedQuantity int) decimal.Decimal {
	if completedQuantity <= 0 {
		return decimal.Zero
	}
	return totalCost.Div(decimal.NewFromInt(int64(completedQuantity))).Round(4)
}

func (input *NewDailySummary) toRow(companyId string, date time.Time) DailySummary {
	totalCost := input.MaterialCost.Add(input.LaborCost).Add(input.MachineCost).Add(input.OverheadCost)
	return DailySummary{
		CompanyId:            companyId,
		Date:                 date.UTC(),
		FirmId:               input.FirmId,
		MachineId:            input.MachineId,
		MachineName:          input.MachineName,
		Shift:                input.Shift,
		TotalOrders:          input.TotalOrders,
		CompletedOrders:      input.CompletedOrders,
		PendingOrders:        input.PendingOrders,
		TotalQuantity:        input.TotalQuantity,
		CompletedQuantity:    input.CompletedQuantity,
		ApprovedQuantity:     input.ApprovedQuantity,
		RejectedQuantity:     input.RejectedQuantity,
		ReworkQuantity:       input.ReworkQuantity,
		QualityGrade:         input.QualityGrade,
		RunTimeMinutes:       input.RunTimeMinutes,
		IdleTimeMinutes:      input.IdleTimeMinutes,
		BreakdownTimeMinutes: input.BreakdownTimeMinutes,
		SetupTimeMinutes:     input.SetupTimeMinutes,
		Efficiency:           SummaryEfficiency(input.RunTimeMinutes, input.IdleTimeMinutes, input.BreakdownTimeMinutes, input.SetupTimeMinutes),
		MaterialCost:         input.MaterialCost,
		LaborCost:            input.LaborCost,
		MachineCost:          input.MachineCost,
		OverheadCost:         input.OverheadCost,
		TotalCost:            totalCost,
		CostPerUnit:          SummaryCostPerUnit(totalCost, input.CompletedQuantity),
		Issues:               input.Issues,
		Notes:                input.Notes,
		SupervisorId:         input.SupervisorId,
		VerifiedBy:           input.VerifiedBy,
	}
}

// GetDailySummary returns the summaries dated within the UTC calendar day of date.
// A company without a dashboard simply has no summaries.
func GetDailySummary(ctx context.Context, companyId string, date time.Time) ([]*DailySummary, error) {
	ctx, span := tracer.Start(ctx, "GetDailySummary")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	start := utils.StartOfDayUTC(date)
	end := start.Add(24 * time.Hour)

	results := make([]*DailySummary, 0)
	err := config.GetDB().WithContext(ctx).
		Where("company_id = ? AND date >= ? AND date < ?", companyId, start, end).
		Order("date").Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func AddDailySummary(ctx context.Context, companyId string, input *NewDailySummary) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "AddDailySummary")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, utils.NewValidationError("machine_id", "required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if input.Date != nil && config.DailySummaryAllowBackfill() {
		date = input.Date.UTC()
	}
	row := input.toRow(companyId, date)

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), moduleName, "AddDailySummary", "create daily summary", input, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}

// RecomputeDailySummaries re-derives efficiency, total_cost and cost_per_unit for
// summaries dated in [from, to] (whole UTC days). An empty companyId covers every company.
// It returns how many rows were out of date; with dryRun nothing is written.
func RecomputeDailySummaries(ctx context.Context, companyId string, from time.Time, to time.Time, dryRun bool) (int, error) {
	ctx, span := tracer.Start(ctx, "RecomputeDailySummaries")
	defer span.End()

	start := utils.StartOfDayUTC(from)
	end := utils.StartOfDayUTC(to).Add(24 * time.Hour)
	if !end.After(start) {
		return 0, utils.NewValidationError("to", "gtefield=from")
	}

	db := config.GetDB().WithContext(ctx)
	q := db.Model(&DailySummary{}).Where("date >= ? AND date < ?", start, end)
	if companyId != "" {
		q = q.Where("company_id = ?", companyId)
	}

	changed := 0
	var batch []*DailySummary
	res := q.Order("id").FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, row := range batch {
			totalCost := row.MaterialCost.Add(row.LaborCost).Add(row.MachineCost).Add(row.OverheadCost)
			costPerUnit := SummaryCostPerUnit(totalCost, row.CompletedQuantity)
			efficiency := SummaryEfficiency(row.RunTimeMinutes, row.IdleTimeMinutes, row.BreakdownTimeMinutes, row.SetupTimeMinutes)
			if row.TotalCost.Equal(totalCost) && row.CostPerUnit.Equal(costPerUnit) && row.Efficiency == efficiency {
				continue
			}
			changed++
			if dryRun {
				continue
			}
			if err := db.Model(&DailySummary{}).Where("id = ? AND company_id = ?", row.ID, row.CompanyId).Updates(map[string]interface{}{
				"efficiency":    efficiency,
				"total_cost":    totalCost,
				"cost_per_unit": costPerUnit,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if res.Error != nil {
		config.LogError(config.GetLogger(), moduleName, "RecomputeDailySummaries", "recompute daily summaries", companyId, res.Error)
		return changed, res.Error
	}
	return changed, nil
}
