package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"gorm.io/gorm"
)

// PrintingMachineStatus is tracked separately from MachineStatus even for the same machine id.
type PrintingMachineStatus struct {
	ID                   int                  `gorm:"primary_key" json:"id"`
	CompanyId            string               `gorm:"size:64;not null;uniqueIndex:idx_printing_status_company_machine" json:"company_id"`
	MachineId            string               `gorm:"size:64;not null;uniqueIndex:idx_printing_status_company_machine" json:"machine_id"`
	MachineName          string               `gorm:"size:255" json:"machine_name"`
	CurrentStatus        MachineCurrentStatus `gorm:"size:20;not null" json:"current_status"`
	CurrentOrderId       string               `gorm:"size:64" json:"current_order_id"`
	CurrentOrderNumber   string               `gorm:"size:100" json:"current_order_number"`
	PrintingSpeed        float64              `gorm:"not null" json:"printing_speed"`
	CurrentFabric        string               `gorm:"size:255" json:"current_fabric"`
	CurrentDesign        string               `gorm:"size:255" json:"current_design"`
	CurrentQuantity      int                  `gorm:"not null" json:"current_quantity"`
	TargetQuantity       int                  `gorm:"not null" json:"target_quantity"`
	CompletedQuantity    int                  `gorm:"not null" json:"completed_quantity"`
	Efficiency           float64              `gorm:"not null" json:"efficiency"`
	QualityCheckRequired bool                 `gorm:"not null" json:"quality_check_required"`
	OperatorId           string               `gorm:"size:64" json:"operator_id"`
	OperatorName         string               `gorm:"size:255" json:"operator_name"`
	Shift                Shift                `gorm:"size:20" json:"shift"`
	LastUpdated          time.Time            `gorm:"not null" json:"last_updated"`
}

type PrintingStatusPatch struct {
	MachineName          *string               `json:"machine_name" validate:"omitempty,max=255"`
	CurrentStatus        *MachineCurrentStatus `json:"current_status" validate:"omitempty,oneof=idle running maintenance breakdown setup cleaning"`
	CurrentOrderId       *string               `json:"current_order_id"`
	CurrentOrderNumber   *string               `json:"current_order_number"`
	PrintingSpeed        *float64              `json:"printing_speed" validate:"omitempty,min=0"`
	CurrentFabric        *string               `json:"current_fabric"`
	CurrentDesign        *string               `json:"current_design"`
	CurrentQuantity      *int                  `json:"current_quantity" validate:"omitempty,min=0"`
	TargetQuantity       *int                  `json:"target_quantity" validate:"omitempty,min=0"`
	CompletedQuantity    *int                  `json:"completed_quantity" validate:"omitempty,min=0"`
	Efficiency           *float64              `json:"efficiency" validate:"omitempty,min=0,max=100"`
	QualityCheckRequired *bool                 `json:"quality_check_required"`
	OperatorId           *string               `json:"operator_id"`
	OperatorName         *string               `json:"operator_name"`
	Shift                *Shift                `json:"shift" validate:"omitempty,oneof='' day night general"`
}

func (patch *PrintingStatusPatch) apply(p *PrintingMachineStatus) {
	if patch.MachineName != nil {
		p.MachineName = *patch.MachineName
	}
	if patch.CurrentStatus != nil {
		p.CurrentStatus = *patch.CurrentStatus
	}
	if patch.CurrentOrderId != nil {
		p.CurrentOrderId = *patch.CurrentOrderId
	}
	if patch.CurrentOrderNumber != nil {
		p.CurrentOrderNumber = *patch.CurrentOrderNumber
	}
	if patch.PrintingSpeed != nil {
		p.PrintingSpeed = *patch.PrintingSpeed
	}
	if patch.CurrentFabric != nil {
		p.CurrentFabric = *patch.CurrentFabric
	}
	if patch.CurrentDesign != nil {
		p.CurrentDesign = *patch.CurrentDesign
	}
	if patch.CurrentQuantity != nil {
		p.CurrentQuantity = *patch.CurrentQuantity
	}
	if patch.TargetQuantity != nil {
		p.TargetQuantity = *patch.TargetQuantity
	}
	if patch.CompletedQuantity != nil {
		p.CompletedQuantity = *patch.CompletedQuantity
	}
	if patch.Efficiency != nil {
		p.Efficiency = *patch.Efficiency
	}
	if patch.QualityCheckRequired != nil {
		p.QualityCheckRequired = *patch.QualityCheckRequired
	}
	if patch.OperatorId != nil {
		p.OperatorId = *patch.OperatorId
	}
	if patch.OperatorName != nil {
		p.OperatorName = *patch.OperatorName
	}
	if patch.Shift != nil {
		p.Shift = *patch.Shift
	}
}

func (patch *PrintingStatusPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if patch.MachineName != nil {
		cols["machine_name"] = *patch.MachineName
	}
	if patch.CurrentStatus != nil {
		cols["current_status"] = *patch.CurrentStatus
	}
	if patch.CurrentOrderId != nil {
		cols["current_order_id"] = *patch.CurrentOrderId
	}
	if patch.CurrentOrderNumber != nil {
		cols["current_order_number"] = *patch.CurrentOrderNumber
	}
	if patch.PrintingSpeed != nil {
		cols["printing_speed"] = *patch.PrintingSpeed
	}
	if patch.CurrentFabric != nil {
		cols["current_fabric"] = *patch.CurrentFabric
	}
	if patch.CurrentDesign != nil {
		cols["current_design"] = *patch.CurrentDesign
	}
	if patch.CurrentQuantity != nil {
		cols["current_quantity"] = *patch.CurrentQuantity
	}
	if patch.TargetQuantity != nil {
		cols["target_quantity"] = *patch.TargetQuantity
	}
	if patch.CompletedQuantity != nil {
		cols["completed_quantity"] = *patch.CompletedQuantity
	}
	if patch.Efficiency != nil {
		cols["efficiency"] = *patch.Efficiency
	}
	if patch.QualityCheckRequired != nil {
		cols["quality_check_required"] = *patch.QualityCheckRequired
	}
	if patch.OperatorId != nil {
		cols["operator_id"] = *patch.OperatorId
	}
	if patch.OperatorName != nil {
		cols["operator_name"] = *patch.OperatorName
	}
	if patch.Shift != nil {
		cols["shift"] = *patch.Shift
	}
	return cols
}

// (may return RecordNotFound)
func GetPrintingStatus(ctx context.Context, companyId string) ([]*PrintingMachineStatus, error) {
	ctx, span := tracer.Start(ctx, "GetPrintingStatus")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := requireDashboard(ctx, db, companyId); err != nil {
		return nil, err
	}

	results := make([]*PrintingMachineStatus, 0)
	if err := db.WithContext(ctx).Where("company_id = ?", companyId).Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func UpdatePrintingStatus(ctx context.Context, companyId string, machineId string, patch *PrintingStatusPatch) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "UpdatePrintingStatus")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if err := requireMachineId(machineId); err != nil {
		return nil, err
	}
	if patch == nil {
		patch = &PrintingStatusPatch{}
	}
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := PrintingMachineStatus{
		CompanyId:     companyId,
		MachineId:     machineId,
		CurrentStatus: MachineStatusIdle,
	}
	patch.apply(&row)
	row.LastUpdated = now

	cols := patch.columns()
	cols["last_updated"] = now

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDashboard(ctx, tx, companyId); err != nil {
			return err
		}
		return upsertMachineRow(tx, &row, cols)
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), moduleName, "UpdatePrintingStatus", "upsert printing status", machineId, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}
