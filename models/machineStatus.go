package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MachineStatus struct {
	ID                 int                  `gorm:"primary_key" json:"id"`
	CompanyId          string               `gorm:"size:64;not null;uniqueIndex:idx_machine_status_company_machine" json:"company_id"`
	MachineId          string               `gorm:"size:64;not null;uniqueIndex:idx_machine_status_company_machine" json:"machine_id"`
	MachineName        string               `gorm:"size:255" json:"machine_name"`
	MachineType        MachineType          `gorm:"size:20" json:"machine_type"`
	CurrentStatus      MachineCurrentStatus `gorm:"size:20;not null" json:"current_status"`
	CurrentOrderId     string               `gorm:"size:64" json:"current_order_id"`
	CurrentOrderNumber string               `gorm:"size:100" json:"current_order_number"`
	CurrentQuantity    int                  `gorm:"not null" json:"current_quantity"`
	TargetQuantity     int                  `gorm:"not null" json:"target_quantity"`
	CompletedQuantity  int                  `gorm:"not null" json:"completed_quantity"`
	Efficiency         float64              `gorm:"not null" json:"efficiency"`
	OperatorId         string               `gorm:"size:64" json:"operator_id"`
	OperatorName       string               `gorm:"size:255" json:"operator_name"`
	Shift              Shift                `gorm:"size:20" json:"shift"`
	LastUpdated        time.Time            `gorm:"not null" json:"last_updated"`
}

// MachineStatusPatch is merged onto the stored status; nil fields are left untouched.
type MachineStatusPatch struct {
	MachineName        *string               `json:"machine_name" validate:"omitempty,max=255"`
	MachineType        *MachineType          `json:"machine_type" validate:"omitempty,oneof=printing washing fixing stitching finishing"`
	CurrentStatus      *MachineCurrentStatus `json:"current_status" validate:"omitempty,oneof=idle running maintenance breakdown setup cleaning"`
	CurrentOrderId     *string               `json:"current_order_id"`
	CurrentOrderNumber *string               `json:"current_order_number"`
	CurrentQuantity    *int                  `json:"current_quantity" validate:"omitempty,min=0"`
	TargetQuantity     *int                  `json:"target_quantity" validate:"omitempty,min=0"`
	CompletedQuantity  *int                  `json:"completed_quantity" validate:"omitempty,min=0"`
	Efficiency         *float64              `json:"efficiency" validate:"omitempty,min=0,max=100"`
	OperatorId         *string               `json:"operator_id"`
	OperatorName       *string               `json:"operator_name"`
	Shift              *Shift                `json:"shift" validate:"omitempty,oneof='' day night general"`
}

func (patch *MachineStatusPatch) apply(m *MachineStatus) {
	if patch.MachineName != nil {
		m.MachineName = *patch.MachineName
	}
	if patch.MachineType != nil {
		m.MachineType = *patch.MachineType
	}
	if patch.CurrentStatus != nil {
		m.CurrentStatus = *patch.CurrentStatus
	}
	if patch.CurrentOrderId != nil {
		m.CurrentOrderId = *patch.CurrentOrderId
	}
	if patch.CurrentOrderNumber != nil {
		m.CurrentOrderNumber = *patch.CurrentOrderNumber
	}
	if patch.CurrentQuantity != nil {
		m.CurrentQuantity = *patch.CurrentQuantity
	}
	if patch.TargetQuantity != nil {
		m.TargetQuantity = *patch.TargetQuantity
	}
	if patch.CompletedQuantity != nil {
		m.CompletedQuantity = *patch.CompletedQuantity
	}
	if patch.Efficiency != nil {
		m.Efficiency = *patch.Efficiency
	}
	if patch.OperatorId != nil {
		m.OperatorId = *patch.OperatorId
	}
	if patch.OperatorName != nil {
		m.OperatorName = *patch.OperatorName
	}
	if patch.Shift != nil {
		m.Shift = *patch.Shift
	}
}

func (patch *MachineStatusPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if patch.MachineName != nil {
		cols["machine_name"] = *patch.MachineName
	}
	if patch.MachineType != nil {
		cols["machine_type"] = *patch.MachineType
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

// MachineStatusView pairs the general and printing records sharing a machine id.
type MachineStatusView struct {
	RealTime *MachineStatus         `json:"real_time"`
	Printing *PrintingMachineStatus `json:"printing"`
}

func requireMachineId(machineId string) error {
	if strings.TrimSpace(machineId) == "" {
		return utils.NewValidationError("machine_id", "required")
	}
	return nil
}

// upsertMachineRow inserts row, or on a (company_id, machine_id) conflict applies only cols
// to the existing row. One statement, so concurrent writers of other machines never collide.
func upsertMachineRow(tx *gorm.DB, row interface{}, cols map[string]interface{}) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "machine_id"}},
		DoUpdates: clause.Assignments(cols),
	}).Create(row).Error
}

// GetMachineStatus returns whichever of the two status records exist for the machine.
// (may return RecordNotFound)
func GetMachineStatus(ctx context.Context, companyId string, machineId string) (*MachineStatusView, error) {
	ctx, span := tracer.Start(ctx, "GetMachineStatus")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := requireDashboard(ctx, db, companyId); err != nil {
		return nil, err
	}

	var view MachineStatusView
	var realTime MachineStatus
	err := db.WithContext(ctx).Where("company_id = ? AND machine_id = ?", companyId, machineId).First(&realTime).Error
	if err == nil {
		view.RealTime = &realTime
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var printing PrintingMachineStatus
	err = db.WithContext(ctx).Where("company_id = ? AND machine_id = ?", companyId, machineId).First(&printing).Error
	if err == nil {
		view.Printing = &printing
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if view.RealTime == nil && view.Printing == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &view, nil
}

func UpdateMachineStatus(ctx context.Context, companyId string, machineId string, patch *MachineStatusPatch) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "UpdateMachineStatus")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if err := requireMachineId(machineId); err != nil {
		return nil, err
	}
	if patch == nil {
		patch = &MachineStatusPatch{}
	}
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := MachineStatus{
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
			config.LogError(config.GetLogger(), moduleName, "UpdateMachineStatus", "upsert machine status", machineId, err)
		}
		return nil, err
	}
	return loadDashboard(ctx, db, companyId)
}
