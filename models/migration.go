package models

import (
	"bitbucket.org/mmdatafocus/production_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	return db.AutoMigrate(
		&ProductionDashboard{},
		&MachineStatus{}, &PrintingMachineStatus{},
		&DailySummary{},
		&Alert{}, &AlertEventRecord{},
	)
}
