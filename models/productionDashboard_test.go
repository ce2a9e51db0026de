package models_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDashboardAppliesDefaults(t *testing.T) {
	setupStore(t)

	dashboard := createDashboard(t, "ACME")

	assert.Equal(t, "ACME", dashboard.CompanyId)
	assert.Equal(t, "creator", dashboard.CreatedBy)
	assert.Equal(t, 30, dashboard.DashboardConfig.RefreshInterval)
	assert.Equal(t, 70.0, dashboard.DashboardConfig.LowEfficiencyThreshold)
	assert.Equal(t, 5.0, dashboard.DashboardConfig.HighRejectionThreshold)
	assert.Equal(t, 1, dashboard.DashboardConfig.OverdueOrderDays)
	assert.True(t, dashboard.DashboardConfig.ShowPrintingStatus)
	assert.NotNil(t, dashboard.PerformanceMetrics.LastUpdated)

	assert.Empty(t, dashboard.RealTimeStatus)
	assert.NotNil(t, dashboard.RealTimeStatus)
	assert.NotNil(t, dashboard.DailySummary)
	assert.NotNil(t, dashboard.PrintingStatus)
	assert.NotNil(t, dashboard.Alerts)
}

func TestCreateDashboardSeedsInitialData(t *testing.T) {
	setupStore(t)

	dashboard, err := models.CreateDashboard(context.Background(), "ACME", &models.NewProductionDashboard{
		PerformanceMetrics: &models.PerformanceMetricsInput{
			TotalOrders: ptr(12),
			TotalCost:   ptr(decimal.RequireFromString("1500.25")),
		},
		DashboardConfig: &models.DashboardConfigInput{
			RefreshInterval:    ptr(60),
			ShowPrintingStatus: ptr(false),
		},
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, 12, dashboard.PerformanceMetrics.TotalOrders)
	assert.True(t, dashboard.PerformanceMetrics.TotalCost.Equal(decimal.RequireFromString("1500.25")))
	assert.Equal(t, 60, dashboard.DashboardConfig.RefreshInterval)
	assert.False(t, dashboard.DashboardConfig.ShowPrintingStatus)
	// untouched fields keep their defaults
	assert.Equal(t, 70.0, dashboard.DashboardConfig.LowEfficiencyThreshold)
}

func TestCreateDashboardRejectsInvalidSeed(t *testing.T) {
	setupStore(t)

	_, err := models.CreateDashboard(context.Background(), "ACME", &models.NewProductionDashboard{
		DashboardConfig: &models.DashboardConfigInput{RefreshInterval: ptr(1)},
	}, "u1")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))

	_, err = models.FindDashboardByCompany(context.Background(), "ACME")
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestCreateDashboardTwiceIsRejected(t *testing.T) {
	setupStore(t)

	createDashboard(t, "ACME")
	_, err := models.CreateDashboard(context.Background(), "ACME", nil, "creator")
	assert.ErrorIs(t, err, utils.ErrorAlreadyExists)

	// another company is unaffected
	createDashboard(t, "GLOBEX")
}

func TestCreateDashboardWhileLockIsHeld(t *testing.T) {
	setupStore(t)
	ctx := context.Background()

	held, err := config.GetRedisLock().Obtain(ctx, "ProductionDashboardCreate:ACME", time.Minute, nil)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = models.CreateDashboard(waitCtx, "ACME", nil, "u1")
	assert.ErrorIs(t, err, utils.ErrorLockNotObtained)

	_, err = models.FindDashboardByCompany(ctx, "ACME")
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)

	require.NoError(t, held.Release(ctx))
	createDashboard(t, "ACME")
}

func TestUniqueIndexBlocksSecondRootRow(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")

	err := config.GetDB().Create(&models.ProductionDashboard{CompanyId: "ACME"}).Error
	require.Error(t, err)
}

func TestFindDashboardByCompany(t *testing.T) {
	setupStore(t)
	ctx := context.Background()

	_, err := models.FindDashboardByCompany(ctx, "NEW_CO")
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)

	createDashboard(t, "ACME")
	_, err = models.UpdateMachineStatus(ctx, "ACME", "M1", &models.MachineStatusPatch{Efficiency: ptr(80.0)})
	require.NoError(t, err)

	first, err := models.FindDashboardByCompany(ctx, "ACME")
	require.NoError(t, err)
	second, err := models.FindDashboardByCompany(ctx, "ACME")
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestRequestCompanyScopesDashboardTables(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")
	createDashboard(t, "GLOBEX")
	ctx := context.Background()
	for _, company := range []string{"ACME", "GLOBEX"} {
		_, err := models.UpdateMachineStatus(ctx, company, "M1", &models.MachineStatusPatch{Efficiency: ptr(50.0)})
		require.NoError(t, err)
		_, err = models.AddAlert(ctx, company, &models.NewAlert{Type: models.AlertTypeLowEfficiency, Severity: models.AlertSeverityLow, Message: "slow"})
		require.NoError(t, err)
	}

	// queries without an explicit company filter only see the request's company
	globexCtx := utils.SetCompanyIdInContext(ctx, "GLOBEX")
	db := config.GetDB().WithContext(globexCtx)

	var roots []models.ProductionDashboard
	require.NoError(t, db.Find(&roots).Error)
	require.Len(t, roots, 1)
	assert.Equal(t, "GLOBEX", roots[0].CompanyId)

	var statuses []models.MachineStatus
	require.NoError(t, db.Find(&statuses).Error)
	require.Len(t, statuses, 1)
	assert.Equal(t, "GLOBEX", statuses[0].CompanyId)

	var alerts []models.Alert
	require.NoError(t, db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, "GLOBEX", alerts[0].CompanyId)

	res := db.Model(&models.MachineStatus{}).Where("machine_id = ?", "M1").Update("efficiency", 99.0)
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	acme, err := models.FindDashboardByCompany(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, acme.RealTimeStatus, 1)
	assert.Equal(t, 50.0, acme.RealTimeStatus[0].Efficiency)

	// an admin request sees every company
	var all []models.ProductionDashboard
	require.NoError(t, config.GetDB().WithContext(utils.SetIsAdminInContext(globexCtx, true)).Find(&all).Error)
	assert.Len(t, all, 2)
}

func TestCompanyIdIsRequired(t *testing.T) {
	setupStore(t)

	_, err := models.FindDashboardByCompany(context.Background(), " ")
	assert.Error(t, err)
	_, err = models.CreateDashboard(context.Background(), "", nil, "u1")
	assert.Error(t, err)
}

func TestFullLifecycle(t *testing.T) {
	setupStore(t)
	ctx := context.Background()

	createDashboard(t, "ACME")

	_, err := models.UpdateMachineStatus(ctx, "ACME", "M1", &models.MachineStatusPatch{
		CurrentStatus: ptr(models.MachineStatusRunning),
		Efficiency:    ptr(80.0),
	})
	require.NoError(t, err)

	dashboard, err := models.AddAlert(ctx, "ACME", &models.NewAlert{
		Type:     models.AlertTypeLowEfficiency,
		Severity: models.AlertSeverityMedium,
		Message:  "M1 below target",
	})
	require.NoError(t, err)
	require.Len(t, dashboard.Alerts, 1)
	alertId := dashboard.Alerts[0].ID

	_, err = models.AcknowledgeAlert(ctx, "ACME", alertId, "u1")
	require.NoError(t, err)
	dashboard, err = models.ResolveAlert(ctx, "ACME", alertId, "u1", "fixed calibration")
	require.NoError(t, err)

	require.Len(t, dashboard.RealTimeStatus, 1)
	assert.Equal(t, "M1", dashboard.RealTimeStatus[0].MachineId)
	assert.Equal(t, 80.0, dashboard.RealTimeStatus[0].Efficiency)

	require.Len(t, dashboard.Alerts, 1)
	alert := dashboard.Alerts[0]
	assert.True(t, alert.IsAcknowledged)
	assert.True(t, alert.IsResolved)
	assert.Equal(t, "fixed calibration", alert.ResolutionNotes)
	assert.Equal(t, models.AlertStateResolved, alert.State())
}
