package models_test

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryEfficiency(t *testing.T) {
	cases := []struct {
		name                        string
		run, idle, breakdown, setup int
		want                        float64
	}{
		{"no tracked time", 0, 0, 0, 0, 0},
		{"all running", 480, 0, 0, 0, 100},
		{"three quarters", 360, 60, 30, 30, 75},
		{"rounded to two places", 100, 200, 0, 0, 33.33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, models.SummaryEfficiency(tc.run, tc.idle, tc.breakdown, tc.setup))
		})
	}
}

func TestSummaryCostPerUnit(t *testing.T) {
	assert.True(t, models.SummaryCostPerUnit(decimal.NewFromInt(1000), 0).IsZero())
	assert.Equal(t, "333.3333", models.SummaryCostPerUnit(decimal.NewFromInt(1000), 3).String())
	assert.Equal(t, "12.5", models.SummaryCostPerUnit(decimal.NewFromInt(250), 20).String())
}

func TestGetDailySummaryWithoutDashboardIsEmpty(t *testing.T) {
	setupStore(t)

	summaries, err := models.GetDailySummary(context.Background(), "NEW_CO", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestAddDailySummaryRequiresDashboard(t *testing.T) {
	setupStore(t)

	_, err := models.AddDailySummary(context.Background(), "NEW_CO", &models.NewDailySummary{MachineId: "M1"})
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestAddDailySummaryDerivesFields(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")

	dashboard, err := models.AddDailySummary(context.Background(), "ACME", &models.NewDailySummary{
		MachineId:            "M1",
		Shift:                models.ShiftNight,
		QualityGrade:         models.QualityGradeB,
		CompletedQuantity:    40,
		RunTimeMinutes:       360,
		IdleTimeMinutes:      60,
		BreakdownTimeMinutes: 30,
		SetupTimeMinutes:     30,
		MaterialCost:         decimal.NewFromInt(600),
		LaborCost:            decimal.NewFromInt(250),
		MachineCost:          decimal.NewFromInt(100),
		OverheadCost:         decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	require.Len(t, dashboard.DailySummary, 1)
	summary := dashboard.DailySummary[0]
	assert.Equal(t, 75.0, summary.Efficiency)
	assert.True(t, summary.TotalCost.Equal(decimal.NewFromInt(1000)), summary.TotalCost.String())
	assert.True(t, summary.CostPerUnit.Equal(decimal.NewFromInt(25)), summary.CostPerUnit.String())
	assert.Equal(t, models.QualityGradeB, summary.QualityGrade)
}

func TestAddDailySummaryIgnoresCallerDateByDefault(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")

	old := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	before := time.Now().UTC().Add(-time.Second)
	dashboard, err := models.AddDailySummary(context.Background(), "ACME", &models.NewDailySummary{
		MachineId: "M1",
		Date:      &old,
	})
	require.NoError(t, err)

	require.Len(t, dashboard.DailySummary, 1)
	assert.True(t, dashboard.DailySummary[0].Date.After(before))
}

func TestAddDailySummaryIsAppendOnly(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")
	ctx := context.Background()

	first, err := models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", Shift: models.ShiftDay, TotalOrders: 3})
	require.NoError(t, err)
	original := *first.DailySummary[0]

	for i := 0; i < 3; i++ {
		// same machine and shift again; duplicates are kept
		_, err := models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", Shift: models.ShiftDay, TotalOrders: 10 + i})
		require.NoError(t, err)
	}

	dashboard, err := models.FindDashboardByCompany(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, dashboard.DailySummary, 4)
	assert.Equal(t, original.ID, dashboard.DailySummary[0].ID)
	assert.Equal(t, 3, dashboard.DailySummary[0].TotalOrders)
}

func TestGetDailySummaryFiltersByUTCDay(t *testing.T) {
	setupStore(t)
	t.Setenv("DAILY_SUMMARY_ALLOW_BACKFILL", "true")
	createDashboard(t, "ACME")
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		d := d
		_, err := models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", Date: &d})
		require.NoError(t, err)
	}

	summaries, err := models.GetDailySummary(ctx, "ACME", time.Date(2024, 1, 15, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].Date.Equal(dates[1]))
	assert.True(t, summaries[1].Date.Equal(dates[2]))

	summaries, err = models.GetDailySummary(ctx, "ACME", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Date.Equal(dates[3]))

	summaries, err = models.GetDailySummary(ctx, "ACME", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAddDailySummaryValidation(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")
	ctx := context.Background()

	_, err := models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{})
	assert.True(t, utils.IsValidationError(err))

	_, err = models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", QualityGrade: "E"})
	assert.True(t, utils.IsValidationError(err))

	_, err = models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", LaborCost: decimal.NewFromInt(-5)})
	assert.True(t, utils.IsValidationError(err))

	_, err = models.AddDailySummary(ctx, "ACME", &models.NewDailySummary{MachineId: "M1", RunTimeMinutes: -1})
	assert.True(t, utils.IsValidationError(err))
}

func TestRecomputeDailySummaries(t *testing.T) {
	setupStore(t)
	createDashboard(t, "ACME")
	ctx := context.Background()

	day := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	stale := models.DailySummary{
		CompanyId:         "ACME",
		Date:              day,
		MachineId:         "M1",
		CompletedQuantity: 4,
		RunTimeMinutes:    300,
		IdleTimeMinutes:   100,
		MaterialCost:      decimal.NewFromInt(80),
		LaborCost:         decimal.NewFromInt(20),
		TotalCost:         decimal.NewFromInt(1),
		CostPerUnit:       decimal.NewFromInt(1),
	}
	require.NoError(t, config.GetDB().Create(&stale).Error)
	outside := stale
	outside.ID = 0
	outside.Date = day.AddDate(0, 0, 3)
	require.NoError(t, config.GetDB().Create(&outside).Error)

	changed, err := models.RecomputeDailySummaries(ctx, "ACME", day, day, true)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	var reloaded models.DailySummary
	require.NoError(t, config.GetDB().First(&reloaded, stale.ID).Error)
	assert.True(t, decimal.NewFromInt(1).Equal(reloaded.TotalCost), reloaded.TotalCost.String())

	changed, err = models.RecomputeDailySummaries(ctx, "ACME", day, day, false)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.NoError(t, config.GetDB().First(&reloaded, stale.ID).Error)
	assert.True(t, decimal.NewFromInt(100).Equal(reloaded.TotalCost), reloaded.TotalCost.String())
	assert.True(t, decimal.NewFromInt(25).Equal(reloaded.CostPerUnit), reloaded.CostPerUnit.String())
	assert.Equal(t, 75.0, reloaded.Efficiency)

	changed, err = models.RecomputeDailySummaries(ctx, "", day, day.AddDate(0, 0, 7), false)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = models.RecomputeDailySummaries(ctx, "", day, day.AddDate(0, 0, 7), false)
	require.NoError(t, err)
	assert.Zero(t, changed)

	_, err = models.RecomputeDailySummaries(ctx, "ACME", day, day.AddDate(0, 0, -1), false)
	assert.True(t, utils.IsValidationError(err))
}
