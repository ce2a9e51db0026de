package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("production-dashboard")

const (
	moduleName = "ProductionDashboard"

	dashboardCreateLock = "ProductionDashboardCreate"
)

// ProductionDashboard is the per-company root row. The embedded collections live in their
// own tables keyed by (company_id, entity id) and are assembled into a Dashboard on read.
type ProductionDashboard struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	CompanyId          string             `gorm:"size:64;not null;uniqueIndex" json:"company_id"`
	CreatedBy          string             `gorm:"size:64" json:"created_by"`
	PerformanceMetrics PerformanceMetrics `gorm:"embedded;embeddedPrefix:metrics_" json:"performance_metrics"`
	DashboardConfig    DashboardConfig    `gorm:"embedded;embeddedPrefix:config_" json:"dashboard_config"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// Dashboard is the aggregate document handed to callers.
type Dashboard struct {
	ProductionDashboard
	RealTimeStatus []*MachineStatus         `json:"real_time_status"`
	DailySummary   []*DailySummary          `json:"daily_summary"`
	PrintingStatus []*PrintingMachineStatus `json:"printing_status"`
	Alerts         []*Alert                 `json:"alerts"`
}

type NewProductionDashboard struct {
	PerformanceMetrics *PerformanceMetricsInput `json:"performance_metrics"`
	DashboardConfig    *DashboardConfigInput    `json:"dashboard_config"`
}

func (input *NewProductionDashboard) validate() error {
	if input == nil {
		return nil
	}
	if input.PerformanceMetrics != nil {
		if err := input.PerformanceMetrics.validate(); err != nil {
			return err
		}
	}
	if input.DashboardConfig != nil {
		if err := utils.ValidateStruct(input.DashboardConfig); err != nil {
			return err
		}
	}
	return nil
}

func requireCompanyId(companyId string) error {
	if strings.TrimSpace(companyId) == "" {
		return errors.New("company id is required")
	}
	return nil
}

// fetchDashboardRow returns the most recently updated root row for the company.
// (may return RecordNotFound)
func fetchDashboardRow(ctx context.Context, tx *gorm.DB, companyId string) (*ProductionDashboard, error) {
	var row ProductionDashboard
	err := tx.WithContext(ctx).
		Where("company_id = ?", companyId).
		Order("updated_at DESC").Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// every mutation except create requires the root row
func requireDashboard(ctx context.Context, tx *gorm.DB, companyId string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&ProductionDashboard{}).
		Where("company_id = ?", companyId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func loadDashboard(ctx context.Context, tx *gorm.DB, companyId string) (*Dashboard, error) {
	row, err := fetchDashboardRow(ctx, tx, companyId)
	if err != nil {
		return nil, err
	}
	dashboard := Dashboard{
		ProductionDashboard: *row,
		RealTimeStatus:      []*MachineStatus{},
		DailySummary:        []*DailySummary{},
		PrintingStatus:      []*PrintingMachineStatus{},
		Alerts:              []*Alert{},
	}
	dbCtx := tx.WithContext(ctx)
	if err := dbCtx.Where("company_id = ?", companyId).Order("id").Find(&dashboard.RealTimeStatus).Error; err != nil {
		return nil, err
	}
	if err := dbCtx.Where("company_id = ?", companyId).Order("date").Order("id").Find(&dashboard.DailySummary).Error; err != nil {
		return nil, err
	}
	if err := dbCtx.Where("company_id = ?", companyId).Order("id").Find(&dashboard.PrintingStatus).Error; err != nil {
		return nil, err
	}
	if err := dbCtx.Where("company_id = ?", companyId).Order("seq").Find(&dashboard.Alerts).Error; err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// FindDashboardByCompany assembles the company's aggregate.
// (may return RecordNotFound)
func FindDashboardByCompany(ctx context.Context, companyId string) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "FindDashboardByCompany")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	return loadDashboard(ctx, config.GetDB(), companyId)
}

func CreateDashboard(ctx context.Context, companyId string, input *NewProductionDashboard, creatorId string) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "CreateDashboard")
	defer span.End()

	if err := requireCompanyId(companyId); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	release, err := utils.CompanyLock(ctx, companyId, dashboardCreateLock, moduleName, "CreateDashboard")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	if _, err := fetchDashboardRow(ctx, db, companyId); err == nil {
		return nil, utils.ErrorAlreadyExists
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	row := ProductionDashboard{
		CompanyId:       companyId,
		CreatedBy:       creatorId,
		DashboardConfig: defaultDashboardConfig(),
	}
	row.PerformanceMetrics.LastUpdated = &now
	if input != nil {
		input.PerformanceMetrics.apply(&row.PerformanceMetrics)
		input.DashboardConfig.apply(&row.DashboardConfig)
	}

	// db action
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, utils.ErrorAlreadyExists
		}
		config.LogError(config.GetLogger(), moduleName, "CreateDashboard", "create dashboard", companyId, err)
		return nil, err
	}

	return loadDashboard(ctx, db, companyId)
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	// sqlite
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
