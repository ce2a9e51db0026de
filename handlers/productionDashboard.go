package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/gin-gonic/gin"
)

// RegisterProductionDashboardRoutes mounts the dashboard API under /api/production-dashboard.
func RegisterProductionDashboardRoutes(r gin.IRouter) {
	g := r.Group("/api/production-dashboard")

	g.GET("", getDashboard)
	g.POST("", createDashboard)

	g.GET("/machine-status/:machineId", getMachineStatus)
	g.PUT("/machine-status/:machineId", updateMachineStatus)

	g.GET("/daily-summary", getDailySummary)
	g.POST("/daily-summary", addDailySummary)

	g.GET("/printing-status", getPrintingStatus)
	g.PUT("/printing-status/:machineId", updatePrintingStatus)

	g.GET("/alerts/active", getActiveAlerts)
	g.GET("/alerts", listAlerts)
	g.POST("/alerts", addAlert)
	g.PATCH("/alerts/:alertId/acknowledge", acknowledgeAlert)
	g.PATCH("/alerts/:alertId/resolve", resolveAlert)
	g.GET("/alerts/:alertId/events", listAlertEvents)

	g.GET("/performance-metrics", getPerformanceMetrics)
	g.PUT("/performance-metrics", updatePerformanceMetrics)

	g.GET("/dashboard-config", getDashboardConfig)
	g.PUT("/dashboard-config", updateDashboardConfig)
}

func getDashboard(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	dashboard, err := models.FindDashboardByCompany(c.Request.Context(), companyId)
	if err != nil {
		respondError(c, "getDashboard", err)
		return
	}
	respondOK(c, http.StatusOK, "production dashboard fetched", dashboard)
}

func createDashboard(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var input models.NewProductionDashboard
	if !bindOptionalJSON(c, &input) {
		return
	}
	dashboard, err := models.CreateDashboard(c.Request.Context(), companyId, &input, userFromContext(c))
	if err != nil {
		respondError(c, "createDashboard", err)
		return
	}
	respondOK(c, http.StatusCreated, "production dashboard created", dashboard)
}

func getMachineStatus(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	view, err := models.GetMachineStatus(c.Request.Context(), companyId, c.Param("machineId"))
	if err != nil {
		respondError(c, "getMachineStatus", err)
		return
	}
	respondOK(c, http.StatusOK, "machine status fetched", view)
}

func updateMachineStatus(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var patch models.MachineStatusPatch
	if !bindOptionalJSON(c, &patch) {
		return
	}
	dashboard, err := models.UpdateMachineStatus(c.Request.Context(), companyId, c.Param("machineId"), &patch)
	if err != nil {
		respondError(c, "updateMachineStatus", err)
		return
	}
	respondOK(c, http.StatusOK, "machine status updated", dashboard)
}

func getDailySummary(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	date, err := utils.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, "getDailySummary", err)
		return
	}
	summaries, err := models.GetDailySummary(c.Request.Context(), companyId, date)
	if err != nil {
		respondError(c, "getDailySummary", err)
		return
	}
	respondOK(c, http.StatusOK, "daily summary fetched", summaries)
}

func addDailySummary(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var input models.NewDailySummary
	if !bindOptionalJSON(c, &input) {
		return
	}
	dashboard, err := models.AddDailySummary(c.Request.Context(), companyId, &input)
	if err != nil {
		respondError(c, "addDailySummary", err)
		return
	}
	respondOK(c, http.StatusOK, "daily summary added", dashboard)
}

func getPrintingStatus(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	statuses, err := models.GetPrintingStatus(c.Request.Context(), companyId)
	if err != nil {
		respondError(c, "getPrintingStatus", err)
		return
	}
	respondOK(c, http.StatusOK, "printing status fetched", statuses)
}

func updatePrintingStatus(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var patch models.PrintingStatusPatch
	if !bindOptionalJSON(c, &patch) {
		return
	}
	dashboard, err := models.UpdatePrintingStatus(c.Request.Context(), companyId, c.Param("machineId"), &patch)
	if err != nil {
		respondError(c, "updatePrintingStatus", err)
		return
	}
	respondOK(c, http.StatusOK, "printing status updated", dashboard)
}

func getActiveAlerts(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	alerts, err := models.GetActiveAlerts(c.Request.Context(), companyId)
	if err != nil {
		respondError(c, "getActiveAlerts", err)
		return
	}
	respondOK(c, http.StatusOK, "active alerts fetched", alerts)
}

func listAlerts(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	includeResolved, _ := strconv.ParseBool(c.DefaultQuery("includeResolved", "false"))
	alerts, err := models.ListAlerts(c.Request.Context(), companyId, includeResolved)
	if err != nil {
		respondError(c, "listAlerts", err)
		return
	}
	respondOK(c, http.StatusOK, "alerts fetched", alerts)
}

func addAlert(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var input models.NewAlert
	if !bindOptionalJSON(c, &input) {
		return
	}
	dashboard, err := models.AddAlert(c.Request.Context(), companyId, &input)
	if err != nil {
		respondError(c, "addAlert", err)
		return
	}
	respondOK(c, http.StatusOK, "alert added", dashboard)
}

func acknowledgeAlert(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	dashboard, err := models.AcknowledgeAlert(c.Request.Context(), companyId, c.Param("alertId"), userFromContext(c))
	if err != nil {
		respondError(c, "acknowledgeAlert", err)
		return
	}
	respondOK(c, http.StatusOK, "alert acknowledged", dashboard)
}

type resolveAlertRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

func resolveAlert(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var req resolveAlertRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	dashboard, err := models.ResolveAlert(c.Request.Context(), companyId, c.Param("alertId"), userFromContext(c), req.ResolutionNotes)
	if err != nil {
		respondError(c, "resolveAlert", err)
		return
	}
	respondOK(c, http.StatusOK, "alert resolved", dashboard)
}

func listAlertEvents(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	events, err := models.ListAlertEvents(c.Request.Context(), companyId, c.Param("alertId"))
	if err != nil {
		respondError(c, "listAlertEvents", err)
		return
	}
	respondOK(c, http.StatusOK, "alert events fetched", events)
}

func getPerformanceMetrics(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	metrics, err := models.GetPerformanceMetrics(c.Request.Context(), companyId)
	if err != nil {
		respondError(c, "getPerformanceMetrics", err)
		return
	}
	respondOK(c, http.StatusOK, "performance metrics fetched", metrics)
}

func updatePerformanceMetrics(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var input models.PerformanceMetricsInput
	if !bindOptionalJSON(c, &input) {
		return
	}
	dashboard, err := models.UpdatePerformanceMetrics(c.Request.Context(), companyId, &input)
	if err != nil {
		respondError(c, "updatePerformanceMetrics", err)
		return
	}
	respondOK(c, http.StatusOK, "performance metrics updated", dashboard)
}

func getDashboardConfig(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	cfg, err := models.GetDashboardConfig(c.Request.Context(), companyId)
	if err != nil {
		respondError(c, "getDashboardConfig", err)
		return
	}
	respondOK(c, http.StatusOK, "dashboard config fetched", cfg)
}

func updateDashboardConfig(c *gin.Context) {
	companyId, ok := companyFromContext(c)
	if !ok {
		return
	}
	var input models.DashboardConfigInput
	if !bindOptionalJSON(c, &input) {
		return
	}
	dashboard, err := models.UpdateDashboardConfig(c.Request.Context(), companyId, &input)
	if err != nil {
		respondError(c, "updateDashboardConfig", err)
		return
	}
	respondOK(c, http.StatusOK, "dashboard config updated", dashboard)
}
