package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/gin-gonic/gin"
)

type alertOutboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// RegisterOpsRoutes mounts admin-only tooling.
func RegisterOpsRoutes(r gin.IRouter) {
	// replay alert events that were marked DEAD/FAILED
	r.POST("/internal/ops/alert-outbox/replay", alertOutboxReplayHandler)
}

func alertOutboxReplayHandler(c *gin.Context) {
	if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session"))
		return
	}

	var req alertOutboxReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.RecordId <= 0 {
		respondError(c, "alertOutboxReplayHandler", utils.NewValidationError("record_id", "required"))
		return
	}

	record, err := models.ReplayAlertEvent(c.Request.Context(), req.RecordId)
	if err != nil {
		respondError(c, "alertOutboxReplayHandler", err)
		return
	}
	respondOK(c, http.StatusOK, "alert event re-queued", record)
}
