package handlers

import (
	"errors"
	"io"
	"net/http"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/gin-gonic/gin"
)

const moduleName = "ProductionDashboardHandler"

// Response is the envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondFail(c *gin.Context, status int, message string, err error) {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// respondError maps access-layer errors onto HTTP statuses.
func respondError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		respondFail(c, http.StatusNotFound, "production dashboard record not found", err)
	case errors.Is(err, utils.ErrorAlreadyExists):
		respondFail(c, http.StatusBadRequest, "production dashboard already exists", err)
	case utils.IsValidationError(err):
		respondFail(c, http.StatusBadRequest, "validation failed", err)
	case errors.Is(err, utils.ErrorForbidden):
		respondFail(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, utils.ErrorLockNotObtained):
		respondFail(c, http.StatusConflict, "another request is in progress", err)
	default:
		config.LogError(config.GetLogger(), moduleName, funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		_ = c.Error(err)
		respondFail(c, http.StatusInternalServerError, "internal server error", err)
	}
}

// bindOptionalJSON treats an empty body as an empty patch.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		respondFail(c, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func companyFromContext(c *gin.Context) (string, bool) {
	companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context())
	if !ok || companyId == "" {
		respondFail(c, http.StatusUnauthorized, "unauthorized", errors.New("company is not set for this session"))
		return "", false
	}
	return companyId, true
}

func userFromContext(c *gin.Context) string {
	if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok && userId != "" {
		return userId
	}
	username, _ := utils.GetUsernameFromContext(c.Request.Context())
	return username
}
