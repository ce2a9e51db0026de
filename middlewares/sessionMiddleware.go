package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/gin-gonic/gin"
)

// Session is what the login service stores under Session:<token>.
type Session struct {
	CompanyId string `json:"company_id"`
	UserId    string `json:"user_id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
}

func SessionKey(token string) string {
	return "Session:" + token
}

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		var session Session
		exists, err := config.GetRedisObject(SessionKey(token), &session)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetCompanyIdInContext(ctx, session.CompanyId)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		ctx = utils.SetUsernameInContext(ctx, session.Username)
		ctx = utils.SetIsAdminInContext(ctx, session.IsAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
