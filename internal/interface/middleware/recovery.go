package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/pkg/response"
)

// Recovery logs panics and answers with the generic 500 envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithFields(logrus.Fields{
					"panic":      rec,
					"request_id": c.GetString("request_id"),
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				response.Error(c, http.StatusInternalServerError, "Internal server error", nil)
			}
		}()
		c.Next()
	}
}
