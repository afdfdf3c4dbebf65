package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/pkg/response"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	Store  Pinger
	Logger *logrus.Logger
}

func NewHealthHandler(store Pinger, logger *logrus.Logger) *HealthHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthHandler{Store: store, Logger: logger}
}

func (h *HealthHandler) Live(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "alive")
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := h.Store.Ready(ctx); err != nil {
		h.Logger.WithError(err).Warn("readiness check failed")
		response.Error(c, http.StatusServiceUnavailable, "Store unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ready"}, "ready")
}
