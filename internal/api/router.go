// Package api exposes the daemon's HTTP and WebSocket surface: the current
// snapshot, daemon status, alert rule management, Prometheus metrics, and a
// push channel for UI clients.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all routes onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware())

	api := r.Group("/api/v1")
	{
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/status", h.GetStatus)

		api.GET("/alerts", h.ListAlertRules)
		api.PUT("/alerts", h.PutAlertRule)
		api.GET("/alerts/:sensor", h.GetAlertRule)
		api.DELETE("/alerts/:sensor", h.DeleteAlertRule)

		api.GET("/ws", h.ServeWS)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
