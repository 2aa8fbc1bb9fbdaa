package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/sanitize"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"codeberg.org/mutker/hwmond/internal/store"
)

// StatusSource reports whether the sensor feed is currently attached.
type StatusSource interface {
	Available() bool
}

// Handler serves the REST endpoints from the daemon's live state.
type Handler struct {
	store     *store.Store
	sanitizer *sanitize.Sanitizer
	engine    *alert.Engine
	source    StatusSource
	hub       *Hub
}

func NewHandler(st *store.Store, san *sanitize.Sanitizer, engine *alert.Engine, source StatusSource, hub *Hub) *Handler {
	return &Handler{store: st, sanitizer: san, engine: engine, source: source, hub: hub}
}

type snapshotResponse struct {
	SampledAt *time.Time      `json:"sampled_at,omitempty"`
	Hardware  sensor.Snapshot `json:"hardware"`
}

type statusResponse struct {
	BridgeAvailable  bool       `json:"bridge_available"`
	LastPublished    *time.Time `json:"last_published,omitempty"`
	CorrectionFactor *float64   `json:"correction_factor,omitempty"`
	Rules            int        `json:"rules"`
}

type ruleRequest struct {
	Sensor string   `json:"sensor" binding:"required"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Sound  *bool    `json:"sound"`
	Notify *bool    `json:"notify"`
}

// GetSnapshot returns the most recent published snapshot. Before the feed
// delivers its first reading the hardware list is empty, not an error.
func (h *Handler) GetSnapshot(c *gin.Context) {
	resp := snapshotResponse{Hardware: h.store.Current()}
	if at := h.store.LastPublished(); !at.IsZero() {
		resp.SampledAt = &at
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetStatus(c *gin.Context) {
	resp := statusResponse{
		BridgeAvailable: h.source.Available(),
		Rules:           len(h.engine.Rules()),
	}
	if at := h.store.LastPublished(); !at.IsZero() {
		resp.LastPublished = &at
	}
	if factor, ok := h.sanitizer.Factor(); ok {
		resp.CorrectionFactor = &factor
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListAlertRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Rules())
}

func (h *Handler) GetAlertRule(c *gin.Context) {
	name := c.Param("sensor")
	rule, ok := h.engine.Rule(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No alert rule for sensor"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// PutAlertRule creates or replaces the rule for a sensor name.
func (h *Handler) PutAlertRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := alert.NewRule(req.Sensor, req.Min, req.Max, req.Sound, req.Notify)
	if err := h.engine.SetRule(rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Info().Msgf("Alert rule updated: %s", rule.Sensor)
	c.JSON(http.StatusOK, rule)
}

// DeleteAlertRule removes a rule. Deleting an absent rule is not an error.
func (h *Handler) DeleteAlertRule(c *gin.Context) {
	name := c.Param("sensor")
	h.engine.RemoveRule(name)
	logger.Info().Msgf("Alert rule removed: %s", name)
	c.Status(http.StatusNoContent)
}

// ServeWS upgrades the request and hands the connection to the hub.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Msgf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.add(conn)
}
