package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/contradict"
	"github.com/soundprediction/contradict/pkg/server/dto"
)

// ContradictionsHandler serves analysis and model cache requests.
type ContradictionsHandler struct {
	analyzer contradict.Analyzer
}

// NewContradictionsHandler creates a new contradictions handler
func NewContradictionsHandler(a contradict.Analyzer) *ContradictionsHandler {
	return &ContradictionsHandler{analyzer: a}
}

func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

func (h *ContradictionsHandler) ready(c *gin.Context) bool {
	if h.analyzer == nil {
		writeError(c, http.StatusServiceUnavailable, "unavailable", "analyzer not initialized")
		return false
	}
	return true
}

// Analyze handles POST /api/v1/contradictions. Analysis failures are reported in the
// result body with status 200; only malformed requests are rejected.
func (h *ContradictionsHandler) Analyze(c *gin.Context) {
	var req dto.ContradictionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !h.ready(c) {
		return
	}

	result := h.analyzer.Analyze(c.Request.Context(), req.Text, req.Options())
	c.JSON(http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache
func (h *ContradictionsHandler) CacheStats(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: h.analyzer.CacheStats()})
}

// ClearCache handles DELETE /api/v1/cache. It waits for in-flight analyses.
func (h *ContradictionsHandler) ClearCache(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.analyzer.ClearCache(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, "cache_clear_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: h.analyzer.CacheStats()})
}
