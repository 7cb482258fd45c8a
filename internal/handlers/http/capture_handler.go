package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"
	"screenpipe/internal/core/services"
	"screenpipe/internal/infrastructure/monitoring"
	"screenpipe/pkg/config"
	apperrors "screenpipe/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CaptureHandler struct {
	controller ports.SessionController
	monitor    *services.PerformanceMonitor
	cfg        *config.Config
	logger     *zap.SugaredLogger
}

func NewCaptureHandler(
	controller ports.SessionController,
	monitor *services.PerformanceMonitor,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *CaptureHandler {
	return &CaptureHandler{
		controller: controller,
		monitor:    monitor,
		cfg:        cfg,
		logger:     logger,
	}
}

func (h *CaptureHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/captures", h.CreateCapture)
		api.POST("/recordings", h.StartRecording)
		api.DELETE("/recordings/current", h.StopRecording)
		api.POST("/recordings/current/pause", h.PauseRecording)
		api.POST("/recordings/current/resume", h.ResumeRecording)
		api.GET("/status", h.GetStatus)
		api.GET("/report", h.GetReport)
	}
}

func (h *CaptureHandler) CreateCapture(c *gin.Context) {
	var req struct {
		Tier         string  `json:"tier"`
		DisplayIndex int     `json:"display_index" binding:"min=0"`
		ScaleFactor  float64 `json:"scale_factor"`
		DPI          float64 `json:"dpi"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.controller.Capture(c.Request.Context(), domain.CaptureRequest{
		Tier:         h.tier(req.Tier),
		DisplayIndex: req.DisplayIndex,
		ScaleFactor:  firstNonZero(req.ScaleFactor, h.cfg.Still.ScaleFactor),
		DPI:          firstNonZero(req.DPI, h.cfg.Still.DPI),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CaptureHandler) StartRecording(c *gin.Context) {
	var req struct {
		Tier         string `json:"tier"`
		DisplayIndex int    `json:"display_index" binding:"min=0"`
		IncludeAudio *bool  `json:"include_audio"`
		Destination  string `json:"destination"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	includeAudio := h.cfg.Capture.IncludeAudio
	if req.IncludeAudio != nil {
		includeAudio = *req.IncludeAudio
	}

	destination := req.Destination
	if destination == "" {
		destination = filepath.Join(h.cfg.Capture.OutputDir,
			fmt.Sprintf("recording-%s.mp4", time.Now().Format("20060102-150405")))
	}

	id, err := h.controller.StartRecording(c.Request.Context(), destination, domain.RecordingOptions{
		Tier:         h.tier(req.Tier),
		DisplayIndex: req.DisplayIndex,
		IncludeAudio: includeAudio,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"session_id":  id,
		"destination": destination,
	})
}

func (h *CaptureHandler) StopRecording(c *gin.Context) {
	optimize, _ := strconv.ParseBool(c.DefaultQuery("optimize", "false"))

	result, err := h.controller.StopRecording(c.Request.Context(), optimize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CaptureHandler) PauseRecording(c *gin.Context) {
	if err := h.controller.PauseRecording(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.controller.Status())
}

func (h *CaptureHandler) ResumeRecording(c *gin.Context) {
	if err := h.controller.ResumeRecording(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.controller.Status())
}

func (h *CaptureHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Status())
}

func (h *CaptureHandler) GetReport(c *gin.Context) {
	system, err := monitoring.CollectSystemSnapshot(c.Request.Context())
	if err != nil {
		h.logger.Warnw("system snapshot failed", "error", err)
	}

	response := gin.H{
		"report": h.monitor.GenerateReport(),
		"system": system,
	}
	if include, _ := strconv.ParseBool(c.Query("include_history")); include {
		response["history"] = h.monitor.History()
	}
	c.JSON(http.StatusOK, response)
}

func (h *CaptureHandler) tier(tier string) domain.QualityTier {
	if tier == "" {
		tier = h.cfg.Capture.DefaultTier
	}
	return domain.QualityTier(tier)
}

func (h *CaptureHandler) respondError(c *gin.Context, err error) {
	appErr := apperrors.FromDomain(err)
	h.logger.Warnw("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"code", appErr.Code,
		"error", err,
	)
	c.JSON(appErr.HTTPStatus, gin.H{
		"code":  appErr.Code,
		"error": appErr.Message,
	})
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
