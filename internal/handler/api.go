package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authenticity-survey/internal/middleware"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// maxSaveBody caps POST /save bodies. A session is a few KB; the cap leaves room for
// whole-collection replacements.
const maxSaveBody = 8 << 20

// Handler handles HTTP requests
type Handler struct {
	submissions *service.Submissions
	limiter     *middleware.RateLimiter
	logger      *zap.Logger
	maxBody     int64
}

// NewHandler creates a new API handler. A nil limiter disables rate limiting on writes.
func NewHandler(submissions *service.Submissions, limiter *middleware.RateLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		submissions: submissions,
		limiter:     limiter,
		logger:      logger,
		maxBody:     maxSaveBody,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	save := []gin.HandlerFunc{h.Save}
	if h.limiter != nil {
		save = append([]gin.HandlerFunc{middleware.RateLimit(h.limiter, 2*time.Second, h.logger)}, save...)
	}

	// Store contract
	r.GET("/data", h.GetAll)
	r.GET("/data/:key", h.GetByKey)
	r.POST("/save", save...)

	api := r.Group("/api/v1")
	{
		api.GET("/stats", h.GetStats)
		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// Save stores one record ({key, payload}) or replaces the collection (JSON array)
// POST /save
func (h *Handler) Save(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		h.replaceAll(c, trimmed)
		return
	}

	var record models.SubmissionRecord
	if err := binding.JSON.BindBody(trimmed, &record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.submissions.Save(c.Request.Context(), record); err != nil {
		h.respondError(c, "Failed to save submission", err)
		return
	}

	c.JSON(http.StatusOK, models.Ack{Status: "saved", Key: record.Key})
}

func (h *Handler) replaceAll(c *gin.Context, body []byte) {
	var records []models.SubmissionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.submissions.ReplaceAll(c.Request.Context(), records); err != nil {
		h.respondError(c, "Failed to replace submissions", err)
		return
	}

	c.JSON(http.StatusOK, models.Ack{Status: "replaced", Total: len(records)})
}

// GetAll returns all records
// GET /data
func (h *Handler) GetAll(c *gin.Context) {
	records, err := h.submissions.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get submissions", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetByKey returns one record
// GET /data/:key
func (h *Handler) GetByKey(c *gin.Context) {
	key := c.Param("key")

	record, err := h.submissions.GetByKey(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, "Failed to get submission", err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetStats returns submission statistics
// GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.submissions.GetStats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportCSV writes one row per judgment
// GET /api/v1/export/csv
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.submissions.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to export CSV", err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=submissions.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"key", "item_id", "confidence", "ai_tags", "real_tags"})

	for _, rec := range records {
		payload, err := service.DecodePayload(string(rec.Payload))
		if err != nil {
			h.logger.Warn("Skipping unreadable payload in export", zap.String("key", string(rec.Key)))
			continue
		}
		for _, j := range payload.Judgments {
			writer.Write([]string{
				string(rec.Key),
				strconv.Itoa(int(j.ItemID)),
				strconv.Itoa(j.Confidence),
				joinTags(j.AITags),
				joinTags(j.RealTags),
			})
		}
	}
}

// ExportJSON exports all records as a downloadable file
// GET /api/v1/export/json
func (h *Handler) ExportJSON(c *gin.Context) {
	records, err := h.submissions.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to export JSON", err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=submissions.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(records)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "submission-store",
		"version": "1.0.0",
	})
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	if errors.Is(err, service.ErrInvalidRecord) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": strings.ToLower(msg)})
}

func joinTags(tags []models.ReasonTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ";")
}
