package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"basemap/internal/analysis"
	"basemap/internal/export"
)

type analysisRequest struct {
	APIKey string          `json:"apiKey"`
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"schema"`
}

// AnalysisHandler: POST /api/analysis {apiKey, prompt?, schema}
func AnalysisHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analysisRequest
		if !bindJSON(c, &req) {
			return
		}
		start := time.Now()
		text, err := s.Analyzer.Analyze(c.Request.Context(), req.APIKey, req.Prompt, req.Schema)
		if err != nil {
			abortAnalysis(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"analysis":  text,
			"elapsedMs": time.Since(start).Milliseconds(),
		})
	}
}

type analysisExportRequest struct {
	Analysis string `json:"analysis"`
}

// AnalysisExportHandler: POST /api/analysis/export, the text as a Markdown download.
func AnalysisExportHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analysisExportRequest
		if !bindJSON(c, &req) {
			return
		}
		if strings.TrimSpace(req.Analysis) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "analysis is required"})
			return
		}
		attachment(c, export.AnalysisFilename(s.now()), export.MarkdownContentType, []byte(req.Analysis))
	}
}

// abortAnalysis surfaces the provider's message, which is what users act on.
func abortAnalysis(c *gin.Context, err error) {
	if errors.Is(err, analysis.ErrNoSchema) || errors.Is(err, analysis.ErrNoAPIKey) {
		abortWithError(c, err)
		return
	}
	_ = c.Error(err)
	msg := err.Error()
	if msg == "" {
		msg = analysis.ErrFailed.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": msg})
}
