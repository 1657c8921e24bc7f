package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basemap/internal/analysis"
	"basemap/internal/schema"
)

// ===== META HANDLERS =====

type metaResponse struct {
	LinkFieldTypes    []string `json:"linkFieldTypes"`
	RelationshipTypes []string `json:"relationshipTypes"`
	DefaultPrompt     string   `json:"defaultPrompt"`
	GeminiModel       string   `json:"geminiModel"`
	Billing           bool     `json:"billing"`
	Auth              bool     `json:"auth"`
}

// MetaHandler tells clients what this server supports.
func MetaHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metaResponse{
			LinkFieldTypes: []string{schema.FieldTypeMultipleRecordLinks},
			RelationshipTypes: []string{
				string(schema.OneToOne), string(schema.OneToMany), string(schema.ManyToOne),
			},
			DefaultPrompt: analysis.DefaultPrompt,
			GeminiModel:   s.GeminiModel,
			Billing:       s.Billing != nil,
			Auth:          s.Auth != nil,
		})
	}
}
