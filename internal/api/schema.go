package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basemap/internal/export"
	"basemap/internal/schema"
)

type schemaRequest struct {
	PAT    string `json:"pat"`
	BaseID string `json:"baseId"`
	Filter string `json:"filter"`
}

// fetch loads the schema for the request body and applies its filter.
func (s *Server) fetch(c *gin.Context) (schemaRequest, schema.Schema, bool) {
	var req schemaRequest
	if !bindJSON(c, &req) {
		return req, schema.Schema{}, false
	}
	trimAll(&req.PAT, &req.BaseID)
	sch, err := s.Schemas.FetchSchema(c.Request.Context(), req.PAT, req.BaseID)
	if err != nil {
		abortWithError(c, err)
		return req, schema.Schema{}, false
	}
	return req, schema.Filter(sch, req.Filter), true
}

// SchemaHandler: POST /api/schema {pat, baseId, filter?}
func SchemaHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sch, ok := s.fetch(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, sch)
	}
}

// SchemaExportHandler: POST /api/schema/export, the schema as a JSON download.
func SchemaExportHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sch, ok := s.fetch(c)
		if !ok {
			return
		}
		body, err := export.JSON(sch)
		if err != nil {
			abortWithError(c, err)
			return
		}
		attachment(c, export.SchemaFilename(s.now()), export.JSONContentType, body)
	}
}
