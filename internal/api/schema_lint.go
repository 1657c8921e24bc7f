// api/schema_lint.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basemap/internal/schema"
)

type lintResponse struct {
	Issues []schema.Issue       `json:"issues"`
	Broken []schema.BrokenField `json:"broken"`
	Stats  schema.Stats         `json:"stats"`
}

// SchemaLintHandler: POST /api/schema/lint. The filter is ignored, issues are
// reported for the whole base.
func SchemaLintHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req schemaRequest
		if !bindJSON(c, &req) {
			return
		}
		trimAll(&req.PAT, &req.BaseID)
		sch, err := s.Schemas.FetchSchema(c.Request.Context(), req.PAT, req.BaseID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		resp := lintResponse{
			Issues: sch.Lint(),
			Broken: sch.BrokenFields(req.BaseID),
			Stats:  sch.Stats(),
		}
		if resp.Issues == nil {
			resp.Issues = []schema.Issue{}
		}
		if resp.Broken == nil {
			resp.Broken = []schema.BrokenField{}
		}
		c.JSON(http.StatusOK, resp)
	}
}
