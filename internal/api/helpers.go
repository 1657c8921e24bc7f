package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"basemap/internal/airtable"
	"basemap/internal/analysis"
	"basemap/internal/billing"
)

// bindJSON decodes the body or answers 400 {"error":"Invalid JSON"}.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON", "details": err.Error()})
		return false
	}
	return true
}

// abortWithError maps domain errors onto status codes. The sentinel message goes
// under "error", a wrapped cause under "details".
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, msg := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, airtable.ErrCredentialsRequired),
		errors.Is(err, airtable.ErrInvalidToken),
		errors.Is(err, airtable.ErrInsufficientPermissions),
		errors.Is(err, airtable.ErrBaseNotFound),
		errors.Is(err, airtable.ErrFetchFailed):
		status, msg = airtable.StatusCode(err), sentinelMessage(err)
	case errors.Is(err, analysis.ErrNoSchema), errors.Is(err, analysis.ErrNoAPIKey):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, billing.ErrNotLoggedIn):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, billing.ErrInvalidUserID):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, billing.ErrNoCustomer):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, billing.ErrCheckoutFailed):
		status, msg = http.StatusBadGateway, err.Error()
	}
	if msg != "" {
		body := gin.H{"error": msg}
		if err.Error() != msg {
			body["details"] = err.Error()
		}
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": "Unexpected error", "details": err.Error()})
}

// sentinelMessage strips wrapping so only the user-facing message is returned.
func sentinelMessage(err error) string {
	for _, s := range []error{
		airtable.ErrCredentialsRequired, airtable.ErrInvalidToken,
		airtable.ErrInsufficientPermissions, airtable.ErrBaseNotFound, airtable.ErrFetchFailed,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func trimAll(vals ...*string) {
	for _, v := range vals {
		*v = strings.TrimSpace(*v)
	}
}
