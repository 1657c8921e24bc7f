// api/router.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"basemap/internal/analysis"
	"basemap/internal/auth"
	"basemap/internal/billing"
	"basemap/internal/logging"
	"basemap/internal/schema"
)

// SchemaFetcher loads a base's schema from Airtable.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context, pat, baseID string) (schema.Schema, error)
}

// Server holds what the handlers need. Billing and Auth are optional: without
// them the billing and login routes are not mounted.
type Server struct {
	Schemas  SchemaFetcher
	Analyzer *analysis.Analyzer
	Billing  *billing.Service
	Auth     *auth.Handlers
	Verifier auth.Verifier
	Log      *zap.Logger
	Now      func() time.Time

	GeminiModel string
}

func NewRouter(s *Server) *gin.Engine {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.Log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaHandler(s))

		apiGroup.POST("/schema", SchemaHandler(s))
		apiGroup.POST("/schema/export", SchemaExportHandler(s))
		apiGroup.POST("/schema/lint", SchemaLintHandler(s))

		apiGroup.POST("/analysis", AnalysisHandler(s))
		apiGroup.POST("/analysis/export", AnalysisExportHandler(s))
	}

	if s.Auth != nil {
		r.GET("/auth/login", s.Auth.LoginHandler)
		r.GET("/auth/oauth", s.Auth.OAuthHandler)
		r.GET("/auth/error", s.Auth.ErrorHandler)
		r.POST("/auth/logout", s.Auth.LogoutHandler)
	}

	if s.Billing != nil {
		// Stripe signs the raw body, no auth here
		apiGroup.POST("/stripe/webhook", WebhookHandler(s))

		if s.Verifier != nil {
			billingGroup := apiGroup.Group("/billing", auth.RequireUser(s.Verifier, s.Log))
			billingGroup.POST("/checkout", CheckoutHandler(s))
			billingGroup.POST("/portal", PortalHandler(s))
			billingGroup.GET("/subscription", SubscriptionHandler(s))
			billingGroup.GET("/customer", CustomerHandler(s))
		}
	}

	return r
}
