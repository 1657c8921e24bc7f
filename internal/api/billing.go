package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"basemap/internal/auth"
	"basemap/internal/billing"
)

// upper bound for a Stripe event payload
const maxWebhookBody = 1 << 20

func currentUser(c *gin.Context) (auth.User, bool) {
	u, ok := auth.UserFrom(c)
	if !ok || u.ID == "" {
		abortWithError(c, billing.ErrNotLoggedIn)
		return auth.User{}, false
	}
	return u, true
}

// CheckoutHandler: POST /api/billing/checkout, redirects to Stripe.
func CheckoutHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		url, err := s.Billing.Checkout(c.Request.Context(), u.ID, u.Email)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, url)
	}
}

// PortalHandler: POST /api/billing/portal
func PortalHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		url, err := s.Billing.Portal(c.Request.Context(), u.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, url)
	}
}

// SubscriptionHandler: GET /api/billing/subscription, {"subscription": null} when none.
func SubscriptionHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscription": s.Billing.Status(c.Request.Context(), u.ID)})
	}
}

// CustomerHandler: GET /api/billing/customer
func CustomerHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasCustomer": s.Billing.HasCustomer(c.Request.Context(), u.ID)})
	}
}

// WebhookHandler: POST /api/stripe/webhook. Verified events always get 200 so
// Stripe does not redeliver them; failures are reported in the body.
func WebhookHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook Error: " + err.Error()})
			return
		}

		ev, err := s.Billing.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if !errors.Is(err, billing.ErrNoSignature) {
				s.Log.Error("Webhook signature verification failed", zap.Error(err))
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.Billing.HandleEvent(c.Request.Context(), ev); err != nil {
			s.Log.Error("Error processing webhook", zap.String("type", string(ev.Type)), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"received": true, "error": "Processing error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
