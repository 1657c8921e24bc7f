// Package billing wraps Stripe checkout, the customer portal and subscription
// webhooks around a small customer/subscription store.
package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotLoggedIn    = errors.New("You must be logged in to subscribe")
	ErrNoCustomer     = errors.New("No subscription found. Please subscribe first.")
	ErrCheckoutFailed = errors.New("Failed to create checkout session")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrNoSignature    = errors.New("No signature provided")
)

// Customer maps an authenticated user to a Stripe customer.
type Customer struct {
	UserID           string    `json:"user_id"`
	StripeCustomerID string    `json:"stripe_customer_id"`
	Email            string    `json:"email,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Subscription is one row of the basemap_subscriptions view.
type Subscription struct {
	ID                 string    `json:"subscription_id"`
	UserID             string    `json:"user_id,omitempty"`
	CustomerID         string    `json:"customer_id"`
	Status             string    `json:"status"`
	PriceID            string    `json:"price_id,omitempty"`
	ProductID          string    `json:"product_id,omitempty"`
	ProductName        string    `json:"product_name,omitempty"`
	PriceCents         int64     `json:"price_cents"`
	Currency           string    `json:"currency,omitempty"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
}

// Active reports whether the subscription grants access.
func (s *Subscription) Active() bool {
	return s != nil && (s.Status == "active" || s.Status == "trialing")
}

// Store persists customers and mirrored subscriptions.
// Lookups return zero values, not errors, when nothing is stored.
type Store interface {
	UpsertCustomer(ctx context.Context, c Customer) error
	CustomerID(ctx context.Context, userID string) (string, error)
	ActiveSubscription(ctx context.Context, userID string) (*Subscription, error)
	UpsertSubscription(ctx context.Context, s Subscription) error
}

// CheckoutRequest is what a subscription checkout session is created from.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	ProductID  string
	UserID     string
	UserEmail  string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment backend.
type Provider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// ValidUserID reports whether id is a UUID, the shape of Supabase user ids.
func ValidUserID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}
