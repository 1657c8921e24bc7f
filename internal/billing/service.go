package billing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Service struct {
	Store    Store
	Provider Provider
	Log      *zap.Logger

	AppURL        string
	PriceID       string
	ProductID     string
	WebhookSecret string
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) url(path string) string {
	return strings.TrimRight(s.AppURL, "/") + path
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotLoggedIn
	}
	if !ValidUserID(userID) {
		return ErrInvalidUserID
	}
	return nil
}

// Checkout returns the URL the user should be sent to: a Stripe checkout session,
// or the customer portal when a subscription is already active.
func (s *Service) Checkout(ctx context.Context, userID, email string) (string, error) {
	if err := checkUser(userID); err != nil {
		return "", err
	}

	customerID, err := s.Store.CustomerID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup customer: %w", err)
	}
	if customerID == "" {
		customerID, err = s.Provider.CreateCustomer(ctx, email, userID)
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
		// the checkout webhook upserts the same row later
		if err := s.Store.UpsertCustomer(ctx, Customer{UserID: userID, StripeCustomerID: customerID, Email: email}); err != nil {
			s.log().Warn("failed to store customer mapping", zap.String("userId", userID), zap.Error(err))
		}
	}

	sub, err := s.Store.ActiveSubscription(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup subscription: %w", err)
	}
	if sub != nil && sub.Status == "active" {
		return s.Portal(ctx, userID)
	}

	url, err := s.Provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    s.PriceID,
		ProductID:  s.ProductID,
		UserID:     userID,
		UserEmail:  email,
		SuccessURL: s.url("/account?success=true&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  s.url("/account?canceled=true"),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if url == "" {
		return "", ErrCheckoutFailed
	}
	return url, nil
}

// Portal returns a billing portal URL for the user's stored customer.
func (s *Service) Portal(ctx context.Context, userID string) (string, error) {
	if err := checkUser(userID); err != nil {
		return "", err
	}
	customerID, err := s.Store.CustomerID(ctx, userID)
	if err != nil {
		s.log().Warn("customer lookup failed", zap.String("userId", userID), zap.Error(err))
		return "", ErrNoCustomer
	}
	if customerID == "" {
		return "", ErrNoCustomer
	}
	url, err := s.Provider.CreatePortalSession(ctx, customerID, s.url("/account?portal=true"))
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

// Status returns the user's active or trialing subscription, or nil.
// Lookup failures are logged and reported as no subscription.
func (s *Service) Status(ctx context.Context, userID string) *Subscription {
	if checkUser(userID) != nil {
		return nil
	}
	sub, err := s.Store.ActiveSubscription(ctx, userID)
	if err != nil {
		s.log().Error("Error fetching subscription", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	return sub
}

// HasCustomer reports whether a Stripe customer is stored for the user.
func (s *Service) HasCustomer(ctx context.Context, userID string) bool {
	if checkUser(userID) != nil {
		return false
	}
	id, err := s.Store.CustomerID(ctx, userID)
	if err != nil {
		s.log().Warn("customer lookup failed", zap.String("userId", userID), zap.Error(err))
		return false
	}
	return id != ""
}
