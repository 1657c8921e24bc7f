package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// VerifyEvent checks the Stripe-Signature header against the webhook secret.
// The payload is decoded loosely, so events from other API versions are accepted.
func (s *Service) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if strings.TrimSpace(signature) == "" {
		return stripe.Event{}, ErrNoSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("Webhook Error: %w", err)
	}
	return ev, nil
}

// HandleEvent applies a verified event. Events missing the data they need are
// logged and skipped, only storage failures are returned.
func (s *Service) HandleEvent(ctx context.Context, ev stripe.Event) error {
	log := s.log().With(zap.String("eventId", ev.ID), zap.String("type", string(ev.Type)))
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}

	switch ev.Type {
	case "checkout.session.completed":
		var cs checkoutSessionObject
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		userID := cs.Metadata["user_id"]
		customerID := cs.Customer.ID
		if userID == "" || customerID == "" {
			log.Error("Missing user_id or customer in checkout session")
			return nil
		}
		email := cs.Metadata["user_email"]
		if email == "" {
			email = cs.CustomerEmail
		}
		if err := s.Store.UpsertCustomer(ctx, Customer{UserID: userID, StripeCustomerID: customerID, Email: email}); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
		log.Info("linked user to Stripe customer", zap.String("userId", userID), zap.String("customerId", customerID))

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var so subscriptionObject
		if err := json.Unmarshal(raw, &so); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		sub := so.toSubscription()
		if sub.ID == "" || sub.CustomerID == "" {
			log.Error("Missing id or customer in subscription")
			return nil
		}
		if err := s.Store.UpsertSubscription(ctx, sub); err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		log.Info("subscription mirrored", zap.String("subscriptionId", sub.ID), zap.String("status", sub.Status))

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &inv)
		log.Info("invoice event", zap.String("invoiceId", inv.ID))

	default:
		log.Info("Unhandled event type")
	}
	return nil
}

// expandable decodes either a bare id or an expanded object with an id.
type expandable struct {
	ID   string
	Name string
}

func (e *expandable) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.ID)
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	e.ID, e.Name = obj.ID, obj.Name
	return nil
}

type checkoutSessionObject struct {
	Customer      expandable        `json:"customer"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionItem struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Price              struct {
		ID         string     `json:"id"`
		Product    expandable `json:"product"`
		UnitAmount int64      `json:"unit_amount"`
		Currency   string     `json:"currency"`
	} `json:"price"`
}

type subscriptionObject struct {
	ID                 string            `json:"id"`
	Customer           expandable        `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []subscriptionItem `json:"data"`
	} `json:"items"`
}

func unix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// Newer API versions carry the billing period on items instead of the subscription.
func (o subscriptionObject) toSubscription() Subscription {
	sub := Subscription{
		ID:                 o.ID,
		CustomerID:         o.Customer.ID,
		Status:             o.Status,
		UserID:             o.Metadata["user_id"],
		ProductID:          o.Metadata["product_id"],
		CancelAtPeriodEnd:  o.CancelAtPeriodEnd,
		CurrentPeriodStart: unix(o.CurrentPeriodStart),
		CurrentPeriodEnd:   unix(o.CurrentPeriodEnd),
	}
	if len(o.Items.Data) > 0 {
		it := o.Items.Data[0]
		sub.PriceID = it.Price.ID
		sub.PriceCents = it.Price.UnitAmount
		sub.Currency = it.Price.Currency
		sub.ProductName = it.Price.Product.Name
		if it.Price.Product.ID != "" {
			sub.ProductID = it.Price.Product.ID
		}
		if sub.CurrentPeriodStart.IsZero() {
			sub.CurrentPeriodStart = unix(it.CurrentPeriodStart)
		}
		if sub.CurrentPeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = unix(it.CurrentPeriodEnd)
		}
	}
	return sub
}
