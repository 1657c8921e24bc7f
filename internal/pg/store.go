package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"basemap/internal/billing"
)

// BillingStore keeps billing state in Postgres.
type BillingStore struct {
	DB *sql.DB
}

var _ billing.Store = (*BillingStore)(nil)

func NewBillingStore(db *sql.DB) *BillingStore { return &BillingStore{DB: db} }

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// UpsertCustomer inserts or refreshes the mapping for c.UserID; the row id is kept.
func (s *BillingStore) UpsertCustomer(ctx context.Context, c billing.Customer) error {
	_, err := s.DB.ExecContext(ctx, `
insert into user_customers (id, user_id, stripe_customer_id, email)
values ($1, $2, $3, $4)
on conflict (user_id) do update set
	stripe_customer_id = excluded.stripe_customer_id,
	email              = coalesce(excluded.email, user_customers.email),
	updated_at         = now()`,
		ulid.Make().String(), c.UserID, c.StripeCustomerID, nullString(c.Email))
	return err
}

func (s *BillingStore) Customer(ctx context.Context, userID string) (*billing.Customer, error) {
	var (
		c     billing.Customer
		email sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
select user_id, stripe_customer_id, email, created_at, updated_at
from user_customers where user_id = $1`, userID).
		Scan(&c.UserID, &c.StripeCustomerID, &email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	return &c, nil
}

func (s *BillingStore) CustomerID(ctx context.Context, userID string) (string, error) {
	c, err := s.Customer(ctx, userID)
	if err != nil || c == nil {
		return "", err
	}
	return c.StripeCustomerID, nil
}

// ActiveSubscription reads the view for an active or trialing subscription,
// most recently updated first.
func (s *BillingStore) ActiveSubscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	var (
		sub                             billing.Subscription
		uid, price, product, name, curr sql.NullString
		cents                           sql.NullInt64
		start, end                      sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, `
select user_id, subscription_id, customer_id, status, price_id, product_id, product_name,
       price_cents, currency, current_period_start, current_period_end, cancel_at_period_end
from basemap_subscriptions
where user_id = $1 and status in ('active', 'trialing')
order by updated_at desc
limit 1`, userID).Scan(
		&uid, &sub.ID, &sub.CustomerID, &sub.Status, &price, &product, &name,
		&cents, &curr, &start, &end, &sub.CancelAtPeriodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.UserID = uid.String
	sub.PriceID = price.String
	sub.ProductID = product.String
	sub.ProductName = name.String
	sub.PriceCents = cents.Int64
	sub.Currency = curr.String
	if start.Valid {
		sub.CurrentPeriodStart = start.Time.UTC()
	}
	if end.Valid {
		sub.CurrentPeriodEnd = end.Time.UTC()
	}
	return &sub, nil
}

// UpsertSubscription mirrors a Stripe subscription by id. Empty fields do not
// overwrite values stored by an earlier event.
func (s *BillingStore) UpsertSubscription(ctx context.Context, sub billing.Subscription) error {
	_, err := s.DB.ExecContext(ctx, `
insert into stripe_subscriptions (
	id, customer_id, user_id, status, price_id, product_id, product_name,
	price_cents, currency, current_period_start, current_period_end, cancel_at_period_end)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
on conflict (id) do update set
	customer_id          = excluded.customer_id,
	user_id              = coalesce(excluded.user_id, stripe_subscriptions.user_id),
	status               = excluded.status,
	price_id             = coalesce(excluded.price_id, stripe_subscriptions.price_id),
	product_id           = coalesce(excluded.product_id, stripe_subscriptions.product_id),
	product_name         = coalesce(excluded.product_name, stripe_subscriptions.product_name),
	price_cents          = coalesce(excluded.price_cents, stripe_subscriptions.price_cents),
	currency             = coalesce(excluded.currency, stripe_subscriptions.currency),
	current_period_start = coalesce(excluded.current_period_start, stripe_subscriptions.current_period_start),
	current_period_end   = coalesce(excluded.current_period_end, stripe_subscriptions.current_period_end),
	cancel_at_period_end = excluded.cancel_at_period_end,
	updated_at           = now()`,
		sub.ID, sub.CustomerID, nullString(sub.UserID), sub.Status,
		nullString(sub.PriceID), nullString(sub.ProductID), nullString(sub.ProductName),
		nullPrice(sub), nullString(sub.Currency),
		nullTime(sub.CurrentPeriodStart), nullTime(sub.CurrentPeriodEnd), sub.CancelAtPeriodEnd)
	return err
}

func nullPrice(sub billing.Subscription) any {
	if sub.PriceID == "" && sub.PriceCents == 0 {
		return nil
	}
	return sub.PriceCents
}
