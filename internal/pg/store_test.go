package pg

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"basemap/internal/billing"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped with -short")
	}
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("basemap"),
		postgres.WithUsername("basemap"),
		postgres.WithPassword("basemap"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, ApplyDDL(ctx, db, BillingDDL(), nil))
	// second run is a no-op
	require.NoError(t, ApplyDDL(ctx, db, BillingDDL(), nil))
	return db
}

func TestBillingStore(t *testing.T) {
	db := startPostgres(t)
	s := NewBillingStore(db)
	ctx := context.Background()
	const uid = "0b7e3a52-6c1f-4d8e-9a0b-2f5d7c9e1a34"

	id, err := s.CustomerID(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.UpsertCustomer(ctx, billing.Customer{UserID: uid, StripeCustomerID: "cus_1", Email: "ada@example.com"}))
	require.NoError(t, s.UpsertCustomer(ctx, billing.Customer{UserID: uid, StripeCustomerID: "cus_2"}))

	c, err := s.Customer(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cus_2", c.StripeCustomerID)
	assert.Equal(t, "ada@example.com", c.Email, "email kept when the update has none")

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, `select count(*) from user_customers`).Scan(&rows))
	assert.Equal(t, 1, rows)

	sub, err := s.ActiveSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, sub)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSubscription(ctx, billing.Subscription{
		ID: "sub_1", CustomerID: "cus_2", Status: "trialing",
		PriceID: "price_1", PriceCents: 900, Currency: "usd",
		CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 1, 0),
	}))

	sub, err = s.ActiveSubscription(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, uid, sub.UserID, "user resolved through the customer mapping")
	assert.Equal(t, int64(900), sub.PriceCents)
	assert.Equal(t, start, sub.CurrentPeriodStart)

	// a later event without price data keeps what was stored
	require.NoError(t, s.UpsertSubscription(ctx, billing.Subscription{ID: "sub_1", CustomerID: "cus_2", Status: "canceled"}))
	sub, err = s.ActiveSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, sub)

	var price string
	require.NoError(t, db.QueryRowContext(ctx, `select price_id from stripe_subscriptions where id = 'sub_1'`).Scan(&price))
	assert.Equal(t, "price_1", price)
}

func TestBillingStore_SubscriptionUserFromMetadata(t *testing.T) {
	db := startPostgres(t)
	s := NewBillingStore(db)
	ctx := context.Background()
	const uid = "6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f"

	// subscription event arrives before the checkout webhook
	require.NoError(t, s.UpsertSubscription(ctx, billing.Subscription{
		ID: "sub_9", CustomerID: "cus_9", UserID: uid, Status: "active",
	}))
	sub, err := s.ActiveSubscription(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "cus_9", sub.CustomerID)
}
