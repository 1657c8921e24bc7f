package pg

// BillingDDL creates the customer mapping, the subscription mirror fed by
// Stripe webhooks and the basemap_subscriptions view read by status queries.
func BillingDDL() map[string]string {
	return map[string]string{
		"01_user_customers": `
create table if not exists user_customers (
	id                 text primary key,
	user_id            uuid not null unique,
	stripe_customer_id text not null,
	email              text,
	created_at         timestamptz not null default now(),
	updated_at         timestamptz not null default now()
)`,
		"02_user_customers_idx": `
create index if not exists user_customers_stripe_customer_idx
	on user_customers (stripe_customer_id)`,
		"03_stripe_subscriptions": `
create table if not exists stripe_subscriptions (
	id                   text primary key,
	customer_id          text not null,
	user_id              uuid,
	status               text not null,
	price_id             text,
	product_id           text,
	product_name         text,
	price_cents          bigint,
	currency             text,
	current_period_start timestamptz,
	current_period_end   timestamptz,
	cancel_at_period_end boolean not null default false,
	updated_at           timestamptz not null default now()
)`,
		"04_stripe_subscriptions_idx": `
create index if not exists stripe_subscriptions_customer_idx
	on stripe_subscriptions (customer_id)`,
		"05_basemap_subscriptions": `
create or replace view basemap_subscriptions as
select
	coalesce(uc.user_id, s.user_id) as user_id,
	s.id                            as subscription_id,
	s.customer_id,
	s.status,
	s.price_id,
	s.product_id,
	s.product_name,
	s.price_cents,
	s.currency,
	s.current_period_start,
	s.current_period_end,
	s.cancel_at_period_end,
	s.updated_at
from stripe_subscriptions s
left join user_customers uc on uc.stripe_customer_id = s.customer_id`,
	}
}
