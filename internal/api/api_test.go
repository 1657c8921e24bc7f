package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"basemap/internal/airtable"
	"basemap/internal/analysis"
	"basemap/internal/auth"
	"basemap/internal/billing"
	"basemap/internal/schema"
)

const (
	testUser = "0b7e3a52-6c1f-4d8e-9a0b-2f5d7c9e1a34"
	whsec    = "whsec_api_test"
)

var fixedNow = time.Date(2025, 3, 7, 14, 5, 9, 123_000_000, time.UTC)

type fakeFetcher struct {
	sch schema.Schema
	err error
	got [2]string
}

func (f *fakeFetcher) FetchSchema(_ context.Context, pat, baseID string) (schema.Schema, error) {
	f.got = [2]string{pat, baseID}
	if pat == "" || baseID == "" {
		return schema.Schema{}, airtable.ErrCredentialsRequired
	}
	return f.sch, f.err
}

type fakeGen struct {
	out    string
	err    error
	prompt string
}

func (g *fakeGen) Generate(_ context.Context, _, prompt string) (string, error) {
	g.prompt = prompt
	return g.out, g.err
}

func bptr(b bool) *bool { return &b }

func testSchema() schema.Schema {
	raw := []schema.RawTable{
		{ID: "tblA", Name: "Orders", PrimaryFieldID: "fldA1", Fields: []schema.RawField{
			{ID: "fldA1", Name: "Name", Type: schema.FieldTypeSingleLineText},
			{ID: "fldA2", Name: "Customer", Type: schema.FieldTypeMultipleRecordLinks,
				Options: json.RawMessage(`{"linkedTableId":"tblB"}`)},
			{ID: "fldA3", Name: "Broken", Type: schema.FieldTypeFormula, IsValid: bptr(false)},
		}},
		{ID: "tblB", Name: "Customers", PrimaryFieldID: "fldB1", Fields: []schema.RawField{
			{ID: "fldB1", Name: "Name", Type: schema.FieldTypeSingleLineText},
			{ID: "fldB2", Name: "Ghost", Type: schema.FieldTypeMultipleRecordLinks,
				Options: json.RawMessage(`{"linkedTableId":"tblGone"}`)},
		}},
	}
	return schema.Transform(raw)
}

func newTestServer(f *fakeFetcher, g *fakeGen) *Server {
	gin.SetMode(gin.TestMode)
	return &Server{
		Schemas:     f,
		Analyzer:    analysis.NewAnalyzer(g, nil),
		Now:         func() time.Time { return fixedNow },
		GeminiModel: "gemini-2.0-flash",
	}
}

func doJSON(h http.Handler, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestSchemaHandler(t *testing.T) {
	f := &fakeFetcher{sch: testSchema()}
	r := NewRouter(newTestServer(f, &fakeGen{}))

	w := doJSON(r, http.MethodPost, "/api/schema", map[string]string{"pat": " pat1 ", "baseId": "app1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"pat1", "app1"}, f.got)

	var got schema.Schema
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	if diff := cmp.Diff(testSchema(), got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}

	w = doJSON(r, http.MethodPost, "/api/schema", map[string]string{"pat": "p", "baseId": "app1", "filter": "CUST"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Tables, 2)
	assert.Len(t, got.Tables[0].Fields, 1)
	assert.Len(t, got.Tables[1].Fields, 0)
	assert.Len(t, got.Relationships, 2, "relationships are never filtered")
}

func TestSchemaHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   any
		status int
		msg    string
	}{
		{"missing credentials", nil, map[string]string{"pat": "  ", "baseId": "app1"}, 400, "Personal Access Token and Base ID are required"},
		{"invalid json", nil, "{", 400, "Invalid JSON"},
		{"unauthorized", airtable.ErrInvalidToken, map[string]string{"pat": "p", "baseId": "b"}, 401, "Invalid Personal Access Token"},
		{"forbidden", airtable.ErrInsufficientPermissions, map[string]string{"pat": "p", "baseId": "b"}, 403, "Insufficient permissions. Make sure your PAT has access to this base"},
		{"not found", airtable.ErrBaseNotFound, map[string]string{"pat": "p", "baseId": "b"}, 404, "Base not found. Please check your Base ID"},
		{"transport", fmt.Errorf("%w: dial tcp: refused", airtable.ErrFetchFailed), map[string]string{"pat": "p", "baseId": "b"}, 502, "Failed to fetch schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(newTestServer(&fakeFetcher{err: tt.err}, &fakeGen{}))
			w := doJSON(r, http.MethodPost, "/api/schema", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
		})
	}
}

func TestSchemaExportHandler(t *testing.T) {
	r := NewRouter(newTestServer(&fakeFetcher{sch: testSchema()}, &fakeGen{}))
	w := doJSON(r, http.MethodPost, "/api/schema/export", map[string]string{"pat": "p", "baseId": "b"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="basemap-schema-2025-03-07.json"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "{\n  \"tables\": ["))
}

func TestSchemaLintHandler(t *testing.T) {
	r := NewRouter(newTestServer(&fakeFetcher{sch: testSchema()}, &fakeGen{}))
	w := doJSON(r, http.MethodPost, "/api/schema/lint", map[string]string{"pat": "p", "baseId": "app1", "filter": "zzz"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp lintResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	codes := map[string]bool{}
	for _, is := range resp.Issues {
		codes[is.Code] = true
	}
	assert.True(t, codes[schema.IssueRelationshipDangling])
	assert.True(t, codes[schema.IssueFieldInvalid])
	require.Len(t, resp.Broken, 1)
	assert.Equal(t, schema.FixURL("app1", "tblA"), resp.Broken[0].FixURL)
	assert.Equal(t, schema.Stats{Tables: 2, Fields: 5, Relationships: 2, Dangling: 1}, resp.Stats)
}

func TestAnalysisHandler(t *testing.T) {
	g := &fakeGen{out: "## Orders\nlinks to Customers"}
	r := NewRouter(newTestServer(&fakeFetcher{}, g))

	w := doJSON(r, http.MethodPost, "/api/analysis", map[string]any{
		"apiKey": "key", "schema": map[string]any{"tables": []any{}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "## Orders\nlinks to Customers", body["analysis"])
	assert.Contains(t, body, "elapsedMs")
	assert.True(t, strings.HasPrefix(g.prompt, analysis.DefaultPrompt+"\n\nSchema JSON:\n"))

	w = doJSON(r, http.MethodPost, "/api/analysis", map[string]any{"apiKey": "key"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No schema available to analyze", decode(t, w)["error"])

	w = doJSON(r, http.MethodPost, "/api/analysis", map[string]any{"apiKey": " ", "schema": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Gemini API key is required", decode(t, w)["error"])

	g.err = errors.New("API key not valid. Please pass a valid API key.")
	w = doJSON(r, http.MethodPost, "/api/analysis", map[string]any{"apiKey": "k", "schema": map[string]any{}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "API key not valid. Please pass a valid API key.", decode(t, w)["error"])
}

func TestAnalysisExportHandler(t *testing.T) {
	r := NewRouter(newTestServer(&fakeFetcher{}, &fakeGen{}))
	w := doJSON(r, http.MethodPost, "/api/analysis/export", map[string]string{"analysis": "# Report"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="schema-analysis-2025-03-07T14-05-09-123Z.md"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "# Report", w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/analysis/export", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetaAndHealth(t *testing.T) {
	r := NewRouter(newTestServer(&fakeFetcher{}, &fakeGen{}))
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/healthz", nil).Code)

	w := doJSON(r, http.MethodGet, "/api/meta", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var m metaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "gemini-2.0-flash", m.GeminiModel)
	assert.False(t, m.Billing)
	assert.Equal(t, []string{"oneToOne", "oneToMany", "manyToOne"}, m.RelationshipTypes)

	// billing routes are not mounted without a billing service
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodPost, "/api/stripe/webhook", "{}").Code)
}

// ---- billing ----

type memBilling struct {
	customers map[string]string
	sub       *billing.Subscription
	fail      error
}

func (m *memBilling) UpsertCustomer(_ context.Context, c billing.Customer) error {
	if m.fail != nil {
		return m.fail
	}
	m.customers[c.UserID] = c.StripeCustomerID
	return nil
}

func (m *memBilling) CustomerID(_ context.Context, uid string) (string, error) {
	return m.customers[uid], nil
}

func (m *memBilling) ActiveSubscription(context.Context, string) (*billing.Subscription, error) {
	return m.sub, nil
}

func (m *memBilling) UpsertSubscription(context.Context, billing.Subscription) error { return m.fail }

type fakeProvider struct{}

func (fakeProvider) CreateCustomer(context.Context, string, string) (string, error) {
	return "cus_new", nil
}

func (fakeProvider) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	return "https://checkout.stripe.test/" + req.CustomerID, nil
}

func (fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (auth.User, error) {
	if token != "good" {
		return auth.User{}, auth.ErrUnauthorized
	}
	return auth.User{ID: testUser, Email: "ada@example.com"}, nil
}

func billingRouter(store *memBilling) *gin.Engine {
	s := newTestServer(&fakeFetcher{}, &fakeGen{})
	s.Billing = &billing.Service{
		Store: store, Provider: fakeProvider{},
		AppURL: "https://basemap.test", PriceID: "price_1", WebhookSecret: whsec,
	}
	s.Verifier = tokenVerifier{}
	return NewRouter(s)
}

func TestBillingRoutes(t *testing.T) {
	store := &memBilling{customers: map[string]string{}}
	r := billingRouter(store)
	bearer := []string{"Authorization", "Bearer good"}

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/billing/checkout", nil).Code)

	w := doJSON(r, http.MethodGet, "/api/billing/customer", nil, bearer...)
	assert.JSONEq(t, `{"hasCustomer":false}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/billing/portal", nil, bearer...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No subscription found. Please subscribe first.", decode(t, w)["error"])

	w = doJSON(r, http.MethodPost, "/api/billing/checkout", nil, bearer...)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://checkout.stripe.test/cus_new", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/api/billing/customer", nil, bearer...)
	assert.JSONEq(t, `{"hasCustomer":true}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/billing/subscription", nil, bearer...)
	assert.JSONEq(t, `{"subscription":null}`, w.Body.String())

	store.sub = &billing.Subscription{ID: "sub_1", CustomerID: "cus_new", Status: "active"}
	w = doJSON(r, http.MethodPost, "/api/billing/checkout", nil, bearer...)
	assert.Equal(t, "https://billing.stripe.test/cus_new", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/api/billing/subscription", nil, bearer...)
	sub := decode(t, w)["subscription"].(map[string]any)
	assert.Equal(t, "sub_1", sub["subscription_id"])
}

func TestWebhookHandler(t *testing.T) {
	store := &memBilling{customers: map[string]string{}}
	r := billingRouter(store)

	w := doJSON(r, http.MethodPost, "/api/stripe/webhook", "{}")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No signature provided"}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/stripe/webhook", "{}", "Stripe-Signature", "t=1,v1=00")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(decode(t, w)["error"].(string), "Webhook Error: "))

	body := `{"id":"evt_1","object":"event","api_version":"2020-08-27","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","customer":"cus_7","metadata":{"user_id":"` + testUser + `","user_email":"ada@example.com"}}}}`
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(body), Secret: whsec})
	w = doJSON(r, http.MethodPost, "/api/stripe/webhook", string(sp.Payload), "Stripe-Signature", sp.Header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Equal(t, "cus_7", store.customers[testUser])

	store.fail = errors.New("db down")
	sp = webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(body), Secret: whsec})
	w = doJSON(r, http.MethodPost, "/api/stripe/webhook", string(sp.Payload), "Stripe-Signature", sp.Header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"error":"Processing error"}`, w.Body.String())
}
