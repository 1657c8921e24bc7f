package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"basemap/internal/schema"
)

const DefaultBaseURL = "https://api.airtable.com"

// Client reads base schemas from the Airtable metadata API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Log:     log,
	}
}

func (c *Client) tablesURL(baseID string) string {
	return fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.BaseURL, url.PathEscape(baseID))
}

// FetchSchema fetches the tables of baseID with the personal access token pat and
// returns them as a normalized schema. Blank credentials fail before any request.
func (c *Client) FetchSchema(ctx context.Context, pat, baseID string) (schema.Schema, error) {
	raw, err := c.FetchTables(ctx, pat, baseID)
	if err != nil {
		return schema.Schema{}, err
	}
	return schema.Transform(raw), nil
}

// FetchTables returns the metadata response without transforming it.
func (c *Client) FetchTables(ctx context.Context, pat, baseID string) ([]schema.RawTable, error) {
	pat = strings.TrimSpace(pat)
	baseID = strings.TrimSpace(baseID)
	if pat == "" || baseID == "" {
		return nil, ErrCredentialsRequired
	}

	endpoint := c.tablesURL(baseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+pat)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		c.Log.Warn("airtable api error",
			zap.String("endpoint", endpoint),
			zap.String("baseId", redact(baseID)),
			zap.Int("status", res.StatusCode),
			zap.String("statusText", http.StatusText(res.StatusCode)),
			zap.ByteString("error", body),
		)
		return nil, errorForStatus(res.StatusCode)
	}

	var data schema.RawResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}
	return data.Tables, nil
}

// redact keeps the first three characters of a base id for logs.
func redact(id string) string {
	if len(id) <= 3 {
		return id + "..."
	}
	return id[:3] + "..."
}
