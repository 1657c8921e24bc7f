package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Session is what Supabase returns for an exchanged code.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Exchanger trades an OAuth code for a session.
type Exchanger interface {
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error)
}

// SupabaseClient talks to the GoTrue endpoints of a Supabase project.
type SupabaseClient struct {
	URL     string
	AnonKey string
	HTTP    *http.Client
}

func NewSupabaseClient(projectURL, anonKey string) *SupabaseClient {
	return &SupabaseClient{
		URL:     strings.TrimRight(projectURL, "/"),
		AnonKey: anonKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SupabaseClient) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return s.URL + "/auth/v1/authorize?" + q.Encode()
}

func (s *SupabaseClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error) {
	body, _ := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"/auth/v1/token?grant_type=pkce", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.AnonKey)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%s", gotrueError(raw, res.StatusCode))
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access token")
	}
	return &sess, nil
}

// GoTrue answers with either {error, error_description} or {code, msg}.
func gotrueError(raw []byte, status int) string {
	var e struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Msg         string `json:"msg"`
		Message     string `json:"message"`
	}
	_ = json.Unmarshal(raw, &e)
	for _, m := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if m != "" {
			return m
		}
	}
	return fmt.Sprintf("unexpected status code: %d", status)
}
