package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the hosted backend over its REST dialect: table CRUD under
// /rest/v1 with filters encoded as query parameters, auth under /auth/v1.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client

	mu      sync.Mutex
	session *Session
}

// ClientConfig carries the two required connection parameters plus optional
// overrides.
type ClientConfig struct {
	BaseURL string
	APIKey  string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

var (
	ErrNoBaseURL = errors.New("remote base URL is not configured")
	ErrNoAPIKey  = errors.New("remote API key is not configured")
)

// NewClient validates the configuration and returns a ready client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: base,
		apiKey:  config.APIKey,
		http:    httpClient,
	}, nil
}

// UseSession sets the session whose access token authenticates subsequent
// requests. A nil session drops back to key-only requests.
func (c *Client) UseSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

func (c *Client) currentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) restURL(table string, query Query) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/rest/v1/" + table

	values := url.Values{}
	for _, f := range query.Filters {
		values.Add(f.Column, fmt.Sprintf("%s.%s", f.Op, f.Value))
	}
	if query.OrderBy != "" {
		direction := "asc"
		if query.Descending {
			direction = "desc"
		}
		values.Set("order", fmt.Sprintf("%s.%s", query.OrderBy, direction))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}

	u.RawQuery = values.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, prefer string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	token := c.apiKey
	if s := c.currentSession(); s != nil && s.AccessToken != "" {
		token = s.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newResponseError(resp, payload)
	}

	return payload, nil
}

// newResponseError extracts the error message and, for rate limit responses,
// the Retry-After duration.
func newResponseError(resp *http.Response, payload []byte) error {
	rErr := &Error{Status: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case body.Message != "":
			rErr.Message = body.Message
		case body.Msg != "":
			rErr.Message = body.Msg
		case body.Error != "":
			rErr.Message = body.Error
		}
	}
	if rErr.Message == "" {
		rErr.Message = strings.TrimSpace(string(payload))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
				rErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
	}

	return rErr
}

// decodeRepresentation decodes a mutation response into dest. The backend
// returns representations as arrays even for single-record mutations.
func decodeRepresentation(payload []byte, dest any) error {
	if dest == nil || len(payload) == 0 {
		return nil
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		return json.Unmarshal(rows[0], dest)
	}

	return json.Unmarshal(trimmed, dest)
}

func (c *Client) Select(ctx context.Context, table string, query Query, dest any) error {
	payload, err := c.do(ctx, http.MethodGet, c.restURL(table, query), nil, "")
	if err != nil {
		return err
	}

	if dest == nil {
		return nil
	}

	return json.Unmarshal(payload, dest)
}

func (c *Client) Insert(ctx context.Context, table string, record any, dest any) error {
	payload, err := c.do(ctx, http.MethodPost, c.restURL(table, Query{}), record, "return=representation")
	if err != nil {
		return err
	}

	return decodeRepresentation(payload, dest)
}

func (c *Client) Update(ctx context.Context, table string, query Query, patch any, dest any) error {
	payload, err := c.do(ctx, http.MethodPatch, c.restURL(table, query), patch, "return=representation")
	if err != nil {
		return err
	}

	return decodeRepresentation(payload, dest)
}

func (c *Client) Delete(ctx context.Context, table string, query Query) error {
	_, err := c.do(ctx, http.MethodDelete, c.restURL(table, query), nil, "")
	return err
}

func (c *Client) authURL(path string, values url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/auth/v1/" + path
	u.RawQuery = values.Encode()
	return u.String()
}

// Session validates the currently held session against the auth provider.
// It returns nil without error when no session is held or the provider no
// longer accepts the token.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	session := c.currentSession()
	if session == nil {
		return nil, nil
	}

	_, err := c.do(ctx, http.MethodGet, c.authURL("user", nil), nil, "")
	if err != nil {
		var rErr *Error
		if errors.As(err, &rErr) && (rErr.Status == http.StatusUnauthorized || rErr.Status == http.StatusForbidden) {
			return nil, nil
		}

		return nil, err
	}

	return session, nil
}

// Refresh trades the refresh token for a new session and makes it the
// session used for subsequent requests.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, nil
	}

	body := map[string]string{"refresh_token": refreshToken}
	values := url.Values{"grant_type": []string{"refresh_token"}}

	payload, err := c.do(ctx, http.MethodPost, c.authURL("token", values), body, "")
	if err != nil {
		var rErr *Error
		if errors.As(err, &rErr) && rErr.Status == http.StatusBadRequest {
			log.Warn().Str("error", rErr.Message).Msg("session refresh rejected")
			return nil, nil
		}

		return nil, err
	}

	var token struct {
		Session
		ExpiresIn int64 `json:"expires_in"`
		User      struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	session := token.Session
	if session.ExpiresAt == 0 && token.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Unix() + token.ExpiresIn
	}
	if session.UserID == "" {
		session.UserID = token.User.ID
	}

	c.UseSession(&session)
	return &session, nil
}
