// Package resource is the client side of the field API: generic CRUD
// resources over REST, bearer authentication and the shared error list
// every failed call is reported to.
package resource

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

type Client struct {
	baseURL string
	http    *http.Client

	// Errors collects every API error except authentication failures.
	Errors *ErrorList
	// OnUnauthenticated is called instead of recording the error when the
	// server reports that the session is not authenticated.
	OnUnauthenticated func(ctx context.Context, err *model.APIError)

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithTokens(access, refresh string) ClientOption {
	return func(c *Client) { c.SetTokens(access, refresh) }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		Errors:  &ErrorList{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken = access, refresh
}

func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Login exchanges admin credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(username, password)
	return c.token(req)
}

// Refresh renews the token pair with the refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return errors.New("resource: no refresh token")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/refresh", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Refresh "+refresh)
	return c.token(req)
}

// token skips the interceptor: a hook that logs in again on a failed
// login would never stop.
func (c *Client) token(req *http.Request) error {
	var tokens tokenResponse
	if err := c.send(req, &tokens, false); err != nil {
		return err
	}
	c.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "resource: encode request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "resource: new request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends an authenticated JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	if access, _ := c.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return c.send(req, out, true)
}

func (c *Client) send(req *http.Request, out any, intercept bool) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "resource: %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "resource: read %s %s", req.Method, req.URL.Path)
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, body)
		if intercept {
			c.intercept(req.Context(), apiErr)
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "resource: decode %s %s", req.Method, req.URL.Path)
	}
	return nil
}

func decodeError(status int, body []byte) *model.APIError {
	apiErr := &model.APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == 0 {
		apiErr.Code = model.CodeForStatus(status)
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	apiErr.Status = status
	return apiErr
}

func (c *Client) intercept(ctx context.Context, apiErr *model.APIError) {
	log.With("resource.error", log.Fields{"status": apiErr.Status, "error_code": apiErr.Code}).
		Debug(apiErr.Message)

	if apiErr.Code == model.CodeNotAuthenticated && c.OnUnauthenticated != nil {
		c.OnUnauthenticated(ctx, apiErr)
		return
	}
	c.Errors.Push(apiErr)
}

func escape(id string) string {
	return url.PathEscape(id)
}
