package identity

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

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultRequestTimeout = 15 * time.Second

// HTTPClient calls the account API over HTTP. Authenticated calls carry the
// session's bearer token through an oauth2 static token source.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*HTTPClient)

// WithHTTPClient sets the base client. Bearer calls wrap its transport.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

func NewHTTPClient(baseURL string, options ...ClientOption) (*HTTPClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrap(err, "[NewHTTPClient] invalid base url")
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Authenticate exchanges credentials for a user carrying a fresh token
func (c *HTTPClient) Authenticate(ctx context.Context, creds users.Credentials) (*users.User, error) {
	if err := creds.ValidateLogin(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%v", err)
	}
	user := &users.User{}
	if err := c.do(ctx, c.httpClient, http.MethodPost, PathLogin, nil, creds, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates an unverified account. The API emails the verification link.
func (c *HTTPClient) Register(ctx context.Context, creds users.Credentials) error {
	if err := creds.ValidateRegistration(); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%v", err)
	}
	return c.do(ctx, c.httpClient, http.MethodPost, PathRegister, nil, creds, nil)
}

// Refresh exchanges the current token for a renewed one
func (c *HTTPClient) Refresh(ctx context.Context, token string) (*users.User, error) {
	user := &users.User{}
	if err := c.do(ctx, c.bearerClient(ctx, token), http.MethodPost, PathRefreshToken, nil, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUser is the "who am I" call
func (c *HTTPClient) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	user := &users.User{}
	if err := c.do(ctx, c.bearerClient(ctx, token), http.MethodGet, PathCurrentUser, nil, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *HTTPClient) VerifyEmail(ctx context.Context, encodedToken, email string) error {
	query := url.Values{"token": {encodedToken}, "email": {email}}
	return c.do(ctx, c.httpClient, http.MethodPost, PathVerifyEmail, query, nil, nil)
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email string) error {
	query := url.Values{"email": {email}}
	return c.do(ctx, c.httpClient, http.MethodGet, PathResendVerification, query, nil, nil)
}

func (c *HTTPClient) bearerClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.httpClient.Timeout
	return client
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrAuth, "%s %s (%v)", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(apperrors.ErrAuth, "%s %s: decode response (%v)", method, path, err)
	}
	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	var apiErr ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error == "" {
		apiErr.Error = strings.TrimSpace(string(data))
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("code", apiErr.Code).
		Msg("Account API returned an error")

	sentinel := ErrorFor(apiErr.Code)
	switch {
	case sentinel != nil:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = apperrors.ErrAuth
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", sentinel, method, path, resp.StatusCode, apiErr.Error)
}
