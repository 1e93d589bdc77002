// Package client typed access to the blog api
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/jwt"
	"github.com/Laisky/laisky-blog-rest/library/log"
)

const (
	// DefaultTimeout bounds every request when no http client is given
	DefaultTimeout = 20 * time.Second
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 4096
)

// APIError is a non-2xx response of the api
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "blog api returned " + http.StatusText(e.StatusCode) + ": " + e.Message
}

// Unwrap maps the status back to the model sentinel,
// so callers can use errors.Is(err, model.ErrForbidden)
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusForbidden:
		return model.ErrForbidden
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusTooManyRequests:
		return model.ErrTooManyAttempts
	}

	return nil
}

// Session is the result of login or register
type Session struct {
	AccessToken string            `json:"accessToken"`
	User        *model.PublicUser `json:"user"`
}

// PostPage one page of posts with the total number of matches
type PostPage struct {
	Posts []*model.Post
	Total int
}

// Option configures Client
type Option func(*Client) error

// WithTimeout sets the timeout of the default http client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return errors.Errorf("timeout must be positive, got %s", timeout)
		}

		c.timeout = timeout
		return nil
	}
}

// WithHTTPClient overrides the http client, WithTimeout is ignored then
func WithHTTPClient(httpcli *http.Client) Option {
	return func(c *Client) error {
		if httpcli == nil {
			return errors.New("http client is nil")
		}

		c.httpcli = httpcli
		return nil
	}
}

// WithLogger overrides the logger used when ctx carries none
func WithLogger(logger glog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger is nil")
		}

		c.logger = logger
		return nil
	}
}

// WithToken starts the client with an access token, see SetToken
func WithToken(token string) Option {
	return func(c *Client) error {
		c.SetToken(token)
		return nil
	}
}

// Client calls the blog api
type Client struct {
	endpoint *url.URL
	httpcli  *http.Client
	timeout  time.Duration
	logger   glog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client of the api served at endpoint
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("endpoint %q must be an http(s) url", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		endpoint: u,
		timeout:  DefaultTimeout,
		logger:   log.Logger.Named("blog_client"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	if c.httpcli == nil {
		if c.httpcli, err = gutils.NewHTTPClient(
			gutils.WithHTTPClientTimeout(c.timeout),
		); err != nil {
			return nil, errors.Wrap(err, "new http client")
		}
	}

	return c, nil
}

// SetToken sets the bearer credential of later requests.
// A leading `Bearer ` is tolerated.
func (c *Client) SetToken(token string) {
	token = strings.TrimSpace(token)
	if fields := strings.Fields(token); len(fields) == 2 && strings.EqualFold(fields[0], "bearer") {
		token = fields[1]
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current access token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// UserID returns the user the current token was issued to
func (c *Client) UserID() (string, error) {
	token := c.Token()
	if token == "" {
		return "", errors.Wrap(model.ErrUnauthorized, "no access token, login first")
	}

	claims, err := jwt.ParseUnverified(token)
	if err != nil {
		return "", errors.Wrap(err, "read user from token")
	}

	return claims.UserID(), nil
}

// getLogger prefers the request scoped logger of ctx
func (c *Client) getLogger(ctx context.Context) glog.Logger {
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); ok {
		if logger := gmw.GetLogger(ctx); logger != nil {
			return logger.Named("blog_client")
		}
	}

	return c.logger
}

// do sends a json request to path and decodes a 2xx body into out.
// path must already be escaped, ids go through url.PathEscape.
func (c *Client) do(ctx context.Context, method, path string, query url.Values,
	in, out any) (http.Header, error) {
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unescape path %q", path)
	}

	u := *c.endpoint
	u.RawPath = c.endpoint.EscapedPath() + path
	u.Path += unescaped
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.getLogger(ctx)
	startAt := time.Now()
	resp, err := c.httpcli.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close() // nolint: errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	logger.Debug("blog api response",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.String("body", truncateForLog([]byte(log.RedactJSON(string(respBody))), logBodyLimit)),
		zap.Duration("cost", time.Since(startAt)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp dto.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		} else {
			apiErr.Message = truncateForLog(respBody, 256)
		}
		return resp.Header, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.Header, errors.Wrap(err, "unmarshal response")
		}
	}

	return resp.Header, nil
}

func truncateForLog(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
