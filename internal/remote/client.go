package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/oshokin/skript-action/internal/version"
)

// ErrBadHTTPStatus is returned for any non-2xx response.
var ErrBadHTTPStatus = errors.New("unexpected http status")

var errBaseURLRequired = errors.New("base url must be provided")

// Client issues GET requests relative to a base URL.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client
	// baseURL is the API root every path is joined to.
	baseURL *url.URL
	// header is added to every request.
	header http.Header
	// callTimeout bounds a request including reading its body.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithCallTimeout sets a timeout for every call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHeader adds a header to every request. Empty values are skipped.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.header.Set(key, value)
		}
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	parsed, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    parsed,
		header:     make(http.Header),
	}

	c.header.Set("User-Agent", version.UserAgent())

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// URL joins path elements to the base URL.
func (c *Client) URL(elem ...string) string {
	u := *c.baseURL

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	u.Path = path.Join(append([]string{u.Path}, elem...)...)

	return u.String()
}

// GetJSON fetches rawURL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.Open(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	if err = json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}

	return nil
}

// Open fetches rawURL and returns the response body. Closing the body also
// releases the call timeout.
func (c *Client) Open(ctx context.Context, rawURL, accept string) (io.ReadCloser, error) {
	callCtx, cancel := c.callContext(ctx)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		cancel()

		return nil, err
	}

	req.Header = c.header.Clone()
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		cancel()

		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	return &cancelOnClose{ReadCloser: response.Body, cancel: cancel}, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// cancelOnClose ties the request context to the body lifetime.
type cancelOnClose struct {
	io.ReadCloser

	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	defer b.cancel()

	return b.ReadCloser.Close()
}
