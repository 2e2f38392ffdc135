// Package httpapi invokes JSON HTTP endpoints as callapi.API values.
package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Call is one HTTP request against the client's base URL.
type Call struct {
	Method string // defaults to GET
	Path   string
	Query  url.Values
	Body   document.Document // sent as JSON when non-nil
}

// Route maps a request's parameters to the Call that serves it.
type Route func(params ...any) Call

// Client issues Calls against a base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// NewClient creates a Client for baseURL, which must be absolute.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "HTTPAPIClient").Str("base_url", base.String()).Logger()
	return c, nil
}

// API returns the invocation of call. Failures are reported as
// *callapi.NetworkError tagged with what.
func (c *Client) API(what int, call Call) callapi.API {
	return callapi.APIFunc(func(ctx context.Context) (document.Document, error) {
		doc, err := c.do(ctx, call)
		if err != nil {
			return nil, &callapi.NetworkError{What: what, Err: err}
		}
		return doc, nil
	})
}

// Router builds a callapi.Listener API function from routes. A discriminator
// without a route has no API.
func (c *Client) Router(routes map[int]Route) func(what int, params ...any) callapi.API {
	return func(what int, params ...any) callapi.API {
		route, ok := routes[what]
		if !ok {
			return nil
		}
		return c.API(what, route(params...))
	}
}

func (c *Client) do(ctx context.Context, call Call) (document.Document, error) {
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.base.JoinPath(strings.TrimPrefix(call.Path, "/"))
	if len(call.Query) > 0 {
		target.RawQuery = call.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if call.Body != nil {
		data, err := document.Encode(call.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("HTTP call finished.")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}
