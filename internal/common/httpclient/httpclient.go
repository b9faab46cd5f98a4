// Package httpclient provides the HTTP transport used by the request engine.
// It builds authenticated requests from a Configurator, executes them under
// the caller's context, and returns the raw response regardless of HTTP
// status. Classifying a status as success or failure is the caller's concern;
// this package reports an error only when no response was obtained at all.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Configurator defines the interface for providing server configuration and
// authentication details. Token getters are read at request build time, so a
// token replaced between attempts takes effect on the next attempt.
type Configurator interface {
	GetServerURL() string
	GetAPIKey() string
	GetToken() string
	GetTokenExpiry() time.Time
}

// RawResult is the outcome of a single transport exchange. It is returned
// for every response the server produced, including 4xx and 5xx statuses.
type RawResult struct {
	StatusCode int         // HTTP status code
	Status     string      // status line, e.g. "200 OK"
	Header     http.Header // response headers
	Body       []byte      // response body, fully read
	Location   string      // Location header, if present
}

// HTTPClient executes requests against a live server.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool          // if true, skips TLS certificate validation
	Timeout               time.Duration // overall per-call timeout; zero relies on context deadlines
}

// NewClient creates a new HTTP client using the provided configuration.
// The config parameter must implement the Configurator interface.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return NewClientWithOptions(config, clientOpts)
}

// NewClientWithOptions creates a new HTTP client using the provided
// configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	httpClient := &http.Client{
		Timeout: opts.Timeout,
	}

	if opts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// RequestOptions contains options for making HTTP requests.
// All fields are optional except Method and Path.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, PATCH, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // optional query parameters
	Headers     map[string]string // optional extra headers
	Body        []byte            // optional request body
}

// BuildRequestURL joins the server URL with the request path and encodes the
// query parameters. The dry-run renderer uses the same function, so a
// rendered URI matches what Do would send.
func BuildRequestURL(serverURL string, opts RequestOptions) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %v", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BearerToken returns the credential Do would place in the Authorization
// header right now: the session token while it is valid, falling back to the
// API key. Returns an empty string when no credential is available.
func BearerToken(config Configurator) string {
	if config.GetToken() != "" && !config.GetTokenExpiry().IsZero() {
		if time.Now().Before(config.GetTokenExpiry()) {
			return config.GetToken()
		}
	}
	return config.GetAPIKey()
}

// Do makes an HTTP request with the given options. The context governs the
// whole exchange; callers apply per-attempt deadlines by deriving a context.
// A non-nil error means no usable response was obtained (bad URL, connection
// failure, canceled context, unreadable body). Every server response,
// including error statuses, comes back as a RawResult with a nil error.
func (c *HTTPClient) Do(ctx context.Context, opts RequestOptions) (*RawResult, error) {
	reqURL, err := BuildRequestURL(c.config.GetServerURL(), opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL, bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := BearerToken(c.config); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	// Explicit headers win over the derived ones.
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &RawResult{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		Location:   resp.Header.Get("Location"),
	}, nil
}
