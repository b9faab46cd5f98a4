package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
)

// HandlerClient routes requests to an in-process http.Handler and captures
// responses with httptest, avoiding network listeners in tests.
type HandlerClient struct {
	config  Configurator
	handler http.Handler
}

// NewHandlerClient creates a client that serves requests from the given
// handler. The config parameter must implement the Configurator interface.
func NewHandlerClient(config Configurator, handler http.Handler) *HandlerClient {
	return &HandlerClient{
		config:  config,
		handler: handler,
	}
}

// Do makes an HTTP request with the given options directly against the
// mounted handler. The error contract matches HTTPClient.Do: a canceled or
// expired context surfaces as a transport error, never as a RawResult.
func (c *HandlerClient) Do(ctx context.Context, opts RequestOptions) (*RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

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

	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)

	// A real client abandons the exchange when the context expires, even if
	// the server eventually answered.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return &RawResult{
		StatusCode: rr.Code,
		Status:     fmt.Sprintf("%d %s", rr.Code, http.StatusText(rr.Code)),
		Header:     rr.Header(),
		Body:       rr.Body.Bytes(),
		Location:   rr.Header().Get("Location"),
	}, nil
}
