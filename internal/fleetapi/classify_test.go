package fleetapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

func rawResult(status int, statusLine, body string) *httpclient.RawResult {
	return &httpclient.RawResult{
		StatusCode: status,
		Status:     statusLine,
		Body:       []byte(body),
	}
}

func TestResponseMessage(t *testing.T) {
	tests := []struct {
		name     string
		res      *httpclient.RawResult
		expected string
	}{
		{
			name:     "envelope message wins",
			res:      rawResult(404, "404 Not Found", `{"error":{"code":"not_found","message":"unknown device dev-9"},"message":"outer"}`),
			expected: "unknown device dev-9",
		},
		{
			name:     "bare message fallback",
			res:      rawResult(400, "400 Bad Request", `{"message":"invalid cursor"}`),
			expected: "invalid cursor",
		},
		{
			name:     "code when message absent",
			res:      rawResult(429, "429 Too Many Requests", `{"error":{"code":"rate_limited"}}`),
			expected: "rate_limited",
		},
		{
			name:     "status line when body empty",
			res:      rawResult(502, "502 Bad Gateway", ""),
			expected: "502 Bad Gateway",
		},
		{
			name:     "status line when body is not json",
			res:      rawResult(500, "500 Internal Server Error", "<html>oops</html>"),
			expected: "500 Internal Server Error",
		},
		{
			name:     "status line when message empty",
			res:      rawResult(500, "500 Internal Server Error", `{"error":{"message":""}}`),
			expected: "500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, responseMessage(tt.res))
		})
	}
}

func TestResponseCode(t *testing.T) {
	assert.Equal(t, "not_found", responseCode(rawResult(404, "404 Not Found", `{"error":{"code":"not_found"}}`)))
	assert.Equal(t, "", responseCode(rawResult(404, "404 Not Found", `{"message":"gone"}`)))
	assert.Equal(t, "", responseCode(rawResult(502, "502 Bad Gateway", "")))
}

func TestCarriesError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{name: "error envelope", body: `{"error":{"code":"device_offline","message":"device is offline"}}`, expected: true},
		{name: "error with code only", body: `{"error":{"code":"device_offline"}}`, expected: true},
		{name: "plain payload", body: `{"items":[{"id":"dev-1"}]}`, expected: false},
		{name: "error is a string", body: `{"error":"boom"}`, expected: false},
		{name: "empty error object", body: `{"error":{}}`, expected: false},
		{name: "empty body", body: "", expected: false},
		{name: "not json", body: "internal error", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := rawResult(200, "200 OK", tt.body)
			assert.Equal(t, tt.expected, carriesError(res))
		})
	}
}

func TestFailureFromResponse(t *testing.T) {
	f := failureFromResponse(rawResult(403, "403 Forbidden", `{"error":{"code":"unauthorized","message":"token has been revoked"}}`))
	assert.Equal(t, "unauthorized", f.Code)
	assert.Equal(t, "token has been revoked", f.Message)
	assert.Equal(t, 403, f.HTTPStatus)

	// Responses without a server code fall back to a generic one.
	f = failureFromResponse(rawResult(502, "502 Bad Gateway", ""))
	assert.Equal(t, CodeServerError, f.Code)
	assert.Equal(t, "502 Bad Gateway", f.Message)
	assert.Equal(t, 502, f.HTTPStatus)
}

func TestParsePartial(t *testing.T) {
	body := `{"results":[
		{"id":"dev-1","status":"ok"},
		{"id":"dev-2","status":"failed","code":"device_offline","message":"device is offline"},
		{"id":"dev-3","status":"OK"},
		{"id":"dev-4","status":"failed","code":"not_found","message":"unknown device dev-4"}
	]}`

	pr := parsePartial([]byte(body))
	require.Len(t, pr.Items, 4)
	assert.Equal(t, 2, pr.Succeeded)
	assert.Equal(t, 2, pr.Failed)

	// Item order mirrors the response.
	assert.Equal(t, "dev-1", pr.Items[0].ID)
	assert.Equal(t, "dev-2", pr.Items[1].ID)
	assert.Equal(t, "device_offline", pr.Items[1].Code)
	assert.Equal(t, "device is offline", pr.Items[1].Message)
	assert.Equal(t, "dev-3", pr.Items[2].ID)
	assert.Equal(t, "not_found", pr.Items[3].Code)
}

func TestParsePartialEmpty(t *testing.T) {
	pr := parsePartial([]byte(`{}`))
	assert.Empty(t, pr.Items)
	assert.Zero(t, pr.Succeeded)
	assert.Zero(t, pr.Failed)
}
