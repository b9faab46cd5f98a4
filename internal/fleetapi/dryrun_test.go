package fleetapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRedactBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		path     string
		expected string
	}{
		{
			name:     "top level password",
			body:     `{"user":"admin","password":"hunter2"}`,
			path:     "password",
			expected: maskValue,
		},
		{
			name:     "nested token",
			body:     `{"auth":{"token":"eyJhbGciOi"},"name":"edge"}`,
			path:     "auth.token",
			expected: maskValue,
		},
		{
			name:     "object inside array",
			body:     `{"users":[{"name":"a","password":"x"},{"name":"b"}]}`,
			path:     "users.0.password",
			expected: maskValue,
		},
		{
			name:     "deeply nested api key",
			body:     `{"config":{"cloud":{"api_key":"fw_live_123"}}}`,
			path:     "config.cloud.api_key",
			expected: maskValue,
		},
		{
			name:     "mixed case key",
			body:     `{"Password":"hunter2"}`,
			path:     "Password",
			expected: maskValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := redactBody([]byte(tt.body))
			assert.Equal(t, tt.expected, gjson.GetBytes(out, tt.path).String())
		})
	}
}

func TestRedactBodyPreservesRest(t *testing.T) {
	body := []byte(`{"name":"edge-fleet","secret":"s3cret","devices":["dev-1","dev-2"]}`)
	out := redactBody(body)

	assert.Equal(t, "edge-fleet", gjson.GetBytes(out, "name").String())
	assert.Equal(t, maskValue, gjson.GetBytes(out, "secret").String())
	assert.Equal(t, int64(2), gjson.GetBytes(out, "devices.#").Int())
	assert.Equal(t, "dev-1", gjson.GetBytes(out, "devices.0").String())

	// The input slice is never modified.
	assert.Equal(t, "s3cret", gjson.GetBytes(body, "secret").String())
}

func TestRedactBodyPassthrough(t *testing.T) {
	assert.Nil(t, redactBody(nil))
	assert.Equal(t, []byte("raw firmware bytes"), redactBody([]byte("raw firmware bytes")))
}

func renderTestExecutor(apiKey string) *Executor {
	return &Executor{
		config: &ClientConfig{ServerURL: "http://api.fleetwave.test", APIKey: apiKey},
		engine: DefaultEngineConfig(),
	}
}

func TestRenderRequest(t *testing.T) {
	e := renderTestExecutor("fw_live_123")
	desc := Descriptor{
		Method: "POST",
		Path:   "v1/auth/login",
		Headers: map[string]string{
			"X-Trace":       "abc-123",
			"Authorization": "Bearer someone-elses-token",
		},
		Body: json.RawMessage(`{"user":"admin","password":"hunter2"}`),
	}

	r, err := e.renderRequest(desc)
	require.NoError(t, err)

	assert.Equal(t, "POST", r.Method)
	assert.Equal(t, "http://api.fleetwave.test/v1/auth/login", r.URL)
	assert.Equal(t, "application/json", r.Headers["Content-Type"])
	assert.Equal(t, "abc-123", r.Headers["X-Trace"])

	// Credential material never shows up in rendered output.
	assert.Equal(t, maskValue, r.Headers["Authorization"])
	assert.Equal(t, maskValue, gjson.GetBytes(r.Body, "password").String())
	assert.Equal(t, "admin", gjson.GetBytes(r.Body, "user").String())
	assert.NotContains(t, string(r.Body), "hunter2")
}

func TestRenderRequestMasksBearer(t *testing.T) {
	e := renderTestExecutor("fw_live_123")
	r, err := e.renderRequest(Descriptor{Method: "GET", Path: "v1/devices"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+maskValue, r.Headers["Authorization"])

	// No credential configured, no Authorization header.
	e = renderTestExecutor("")
	r, err = e.renderRequest(Descriptor{Method: "GET", Path: "v1/devices"})
	require.NoError(t, err)
	_, ok := r.Headers["Authorization"]
	assert.False(t, ok)
}

func TestRenderRequestPaginated(t *testing.T) {
	e := renderTestExecutor("fw_live_123")
	desc := Descriptor{
		Method:   "GET",
		Path:     "v1/devices",
		Query:    map[string]string{"fleet": "edge"},
		Paginate: true,
	}

	r, err := e.renderRequest(desc)
	require.NoError(t, err)
	assert.Equal(t, "http://api.fleetwave.test/v1/devices?fleet=edge&limit=100", r.URL)

	// The caller's query map stays untouched.
	assert.Equal(t, map[string]string{"fleet": "edge"}, desc.Query)

	// An explicit limit wins over the configured page size.
	desc.Query = map[string]string{"limit": "5"}
	r, err = e.renderRequest(desc)
	require.NoError(t, err)
	assert.Equal(t, "http://api.fleetwave.test/v1/devices?limit=5", r.URL)
}
