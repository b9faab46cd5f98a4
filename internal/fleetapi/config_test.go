package fleetapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEngineConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	assert.Equal(t, 30*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 30*time.Second, cfg.RefreshSkew)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 8*time.Second, cfg.MaxDelay)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 50, cfg.MaxPages)
}

func TestLoadEngineConfig(t *testing.T) {
	path := writeEngineConfig(t, `
format_version = "0.1.0"
attempt_timeout = "10s"

[retry]
max_attempts = 6
base_delay = "250ms"
max_delay = "4s"

[page]
size = 25
max_pages = 10
`)

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 6, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 4*time.Second, cfg.MaxDelay)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 10, cfg.MaxPages)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.RefreshSkew)
}

func TestLoadEngineConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unsupported version", content: `format_version = "9.9.9"`},
		{name: "bad duration", content: "attempt_timeout = \"10y\""},
		{name: "max delay below base delay", content: "[retry]\nbase_delay = \"5s\"\nmax_delay = \"1s\"\n"},
		{name: "negative attempts", content: "[retry]\nmax_attempts = -1\n"},
		{name: "negative page size", content: "[page]\nsize = -5\n"},
		{name: "not toml", content: "{\"json\": true}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeEngineConfig(t, tt.content)
			_, err := LoadEngineConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	_, err = LoadEngineConfig("")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "500ms", expected: 500 * time.Millisecond},
		{input: "30s", expected: 30 * time.Second},
		{input: "5m", expected: 5 * time.Minute},
		{input: "2h", expected: 2 * time.Hour},
		{input: "1d", expected: 24 * time.Hour},
		{input: "0s", expected: 0},
		{input: "", wantErr: true},
		{input: "10", wantErr: true},
		{input: "10y", wantErr: true},
		{input: "tens", wantErr: true},
		{input: "ms", wantErr: true},
	}

	for _, tt := range tests {
		d, err := ParseDuration(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, d, "input %q", tt.input)
	}
}
