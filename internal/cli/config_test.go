package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorphServer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fleet.example.com:8080", "https://fleet.example.com:8080"},
		{"https://fleet.example.com:8080", "https://fleet.example.com:8080"},
		{"https://fleet.example.com:8080/", "https://fleet.example.com:8080"},
		{"fleet.example.com:8080///", "https://fleet.example.com:8080"},
		{"http://localhost:8194", "http://localhost:8194"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MorphServer(tt.in), "input %q", tt.in)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	expiry := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	cfg := &Config{
		Version:       "0.1.0",
		ServerURL:     "fleet.example.com:8080",
		APIKey:        "key-123",
		AccountID:     "acct-1",
		User:          "admin@example.com",
		WorkspaceID:   "ws-001",
		WorkspaceName: "edge-lab",
		CurrentToken:  "tok-abc",
		TokenExpiry:   expiry.Format(time.RFC3339),
	}
	require.NoError(t, cfg.WriteConfig(path))

	// Credentials live in this file; it must not be group or world readable.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, LoadConfig(path))
	loaded := GetConfig()
	require.NotNil(t, loaded)

	assert.Equal(t, "https://fleet.example.com:8080", loaded.GetServerURL())
	assert.Equal(t, "key-123", loaded.GetAPIKey())
	assert.Equal(t, "tok-abc", loaded.GetToken())
	assert.True(t, expiry.Equal(loaded.GetTokenExpiry()))
	assert.Equal(t, "ws-001", loaded.WorkspaceID)
	assert.Equal(t, "edge-lab", loaded.WorkspaceName)
}

func TestLoadConfigValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("server without port", func(t *testing.T) {
		path := filepath.Join(dir, "noport.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_url: fleet.example.com\n"), 0600))
		err := LoadConfig(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("empty server", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 0.1.0\n"), 0600))
		err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("unparseable yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_url: [unclosed\n"), 0600))
		err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestGetTokenExpiry(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.GetTokenExpiry().IsZero())

	cfg.TokenExpiry = "not-a-time"
	assert.True(t, cfg.GetTokenExpiry().IsZero())

	cfg.TokenExpiry = "2026-08-25T10:00:00Z"
	got := cfg.GetTokenExpiry()
	assert.Equal(t, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), got)
}
