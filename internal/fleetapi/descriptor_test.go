package fleetapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "simple get",
			desc: Descriptor{Method: "GET", Path: "v1/devices"},
		},
		{
			name: "post with body",
			desc: Descriptor{Method: "POST", Path: "v1/devices", Body: json.RawMessage(`{"id":"dev-1"}`)},
		},
		{
			name: "patch with body",
			desc: Descriptor{Method: "PATCH", Path: "v1/devices/dev-1", Body: json.RawMessage(`{"status":"offline"}`)},
		},
		{
			name: "delete without body",
			desc: Descriptor{Method: "DELETE", Path: "v1/devices/dev-1"},
		},
		{
			name: "paginated list",
			desc: Descriptor{Method: "GET", Path: "v1/devices", Paginate: true, SkipPageLimit: true},
		},
		{
			name: "query and headers",
			desc: Descriptor{
				Method:  "GET",
				Path:    "v1/devices",
				Query:   map[string]string{"fleet": "edge"},
				Headers: map[string]string{"X-Trace": "abc"},
			},
		},
		{
			name:    "missing method",
			desc:    Descriptor{Path: "v1/devices"},
			wantErr: "method is required",
		},
		{
			name:    "unknown method",
			desc:    Descriptor{Method: "FETCH", Path: "v1/devices"},
			wantErr: "method must be one of GET, POST, PUT, PATCH, DELETE",
		},
		{
			name:    "lowercase method",
			desc:    Descriptor{Method: "get", Path: "v1/devices"},
			wantErr: "method must be one of",
		},
		{
			name:    "missing path",
			desc:    Descriptor{Method: "GET"},
			wantErr: "path is required",
		},
		{
			name:    "absolute url path",
			desc:    Descriptor{Method: "GET", Path: "https://evil.example.com/v1/devices"},
			wantErr: "path must be relative",
		},
		{
			name:    "protocol relative path",
			desc:    Descriptor{Method: "GET", Path: "//evil.example.com/v1/devices"},
			wantErr: "path must be relative",
		},
		{
			name:    "body on get",
			desc:    Descriptor{Method: "GET", Path: "v1/devices", Body: json.RawMessage(`{}`)},
			wantErr: "body is not allowed with method GET",
		},
		{
			name:    "body on delete",
			desc:    Descriptor{Method: "DELETE", Path: "v1/devices/dev-1", Body: json.RawMessage(`{}`)},
			wantErr: "body is not allowed with method DELETE",
		},
		{
			name:    "post without body",
			desc:    Descriptor{Method: "POST", Path: "v1/devices"},
			wantErr: "body is required with method POST",
		},
		{
			name:    "put without body",
			desc:    Descriptor{Method: "PUT", Path: "v1/devices/dev-1"},
			wantErr: "body is required with method PUT",
		},
		{
			name:    "malformed body",
			desc:    Descriptor{Method: "POST", Path: "v1/devices", Body: json.RawMessage(`{"id":`)},
			wantErr: "body must be valid JSON",
		},
		{
			name:    "skip page limit without paginate",
			desc:    Descriptor{Method: "GET", Path: "v1/devices", SkipPageLimit: true},
			wantErr: "skipPageLimit requires paginate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, CodeInvalidRequest, err.Code())
		})
	}
}

func TestDescriptorValidateCollectsAllViolations(t *testing.T) {
	desc := Descriptor{
		Method:        "GET",
		Path:          "https://evil.example.com/v1/devices",
		Body:          json.RawMessage(`{}`),
		SkipPageLimit: true,
	}

	err := desc.Validate()
	require.NotNil(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "path must be relative")
	assert.Contains(t, msg, "body is not allowed with method GET")
	assert.Contains(t, msg, "skipPageLimit requires paginate")
}
