package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadResourceFromMultiYAMLFile(t *testing.T) {
	// Test data definitions
	validMultiResourceYAML := []byte(`---
kind: Workspace
metadata:
  name: ws-lab
spec:
  description: Lab workspace
---
kind: Fleet
metadata:
  name: edge
spec:
  description: Outdoor edge sensors
  channel: stable
---
kind: Firmware
metadata:
  name: sensor-fw-2.3.1
spec:
  version: v2.3.1
  image: sensor-fw
  channel: stable
---
kind: Device
metadata:
  name: dev-0042
  labels:
    site: rooftop
spec:
  fleet: edge
  model: ts-200
  tags:
    - sensor
    - outdoor
---
kind: User
metadata:
  name: ops-admin
spec:
  email: ops@example.com
  role: operator`)

	singleResourceYAML := []byte(`kind: Device
metadata:
  name: dev-0001
spec:
  fleet: edge
  model: ts-100`)

	emptyYAML := []byte(``)

	invalidKindYAML := []byte(`---
kind: Gateway
metadata:
  name: gw-1
spec:
  description: This should fail
---
kind: Fleet
metadata:
  name: edge
spec:
  description: This should work`)

	missingMetadataYAML := []byte(`---
kind: Fleet
spec:
  description: Missing metadata
---
kind: Fleet
metadata:
  name: edge
spec:
  description: This should work`)

	invalidMetadataYAML := []byte(`---
kind: Fleet
metadata: "not a map"
spec:
  description: Invalid metadata format
---
kind: Fleet
metadata:
  name: edge
spec:
  description: This should work`)

	deviceWithoutFleetYAML := []byte(`kind: Device
metadata:
  name: dev-0042
spec:
  model: ts-200`)

	badNameYAML := []byte(`kind: Fleet
metadata:
  name: Edge Fleet
spec:
  channel: stable`)

	badVersionYAML := []byte(`kind: Firmware
metadata:
  name: sensor-fw
spec:
  version: latest`)

	multipleSameTypeYAML := []byte(`---
kind: Fleet
metadata:
  name: edge
spec:
  channel: stable
---
kind: Fleet
metadata:
  name: lab
spec:
  channel: nightly
---
kind: Device
metadata:
  name: dev-0001
spec:
  fleet: edge
---
kind: Device
metadata:
  name: dev-0002
spec:
  fleet: lab
`)

	tests := []struct {
		name           string
		filename       string
		yamlData       []byte
		expectError    bool
		expectedKinds  []string
		expectedCounts map[string]int
	}{
		{
			name:        "valid multi-resource file",
			filename:    "dummy.yaml",
			yamlData:    validMultiResourceYAML,
			expectError: false,
			expectedKinds: []string{
				KindWorkspace, KindFleet, KindFirmware, KindDevice, KindUser,
			},
			expectedCounts: map[string]int{
				KindWorkspace: 1,
				KindFleet:     1,
				KindFirmware:  1,
				KindDevice:    1,
				KindUser:      1,
			},
		},
		{
			name:        "single resource file",
			filename:    "dummy.yaml",
			yamlData:    singleResourceYAML,
			expectError: false,
			expectedKinds: []string{
				KindDevice,
			},
			expectedCounts: map[string]int{
				KindDevice: 1,
			},
		},
		{
			name:           "empty file",
			filename:       "dummy.yaml",
			yamlData:       emptyYAML,
			expectError:    false,
			expectedKinds:  []string{},
			expectedCounts: map[string]int{},
		},
		{
			name:        "invalid resource kind",
			filename:    "dummy.yaml",
			yamlData:    invalidKindYAML,
			expectError: true,
		},
		{
			name:        "missing metadata",
			filename:    "dummy.yaml",
			yamlData:    missingMetadataYAML,
			expectError: true,
		},
		{
			name:        "invalid metadata format",
			filename:    "dummy.yaml",
			yamlData:    invalidMetadataYAML,
			expectError: true,
		},
		{
			name:        "device without a fleet",
			filename:    "dummy.yaml",
			yamlData:    deviceWithoutFleetYAML,
			expectError: true,
		},
		{
			name:        "name that is not a valid identifier",
			filename:    "dummy.yaml",
			yamlData:    badNameYAML,
			expectError: true,
		},
		{
			name:        "firmware version that is not semver",
			filename:    "dummy.yaml",
			yamlData:    badVersionYAML,
			expectError: true,
		},
		{
			name:        "multiple resources of same type",
			filename:    "dummy.yaml",
			yamlData:    multipleSameTypeYAML,
			expectError: false,
			expectedKinds: []string{
				KindFleet, KindDevice,
			},
			expectedCounts: map[string]int{
				KindFleet:  2,
				KindDevice: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := LoadResourceFromMultiYAMLFile(tt.filename, tt.yamlData)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, result)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, result)

			// Check that all expected kinds are present
			for _, kind := range tt.expectedKinds {
				assert.Contains(t, result, kind)
			}

			// Check that no unexpected kinds are present
			for kind := range result {
				assert.Contains(t, tt.expectedKinds, kind)
			}

			// Check resource counts
			for kind, expectedCount := range tt.expectedCounts {
				assert.Len(t, result[kind], expectedCount)
			}

			// Validate each resource structure
			for kind, resources := range result {
				assert.True(t, ValidateResourceKind(kind))

				for _, resource := range resources {
					// Check that JSON is valid
					assert.NotEmpty(t, resource.JSON)

					// Check metadata structure
					assert.Equal(t, kind, resource.Metadata.Kind)
					assert.NotNil(t, resource.Metadata.Metadata)

					// Verify JSON can be unmarshaled back to a map
					var jsonData map[string]any
					err := json.Unmarshal(resource.JSON, &jsonData)
					assert.NoError(t, err)

					// Check that kind and metadata are present in JSON
					assert.Equal(t, kind, jsonData["kind"])
					assert.Contains(t, jsonData, "metadata")
				}
			}
		})
	}
}

func TestLoadResourceFromMultiYAMLFile_ResourceContent(t *testing.T) {
	// Test specific content validation for a known file
	yamlData := []byte(`---
kind: Fleet
metadata:
  name: edge
spec:
  description: Outdoor edge sensors
  channel: stable
---
kind: Device
metadata:
  name: dev-0042
  labels:
    site: rooftop
    rack: r2
spec:
  fleet: edge
  model: ts-200`)

	result, err := LoadResourceFromMultiYAMLFile("dummy.yaml", yamlData)
	assert.NoError(t, err)
	assert.NotNil(t, result)

	// Test Fleet resource content
	fleets, exists := result[KindFleet]
	assert.True(t, exists)
	assert.Len(t, fleets, 1)

	fleet := fleets[0]
	assert.Equal(t, KindFleet, fleet.Metadata.Kind)
	assert.Equal(t, "edge", fleet.Metadata.Name())

	// Test Device resource content
	devices, exists := result[KindDevice]
	assert.True(t, exists)
	assert.Len(t, devices, 1)

	device := devices[0]
	assert.Equal(t, KindDevice, device.Metadata.Kind)
	assert.Equal(t, "dev-0042", device.Metadata.Name())

	// Check metadata content
	labels, ok := device.Metadata.Metadata["labels"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "rooftop", labels["site"])
	assert.Equal(t, "r2", labels["rack"])

	// The document keeps its spec on the way to JSON
	var doc map[string]any
	assert.NoError(t, json.Unmarshal(device.JSON, &doc))
	spec, ok := doc["spec"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "edge", spec["fleet"])
	assert.Equal(t, "ts-200", spec["model"])
}

func TestLoadResourceFromMultiYAMLFile_EnvSubstitution(t *testing.T) {
	t.Setenv("ENROLLMENT_KEY", "key-123")

	yamlData := []byte(`kind: Device
metadata:
  name: dev-0042
spec:
  fleet: edge
  enrollmentKey: "{{ .ENV.ENROLLMENT_KEY }}"`)

	result, err := LoadResourceFromMultiYAMLFile("dummy.yaml", yamlData)
	assert.NoError(t, err)

	devices := result[KindDevice]
	assert.Len(t, devices, 1)

	var doc map[string]any
	assert.NoError(t, json.Unmarshal(devices[0].JSON, &doc))
	spec := doc["spec"].(map[string]any)
	assert.Equal(t, "key-123", spec["enrollmentKey"])
}

func TestMapResourceTypeToURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "devices", want: "devices"},
		{in: "device", want: "devices"},
		{in: "dev", want: "devices"},
		{in: "fleets", want: "fleets"},
		{in: "fl", want: "fleets"},
		{in: "firmware", want: "firmware"},
		{in: "fw", want: "firmware"},
		{in: "images", want: "firmware"},
		{in: "users", want: "users"},
		{in: "workspaces", want: "workspaces"},
		{in: "ws", want: "workspaces"},
		{in: "gateways", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := MapResourceTypeToURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
