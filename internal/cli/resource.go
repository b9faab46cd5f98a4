package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// ResourceMetadata represents a generic resource with Kind and metadata
type ResourceMetadata struct {
	Kind     string         `json:"kind" yaml:"kind"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// Name returns the metadata name, or an empty string when it is missing.
func (m ResourceMetadata) Name() string {
	name, _ := m.Metadata["name"].(string)
	return name
}

type Resource struct {
	JSON     []byte
	Metadata ResourceMetadata
}

type ResourceList []Resource

// LoadResourceFromMultiYAMLFile loads resources from a multi-document YAML
// file, grouped by kind. Each document is preprocessed, checked against the
// schema for its kind, and converted to the JSON the API accepts. If data is
// provided, it is used instead of reading from the file.
func LoadResourceFromMultiYAMLFile(filename string, data ...[]byte) (map[string]ResourceList, error) {
	var yamlData []byte
	var err error

	if len(data) > 0 {
		// Use provided data instead of reading from the file
		yamlData = data[0]
	} else {
		yamlData, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %v", err)
		}
	}

	// Remove stray tabs
	yamlData = replaceTabsWithSpaces(yamlData)

	yamlData, err = PreprocessYAML(yamlData)
	if err != nil {
		return nil, err
	}

	resources, err := ParseMultiYAMLFromBytes(yamlData)
	if err != nil {
		return nil, err
	}

	result := make(map[string]ResourceList)

	for _, resource := range resources {
		kind, ok := resource["kind"].(string)
		if !ok {
			return nil, fmt.Errorf("resource kind: %v is not a string", resource["kind"])
		}
		if !ValidateResourceKind(kind) {
			return nil, fmt.Errorf("invalid resource kind: %s", kind)
		}

		metadataAny, exists := resource["metadata"]
		if !exists {
			return nil, fmt.Errorf("metadata not found in resource: %v", kind)
		}
		metadata, ok := metadataAny.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("metadata has invalid format: %v", metadataAny)
		}

		jsonData, err := json.Marshal(resource)
		if err != nil {
			return nil, fmt.Errorf("unable to parse resource: %v", err)
		}

		meta := ResourceMetadata{Kind: kind, Metadata: metadata}
		if err := ValidateResourcePayload(kind, jsonData); err != nil {
			name := meta.Name()
			if name == "" {
				name = "(unnamed)"
			}
			return nil, fmt.Errorf("%s %s: %v", kind, name, err)
		}

		result[kind] = append(result[kind], Resource{
			JSON:     jsonData,
			Metadata: meta,
		})
	}

	return result, nil
}

// replaceTabsWithSpaces replaces all tab characters with four spaces in a byte slice
func replaceTabsWithSpaces(b []byte) []byte {
	space := []byte("    ")
	var result []byte
	for _, c := range b {
		if c == '\t' {
			result = append(result, space...)
		} else {
			result = append(result, c)
		}
	}
	return result
}

// GetResourceType returns the API collection for a given resource kind
func GetResourceType(kind string) (string, error) {
	switch kind {
	case KindDevice:
		return "devices", nil
	case KindFleet:
		return "fleets", nil
	case KindFirmware:
		return "firmware", nil
	case KindUser:
		return "users", nil
	case KindWorkspace:
		return "workspaces", nil
	default:
		return "", fmt.Errorf("unknown resource kind: %s", kind)
	}
}

// MapResourceTypeToURL maps a resource type string to its URL format
// Handles various aliases for each resource type
func MapResourceTypeToURL(resourceType string) (string, error) {
	switch resourceType {
	case "device", "dev", "devices":
		return "devices", nil
	case "fleet", "fl", "fleets":
		return "fleets", nil
	case "firmware", "fw", "image", "images":
		return "firmware", nil
	case "user", "users":
		return "users", nil
	case "workspace", "ws", "workspaces":
		return "workspaces", nil
	default:
		return "", fmt.Errorf("unknown resource type: %s", resourceType)
	}
}
