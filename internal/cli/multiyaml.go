package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseMultiYAML parses a file containing multiple YAML documents. The file
// runs through the same tab cleanup and environment preprocessing as the
// resource loader. Returns a slice of maps, one per document.
func ParseMultiYAML(filename string) ([]map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data = replaceTabsWithSpaces(data)

	data, err = PreprocessYAML(data)
	if err != nil {
		return nil, err
	}

	return ParseMultiYAMLFromBytes(data)
}

// ParseMultiYAMLFromBytes parses byte data containing multiple YAML
// documents. Empty documents are skipped, so trailing separators and
// comment-only documents do not produce entries.
func ParseMultiYAMLFromBytes(data []byte) ([]map[string]any, error) {
	// Data that is empty, whitespace, or nothing but --- separators holds no
	// documents at all.
	content := strings.TrimSpace(string(data))
	if len(content) == 0 || strings.Trim(content, "- \n\t") == "" {
		return []map[string]any{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var result []map[string]any

	for {
		var doc map[string]any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if len(doc) > 0 {
			result = append(result, doc)
		}
	}

	return result, nil
}
