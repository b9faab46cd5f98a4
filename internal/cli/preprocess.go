package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
)

// TemplateContext is the data resource templates render against. ENV holds
// the process environment merged with the .env file, if one exists.
type TemplateContext struct {
	ENV map[string]string
}

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// PreprocessYAML replaces {{ .ENV.VAR }} placeholders with values from the
// environment or a .env file in the working directory. A placeholder with no
// value is an error; device credentials silently rendering empty is worse
// than failing the load.
func PreprocessYAML(inputRaw []byte) ([]byte, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	envPath := filepath.Join(cwd, ".env")
	_ = godotenv.Load(envPath) // no error if .env doesn't exist

	ctx := TemplateContext{ENV: environMap()}

	tmpl, err := template.New("yaml").Option("missingkey=error").Parse(string(inputRaw))
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, ctx); err != nil {
		matches := missingKeyRegex.FindStringSubmatch(err.Error())
		if len(matches) == 2 {
			missingKey := matches[1]
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", missingKey)
		}
		return nil, fmt.Errorf("template error: %w", err)
	}

	return output.Bytes(), nil
}

// environMap snapshots the process environment as a map.
func environMap() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, found := strings.Cut(e, "=")
		if found {
			envMap[key] = value
		}
	}
	return envMap
}
