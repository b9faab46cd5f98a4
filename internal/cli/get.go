package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get RESOURCE_TYPE/RESOURCE_NAME [flags]",
	Short: "Get a resource by type and name",
	Long: `Get a resource by type and name. The format is RESOURCE_TYPE/RESOURCE_NAME.
Supported resource types include:
  - devices/<device-id>
  - fleets/<fleet-name>
  - firmware/<image-name>
  - users/<user-id>
  - workspaces/<workspace-id>

Examples:
  # Get a device
  fleetwave get devices/dev-0042

  # Get a fleet
  fleetwave get fleets/edge-lab

  # Get a device in JSON format
  fleetwave get devices/dev-0042 -j`,
	Args: cobra.ExactArgs(1),
	RunE: getResource,
}

// getResource fetches a single resource and prints it as YAML, or wrapped
// in the result envelope when JSON output is requested.
func getResource(cmd *cobra.Command, args []string) error {
	parts := strings.SplitN(args[0], "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid resource format. Expected <resourceType>/<resourceName>")
	}

	collection, err := MapResourceTypeToURL(parts[0])
	if err != nil {
		return err
	}
	name := parts[1]
	if name == "" {
		return fmt.Errorf("resource name is required")
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	desc := fleetapi.Descriptor{
		Method: http.MethodGet,
		Path:   "v1/" + collection + "/" + name,
	}
	if collection == "workspaces" {
		desc.SkipSessionCheck = true
	}

	out := rt.exec.Execute(cmd.Context(), desc)
	if err := outcomeError(out); err != nil {
		return err
	}

	if jsonOutput {
		var value any
		if err := json.Unmarshal(out.Payload, &value); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		printJSON(map[string]any{
			"result": 1,
			"value":  value,
		})
		return nil
	}

	yamlData, err := yaml.JSONToYAML(out.Payload)
	if err != nil {
		return fmt.Errorf("failed to render response: %v", err)
	}
	fmt.Print(string(yamlData))
	return nil
}

// init initializes the get command and adds it to the root command
func init() {
	rootCmd.AddCommand(getCmd)
}
