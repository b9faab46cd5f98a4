package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update -f FILENAME [flags]",
	Short: "Update resources from a file",
	Long: `Update resources from a YAML file. The resource type is determined
by the 'kind' field and the target entry by 'metadata.name'; each resource
must already exist.

Examples:
  # Update device definitions
  fleetwave update -f devices.yaml

  # See what would be sent without sending it
  fleetwave update -f devices.yaml --dry-run

  # Update resources and output in JSON format
  fleetwave update -f devices.yaml -j`,
	RunE: updateResource,
}

// updateResource handles updating resources from a file
func updateResource(cmd *cobra.Command, args []string) error {
	filename, err := cmd.Flags().GetString("filename")
	if err != nil {
		return err
	}
	if filename == "" {
		return fmt.Errorf("filename is required")
	}

	resources, err := LoadResourceFromMultiYAMLFile(filename)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var statusValues []map[string]any
	defer func() {
		if len(statusValues) > 0 {
			printResourceStatus(statusValues)
		}
	}()

	return processResourcesInOrder(cmd, rt, resources, &statusValues, handleUpdateResource)
}

// handleUpdateResource replaces one resource at its entry endpoint.
func handleUpdateResource(cmd *cobra.Command, rt *runtime, resource Resource) (map[string]any, error) {
	collection, err := GetResourceType(resource.Metadata.Kind)
	if err != nil {
		return nil, err
	}

	name := resource.Metadata.Name()
	if name == "" {
		return nil, fmt.Errorf("metadata.name is required to update a %s", resource.Metadata.Kind)
	}

	body, err := sjson.SetBytes(resource.JSON, "name", name)
	if err != nil {
		return nil, err
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodPut,
		Path:   "v1/" + collection + "/" + name,
		Body:   body,
		DryRun: dryRun,
	})
	if out.Status == fleetapi.StatusDryRun {
		if err := renderDryRun(out); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := outcomeError(out); err != nil {
		return nil, err
	}

	return map[string]any{
		"kind":    resource.Metadata.Kind,
		"updated": true,
		"name":    name,
	}, nil
}

// init initializes the update command with its flags and adds it to the root command
func init() {
	updateCmd.Flags().StringP("filename", "f", "", "Filename to use to update the resource")
	updateCmd.MarkFlagRequired("filename")
	updateCmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "Continue processing despite errors")
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the requests without sending them")

	rootCmd.AddCommand(updateCmd)
}
