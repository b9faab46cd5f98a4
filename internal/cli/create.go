package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

var (
	// Shared flags for the resource-writing commands
	ignoreErrors bool
	dryRun       bool
)

// orderedKinds is the processing order for multi-document files: referenced
// resources before the resources that reference them.
var orderedKinds = []string{
	KindWorkspace,
	KindFleet,
	KindFirmware,
	KindDevice,
	KindUser,
}

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create -f FILENAME [flags]",
	Short: "Create resources from a file",
	Long: `Create resources from a YAML file. The resource type is determined
by the 'kind' field in each document. A file may contain multiple documents;
they are created in dependency order regardless of their order in the file.

Supported resource kinds include:
  - Workspace
  - Fleet
  - Firmware
  - Device
  - User

Examples:
  # Register devices from a file
  fleetwave create -f devices.yaml

  # Create a fleet and its devices in one file
  fleetwave create -f fleet-rollout.yaml

  # See what would be sent without sending it
  fleetwave create -f devices.yaml --dry-run

  # Keep going when some documents fail
  fleetwave create -f devices.yaml --ignore-errors`,
	RunE: createResource,
}

// createResource handles creating resources from a file
func createResource(cmd *cobra.Command, args []string) error {
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

	return processResourcesInOrder(cmd, rt, resources, &statusValues, handleCreateResource)
}

// resourceHandler performs one operation on one resource and returns the
// status entry to report for it. A nil entry with a nil error reports
// nothing, which is what dry runs do.
type resourceHandler func(cmd *cobra.Command, rt *runtime, resource Resource) (map[string]any, error)

// processResourcesInOrder walks the loaded resources kind by kind in
// dependency order, collecting a status entry per resource. The first error
// stops processing unless --ignore-errors was given.
func processResourcesInOrder(cmd *cobra.Command, rt *runtime, resources map[string]ResourceList, statusValues *[]map[string]any, handle resourceHandler) error {
	for _, kind := range orderedKinds {
		list, ok := resources[kind]
		if !ok {
			continue
		}
		for _, resource := range list {
			kv, err := handle(cmd, rt, resource)
			if err != nil {
				*statusValues = append(*statusValues, resourceErrorStatus(resource.Metadata, err))
				if !ignoreErrors {
					return ErrAlreadyHandled
				}
				continue
			}
			if kv != nil {
				*statusValues = append(*statusValues, kv)
			}
		}
	}
	return nil
}

// handleCreateResource sends one resource to its collection endpoint.
func handleCreateResource(cmd *cobra.Command, rt *runtime, resource Resource) (map[string]any, error) {
	collection, err := GetResourceType(resource.Metadata.Kind)
	if err != nil {
		return nil, err
	}

	name := resource.Metadata.Name()
	body := resource.JSON
	if name != "" {
		// The API keys collection entries by a top-level name.
		body, err = sjson.SetBytes(body, "name", name)
		if err != nil {
			return nil, err
		}
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodPost,
		Path:   "v1/" + collection,
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
		"created": true,
		"name":    name,
	}, nil
}

// resourceErrorStatus creates an error status entry for a failed resource
// operation.
func resourceErrorStatus(resource ResourceMetadata, err error) map[string]any {
	return map[string]any{
		"kind":  resource.Kind,
		"name":  resource.Metadata["name"],
		"error": err.Error(),
	}
}

// printResourceStatus prints the status of resource operations
func printResourceStatus(statusValues []map[string]any) {
	if jsonOutput {
		printJSON(statusValues)
		return
	}
	for _, status := range statusValues {
		switch {
		case isFlagSet(status, "created"):
			okLabel.Fprintf(os.Stdout, "[OK] ")
			fmt.Fprintf(os.Stdout, "Created: %s: %v\n", status["kind"], status["name"])
		case isFlagSet(status, "updated"):
			okLabel.Fprintf(os.Stdout, "[OK] ")
			fmt.Fprintf(os.Stdout, "Updated: %s: %v\n", status["kind"], status["name"])
		default:
			printErrorStatus(status)
		}
	}
}

// isFlagSet checks a boolean flag in a status entry
func isFlagSet(status map[string]any, key string) bool {
	v, exists := status[key]
	if !exists {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// printErrorStatus prints an error status entry. With --ignore-errors the
// run still succeeds, so the message goes to stdout instead of stderr.
func printErrorStatus(status map[string]any) {
	if !ignoreErrors {
		errorLabel.Fprintf(os.Stderr, "[ERROR] ")
		fmt.Fprintf(os.Stderr, "%s: %v: %v\n", status["kind"], status["name"], status["error"])
	} else {
		errorLabel.Fprintf(os.Stdout, "[ERROR] ")
		fmt.Fprintf(os.Stdout, "%s: %v: %v\n", status["kind"], status["name"], status["error"])
	}
}

// init initializes the create command with its flags and adds it to the root command
func init() {
	createCmd.Flags().StringP("filename", "f", "", "Filename to use to create the resource")
	createCmd.MarkFlagRequired("filename")
	createCmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "Continue processing despite errors")
	createCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the requests without sending them")

	rootCmd.AddCommand(createCmd)
}
