package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

var deleteCmd = &cobra.Command{
	Use:   "delete RESOURCE_TYPE/RESOURCE_NAME [flags]",
	Short: "Delete a resource by type and name",
	Long: `Delete a resource by type and name. The format is RESOURCE_TYPE/RESOURCE_NAME.
Supported resource types include:
  - devices/<device-id>
  - fleets/<fleet-name>
  - firmware/<image-name>
  - users/<user-id>

Examples:
  # Delete a device
  fleetwave delete devices/dev-0042

  # Delete a fleet
  fleetwave delete fleets/edge-lab

  # See the request without sending it
  fleetwave delete devices/dev-0042 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: deleteResource,
}

// deleteResource handles the deletion of a resource by type and name
func deleteResource(cmd *cobra.Command, args []string) error {
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

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodDelete,
		Path:   "v1/" + collection + "/" + name,
		DryRun: dryRun,
	})
	if out.Status == fleetapi.StatusDryRun {
		return renderDryRun(out)
	}
	if err := outcomeError(out); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]int{"result": 1})
	} else {
		fmt.Printf("Successfully deleted %s/%s\n", collection, name)
	}
	return nil
}

// init initializes the delete command with its flags and adds it to the root command
func init() {
	deleteCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the request without sending it")

	rootCmd.AddCommand(deleteCmd)
}
