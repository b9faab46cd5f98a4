package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// rebootCmd represents the reboot command
var rebootCmd = &cobra.Command{
	Use:   "reboot DEVICE [DEVICE...] [flags]",
	Short: "Reboot one or more devices",
	Long: `Reboot one or more devices in the current workspace. The reboot is
a batch operation: devices that can be rebooted are rebooted even when
others in the batch fail, and the result is reported per device.

Examples:
  # Reboot a single device
  fleetwave reboot dev-0042

  # Reboot a batch of devices
  fleetwave reboot dev-0042 dev-0043 dev-0044

  # See the request without sending it
  fleetwave reboot dev-0042 --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: rebootDevices,
}

// rebootResult mirrors the per-device entries in the reboot response.
type rebootResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// rebootDevices sends the batch reboot and renders the per-device results.
func rebootDevices(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	body, err := json.Marshal(map[string]any{"devices": args})
	if err != nil {
		return fmt.Errorf("failed to build reboot request: %w", err)
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodPost,
		Path:   "v1/devices/actions/reboot",
		Body:   body,
		DryRun: dryRun,
	})

	switch out.Status {
	case fleetapi.StatusDryRun:
		return renderDryRun(out)

	case fleetapi.StatusComplete:
		if jsonOutput {
			var value any
			if err := json.Unmarshal(out.Payload, &value); err != nil {
				return fmt.Errorf("failed to parse response: %v", err)
			}
			printJSON(map[string]any{"result": 1, "value": value})
			return nil
		}
		var resp struct {
			Results []rebootResult `json:"results"`
		}
		if err := json.Unmarshal(out.Payload, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		for _, r := range resp.Results {
			okLabel.Fprintf(os.Stdout, "[OK] ")
			fmt.Fprintf(os.Stdout, "%s\n", r.ID)
		}
		fmt.Printf("%d device(s) rebooted\n", len(resp.Results))
		return nil

	case fleetapi.StatusPartialSuccess:
		renderRebootPartial(out.Partial)
		return ErrAlreadyHandled

	default:
		return outcomeError(out)
	}
}

// renderRebootPartial reports a batch where some devices failed. Every
// sub-result is shown; the summary counts come from the executor.
func renderRebootPartial(partial *fleetapi.PartialResult) {
	if partial == nil {
		errorLabel.Fprintln(os.Stderr, "reboot partially failed")
		return
	}
	if jsonOutput {
		printJSON(map[string]any{
			"result":  0,
			"partial": partial,
		})
		return
	}

	for _, item := range partial.Items {
		if strings.EqualFold(item.Status, "ok") {
			okLabel.Fprintf(os.Stdout, "[OK] ")
			fmt.Fprintf(os.Stdout, "%s\n", item.ID)
			continue
		}
		errorLabel.Fprintf(os.Stdout, "[ERROR] ")
		if item.Code != "" {
			fmt.Fprintf(os.Stdout, "%s: %s (%s)\n", item.ID, item.Message, item.Code)
		} else {
			fmt.Fprintf(os.Stdout, "%s: %s\n", item.ID, item.Message)
		}
	}
	fmt.Printf("%d of %d device(s) rebooted\n", partial.Succeeded, len(partial.Items))
}

// init initializes the reboot command with its flags and adds it to the root command
func init() {
	rebootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the request without sending it")

	rootCmd.AddCommand(rebootCmd)
}
