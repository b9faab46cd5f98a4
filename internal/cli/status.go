package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// statusResponse represents the response from the v1/status endpoint
type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Time    string `json:"time,omitempty"`
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and session status",
	Long: `Show server and session status. This command reports whether the
configured server is reachable, its service name and clock, and the
workspace the CLI is currently bound to.

Examples:
  # Check the server
  fleetwave status

  # Check the server in JSON format
  fleetwave status -j`,
	RunE: getStatus,
}

// getStatus handles the status command. The command is exempt from the
// config pre-run, so a missing config is reported here instead of
// aborting the command.
func getStatus(cmd *cobra.Command, args []string) error {
	// Load the config file first
	LoadConfig(configFile)

	cfg := GetConfig()
	if cfg == nil {
		if jsonOutput {
			kv := map[string]string{
				"version_cli": getCLIVersion(),
				"error":       "Config file cannot be loaded",
			}
			printJSON(kv)
		} else {
			fmt.Printf("fleetwave CLI %s\n", getCLIVersion())
			fmt.Println("Error: Config file cannot be loaded")
		}
		return ErrAlreadyHandled
	}

	// The health endpoint takes either credential, so the request goes over
	// the transport directly without a session.
	client := httpclient.NewClient(cfg)
	res, err := client.Do(cmd.Context(), httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "v1/status",
	})
	if err != nil {
		if jsonOutput {
			kv := map[string]string{
				"version_cli": getCLIVersion(),
				"error":       "Unable to connect to server: " + err.Error(),
			}
			printJSON(kv)
		} else {
			fmt.Printf("fleetwave CLI %s\n", getCLIVersion())
			fmt.Println("Error: Unable to connect to server: " + err.Error())
		}
		return ErrAlreadyHandled
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("server reported %s", serverMessage(res))
	}

	var statusResp statusResponse
	if err := json.Unmarshal(res.Body, &statusResp); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	if jsonOutput {
		printJSON(map[string]any{
			"result":      1,
			"version_cli": getCLIVersion(),
			"value":       statusResp,
			"workspace": map[string]string{
				"id":   cfg.WorkspaceID,
				"name": cfg.WorkspaceName,
			},
		})
		return nil
	}

	fmt.Printf("fleetwave CLI %s\n", getCLIVersion())
	printStatusPretty(cfg, statusResp)
	return nil
}

// printStatusPretty prints the status information in a human-readable format
func printStatusPretty(cfg *Config, status statusResponse) {
	fmt.Printf("Server: %s (%s)\n", cfg.GetServerURL(), status.Service)
	fmt.Printf("Status: %s\n", status.Status)
	if status.Time != "" {
		// Parse the server time and convert to local time
		if serverTime, err := time.Parse(time.RFC3339, status.Time); err == nil {
			fmt.Printf("Server Time: %s\n", serverTime.Local().Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Printf("Server Time: %s\n", status.Time)
		}
	}

	fmt.Println()
	if cfg.WorkspaceID == "" {
		fmt.Println("No workspace is set")
		return
	}
	if cfg.WorkspaceName != "" {
		fmt.Printf("Workspace: %s (%s)\n", cfg.WorkspaceName, cfg.WorkspaceID)
	} else {
		fmt.Printf("Workspace: %s\n", cfg.WorkspaceID)
	}
	if expiry := cfg.GetTokenExpiry(); !expiry.IsZero() {
		if time.Now().Before(expiry) {
			fmt.Printf("Session: valid until %s\n", expiry.Local().Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Println("Session: expired, renewed on the next request")
		}
	}
}

// init initializes the status command and adds it to the root command
func init() {
	rootCmd.AddCommand(statusCmd)
}
