package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// setWorkspaceCmd represents the set-workspace command
var setWorkspaceCmd = &cobra.Command{
	Use:   "set-workspace WORKSPACE_ID [flags]",
	Short: "Select the workspace to operate in",
	Long: `Select the workspace to operate in. The command will:
1. Mint a token scoped to the specified workspace
2. Store the token in your configuration file
3. Use this token for all subsequent operations until you switch
   workspaces or the token expires

Examples:
  # Select a workspace
  fleetwave set-workspace ws-prod

  # Select a workspace and output in JSON format
  fleetwave set-workspace ws-prod -j`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		// SwitchWorkspace persists the new session through the store's
		// update hook, so there is nothing to write here.
		sess, err := rt.store.SwitchWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(map[string]any{
				"result":         1,
				"workspace_id":   sess.WorkspaceID,
				"workspace_name": sess.WorkspaceName,
			})
		} else {
			name := sess.WorkspaceName
			if name == "" {
				name = sess.WorkspaceID
			}
			fmt.Printf("Workspace set to %s\n", name)
		}
		return nil
	},
}

// unsetWorkspaceCmd represents the unset-workspace command
var unsetWorkspaceCmd = &cobra.Command{
	Use:   "unset-workspace [flags]",
	Short: "Clear the current workspace selection",
	Long: `Clear the current workspace selection and drop its token.
Subsequent commands that need a workspace will fail until you select one
with set-workspace.

Examples:
  # Clear the current workspace
  fleetwave unset-workspace`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("no configuration loaded")
		}

		cfg.CurrentToken = ""
		cfg.TokenExpiry = ""
		cfg.WorkspaceID = ""
		cfg.WorkspaceName = ""

		if err := cfg.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to save config: %v", err)
		}

		if jsonOutput {
			printJSON(map[string]int{"result": 1})
		} else {
			fmt.Println("Workspace cleared")
		}
		return nil
	},
}

// workspacesCmd lists the workspaces the account key can reach. It works
// without a selected workspace, so it is the natural next step after login.
var workspacesCmd = &cobra.Command{
	Use:   "workspaces [flags]",
	Short: "List the workspaces available to your account",
	Long: `List the workspaces available to your account. This works right
after login, before any workspace is selected.

Examples:
  # List available workspaces
  fleetwave workspaces

  # List workspaces in JSON format
  fleetwave workspaces -j`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
			Method:           http.MethodGet,
			Path:             "v1/workspaces",
			Paginate:         true,
			SkipSessionCheck: true,
		})
		if err := outcomeError(out); err != nil {
			return err
		}

		return printCollection("workspaces", out.Payload)
	},
}

// init registers the workspace commands with the root command
func init() {
	rootCmd.AddCommand(setWorkspaceCmd)
	rootCmd.AddCommand(unsetWorkspaceCmd)
	rootCmd.AddCommand(workspacesCmd)
}
