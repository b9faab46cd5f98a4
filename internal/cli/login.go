package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// loginResponse represents the response from the login endpoint
type loginResponse struct {
	APIKey    string `json:"apiKey"`
	AccountID string `json:"accountId"`
	User      string `json:"user"`
}

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [USER]",
		Short: "Authenticate with the Fleetwave server",
		Long: `Login to the Fleetwave server and obtain an account API key.
The key is stored in your configuration file and used to mint workspace
tokens when you select a workspace.

The login process requires:
- A valid server configuration
- A user name (provided as an argument or stored in config)
- A password (provided via --passwd or stored in config)

Example:
  fleetwave login admin@example.com --passwd=mypassword
  fleetwave login  # uses user and password from config file`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogin,
	}

	cmd.Flags().String("passwd", "", "Password for authentication")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	user := cfg.User
	if len(args) > 0 {
		user = args[0]
	}
	if user == "" {
		return fmt.Errorf("no user provided. Pass a user name or set user in config file")
	}

	passwd, _ := cmd.Flags().GetString("passwd")
	if passwd == "" {
		passwd = cfg.Password
		if passwd == "" {
			return fmt.Errorf("no password provided. Use --passwd flag or set password in config file")
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	body, err := json.Marshal(map[string]string{
		"user":     user,
		"password": passwd,
	})
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method:           http.MethodPost,
		Path:             "v1/auth/login",
		Body:             body,
		SkipSessionCheck: true,
	})
	if err := outcomeError(out); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(out.Payload, &loginResp); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if loginResp.APIKey == "" {
		return fmt.Errorf("login response did not include an API key")
	}

	// A fresh key invalidates any workspace token minted under the old one.
	cfg.APIKey = loginResp.APIKey
	cfg.AccountID = loginResp.AccountID
	cfg.User = user
	cfg.Password = passwd
	cfg.CurrentToken = ""
	cfg.TokenExpiry = ""
	cfg.WorkspaceID = ""
	cfg.WorkspaceName = ""

	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if jsonOutput {
		kv := map[string]interface{}{
			"status":     "success",
			"message":    "Login successful",
			"user":       user,
			"account_id": loginResp.AccountID,
		}
		printJSON(kv)
	} else {
		okLabel.Println("✓ Login successful")
		fmt.Printf("Logged in as %s (account %s)\n", user, loginResp.AccountID)
		fmt.Println("Choose a workspace with \"fleetwave set-workspace <workspace>\"")
	}

	return nil
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget stored credentials",
		Long: `Log out from the Fleetwave server. Removes the stored API key,
password, workspace token, and workspace selection from the configuration
file. The server connection settings are kept.`,
		RunE: runLogout,
	}
}

// runLogout handles the logout command execution
func runLogout(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	cfg.APIKey = ""
	cfg.AccountID = ""
	cfg.User = ""
	cfg.Password = ""
	cfg.CurrentToken = ""
	cfg.TokenExpiry = ""
	cfg.WorkspaceID = ""
	cfg.WorkspaceName = ""

	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]int{"result": 1})
	} else {
		okLabel.Println("✓ Logged out")
	}
	return nil
}
