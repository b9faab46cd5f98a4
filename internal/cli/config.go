package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// engineConfigFile tunes the request engine; optional, lives next to the
// config file.
const engineConfigFile = "engine.toml"

// journalFile is the request journal, written next to the config file.
const journalFile = "requests.jrnl"

// Config represents the configuration for the Fleetwave CLI. It carries the
// server connection details, the long-lived account credentials, and the
// workspace session the CLI is currently operating in.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the URL and port of the Fleetwave server
	ServerURL string `yaml:"server_url"`
	// APIKey is the long-lived account key obtained by login
	APIKey string `yaml:"api_key"`
	// AccountID is the account the API key belongs to
	AccountID string `yaml:"account_id"`
	// User is the login name the API key was issued to
	User string `yaml:"user"`
	// Password is the password for authentication (stored for convenience)
	Password string `yaml:"password"`
	// WorkspaceID is the currently selected workspace
	WorkspaceID string `yaml:"workspace_id"`
	// WorkspaceName is the display name of the selected workspace
	WorkspaceName string `yaml:"workspace_name"`
	// CurrentToken is the active token scoped to the selected workspace
	CurrentToken string `yaml:"current_token"`
	// TokenExpiry is when the current token expires
	TokenExpiry string `yaml:"token_expiry"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/fleetwave on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "fleetwave", DefaultConfigFile), nil
}

// EngineConfigPath returns the path of the optional engine tuning file,
// derived from the active config file location.
func EngineConfigPath() string {
	return filepath.Join(filepath.Dir(configFile), engineConfigFile)
}

// JournalPath returns the path of the request journal, derived from the
// active config file location.
func JournalPath() string {
	return filepath.Join(filepath.Dir(configFile), journalFile)
}

// LoadConfig loads the configuration from the specified file
// If no file is specified, it uses the default config location
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	// Validate required fields
	if c.ServerURL == "" {
		return errors.New("server:port is required")
	}

	// Validate server port format
	if !strings.Contains(c.ServerURL, ":") {
		return errors.New("server:port must include port number")
	}

	// Morph the server URL before storing
	c.ServerURL = MorphServer(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the current configuration to the specified file
// If no file is specified, it uses the default config location
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), os.ModePerm)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds https:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	// Remove any trailing slashes
	server = strings.TrimRight(server, "/")

	// Add https:// if no protocol is specified
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}

	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.ServerURL)
}

// GetAPIKey returns the account API key from the configuration
func (cfg *Config) GetAPIKey() string {
	return cfg.APIKey
}

// GetToken returns the current workspace token from the configuration
func (cfg *Config) GetToken() string {
	return cfg.CurrentToken
}

// GetTokenExpiry returns the token expiry time from the configuration
func (cfg *Config) GetTokenExpiry() time.Time {
	if cfg.TokenExpiry == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, cfg.TokenExpiry)
	if err != nil {
		return time.Time{}
	}
	return t
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like server connection and authentication.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if --server flag is provided
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			return setServerConfig(serverFlag)
		}

		// If no specific flag is provided, show help
		cmd.Help()
		return nil
	},
}

// configClearCmd represents the config clear command
var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the current token and workspace selection",
	Long: `Clear the current token and workspace selection. This will remove:
1. The current workspace token
2. The token expiry time
3. The workspace selection

This is useful when you want to reset your session or switch to a different workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LoadConfig(configFile); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Fleetwave config file not found. Configure fleetwave with \"fleetwave config --server <server:port>\" first.")
				os.Exit(1)
			} else {
				fmt.Printf("Unable to load config file: %s\n", err.Error())
				os.Exit(1)
			}
		}
		cfg := GetConfig()
		// Clear the session fields
		cfg.CurrentToken = ""
		cfg.TokenExpiry = ""
		cfg.WorkspaceID = ""
		cfg.WorkspaceName = ""
		// Note: We don't clear APIKey or Password here; use logout for that

		// Save the config
		if err := cfg.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to save config: %v", err)
		}

		if jsonOutput {
			printJSON(map[string]int{"result": 1})
		} else {
			fmt.Println("Choose a new workspace with \"fleetwave set-workspace <workspace>\"")
		}

		return nil
	},
}

func init() {
	// Add flags to config command
	configCmd.Flags().String("server", "", "Set the server URL and port (e.g., fleet.example.com:8080)")

	configCmd.AddCommand(configClearCmd)
	rootCmd.AddCommand(configCmd)
}

// setServerConfig sets the server configuration in the config file
func setServerConfig(server string) error {
	configPath := configFile
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	if !strings.Contains(server, ":") {
		return errors.New("server must include port number (e.g., fleet.example.com:8080)")
	}

	// A new server gets a clean slate; credentials never carry over.
	cfg := &Config{
		Version:   "0.1.0",
		ServerURL: MorphServer(server),
	}

	if err := cfg.WriteConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configPath,
		})
	} else {
		fmt.Printf("Server configured: %s\n", cfg.ServerURL)
		fmt.Printf("Config file: %s\n", configPath)
	}

	return nil
}
