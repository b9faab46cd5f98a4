package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
	"github.com/fleetwave/fleetwave/pkg/types"
)

// settingsCmd represents the settings command group
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage fleet settings",
	Long: `Manage per-fleet settings. Settings are free-form keys with JSON
values. Clearing a key sets it to null rather than removing it, so
devices can tell a cleared setting from one that was never set.`,
}

var settingsNote string

// settingsShowCmd lists the settings of a fleet.
var settingsShowCmd = &cobra.Command{
	Use:   "show FLEET",
	Short: "Show the settings of a fleet",
	Args:  cobra.ExactArgs(1),
	RunE:  showSettings,
}

// fleetSettings carries a settings document. Values decode as nullables so
// a key cleared to null renders differently from a missing key.
type fleetSettings struct {
	Fleet    string                       `json:"fleet"`
	Settings map[string]types.NullableAny `json:"settings"`
}

func showSettings(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodGet,
		Path:   "v1/fleets/" + args[0] + "/settings",
	})
	if err := outcomeError(out); err != nil {
		return err
	}

	if jsonOutput {
		var value any
		if err := json.Unmarshal(out.Payload, &value); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		printJSON(map[string]any{"result": 1, "value": value})
		return nil
	}

	var doc fleetSettings
	if err := json.Unmarshal(out.Payload, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	fmt.Printf("Settings for fleet %s:\n", doc.Fleet)
	if len(doc.Settings) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	keys := make([]string, 0, len(doc.Settings))
	for k := range doc.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := doc.Settings[k]
		if v.IsNil() {
			fmt.Printf("  %-24s null\n", k)
			continue
		}
		rendered, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to render setting %s: %v", k, err)
		}
		fmt.Printf("  %-24s %s\n", k, rendered)
	}
	return nil
}

// settingsSetCmd writes one or more fleet settings.
var settingsSetCmd = &cobra.Command{
	Use:   "set FLEET KEY=VALUE [KEY=VALUE...] [flags]",
	Short: "Set fleet settings",
	Long: `Set one or more fleet settings. Values are parsed as JSON; anything
that is not valid JSON is stored as a string.

Examples:
  # Numbers and booleans keep their JSON type
  fleetwave settings set edge checkin_interval=300 telemetry=true

  # Strings don't need quoting unless they look like JSON
  fleetwave settings set edge update_window=02:00-04:00

  # Structured values are passed through as-is
  fleetwave settings set edge dns='{"servers":["10.0.0.1","10.0.0.2"]}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: setSettings,
}

func setSettings(cmd *cobra.Command, args []string) error {
	fleetName := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var results []any
	for _, pair := range args[1:] {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}

		raw := json.RawMessage(val)
		if !json.Valid(raw) {
			raw, _ = json.Marshal(val)
		}

		out, err := putSetting(cmd, rt, fleetName, key, raw)
		if err != nil {
			return err
		}
		if out == nil { // dry run
			continue
		}

		if jsonOutput {
			var value any
			if err := json.Unmarshal(out.Payload, &value); err != nil {
				return fmt.Errorf("failed to parse response: %v", err)
			}
			results = append(results, value)
			continue
		}
		okLabel.Fprintf(os.Stdout, "[OK] ")
		fmt.Fprintf(os.Stdout, "%s/%s = %s\n", fleetName, key, raw)
	}

	if jsonOutput && results != nil {
		printJSON(map[string]any{"result": 1, "value": results})
	}
	return nil
}

// settingsClearCmd clears a fleet setting to null.
var settingsClearCmd = &cobra.Command{
	Use:   "clear FLEET KEY [flags]",
	Short: "Clear a fleet setting to null",
	Args:  cobra.ExactArgs(2),
	RunE:  clearSetting,
}

func clearSetting(cmd *cobra.Command, args []string) error {
	fleetName, key := args[0], args[1]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	raw, err := json.Marshal(types.NilAny())
	if err != nil {
		return err
	}

	out, err := putSetting(cmd, rt, fleetName, key, raw)
	if err != nil {
		return err
	}
	if out == nil { // dry run
		return nil
	}

	if jsonOutput {
		var value any
		if err := json.Unmarshal(out.Payload, &value); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		printJSON(map[string]any{"result": 1, "value": value})
		return nil
	}
	okLabel.Fprintf(os.Stdout, "[OK] ")
	fmt.Fprintf(os.Stdout, "Cleared %s/%s\n", fleetName, key)
	return nil
}

// putSetting sends one setting write. The value goes into the request
// body unmodified, so an explicit null reaches the server as null. A nil
// outcome with a nil error means the write was dry-run and rendered.
func putSetting(cmd *cobra.Command, rt *runtime, fleetName, key string, value json.RawMessage) (*fleetapi.Outcome, error) {
	body := []byte(`{}`)
	body, err := sjson.SetRawBytes(body, "value", value)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if settingsNote != "" {
		body, err = sjson.SetBytes(body, "note", settingsNote)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodPut,
		Path:   "v1/fleets/" + fleetName + "/settings/" + key,
		Body:   body,
		DryRun: dryRun,
	})
	if out.Status == fleetapi.StatusDryRun {
		return nil, renderDryRun(out)
	}
	if err := outcomeError(out); err != nil {
		return nil, fmt.Errorf("failed to set %s/%s: %w", fleetName, key, err)
	}
	return &out, nil
}

// init initializes the settings commands with their flags and adds them to the root command
func init() {
	settingsSetCmd.Flags().StringVar(&settingsNote, "note", "", "Note recorded with the change")
	settingsSetCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the request without sending it")

	settingsClearCmd.Flags().StringVar(&settingsNote, "note", "", "Note recorded with the change")
	settingsClearCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the request without sending it")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	rootCmd.AddCommand(settingsCmd)
}
