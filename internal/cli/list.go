package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

var (
	// List command flags
	listAll   bool
	listLimit int
	listFleet string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list RESOURCE_TYPE [flags]",
	Short: "List resources of a specific type",
	Long: `List resources of a specific type. Listings are paginated on the
server; the CLI follows the pages and prints the combined result. Supported
resource types include:
  - devices
  - fleets
  - firmware
  - users
  - workspaces

Examples:
  # List devices in the current workspace
  fleetwave list devices

  # List devices in one fleet
  fleetwave list devices --fleet edge-lab

  # List everything, however many pages it takes
  fleetwave list devices --all

  # Use a larger page size
  fleetwave list devices --limit 200

  # List firmware images in JSON format
  fleetwave list firmware -j`,
	Args: cobra.ExactArgs(1),
	RunE: listResources,
}

// listResources handles listing resources of a specific type
// It retrieves all pages and formats the output based on the resource type
func listResources(cmd *cobra.Command, args []string) error {
	collection, err := MapResourceTypeToURL(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	desc := fleetapi.Descriptor{
		Method:   http.MethodGet,
		Path:     "v1/" + collection,
		Paginate: true,
	}
	// Workspace listing works with the account key alone.
	if collection == "workspaces" {
		desc.SkipSessionCheck = true
	}
	if listAll {
		desc.SkipPageLimit = true
	}

	query := make(map[string]string)
	if listLimit > 0 {
		query["limit"] = strconv.Itoa(listLimit)
	}
	if listFleet != "" {
		query["fleet"] = listFleet
	}
	if len(query) > 0 {
		desc.Query = query
	}

	out := rt.exec.Execute(cmd.Context(), desc)
	if err := outcomeError(out); err != nil {
		return err
	}

	return printCollection(collection, out.Payload)
}

// init initializes the list command with its flags and adds it to the root command
func init() {
	rootCmd.AddCommand(listCmd)

	// Add flags
	listCmd.Flags().BoolVar(&listAll, "all", false, "Fetch every page, ignoring the page cap")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Page size to request from the server")
	listCmd.Flags().StringVar(&listFleet, "fleet", "", "Only list devices in this fleet")
}

// collectionPage is the aggregated listing payload.
type collectionPage struct {
	Items      []map[string]any `json:"items"`
	Pagination struct {
		Total int `json:"total"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}

// Row shapes for human-readable listings. Decoded from the item maps with
// mapstructure so unknown server fields pass through harmlessly.
type deviceRow struct {
	ID     string `mapstructure:"id"`
	Fleet  string `mapstructure:"fleet"`
	Model  string `mapstructure:"model"`
	Status string `mapstructure:"status"`
}

type fleetRow struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Channel string `mapstructure:"channel"`
}

type firmwareRow struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Size    int64  `mapstructure:"size"`
}

type userRow struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
}

type workspaceRow struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// printCollection formats and prints a listing in either JSON or
// human-readable format.
func printCollection(collection string, payload []byte) error {
	if jsonOutput {
		return printCollectionJSON(payload)
	}
	return printCollectionHumanReadable(collection, payload)
}

// printCollectionJSON wraps the aggregated payload in the standard result
// envelope.
func printCollectionJSON(payload []byte) error {
	var value map[string]any
	if err := json.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("failed to parse response")
	}

	output := map[string]any{
		"result": 1,
		"value":  value,
	}

	jsonBytes, err := json.MarshalIndent(output, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %v", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

// printCollectionHumanReadable prints the listing as columns per type.
func printCollectionHumanReadable(collection string, payload []byte) error {
	var page collectionPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	fmt.Printf("%s:\n", cases.Title(language.English).String(collection))
	if len(page.Items) == 0 {
		fmt.Println("(none)")
		return nil
	}

	var err error
	switch collection {
	case "devices":
		err = printDeviceRows(page.Items)
	case "fleets":
		err = printFleetRows(page.Items)
	case "firmware":
		err = printFirmwareRows(page.Items)
	case "users":
		err = printUserRows(page.Items)
	case "workspaces":
		err = printWorkspaceRows(page.Items)
	default:
		err = printGenericRows(page.Items)
	}
	if err != nil {
		return err
	}

	if page.Pagination.Total > 0 {
		fmt.Printf("\nTotal: %d", page.Pagination.Total)
		if page.Pagination.Pages > 1 {
			fmt.Printf(" (%d pages)", page.Pagination.Pages)
		}
		fmt.Println()
	}
	return nil
}

func printDeviceRows(items []map[string]any) error {
	fmt.Printf("%-24s %-16s %-16s %s\n", "ID", "FLEET", "MODEL", "STATUS")
	for _, item := range items {
		var row deviceRow
		if err := mapstructure.Decode(item, &row); err != nil {
			return fmt.Errorf("unexpected device entry: %v", err)
		}
		fmt.Printf("%-24s %-16s %-16s %s\n", row.ID, row.Fleet, row.Model, row.Status)
	}
	return nil
}

func printFleetRows(items []map[string]any) error {
	fmt.Printf("%-24s %-24s %s\n", "ID", "NAME", "CHANNEL")
	for _, item := range items {
		var row fleetRow
		if err := mapstructure.Decode(item, &row); err != nil {
			return fmt.Errorf("unexpected fleet entry: %v", err)
		}
		fmt.Printf("%-24s %-24s %s\n", row.ID, row.Name, row.Channel)
	}
	return nil
}

func printFirmwareRows(items []map[string]any) error {
	fmt.Printf("%-24s %-24s %-12s %s\n", "ID", "NAME", "VERSION", "SIZE")
	for _, item := range items {
		var row firmwareRow
		if err := mapstructure.Decode(item, &row); err != nil {
			return fmt.Errorf("unexpected firmware entry: %v", err)
		}
		fmt.Printf("%-24s %-24s %-12s %d\n", row.ID, row.Name, row.Version, row.Size)
	}
	return nil
}

func printUserRows(items []map[string]any) error {
	fmt.Printf("%-24s %-24s %s\n", "ID", "NAME", "ROLE")
	for _, item := range items {
		var row userRow
		if err := mapstructure.Decode(item, &row); err != nil {
			return fmt.Errorf("unexpected user entry: %v", err)
		}
		fmt.Printf("%-24s %-24s %s\n", row.ID, row.Name, row.Role)
	}
	return nil
}

func printWorkspaceRows(items []map[string]any) error {
	fmt.Printf("%-24s %s\n", "ID", "NAME")
	for _, item := range items {
		var row workspaceRow
		if err := mapstructure.Decode(item, &row); err != nil {
			return fmt.Errorf("unexpected workspace entry: %v", err)
		}
		fmt.Printf("%-24s %s\n", row.ID, row.Name)
	}
	return nil
}

// printGenericRows lists entries of a type the CLI has no columns for.
func printGenericRows(items []map[string]any) error {
	for _, item := range items {
		if id, ok := item["id"].(string); ok {
			fmt.Printf("- %s\n", id)
			continue
		}
		if name, ok := item["name"].(string); ok {
			fmt.Printf("- %s\n", name)
		}
	}
	return nil
}
