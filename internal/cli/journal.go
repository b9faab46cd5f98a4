package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/journal"
)

// journalCmd represents the journal command group
var journalCmd = &cobra.Command{
	Use:   "journal [command]",
	Short: "Inspect the request journal",
	Long: `Commands for inspecting the request journal. Every request the CLI
sends is recorded in a hash-chained journal next to the config file, so
the history of what was sent to the fleet can be reviewed and verified
after the fact. These commands read the journal locally and work without
a server connection.

Available Commands:
  show      Show recorded requests
  verify    Verify the integrity of a journal file
  export    Export the journal as a compressed archive`,
}

var (
	journalLimit      int
	journalOutputFile string
)

// journalShowCmd represents the show subcommand
var journalShowCmd = &cobra.Command{
	Use:   "show [flags]",
	Short: "Show recorded requests",
	Long: `Show the requests recorded in the journal, oldest first.

Examples:
  # Show the last 20 requests
  fleetwave journal show

  # Show the full journal in JSON format
  fleetwave journal show --limit 0 -j`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := journal.Open(JournalPath())
		if err != nil {
			return fmt.Errorf("failed to read journal: %v", err)
		}
		if journalLimit > 0 && len(entries) > journalLimit {
			entries = entries[len(entries)-journalLimit:]
		}

		if jsonOutput {
			printJSON(map[string]any{"result": 1, "value": entries})
			return nil
		}

		if len(entries) == 0 {
			fmt.Println("Journal is empty")
			return nil
		}
		fmt.Printf("%-6s %-20s %-7s %-16s %-9s %s\n", "SEQ", "TIME", "METHOD", "OUTCOME", "ATTEMPTS", "URL")
		for _, e := range entries {
			outcome := e.Outcome
			if e.Code != "" {
				outcome = outcome + " (" + e.Code + ")"
			}
			fmt.Printf("%-6d %-20s %-7s %-16s %-9d %s\n",
				e.Seq,
				e.Time.Local().Format("2006-01-02 15:04:05"),
				e.Method,
				outcome,
				e.Attempts,
				e.URL)
		}
		return nil
	},
}

// journalVerifyCmd represents the verify subcommand
var journalVerifyCmd = &cobra.Command{
	Use:   "verify [JOURNAL_FILE] [flags]",
	Short: "Verify the integrity of a journal file",
	Long: `Verify the integrity of a journal file by checking its hash chain.
The command will:
1. Read the journal, the active one unless a file is given
2. Verify the hash chain for each entry
3. Report the first entry that fails verification

Examples:
  # Verify the active journal
  fleetwave journal verify

  # Verify an exported journal
  fleetwave journal verify requests.zjrnl -j`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journalFile := JournalPath()
		if len(args) > 0 {
			journalFile = args[0]
		}

		entries, err := journal.VerifyFile(journalFile)
		if err != nil {
			if jsonOutput {
				printJSON(map[string]any{
					"result": 0,
					"error":  err.Error(),
				})
				return nil
			}
			return fmt.Errorf("journal verification failed: %v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{
				"result": 1,
				"value": map[string]any{
					"status":  "success",
					"file":    journalFile,
					"entries": entries,
				},
			})
		} else {
			fmt.Printf("Journal verification successful (%d entries)\n", entries)
		}
		return nil
	},
}

// journalExportCmd represents the export subcommand
var journalExportCmd = &cobra.Command{
	Use:   "export [flags]",
	Short: "Export the journal as a compressed archive",
	Long: `Export the journal as a snappy-compressed archive suitable for
handing off. The exported file verifies the same way the live journal
does.

Examples:
  # Export next to the journal
  fleetwave journal export

  # Export to a specific file
  fleetwave journal export -o /tmp/requests.zjrnl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src := JournalPath()
		dst := journalOutputFile
		if dst == "" {
			dst = strings.TrimSuffix(src, ".jrnl") + ".zjrnl"
		}

		if err := journal.Export(src, dst); err != nil {
			return fmt.Errorf("failed to export journal: %v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{
				"result": 1,
				"value":  map[string]any{"file": dst},
			})
		} else {
			fmt.Printf("Journal exported: %s\n", dst)
		}
		return nil
	},
}

// init initializes the journal command and its subcommands with their respective flags
func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalVerifyCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalShowCmd.Flags().IntVar(&journalLimit, "limit", 20, "Number of entries to show, 0 for all")
	journalExportCmd.Flags().StringVarP(&journalOutputFile, "output", "o", "", "Output file path (default: journal path with .zjrnl extension)")
}
