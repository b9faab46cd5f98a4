// Package logtrace provides logging and tracing utilities for the application.
// It integrates with zerolog for structured logging and carries request IDs
// through contexts so every attempt of a request logs under the same ID.
package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix millisecond timestamps.
// Output goes to stderr so command output on stdout stays machine-readable.
// The default level is warn; SetVerbose lowers it.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetVerbose lowers the global level to debug so request attempts, retries,
// and session refreshes are logged.
func SetVerbose(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
