// Package cli implements the specflow command-line interface. Commands are
// thin: they parse arguments, invoke engine operations, and render results;
// all policy lives in the engine.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdd-tools/specflow/internal/core"
	"github.com/sdd-tools/specflow/internal/observability"
)

// Engine is the workflow engine used by all commands. Set during
// application wiring.
var Engine *core.Engine

// EventLog is the audit log, used by the audit command.
var EventLog observability.EventLog

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "specflow",
	Short: "specflow - spec-driven workflow engine",
	Long: `specflow tracks the lifecycle of implementation tasks derived from a
specification document, enforces ordered execution with approval gates,
supports runtime task injection from AI proposals or operator commands, and
keeps git feature branches in sync with task state.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("specflow %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// requireEngine guards commands against running before wiring.
func requireEngine() error {
	if Engine == nil {
		return fmt.Errorf("engine not initialized")
	}
	return nil
}
