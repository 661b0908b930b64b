package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdd-tools/specflow/internal/observability"
)

var (
	auditType  string
	auditLevel string
	auditSpec  string
	auditSince string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long: `Query the append-only audit log of workflow events.

Every state transition, injection outcome, sequencing override, and
persistence failure is recorded here. Filter by event type, level,
specification, or time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("audit log not initialized")
		}

		filter := observability.EventFilter{
			Type:   auditType,
			Level:  auditLevel,
			SpecID: auditSpec,
		}
		if auditSince != "" {
			since, err := time.Parse(time.RFC3339, auditSince)
			if err != nil {
				return fmt.Errorf("invalid --since value %q (want RFC3339): %w", auditSince, err)
			}
			filter.Since = &since
		}

		events, err := EventLog.Read(filter)
		if err != nil {
			return fmt.Errorf("reading audit log: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No matching events.")
			return nil
		}
		for _, ev := range events {
			fmt.Printf("%s %-5s %-26s %s\n", ev.Time.Format(time.RFC3339), ev.Level, ev.Type, ev.Message)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditType, "type", "", "Filter by event type (e.g. task.started)")
	auditCmd.Flags().StringVar(&auditLevel, "level", "", "Filter by level (INFO, WARN, ERROR)")
	auditCmd.Flags().StringVar(&auditSpec, "spec", "", "Filter by specification id")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "Only events at or after this RFC3339 time")
	rootCmd.AddCommand(auditCmd)
}
