package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdd-tools/specflow/pkg/models"
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Manage specifications (create, status, review lifecycle, hold)",
	Long: `Specification lifecycle commands.

Create specifications from task-list documents, inspect their workflow
status, and drive them through the review and implementation states.`,
}

var specCreateCmd = &cobra.Command{
	Use:   "create <document.yaml>",
	Short: "Create a specification from a task-list document",
	Long: `Create a new specification from a YAML task-list document.

The document names the specification id, an optional parent specification,
and the ordered list of tasks. All tasks start in pending status and the
specification starts in created status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		var doc models.SpecDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing document: %w", err)
		}

		spec, err := Engine.CreateSpec(doc)
		if err != nil {
			return fmt.Errorf("creating specification: %w", err)
		}

		fmt.Printf("Created specification %s\n", spec.ID)
		if spec.ParentSpecID != "" {
			fmt.Printf("  Parent: %s\n", spec.ParentSpecID)
		}
		fmt.Printf("  Status: %s\n", spec.Status)
		fmt.Printf("  Tasks:  %d\n", len(spec.Tasks))
		return nil
	},
}

var specListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known specifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		ids := Engine.SpecIDs()
		if len(ids) == 0 {
			fmt.Println("No specifications found.")
			return nil
		}
		for _, id := range ids {
			snap, err := Engine.GetWorkflowStatus(id)
			if err != nil {
				return fmt.Errorf("reading %s: %w", id, err)
			}
			fmt.Printf("%-24s %-24s %d/%d tasks done\n", snap.SpecID, snap.Status, snap.DoneTasks, snap.TotalTasks)
		}
		return nil
	},
}

// specTransitionCmd builds a command that moves a specification to the
// given workflow status. The review lifecycle is a fixed set of verbs, so
// each gets its own subcommand rather than a free-form "set-status".
func specTransitionCmd(use, short string, to models.WorkflowStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <spec-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(); err != nil {
				return err
			}
			res, err := Engine.TransitionSpec(args[0], to)
			if err != nil {
				return err
			}
			fmt.Printf("Specification %s is now %s\n", res.SpecID, res.SpecStatus)
			return nil
		},
	}
}

var specHoldCmd = &cobra.Command{
	Use:   "hold <spec-id>",
	Short: "Put a specification on hold",
	Long: `Put a specification on hold. The current workflow status is remembered
and restored by "spec resume".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		res, err := Engine.HoldSpec(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Specification %s is now %s\n", res.SpecID, res.SpecStatus)
		return nil
	},
}

var specResumeCmd = &cobra.Command{
	Use:   "resume <spec-id>",
	Short: "Resume a held specification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		res, err := Engine.ResumeSpec(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Specification %s resumed as %s\n", res.SpecID, res.SpecStatus)
		return nil
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <spec-id> <task-index> <child-spec-id>",
	Short: "Expand a task into a child specification",
	Long: `Link a task to an existing specification as its child. The child
specification's tasks elaborate on the expanded task; the link is rejected
if it would create a cycle in the specification hierarchy.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		if err := Engine.ExpandTask(args[0], index, args[2]); err != nil {
			return err
		}
		fmt.Printf("Task %s[%d] expanded into specification %s\n", args[0], index, args[2])
		return nil
	},
}

func init() {
	specCmd.AddCommand(specCreateCmd)
	specCmd.AddCommand(specListCmd)
	specCmd.AddCommand(specTransitionCmd("submit", "Submit a specification for review", models.SpecReadyForReview))
	specCmd.AddCommand(specTransitionCmd("begin-review", "Start reviewing a specification", models.SpecUnderReview))
	specCmd.AddCommand(specTransitionCmd("approve", "Approve a specification for implementation", models.SpecReadyForImplementation))
	specCmd.AddCommand(specTransitionCmd("request-changes", "Request changes to a specification", models.SpecChangesRequested))
	specCmd.AddCommand(specTransitionCmd("begin-implementation", "Mark a specification as implementing", models.SpecImplementing))
	specCmd.AddCommand(specTransitionCmd("begin-testing", "Mark a specification as testing", models.SpecTesting))
	specCmd.AddCommand(specTransitionCmd("complete", "Mark a specification as completed", models.SpecCompleted))
	specCmd.AddCommand(specHoldCmd)
	specCmd.AddCommand(specResumeCmd)
	rootCmd.AddCommand(specCmd)
	rootCmd.AddCommand(expandCmd)
}
