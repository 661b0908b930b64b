package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdd-tools/specflow/internal/core"
	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Inject tasks into a running specification",
	Long: `Inject new tasks into a specification's task graph at runtime.

Proposals are validated before commit; a rejected proposal leaves the graph
untouched and reports why. Batch injection commits the accepted subset
atomically while rejections are reported individually.`,
}

var (
	injectTaskID      string
	injectTaskDetails string
	injectTaskAccept  string
	injectTaskFiles   []string
	injectTaskParent  int
	injectTaskReason  string
)

var injectTaskCmd = &cobra.Command{
	Use:   "task <spec-id> <title>",
	Short: "Propose a single task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		proposal := models.TaskProposal{
			ID:                 injectTaskID,
			Title:              args[1],
			Details:            injectTaskDetails,
			AcceptanceCriteria: injectTaskAccept,
			Files:              injectTaskFiles,
			Source:             models.SourceOperator,
			Reason:             injectTaskReason,
		}
		if cmd.Flags().Changed("parent") {
			parent := injectTaskParent
			proposal.ParentIndex = &parent
		}
		outcome, err := Engine.InjectTask(args[0], proposal)
		if err != nil {
			return err
		}
		if outcome.Rejection != nil {
			return &wferrors.RejectionError{Reason: outcome.Rejection.Reason, Message: outcome.Rejection.Message}
		}
		printOutcome(args[0], outcome)
		return nil
	},
}

var injectBatchCmd = &cobra.Command{
	Use:   "batch <spec-id> <proposals.yaml>",
	Short: "Propose a batch of tasks from a YAML file",
	Long: `Propose a batch of tasks read from a YAML file containing a list of
proposals. Accepted proposals are committed together with contiguous
indices; rejected ones are reported with their reason.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading proposals: %w", err)
		}
		var proposals []models.TaskProposal
		if err := yaml.Unmarshal(data, &proposals); err != nil {
			return fmt.Errorf("parsing proposals: %w", err)
		}
		for i := range proposals {
			if proposals[i].Source == "" {
				proposals[i].Source = models.SourceOperator
			}
		}

		outcomes, err := Engine.InjectTasks(args[0], proposals)
		if err != nil {
			return err
		}
		accepted := 0
		for _, outcome := range outcomes {
			printOutcome(args[0], outcome)
			if outcome.Task != nil {
				accepted++
			}
		}
		fmt.Printf("%d of %d proposals accepted\n", accepted, len(outcomes))
		return nil
	},
}

func printOutcome(specID string, outcome core.InjectionOutcome) {
	if outcome.Task != nil {
		fmt.Printf("Injected %s[%d] %q (id %s)\n", specID, outcome.Task.StepIndex, outcome.Task.Title, outcome.Task.ID)
		return
	}
	r := outcome.Rejection
	fmt.Printf("Rejected %q: %s (%s)\n", r.Proposal.Title, r.Reason, r.Message)
}

func init() {
	injectTaskCmd.Flags().StringVar(&injectTaskID, "id", "", "Stable proposal id (required)")
	injectTaskCmd.Flags().StringVar(&injectTaskDetails, "details", "", "What the task does")
	injectTaskCmd.Flags().StringVar(&injectTaskAccept, "accept", "", "Acceptance criteria")
	injectTaskCmd.Flags().StringSliceVar(&injectTaskFiles, "files", nil, "Files the task touches")
	injectTaskCmd.Flags().IntVar(&injectTaskParent, "parent", 0, "Step index of the parent task")
	injectTaskCmd.Flags().StringVar(&injectTaskReason, "reason", "", "Why the task is being injected")
	_ = injectTaskCmd.MarkFlagRequired("id")

	injectCmd.AddCommand(injectTaskCmd)
	injectCmd.AddCommand(injectBatchCmd)
	rootCmd.AddCommand(injectCmd)
}
