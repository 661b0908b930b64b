package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sdd-tools/specflow/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Drive tasks through their lifecycle (start, complete, approve, block)",
	Long: `Task lifecycle commands.

Start the next task in sequence, complete it with optional branch merge,
record approvals, and block or reject tasks that need rework.`,
}

func parseTaskIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid task index %q", arg)
	}
	return index, nil
}

func printResult(res *models.Result) {
	fmt.Printf("Task %s[%d] is now %s\n", res.SpecID, res.TaskIndex, res.TaskStatus)
	if res.Branch != "" {
		fmt.Printf("  Branch: %s\n", res.Branch)
	}
	if res.Merged {
		fmt.Printf("  Merged: yes (branch deleted: %v)\n", res.BranchDeleted)
	}
	printWarnings(res.Warnings)
}

func printWarnings(warnings []models.Warning) {
	for _, w := range warnings {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  warning [%s]: %s", w.Code, w.Message)))
	}
}

var taskStartOverride string

var taskStartCmd = &cobra.Command{
	Use:   "start <spec-id> <task-index>",
	Short: "Start a task",
	Long: `Start a task, moving it to in_progress and creating its feature branch.

With strict sequencing enabled, a task can only start once every earlier
task is completed or approved. Use --override with a reason to start out
of order; the override is recorded in the audit log.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.StartTask(context.Background(), args[0], index, taskStartOverride)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var (
	taskCompleteNotes string
	taskCompleteMerge bool
	taskCompleteKeep  bool
)

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <spec-id> <task-index>",
	Short: "Complete a task",
	Long: `Complete an in-progress task.

With --merge the task's feature branch is merged back with a merge commit
and deleted unless --keep-branch is given. Merge failures never undo the
completion; they surface as warnings.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.CompleteTask(context.Background(), args[0], index, taskCompleteNotes, taskCompleteMerge, taskCompleteKeep)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var (
	taskApproveLevel   string
	taskApproveComment string
	taskApproveBy      string
)

var taskApproveCmd = &cobra.Command{
	Use:   "approve <spec-id> <task-index>",
	Short: "Record an approval on a completed task",
	Long: `Record an approval on a completed task.

Approvals accumulate; the task only moves to approved when "task promote"
finds an approval at or above the configured required level.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.ApproveTask(args[0], index, models.ApprovalLevel(taskApproveLevel), taskApproveBy, taskApproveComment)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var taskPromoteCmd = &cobra.Command{
	Use:   "promote <spec-id> <task-index>",
	Short: "Promote a completed task to approved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.PromoteTask(args[0], index)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var taskRejectReason string

var taskRejectCmd = &cobra.Command{
	Use:   "reject <spec-id> <task-index>",
	Short: "Reject a completed task back to pending",
	Long: `Reject a completed task, returning it to pending for rework.
Existing approval records are preserved for the audit trail.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.RejectTask(args[0], index, taskRejectReason)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var taskBlockReason string

var taskBlockCmd = &cobra.Command{
	Use:   "block <spec-id> <task-index>",
	Short: "Block a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.BlockTask(args[0], index, taskBlockReason)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock <spec-id> <task-index>",
	Short: "Unblock a task, returning it to pending",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		index, err := parseTaskIndex(args[1])
		if err != nil {
			return err
		}
		res, err := Engine.UnblockTask(args[0], index)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

// completeApprovalLevels returns valid approval levels for shell completion.
func completeApprovalLevels(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"self\tAuthor's own review",
		"peer\tReview by another engineer",
		"ai_assisted\tAI-assisted review",
		"admin\tAdministrative sign-off",
	}, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	taskStartCmd.Flags().StringVar(&taskStartOverride, "override", "", "Reason for starting out of sequence")

	taskCompleteCmd.Flags().StringVar(&taskCompleteNotes, "notes", "", "Completion notes")
	taskCompleteCmd.Flags().BoolVar(&taskCompleteMerge, "merge", false, "Merge the task's feature branch")
	taskCompleteCmd.Flags().BoolVar(&taskCompleteKeep, "keep-branch", false, "Keep the branch after merging")

	taskApproveCmd.Flags().StringVar(&taskApproveLevel, "level", "peer", "Approval level: self, peer, ai_assisted, or admin")
	taskApproveCmd.Flags().StringVar(&taskApproveComment, "comment", "", "Approval comment")
	taskApproveCmd.Flags().StringVar(&taskApproveBy, "by", "", "Approver identity (defaults to configured actor)")
	_ = taskApproveCmd.RegisterFlagCompletionFunc("level", completeApprovalLevels)

	taskRejectCmd.Flags().StringVar(&taskRejectReason, "reason", "", "Why the task was rejected")
	taskBlockCmd.Flags().StringVar(&taskBlockReason, "reason", "", "What the task is blocked on (required)")
	_ = taskBlockCmd.MarkFlagRequired("reason")

	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskApproveCmd)
	taskCmd.AddCommand(taskPromoteCmd)
	taskCmd.AddCommand(taskRejectCmd)
	taskCmd.AddCommand(taskBlockCmd)
	taskCmd.AddCommand(taskUnblockCmd)
	rootCmd.AddCommand(taskCmd)
}
