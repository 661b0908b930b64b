package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sdd-tools/specflow/pkg/models"
)

// Status color styles for terminal output.
var (
	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	statusApproved   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	specHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	injectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

func styleForTaskStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.TaskPending:
		return statusPending
	case models.TaskInProgress:
		return statusInProgress
	case models.TaskCompleted:
		return statusCompleted
	case models.TaskApproved:
		return statusApproved
	case models.TaskBlocked:
		return statusBlocked
	default:
		return lipgloss.NewStyle()
	}
}

var statusFilter string

var statusCmd = &cobra.Command{
	Use:   "status <spec-id>",
	Short: "Display a specification's workflow status and task table",
	Long: `Display the workflow status of a specification and the state of every
task in order.

Optionally filter the task table to a single status using --filter
(e.g. --filter in_progress).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		snap, err := Engine.GetWorkflowStatus(args[0])
		if err != nil {
			return err
		}

		header := snap.SpecID
		if snap.Title != "" {
			header += " " + snap.Title
		}
		fmt.Println(specHeaderStyle.Render(header))
		fmt.Printf("Status: %s", snap.Status)
		if snap.Status == models.SpecOnHold && snap.HeldStatus != "" {
			fmt.Printf(" (held from %s)", snap.HeldStatus)
		}
		fmt.Println()
		if snap.ParentSpecID != "" {
			fmt.Printf("Parent: %s\n", snap.ParentSpecID)
		}
		if len(snap.ChildSpecIDs) > 0 {
			fmt.Printf("Children: %s\n", strings.Join(snap.ChildSpecIDs, ", "))
		}
		fmt.Printf("Progress: %d/%d tasks done", snap.DoneTasks, snap.TotalTasks)
		if snap.InjectedTasks > 0 {
			fmt.Printf(" (%d injected)", snap.InjectedTasks)
		}
		fmt.Println()
		fmt.Println()

		fmt.Printf("  %-4s %-14s %-40s %s\n", "IDX", "STATUS", "TITLE", "BRANCH")
		fmt.Printf("  %-4s %-14s %-40s %s\n", "---", "------", "-----", "------")
		for _, task := range snap.Tasks {
			if statusFilter != "" && string(task.Status) != statusFilter {
				continue
			}
			title := task.Title
			if task.Injected {
				title = injectedStyle.Render("+ ") + title
			}
			if task.SubSpecID != "" {
				title += fmt.Sprintf(" -> %s", task.SubSpecID)
			}
			status := styleForTaskStatus(task.Status).Render(fmt.Sprintf("%-14s", task.Status))
			fmt.Printf("  %-4d %s %-40s %s\n", task.StepIndex, status, title, task.Branch)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "filter", "", "Filter by task status (pending, in_progress, completed, approved, blocked)")
	rootCmd.AddCommand(statusCmd)
}
