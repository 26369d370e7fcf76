package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"teamops/internal/domain"
	"teamops/internal/report"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskAssignCmd())
	cmd.AddCommand(newTaskStartCmd())
	cmd.AddCommand(newTaskProgressCmd())
	cmd.AddCommand(newTaskReviewCmd())
	cmd.AddCommand(newTaskBlockCmd())
	cmd.AddCommand(newTaskUnblockCmd())
	cmd.AddCommand(newTaskDoneCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var title, project, description, priority, assignee, due string
	var estimate float64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task := domain.Task{
				Title:          title,
				Description:    description,
				ProjectID:      project,
				AssigneeID:     assignee,
				Priority:       domain.TaskPriority(priority),
				EstimatedHours: estimate,
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("invalid --due %q, want YYYY-MM-DD", due)
				}
				task.DueDate = &d
			}
			created, err := env.manager.CreateTask(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", created.ID, created.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&project, "project", "", "Project the task belongs to")
	cmd.Flags().StringVar(&description, "desc", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "normal", "Priority (critical|high|normal|low)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Pre-assigned agent")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "Estimated hours")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTaskAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <task-id> <agent-id>",
		Short: "Assign a task to an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			ok, err := env.manager.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}

func newTaskStartCmd() *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, ok, err := env.manager.Start(cmd.Context(), args[0], agent)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s (%s)\n", task.ID, task.AssigneeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Agent doing the work (default: current assignee)")
	return cmd
}

func newTaskProgressCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "progress <task-id> <percent>",
		Short: "Update task progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			ok, err := env.manager.UpdateProgress(cmd.Context(), args[0], percent, notes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s now at %d%%\n", args[0], percent)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Progress notes (empty keeps previous)")
	return cmd
}

func newTaskReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <task-id>",
		Short: "Send a task to review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, err := env.manager.SendToReview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s sent to review\n", task.ID)
			return nil
		},
	}
}

func newTaskBlockCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "block <task-id>",
		Short: "Block a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reason is required")
			}
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, ok, err := env.manager.Block(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s blocked: %s\n", task.ID, reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the task is blocked")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newTaskUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <task-id>",
		Short: "Resume a blocked task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, err := env.manager.Unblock(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s resumed\n", task.ID)
			return nil
		},
	}
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, ok, err := env.manager.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s done (%s)\n", task.ID, report.FormatDuration(task.ActualDurationMinutes))
			return nil
		},
	}
}

func newTaskListCmd() *cobra.Command {
	var status, assignee string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			tasks, err := env.manager.ListTasks(cmd.Context(), status, assignee)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tPROGRESS\tASSIGNEE\tTITLE")
			for _, t := range tasks {
				assigneeID := t.AssigneeID
				if assigneeID == "" {
					assigneeID = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
					t.ID, t.Status, t.Priority, t.Progress, assigneeID, t.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			task, err := env.manager.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", task.ID, task.Title)
			fmt.Fprintf(out, "  project: %s  status: %s  priority: %s  progress: %d%%\n",
				task.ProjectID, task.Status, task.Priority, task.Progress)
			if task.AssigneeID != "" {
				fmt.Fprintf(out, "  assignee: %s\n", task.AssigneeID)
			}
			if task.BlockedReason != "" {
				fmt.Fprintf(out, "  blocked: %s\n", task.BlockedReason)
			}
			if task.ActualDurationMinutes != nil {
				fmt.Fprintf(out, "  duration: %s\n", report.FormatDuration(task.ActualDurationMinutes))
			}

			history, err := env.manager.ListTaskHistory(cmd.Context(), task.ID, 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "  history:")
			for _, h := range history {
				line := fmt.Sprintf("    %s %s", h.CreatedAt.Format("2006-01-02 15:04"), h.Action)
				if h.NewStatus != "" {
					line += " -> " + string(h.NewStatus)
				}
				if h.Notes != "" {
					line += " (" + h.Notes + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
