package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"teamops/internal/report"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show team status at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			stats, err := env.store.DashboardStats(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Agents: %d total / %d active / %d idle / %d blocked\n",
				stats.TotalAgents, stats.ActiveAgents, stats.IdleAgents, stats.BlockedAgents)
			fmt.Fprintf(out, "Tasks:  %d total / %d todo / %d in progress / %d done / %d blocked\n",
				stats.TotalTasks, stats.TodoTasks, stats.InProgressTasks, stats.DoneTasks, stats.BlockedTasks)
			fmt.Fprintf(out, "Due today: %d   Overdue: %d   Avg progress: %.0f%%\n",
				stats.DueToday, stats.OverdueTasks, stats.AvgProgress)
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var daily bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			out, err := report.Daily(cmd.Context(), env.store, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", true, "Daily report")
	return cmd
}

func newRecalcDurationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc-durations",
		Short: "Backfill durations for completed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			updated, err := env.manager.RecalculateDurations(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d task(s)\n", updated)
			return nil
		},
	}
}
