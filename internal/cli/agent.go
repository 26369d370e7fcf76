package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"teamops/internal/domain"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents",
	}
	cmd.AddCommand(newAgentAddCmd())
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentHeartbeatCmd())
	return cmd
}

func newAgentAddCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "add <agent-id>",
		Short: "Register a new agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role == "" {
				return fmt.Errorf("--role is required")
			}
			if name == "" {
				name = args[0]
			}
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			if err := env.manager.AddAgent(cmd.Context(), domain.Agent{
				ID:   args[0],
				Name: name,
				Role: role,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added agent %s (%s)\n", args[0], role)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: agent id)")
	cmd.Flags().StringVar(&role, "role", "", "Agent role (frontend, backend, qa, ...)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			agents, err := env.manager.ListAgents(cmd.Context(), status)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROLE\tSTATUS\tCURRENT TASK\tASSIGNED\tCOMPLETED")
			for _, a := range agents {
				current := a.CurrentTaskID
				if current == "" {
					current = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
					a.ID, a.Role, a.Status, current, a.TotalTasksAssigned, a.TotalTasksCompleted)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

func newAgentHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat <agent-id>",
		Short: "Record an agent heartbeat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			ok, err := env.manager.Heartbeat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Agent %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat recorded for %s\n", args[0])
			return nil
		},
	}
}
