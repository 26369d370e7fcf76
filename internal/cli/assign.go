package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Automatic task assignment",
	}
	cmd.AddCommand(newAssignRunCmd())
	return cmd
}

func newAssignRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Match idle agents to waiting tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			summary, err := env.engine.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summary.Assigned) == 0 && summary.Started == 0 {
				fmt.Fprintln(out, "Nothing to do")
				return nil
			}
			for _, p := range summary.Assigned {
				fmt.Fprintf(out, "%s -> %s\n", p.TaskID, p.AgentID)
			}
			fmt.Fprintf(out, "%d assigned, %d started\n", len(summary.Assigned), summary.Started)
			return nil
		},
	}
}
