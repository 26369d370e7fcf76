package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"teamops/internal/router"
)

func newMsgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg",
		Short: "Escalations, replies, and broadcasts",
	}
	cmd.AddCommand(newMsgHelpCmd())
	cmd.AddCommand(newMsgReplyCmd())
	cmd.AddCommand(newMsgResolveCmd())
	cmd.AddCommand(newMsgBroadcastCmd())
	cmd.AddCommand(newMsgListCmd())
	cmd.AddCommand(newMsgEscalationsCmd())
	return cmd
}

func newMsgHelpCmd() *cobra.Command {
	var taskID, issueType, urgency string
	cmd := &cobra.Command{
		Use:   "help <from-agent> <description...>",
		Short: "Ask the team for help",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			result, err := env.router.RequestHelp(cmd.Context(), args[0], strings.Join(args[1:], " "), taskID, issueType, urgency)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s, suggested helpers: %s\n",
				result.EscalationID, strings.Join(result.Helpers, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "Related task id")
	cmd.Flags().StringVar(&issueType, "type", "technical", "Issue type")
	cmd.Flags().StringVar(&urgency, "urgency", "normal", "Urgency (low|normal|high|critical)")
	return cmd
}

func newMsgReplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply <escalation-id> <helper-agent> <answer...>",
		Short: "Answer a help request",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			result, err := env.router.Reply(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reply sent to %s\n", result.To)
			return nil
		},
	}
	return cmd
}

func newMsgResolveCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "resolve <escalation-id> <resolved-by>",
		Short: "Mark an escalation resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			result, err := env.router.Resolve(cmd.Context(), args[0], args[1], notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s after %s (involved: %s)\n",
				args[0], router.FormatResolutionTime(result.Minutes), strings.Join(result.Involved, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Resolution notes")
	return cmd
}

func newMsgBroadcastCmd() *cobra.Command {
	var urgency string
	cmd := &cobra.Command{
		Use:   "broadcast <from-agent> <content...>",
		Short: "Message the whole team",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			result, err := env.router.Broadcast(cmd.Context(), args[0], strings.Join(args[1:], " "), urgency)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Broadcast sent to %d agent(s)\n", result.Recipients)
			return nil
		},
	}
	cmd.Flags().StringVar(&urgency, "urgency", "normal", "Urgency (low|normal|high|critical)")
	return cmd
}

func newMsgListCmd() *cobra.Command {
	var agent, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			convs, err := env.router.ListConversations(cmd.Context(), agent, status)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tFROM\tTO\tURGENCY\tCONTENT")
			for _, c := range convs {
				to := c.ToAgent
				if to == "" {
					to = "(all)"
				}
				content := c.Content
				if len(content) > 60 {
					content = content[:60] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Type, c.FromAgent, to, c.Urgency, content)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Show messages visible to this agent")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

func newMsgEscalationsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close(cmd.Context())

			escalations, err := env.router.ListEscalations(cmd.Context(), status)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tFROM\tHELPER\tPRIORITY\tDESCRIPTION")
			for _, e := range escalations {
				helper := e.AssignedHelper
				if helper == "" {
					helper = "-"
				}
				desc := e.Description
				if len(desc) > 60 {
					desc = desc[:60] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Status, e.FromAgent, helper, e.Priority, desc)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}
