package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

type optionsKey struct{}

type options struct {
	ConfigPath string
	DBPath     string
}

func withOptions(ctx context.Context, o options) context.Context {
	return context.WithValue(ctx, optionsKey{}, o)
}

func optionsFrom(ctx context.Context) options {
	if o, ok := ctx.Value(optionsKey{}).(options); ok {
		return o
	}
	return options{}
}

func NewRootCmd(version string) *cobra.Command {
	var configPath string
	var dbPath string

	cmd := &cobra.Command{
		Use:          "teamops",
		Short:        "teamops - multi-agent task orchestration",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withOptions(cmd.Context(), options{
				ConfigPath: configPath,
				DBPath:     dbPath,
			}))
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.teamops/config.toml)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")

	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newMsgCmd())
	cmd.AddCommand(newAssignCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newRecalcDurationsCmd())
	cmd.AddCommand(newServeCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
