package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/billing-report/pkg/runtime/terminal/commands"
	"github.com/de-tools/billing-report/pkg/services/report"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Factory report.Factory
	// Output receives the console report, LogOutput the structured logs.
	Output    io.Writer
	LogOutput io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Factory == nil {
		opts.Factory = report.NewAzureFactory(nil)
	}

	cli := &CLI{}
	cli.rootCmd = newRootCmd(opts)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args, used by tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func newRootCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "billing",
		Short:         "Azure billing report generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(commands.NewReportCmd(opts.Factory, opts.Output, opts.LogOutput))

	return cmd
}
