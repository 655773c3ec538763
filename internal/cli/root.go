// Package cli implements the deeply command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bpradana/deeply"
	"github.com/bpradana/deeply/internal/plan"
)

type globalOptions struct {
	maxConcurrency int
	timeout        time.Duration
	verbose        bool
}

// NewRootCmd builds the deeply command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "deeply",
		Short:         "Verify and run hierarchical task plans",
		Long:          `Deeply loads a YAML plan of nested tasks, verifies every task in the tree and only then executes it.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.IntVar(&opts.maxConcurrency, "max-concurrency", 0, "Maximum number of leaf tasks running at once (0 = unbounded)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Abort the run after this duration (0 = no timeout)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log task lifecycle to stderr")

	root.AddCommand(
		newVerifyCmd(opts),
		newRunCmd(opts),
		newTreeCmd(),
		newDotCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		cmd.PrintErrln(errorStyle.Render("Error: " + err.Error()))
	}
	return err
}

func (o *globalOptions) runOptions(cmd *cobra.Command) []deeply.RunOption {
	opts := []deeply.RunOption{deeply.WithMaxConcurrency(o.maxConcurrency)}
	if o.verbose {
		opts = append(opts, deeply.WithLogger(deeply.NewLogger(cmd.ErrOrStderr())))
	}
	return opts
}

// runContext cancels on SIGINT/SIGTERM and after the configured timeout.
func (o *globalOptions) runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if o.timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func loadTask(cmd *cobra.Command, path string) (deeply.Task, error) {
	node, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	b := &plan.Builder{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	return b.Build(node)
}
