package cli

import (
	"github.com/spf13/cobra"

	"github.com/bpradana/deeply"
)

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <plan>",
		Short: "Verify every task of a plan without executing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTask(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opts.runContext(cmd)
			defer cancel()

			report, err := deeply.Verify(ctx, root, opts.runOptions(cmd)...)
			if report != nil {
				printPhase(cmd.OutOrStdout(), report, deeply.PhaseVerify)
			}
			return err
		},
	}
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Verify a plan, then execute it",
		Long:  `Verify every task of the plan and execute the tree only if verification succeeded.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTask(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opts.runContext(cmd)
			defer cancel()

			phases := []deeply.Phase{deeply.PhaseVerify, deeply.PhaseExecute}
			run := deeply.VerifyAndExecute
			if skipVerify {
				phases = phases[1:]
				run = deeply.Execute
			}

			report, err := run(ctx, root, opts.runOptions(cmd)...)
			if report != nil {
				for _, phase := range phases {
					printPhase(cmd.OutOrStdout(), report, phase)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Execute without verifying first (not recommended)")
	return cmd
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <plan>",
		Short: "Print the task tree of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTask(cmd, args[0])
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), root)
		},
	}
}

func newDotCmd() *cobra.Command {
	var rankDir string

	cmd := &cobra.Command{
		Use:   "dot <plan>",
		Short: "Export the task tree of a plan in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTask(cmd, args[0])
			if err != nil {
				return err
			}
			return deeply.ExportDOT(cmd.OutOrStdout(), root, deeply.DOTWithRankDir(rankDir))
		},
	}
	cmd.Flags().StringVar(&rankDir, "rank-dir", "TB", "Graph rank direction (TB, LR, ...)")
	return cmd
}
