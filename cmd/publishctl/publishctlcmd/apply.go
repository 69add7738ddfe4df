package publishctlcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/publisher-tools/publisher/runner"
)

var (
	applyOpt = struct {
		DryRun bool
	}{}

	applyCmd = cobra.Command{
		Use:   "apply <manifest>",
		Short: "Converge one application to its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run runner.Runner = runner.OS{}
			if applyOpt.DryRun {
				run = runner.DryRunner{}
			}
			rec, _, err := newReconciler(run)
			if err != nil {
				return err
			}

			res, err := rec.Apply(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", res.Name, res.State)
			if res.Health != nil && res.Health.Err == nil {
				fmt.Printf("health: %d\n", res.Health.StatusCode)
			}
			for _, w := range res.Warnings {
				_, _ = fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Stage, w.Message)
			}
			return nil
		},
	}
)

func init() {
	applyCmd.Flags().BoolVar(&applyOpt.DryRun, "dry-run", false, "Log activation commands without executing them")
}
