// Package publishctlcmd implements the publishctl command line surface.
package publishctlcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/publisher-tools/publisher"
	"github.com/publisher-tools/publisher/applier"
	"github.com/publisher-tools/publisher/config"
	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/runner"
	"github.com/publisher-tools/publisher/template"
)

var (
	rootOpt = struct {
		ConfigFile string
	}{}

	rootCmd = cobra.Command{
		Use:           "publishctl",
		Short:         "Converge applications on this host to their manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(log)

	rootCmd.PersistentFlags().StringVarP(&rootOpt.ConfigFile, "config", "c", "", "Publisher configuration file")
	rootCmd.AddCommand(&applyCmd)
	rootCmd.AddCommand(&statusCmd)
	rootCmd.AddCommand(&syncCmd)
}

// Main runs publishctl and returns the process exit code: 0 on success, 2
// on configuration errors, 1 otherwise.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return errs.ExitCode(err)
	}
	return 0
}

// newReconciler wires the production collaborators behind the reconciler.
func newReconciler(run runner.Runner) (*publisher.Reconciler, *config.Config, error) {
	cfg, err := config.Load(rootOpt.ConfigFile)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrConfig, err)
	}
	renderer := template.Dir{Root: cfg.TemplatesDir}
	certs := &applier.Certbot{Runner: run, EmailPrefix: cfg.CertbotEmailPrefix}
	return publisher.NewReconciler(cfg, run, renderer, certs), cfg, nil
}
