package applier

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
)

// Deployer brings the source checkout to the tip of the requested branch
// and runs the manifest's post-clone steps. The working directory is
// disposable: local modifications are discarded with a hard reset, never
// merged.
type Deployer struct {
	Deps
}

func (d *Deployer) Name() string { return "deploy" }

func (d *Deployer) Converge(ctx context.Context, m *manifest.Manifest) error {
	wd := m.WorkDir(d.Config.DeployRoot)
	if err := os.MkdirAll(wd, 0o755); err != nil {
		return errs.Wrap(errs.ErrBuild, err)
	}

	if m.Source != nil {
		branch := m.Source.Branch
		if _, err := os.Stat(filepath.Join(wd, ".git")); os.IsNotExist(err) {
			argv := []string{"git", "clone", "--depth=1", "--branch", branch, m.Source.Repo, wd}
			if _, err := d.Runner.Run(ctx, argv, runner.Opts{Check: true}); err != nil {
				return errs.Wrap(errs.ErrBuild, err)
			}
		} else {
			fetch := []string{"git", "-C", wd, "fetch", "origin", branch, "--depth=1"}
			if _, err := d.Runner.Run(ctx, fetch, runner.Opts{Check: true}); err != nil {
				return errs.Wrap(errs.ErrBuild, err)
			}
			reset := []string{"git", "-C", wd, "reset", "--hard", "origin/" + branch}
			if _, err := d.Runner.Run(ctx, reset, runner.Opts{Check: true}); err != nil {
				return errs.Wrap(errs.ErrBuild, err)
			}
		}
	}

	for _, step := range m.PostClone {
		zap.L().Info("post-clone step", zap.String("app", m.Name), zap.String("step", step))
		argv := []string{d.Config.Shell, "-c", step}
		if _, err := d.Runner.Run(ctx, argv, runner.Opts{Dir: wd, Check: true}); err != nil {
			return errs.WrapMsg(errs.ErrBuild, "post-clone step "+step, err)
		}
	}
	return nil
}
