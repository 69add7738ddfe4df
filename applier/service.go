package applier

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/publisher-tools/publisher/internal/atomicfile"
	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
)

// Service converges the systemd unit for a native-service application:
// render the unit template, write the unit file, reload the manager and
// enable-and-start the unit.
type Service struct {
	Deps
}

func (s *Service) Name() string { return "service" }

func (s *Service) Converge(ctx context.Context, m *manifest.Manifest) error {
	ctxMap := map[string]any{
		"Name":       m.Name,
		"User":       m.Service.User,
		"Group":      m.Service.Group,
		"WorkingDir": m.Backend.WorkingDir,
		"Port":       m.Backend.Port,
		"RuntimeEnv": "",
		"Command":    "",
		"ExtraArgs":  "",
	}
	if ep := m.Backend.Entrypoint; ep != nil {
		ctxMap["RuntimeEnv"] = ep.RuntimeEnv
		ctxMap["Command"] = ep.Command
		ctxMap["ExtraArgs"] = ep.ExtraArgs
	}
	unit, err := s.Renderer.Render("systemd/"+m.Service.Template, ctxMap)
	if err != nil {
		return errs.Wrap(errs.ErrConfig, err)
	}

	unitPath := filepath.Join(s.Config.UnitsDir, m.UnitName())
	if err := atomicfile.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	zap.L().Info("wrote unit file", zap.String("app", m.Name), zap.String("path", unitPath))

	if _, err := s.Runner.Run(ctx, []string{"systemctl", "daemon-reload"}, runner.Opts{Check: true}); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	if _, err := s.Runner.Run(ctx, []string{"systemctl", "enable", "--now", m.UnitName()}, runner.Opts{Check: true}); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	return nil
}
