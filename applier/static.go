package applier

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/manifest"
)

// Static ensures the document root for a prebuilt site exists. Populating
// it with build artifacts is CI's job, never this applier's.
type Static struct {
	Deps
}

func (s *Static) Name() string { return "static" }

func (s *Static) Converge(ctx context.Context, m *manifest.Manifest) error {
	root := m.Static.DocumentRoot
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	zap.L().Info("ensured document root", zap.String("app", m.Name), zap.String("path", root))
	return nil
}
