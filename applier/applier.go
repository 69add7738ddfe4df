// Package applier holds the per-kind convergence steps. Each applier brings
// one aspect of live host state in line with the manifest and is safe to
// re-run: file writes regenerate the artifact in full and activation
// commands are idempotent, so no applier ever needs to know what a previous
// apply did.
package applier

import (
	"context"

	"github.com/publisher-tools/publisher/config"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
	"github.com/publisher-tools/publisher/template"
)

type Applier interface {
	Name() string
	Converge(ctx context.Context, m *manifest.Manifest) error
}

// Deps are the collaborators shared by all appliers.
type Deps struct {
	Config   *config.Config
	Renderer template.Renderer
	Runner   runner.Runner
}
