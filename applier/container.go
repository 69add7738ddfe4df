package applier

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/publisher-tools/publisher/internal/atomicfile"
	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
)

const composeTemplate = "docker/compose.yml.tmpl"

// Container converges a compose-style stack: render the descriptor, write
// it to the author-chosen path and bring the named project up detached.
// "up -d" reconciles running services to the descriptor rather than
// restarting unchanged ones, so re-applying is safe.
type Container struct {
	Deps
}

func (c *Container) Name() string { return "container" }

func (c *Container) Converge(ctx context.Context, m *manifest.Manifest) error {
	ctxMap := map[string]any{
		"Name":              m.Name,
		"Domain":            m.Domain,
		"Project":           m.Container.Project,
		"PublishedEndpoint": m.Container.PublishedEndpoint,
		"WorkingDir":        ".",
	}
	if m.Backend != nil && m.Backend.WorkingDir != "" {
		ctxMap["WorkingDir"] = m.Backend.WorkingDir
	}
	compose, err := c.Renderer.Render(composeTemplate, ctxMap)
	if err != nil {
		return errs.Wrap(errs.ErrConfig, err)
	}

	if err := atomicfile.WriteFile(m.Container.ComposePath, []byte(compose), 0o644); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	zap.L().Info("wrote compose file", zap.String("app", m.Name), zap.String("path", m.Container.ComposePath))

	argv := []string{"docker", "compose", "-f", m.Container.ComposePath, "-p", m.Container.Project, "up", "-d"}
	if _, err := c.Runner.Run(ctx, argv, runner.Opts{Check: true}); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	return nil
}

// PublishedEndpoint parses container.published_endpoint into the backend
// host and port the reverse proxy forwards to. A stack that declares a
// proxy but no endpoint is a configuration mistake caught before any write.
func PublishedEndpoint(m *manifest.Manifest) (host string, port int, err error) {
	ep := m.Container.PublishedEndpoint
	if ep == "" {
		return "", 0, errs.WrapMsg(errs.ErrConfig, m.Name+": container.published_endpoint is required when a proxy is declared", nil)
	}
	host, portStr, err := net.SplitHostPort(ep)
	if err != nil {
		return "", 0, errs.WrapMsg(errs.ErrConfig, m.Name+": container.published_endpoint", err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errs.WrapMsg(errs.ErrConfig, m.Name+": container.published_endpoint", err)
	}
	return host, port, nil
}
