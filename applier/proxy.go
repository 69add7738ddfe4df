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

// Proxy converges the Apache site for a domain: render the virtual host
// template, write the site file keyed by domain, enable the site and reload
// Apache. Both activation commands are idempotent.
//
// For backend-ed kinds the caller must resolve backend host and port before
// invoking Converge; for container stacks that means running the container
// applier first.
type Proxy struct {
	Deps
}

func (p *Proxy) Name() string { return "proxy" }

func (p *Proxy) Converge(ctx context.Context, m *manifest.Manifest) error {
	ctxMap := map[string]any{
		"Domain":       m.Domain,
		"BackendHost":  "127.0.0.1",
		"BackendPort":  8000,
		"DocumentRoot": "/var/www/html",
		"LogPrefix":    m.Name,
	}
	if m.Backend != nil {
		ctxMap["BackendHost"] = m.Backend.Host
		ctxMap["BackendPort"] = m.Backend.Port
	}
	if m.Static != nil {
		ctxMap["DocumentRoot"] = m.Static.DocumentRoot
	}
	if m.Proxy.LogPrefix != "" {
		ctxMap["LogPrefix"] = m.Proxy.LogPrefix
	}
	vhost, err := p.Renderer.Render("apache/"+m.Proxy.Template, ctxMap)
	if err != nil {
		return errs.Wrap(errs.ErrConfig, err)
	}

	sitePath := filepath.Join(p.Config.SitesDir, m.SiteFile())
	if err := atomicfile.WriteFile(sitePath, []byte(vhost), 0o644); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	zap.L().Info("wrote site file", zap.String("app", m.Name), zap.String("path", sitePath))

	if _, err := p.Runner.Run(ctx, []string{"a2ensite", m.SiteFile()}, runner.Opts{Check: true}); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	if _, err := p.Runner.Run(ctx, []string{"service", "apache2", "reload"}, runner.Opts{Check: true}); err != nil {
		return errs.Wrap(errs.ErrActivation, err)
	}
	return nil
}
