package publisher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/publisher-tools/publisher/health"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
)

// AppStatus is the observed state of one application. Nil pointers mean
// the dimension does not apply to the kind.
type AppStatus struct {
	Name         string
	Kind         manifest.Kind
	Domain       string
	ManifestPath string
	SitePresent  bool
	UnitActive   *bool
	ContainersUp *bool
	Health       *health.Report
}

// Status inspects live state for one named application, or for every
// manifest in the applications directory when name is empty. It only reads:
// file existence checks, is-active queries, container listings and at most
// one HTTP GET per application.
func (r *Reconciler) Status(ctx context.Context, name string) ([]AppStatus, error) {
	manifests, err := manifest.LoadDir(r.cfg.AppsDir)
	if err != nil {
		return nil, err
	}

	var out []AppStatus
	for _, m := range manifests {
		if name != "" && m.Name != name {
			continue
		}
		out = append(out, r.appStatus(ctx, m))
	}
	return out, nil
}

func (r *Reconciler) appStatus(ctx context.Context, m *manifest.Manifest) AppStatus {
	st := AppStatus{
		Name:         m.Name,
		Kind:         m.Kind,
		Domain:       m.Domain,
		ManifestPath: m.Path,
	}

	if m.Domain != "" {
		_, err := os.Stat(filepath.Join(r.cfg.SitesDir, m.SiteFile()))
		st.SitePresent = err == nil
	}

	switch m.Kind {
	case manifest.NativeService:
		res, err := r.run.Run(ctx, []string{"systemctl", "is-active", "--quiet", m.UnitName()}, runner.Opts{Capture: true})
		active := err == nil && res.ExitCode == 0
		st.UnitActive = &active
	case manifest.ContainerStack:
		argv := []string{"docker", "compose", "-p", m.Container.Project, "ps", "-q"}
		res, err := r.run.Run(ctx, argv, runner.Opts{Capture: true})
		up := err == nil && res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != ""
		st.ContainersUp = &up
	}

	if m.Health != nil && m.Health.URL != "" {
		report := r.prober.Probe(ctx, m.Health.URL, m.Health.Timeout.D())
		st.Health = &report
	}
	return st
}
