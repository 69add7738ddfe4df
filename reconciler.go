// Package publisher converges declarative application manifests against
// live host state: systemd units, Apache sites, compose stacks and static
// document roots. Each apply is a full pass over the manifest; idempotence
// comes from every step being idempotent, not from tracking prior applies.
package publisher

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/publisher-tools/publisher/applier"
	"github.com/publisher-tools/publisher/config"
	"github.com/publisher-tools/publisher/health"
	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
	"github.com/publisher-tools/publisher/template"
)

// State tracks how far an apply progressed.
type State int

const (
	StateLoaded State = iota
	StateDeployed
	StateConverged
	StateCertified
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateDeployed:
		return "deployed"
	case StateConverged:
		return "converged"
	case StateCertified:
		return "certified"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Warning is a non-fatal issue surfaced to the operator. Certification and
// health problems never fail an apply: convergence already happened and
// both are retried naturally on the next run.
type Warning struct {
	Stage   string
	Message string
}

// Result reports one apply.
type Result struct {
	Name     string
	Kind     manifest.Kind
	State    State
	Health   *health.Report
	Warnings []Warning
}

// Reconciler sequences deployment, the per-kind appliers, certification and
// health verification for one manifest at a time. Concurrent applies of the
// same application must be serialized by the caller.
type Reconciler struct {
	cfg    *config.Config
	run    runner.Runner
	certs  applier.CertManager
	prober health.Prober

	deployer  *applier.Deployer
	service   *applier.Service
	proxy     *applier.Proxy
	container *applier.Container
	static    *applier.Static
}

func NewReconciler(cfg *config.Config, run runner.Runner, renderer template.Renderer, certs applier.CertManager) *Reconciler {
	deps := applier.Deps{Config: cfg, Renderer: renderer, Runner: run}
	return &Reconciler{
		cfg:       cfg,
		run:       run,
		certs:     certs,
		deployer:  &applier.Deployer{Deps: deps},
		service:   &applier.Service{Deps: deps},
		proxy:     &applier.Proxy{Deps: deps},
		container: &applier.Container{Deps: deps},
		static:    &applier.Static{Deps: deps},
	}
}

// Apply loads the manifest at path and converges the application it
// describes.
func (r *Reconciler) Apply(ctx context.Context, path string) (*Result, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return &Result{State: StateFailed}, err
	}
	return r.ApplyManifest(ctx, m)
}

// ApplyManifest runs the state machine for one loaded manifest:
// Loaded -> Deployed -> Converged -> Certified -> Verified. The manifest is
// never mutated; derived values such as a container stack's published
// endpoint live only in an in-memory copy.
func (r *Reconciler) ApplyManifest(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	res := &Result{Name: m.Name, Kind: m.Kind, State: StateLoaded}
	log := zap.L().With(zap.String("app", m.Name), zap.String("kind", string(m.Kind)))

	steps, err := r.plan(m)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	if m.Source != nil {
		if err := r.deployer.Converge(ctx, m); err != nil {
			res.State = StateFailed
			return res, err
		}
	}
	res.State = StateDeployed

	for _, step := range steps {
		log.Info("converging", zap.String("applier", step.applier.Name()))
		if err := step.applier.Converge(ctx, step.manifest); err != nil {
			res.State = StateFailed
			return res, err
		}
	}
	res.State = StateConverged

	if m.TLS && m.Domain != "" {
		if err := r.certs.EnsureCertificate(ctx, m.Domain); err != nil {
			log.Warn("certification failed; will retry on next apply", zap.Error(err))
			res.Warnings = append(res.Warnings, Warning{Stage: "certification", Message: err.Error()})
		}
	}
	res.State = StateCertified

	if m.Health != nil && m.Health.URL != "" {
		report := r.prober.Probe(ctx, m.Health.URL, m.Health.Timeout.D())
		res.Health = &report
		if !report.Healthy() {
			log.Warn("health probe failed", zap.String("url", m.Health.URL))
			res.Warnings = append(res.Warnings, Warning{Stage: "health", Message: healthMessage(report)})
		}
	}
	res.State = StateVerified

	log.Info("apply complete", zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

type step struct {
	applier  applier.Applier
	manifest *manifest.Manifest
}

// plan resolves the ordered applier sequence for the manifest's kind. The
// ordering invariant lives here and nowhere else: a proxy for a container
// stack always follows the container applier, because its backend endpoint
// is derived from container.published_endpoint.
func (r *Reconciler) plan(m *manifest.Manifest) ([]step, error) {
	switch m.Kind {
	case manifest.NativeService:
		steps := []step{{r.service, m}}
		if p := proxyManifest(m); p != nil {
			steps = append(steps, step{r.proxy, p})
		}
		return steps, nil

	case manifest.StaticSite:
		p := proxyManifest(m)
		if p == nil {
			return nil, errs.WrapMsg(errs.ErrConfig, m.Name+": static-site requires a domain", nil)
		}
		return []step{{r.static, m}, {r.proxy, p}}, nil

	case manifest.ContainerStack:
		steps := []step{{r.container, m}}
		if p := proxyManifest(m); p != nil {
			host, port, err := applier.PublishedEndpoint(m)
			if err != nil {
				return nil, err
			}
			p.Backend = &manifest.Backend{Host: host, Port: port}
			steps = append(steps, step{r.proxy, p})
		}
		return steps, nil
	}
	return nil, errs.WrapMsg(errs.ErrConfig, m.Name+": unsupported kind "+string(m.Kind), nil)
}

// proxyManifest returns a copy of m prepared for the proxy applier, or nil
// when no proxy should run. A proxy runs whenever the manifest names a
// domain; the proxy sub-record only customizes it. The copy keeps the
// loaded manifest immutable.
func proxyManifest(m *manifest.Manifest) *manifest.Manifest {
	if m.Domain == "" {
		return nil
	}
	mm := *m
	if mm.Proxy == nil {
		mm.Proxy = &manifest.Proxy{}
	} else {
		p := *mm.Proxy
		mm.Proxy = &p
	}
	if mm.Proxy.Template == "" {
		if m.Kind == manifest.StaticSite {
			mm.Proxy.Template = "static.conf.tmpl"
		} else {
			mm.Proxy.Template = "backend.conf.tmpl"
		}
	}
	return &mm
}

func healthMessage(r health.Report) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return "unexpected status " + strconv.Itoa(r.StatusCode)
}
