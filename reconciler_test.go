package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publisher-tools/publisher/config"
	"github.com/publisher-tools/publisher/internal/errs"
	"github.com/publisher-tools/publisher/runner"
	"github.com/publisher-tools/publisher/template"
)

type fakeCerts struct {
	domains []string
	err     error
}

func (f *fakeCerts) EnsureCertificate(ctx context.Context, domain string) error {
	f.domains = append(f.domains, domain)
	return f.err
}

type fixture struct {
	rec   *Reconciler
	cfg   *config.Config
	run   *runner.Recorder
	certs *fakeCerts
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		AppsDir:      filepath.Join(dir, "apps"),
		SitesDir:     filepath.Join(dir, "sites"),
		UnitsDir:     filepath.Join(dir, "units"),
		TemplatesDir: filepath.Join(dir, "templates"),
		DeployRoot:   filepath.Join(dir, "srv"),
		Shell:        "/bin/sh",
	}
	require.NoError(t, os.MkdirAll(cfg.AppsDir, 0o755))
	writeTemplates(t, cfg.TemplatesDir)

	run := &runner.Recorder{}
	certs := &fakeCerts{}
	return &fixture{
		rec:   NewReconciler(cfg, run, template.Dir{Root: cfg.TemplatesDir}, certs),
		cfg:   cfg,
		run:   run,
		certs: certs,
	}
}

func writeTemplates(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"apache/backend.conf.tmpl": "ServerName {{.Domain}}\nProxyPass / http://{{.BackendHost}}:{{.BackendPort}}/\n",
		"apache/static.conf.tmpl":  "ServerName {{.Domain}}\nDocumentRoot {{.DocumentRoot}}\n",
		"systemd/uvicorn.service.tmpl": "[Service]\nUser={{.User}}\nWorkingDirectory={{.WorkingDir}}\n" +
			"ExecStart={{.RuntimeEnv}}/bin/uvicorn {{.Command}} --port {{.Port}}\n",
		"docker/compose.yml.tmpl": "name: {{.Project}}\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func (f *fixture) writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.cfg.AppsDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyStaticSite(t *testing.T) {
	f := setup(t)
	docroot := filepath.Join(f.cfg.DeployRoot, "www", "example")
	path := f.writeManifest(t, "example.yml", `
name: example
kind: static-site
domain: example.org
static_site:
  document_root: `+docroot+`
`)

	res, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)
	assert.Empty(t, res.Warnings)

	assert.DirExists(t, docroot)
	site := readFile(t, filepath.Join(f.cfg.SitesDir, "example.org.conf"))
	assert.Contains(t, site, "ServerName example.org")
	assert.Contains(t, site, "DocumentRoot "+docroot)

	assert.Equal(t, []string{
		"a2ensite example.org.conf",
		"service apache2 reload",
	}, f.run.Calls())
}

func TestApplyNativeServiceWithSource(t *testing.T) {
	f := setup(t)
	wd := filepath.Join(f.cfg.DeployRoot, "api")
	path := f.writeManifest(t, "api.yml", `
name: api
kind: native-service
domain: api.example.org
backend:
  port: 8000
  working_dir: `+wd+`
  entrypoint:
    runtime_env: `+wd+`/.venv
    command: main:app
service:
  template: uvicorn.service.tmpl
  user: ubuntu
  group: ubuntu
source:
  repo: git@github.com:org/api.git
post_clone:
  - pip install -r requirements.txt
`)

	res, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)

	unit := readFile(t, filepath.Join(f.cfg.UnitsDir, "api.service"))
	assert.Contains(t, unit, "--port 8000")

	site := readFile(t, filepath.Join(f.cfg.SitesDir, "api.example.org.conf"))
	assert.Contains(t, site, "http://127.0.0.1:8000/")

	assert.Equal(t, []string{
		"git clone --depth=1 --branch main git@github.com:org/api.git " + wd,
		"/bin/sh -c pip install -r requirements.txt",
		"systemctl daemon-reload",
		"systemctl enable --now api.service",
		"a2ensite api.example.org.conf",
		"service apache2 reload",
	}, f.run.Calls())
}

func TestApplyUnsupportedKind(t *testing.T) {
	f := setup(t)
	path := f.writeManifest(t, "odd.yml", `
name: odd
kind: unknown-kind
`)

	_, err := f.rec.Apply(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfig))
	assert.Equal(t, 2, errs.ExitCode(err))

	// No side effects at all.
	assert.Empty(t, f.run.Calls())
	assert.NoDirExists(t, f.cfg.SitesDir)
	assert.NoDirExists(t, f.cfg.UnitsDir)
}

func TestApplyContainerStackOrdering(t *testing.T) {
	f := setup(t)
	compose := filepath.Join(f.cfg.DeployRoot, "stack", "docker-compose.yml")
	path := f.writeManifest(t, "stack.yml", `
name: stack
kind: container-stack
domain: stack.example.org
container:
  compose_path: `+compose+`
  project: stack
  published_endpoint: 127.0.0.1:9000
`)
	before := readFile(t, path)

	res, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)

	// The proxy artifact carries the endpoint derived from the manifest,
	// and is only written after the stack is up.
	site := readFile(t, filepath.Join(f.cfg.SitesDir, "stack.example.org.conf"))
	assert.Contains(t, site, "http://127.0.0.1:9000/")
	assert.Equal(t, []string{
		"docker compose -f " + compose + " -p stack up -d",
		"a2ensite stack.example.org.conf",
		"service apache2 reload",
	}, f.run.Calls())

	// The on-disk manifest never absorbs the derived backend.
	assert.Equal(t, before, readFile(t, path))
}

func TestApplyContainerMissingEndpointFailsFast(t *testing.T) {
	f := setup(t)
	compose := filepath.Join(f.cfg.DeployRoot, "stack", "docker-compose.yml")
	path := f.writeManifest(t, "stack.yml", `
name: stack
kind: container-stack
domain: stack.example.org
container:
  compose_path: `+compose+`
  project: stack
`)

	_, err := f.rec.Apply(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfig))

	// Caught during planning: nothing ran, nothing was written.
	assert.Empty(t, f.run.Calls())
	assert.NoFileExists(t, compose)
}

func TestApplyHealthWarningIsNotFatal(t *testing.T) {
	f := setup(t)
	docroot := filepath.Join(f.cfg.DeployRoot, "www")
	path := f.writeManifest(t, "example.yml", `
name: example
kind: static-site
domain: example.org
static_site:
  document_root: `+docroot+`
health_check:
  url: http://127.0.0.1:1/health
  timeout: 300ms
`)

	res, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)
	require.NotNil(t, res.Health)
	assert.Error(t, res.Health.Err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "health", res.Warnings[0].Stage)
}

func TestApplyCertificationWarningIsNotFatal(t *testing.T) {
	f := setup(t)
	f.certs.err = errors.New("rate limited")
	docroot := filepath.Join(f.cfg.DeployRoot, "www")
	path := f.writeManifest(t, "example.yml", `
name: example
kind: static-site
domain: example.org
tls: true
static_site:
  document_root: `+docroot+`
`)

	res, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)
	assert.Equal(t, []string{"example.org"}, f.certs.domains)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "certification", res.Warnings[0].Stage)
}

func TestApplyTwiceProducesIdenticalArtifacts(t *testing.T) {
	f := setup(t)
	docroot := filepath.Join(f.cfg.DeployRoot, "www")
	path := f.writeManifest(t, "example.yml", `
name: example
kind: static-site
domain: example.org
static_site:
  document_root: `+docroot+`
`)

	_, err := f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	site := filepath.Join(f.cfg.SitesDir, "example.org.conf")
	first := readFile(t, site)
	firstCalls := f.run.Calls()

	_, err = f.rec.Apply(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first, readFile(t, site))

	// The second pass repeats the same idempotent activation commands.
	assert.Equal(t, append(firstCalls, firstCalls...), f.run.Calls())
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateLoaded:    "loaded",
		StateDeployed:  "deployed",
		StateConverged: "converged",
		StateCertified: "certified",
		StateVerified:  "verified",
		StateFailed:    "failed",
	} {
		assert.Equal(t, want, state.String())
	}
	assert.Equal(t, "unknown", State(42).String())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
