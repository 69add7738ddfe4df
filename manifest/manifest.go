package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"

	"github.com/publisher-tools/publisher/internal/errs"
)

// Kind determines which appliers run for an application.
type Kind string

const (
	NativeService  Kind = "native-service"
	StaticSite     Kind = "static-site"
	ContainerStack Kind = "container-stack"
)

// kindAliases maps the framework-specific kinds written by the manifest
// builder to the kinds convergence actually dispatches on.
var kindAliases = map[string]Kind{
	"fastapi":   NativeService,
	"streamlit": NativeService,
	"flutter":   StaticSite,
	"docker":    ContainerStack,
}

// Manifest is the desired state of one application. It is an immutable
// input to an apply; nothing here is ever written back to disk.
type Manifest struct {
	Name      string       `yaml:"name"`
	Kind      Kind         `yaml:"kind"`
	Domain    string       `yaml:"domain"`
	TLS       bool         `yaml:"tls"`
	Proxy     *Proxy       `yaml:"proxy"`
	Backend   *Backend     `yaml:"backend"`
	Service   *Service     `yaml:"service"`
	Static    *Static      `yaml:"static_site"`
	Container *Container   `yaml:"container"`
	Source    *Source      `yaml:"source"`
	PostClone []string     `yaml:"post_clone"`
	Health    *HealthCheck `yaml:"health_check"`

	// Path is the file the manifest was loaded from, for diagnostics.
	Path string `yaml:"-"`
}

type Proxy struct {
	Template  string `yaml:"template"`
	LogPrefix string `yaml:"log_prefix"`
}

type Backend struct {
	Host       string      `yaml:"host" default:"127.0.0.1"`
	Port       int         `yaml:"port"`
	WorkingDir string      `yaml:"working_dir"`
	Entrypoint *Entrypoint `yaml:"entrypoint"`
}

type Entrypoint struct {
	RuntimeEnv string `yaml:"runtime_env"`
	Command    string `yaml:"command"`
	ExtraArgs  string `yaml:"extra_args"`
}

type Service struct {
	Template string `yaml:"template"`
	User     string `yaml:"user"`
	Group    string `yaml:"group"`
}

type Static struct {
	DocumentRoot   string `yaml:"document_root"`
	ArtifactSubdir string `yaml:"artifact_subdir"`
}

type Container struct {
	ComposePath       string `yaml:"compose_path"`
	Project           string `yaml:"project"`
	PublishedEndpoint string `yaml:"published_endpoint"`
}

type Source struct {
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch" default:"main"`
}

type HealthCheck struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// Validate checks that the sub-records required by the declared kind are
// present. It is called by Load, before any applier can run.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return errs.WrapMsg(errs.ErrConfig, "manifest is missing a name", nil)
	}
	if alias, ok := kindAliases[string(m.Kind)]; ok {
		m.Kind = alias
	}
	switch m.Kind {
	case NativeService:
		if m.Service == nil {
			return m.missing("service")
		}
		if m.Backend == nil || m.Backend.WorkingDir == "" {
			return m.missing("backend.working_dir")
		}
	case StaticSite:
		if m.Static == nil || m.Static.DocumentRoot == "" {
			return m.missing("static_site.document_root")
		}
	case ContainerStack:
		if m.Container == nil || m.Container.ComposePath == "" {
			return m.missing("container.compose_path")
		}
		if m.Container.Project == "" {
			return m.missing("container.project")
		}
	default:
		return errs.WrapMsg(errs.ErrConfig, fmt.Sprintf("%s: unsupported kind %q", m.Name, m.Kind), nil)
	}
	if m.Proxy != nil && m.Domain == "" {
		return m.missing("domain")
	}
	if m.Health != nil && m.Health.Timeout == 0 {
		m.Health.Timeout = Duration(5 * time.Second)
	}
	return nil
}

func (m *Manifest) missing(field string) error {
	return errs.WrapMsg(errs.ErrConfig, fmt.Sprintf("%s: kind %s requires %s", m.Name, m.Kind, field), nil)
}

// WorkDir returns the directory code is deployed into.
func (m *Manifest) WorkDir(fallbackRoot string) string {
	if m.Backend != nil && m.Backend.WorkingDir != "" {
		return m.Backend.WorkingDir
	}
	return filepath.Join(fallbackRoot, m.Name)
}

// UnitName returns the systemd unit the application runs as.
func (m *Manifest) UnitName() string {
	return m.Name + ".service"
}

// SiteFile returns the proxy site file name, keyed by domain.
func (m *Manifest) SiteFile() string {
	return m.Domain + ".conf"
}

// Duration decodes YAML durations such as "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := unquote(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	return d.UnmarshalYAML(b)
}

func (d Duration) D() time.Duration { return time.Duration(d) }

func unquote(b []byte, s *string) error {
	v := string(b)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	*s = v
	return nil
}

func setDefaults(m *Manifest) error {
	return defaults.Set(m)
}
