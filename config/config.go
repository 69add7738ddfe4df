// Package config carries the process-wide filesystem locations. They are
// threaded explicitly into the reconciler and status reporter so tests can
// redirect everything to a scratch directory.
package config

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/goccy/go-yaml"
)

type Config struct {
	// AppsDir holds one manifest file per application.
	AppsDir string `yaml:"apps_dir" default:"/opt/publisher/apps"`

	// SitesDir is where reverse proxy site files are written, keyed by domain.
	SitesDir string `yaml:"sites_dir" default:"/etc/apache2/sites-available"`

	// UnitsDir is where systemd unit files are written, keyed by app name.
	UnitsDir string `yaml:"units_dir" default:"/etc/systemd/system"`

	// TemplatesDir holds the artifact templates, one file per template name.
	TemplatesDir string `yaml:"templates_dir" default:"/opt/publisher/templates"`

	// DeployRoot is where source checkouts land when the manifest does not
	// name a working directory.
	DeployRoot string `yaml:"deploy_root" default:"/srv"`

	// Shell runs post-clone steps, as "<shell> -c <step>".
	Shell string `yaml:"shell" default:"/bin/sh"`

	// CertbotEmailPrefix forms the registration address admin@<domain>.
	CertbotEmailPrefix string `yaml:"certbot_email_prefix" default:"admin"`
}

// Load reads the optional publisher configuration file. An empty path
// returns pure defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
