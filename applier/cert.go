package applier

import (
	"context"
	"strings"

	"github.com/publisher-tools/publisher/runner"
)

// CertManager obtains or renews a certificate for a domain. The production
// implementation shells out to certbot, which also wires the certificate
// into Apache on its own.
type CertManager interface {
	EnsureCertificate(ctx context.Context, domain string) error
}

type Certbot struct {
	Runner      runner.Runner
	EmailPrefix string
}

func (c *Certbot) EnsureCertificate(ctx context.Context, domain string) error {
	argv := []string{
		"certbot", "--apache", "-n", "--agree-tos",
		"-m", c.EmailPrefix + "@" + registrableDomain(domain),
		"-d", domain, "--redirect",
	}
	_, err := c.Runner.Run(ctx, argv, runner.Opts{Check: true})
	return err
}

// registrableDomain strips the host label: api.example.org -> example.org.
// Bare domains are registered as-is.
func registrableDomain(domain string) string {
	if _, rest, ok := strings.Cut(domain, "."); ok && strings.Contains(rest, ".") {
		return rest
	}
	return domain
}
