// Package template renders named artifact templates. The reconciliation
// core only sees the Renderer interface; the file-backed implementation is
// the production collaborator.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

type Renderer interface {
	// Render produces the artifact text for a template name and context.
	// It fails if the template is missing or references a variable absent
	// from the context.
	Render(name string, ctx map[string]any) (string, error)
}

// Dir renders templates stored as files under a root directory, addressed
// by relative name such as "apache/backend.conf.tmpl".
type Dir struct {
	Root string
}

func (d Dir) Render(name string, ctx map[string]any) (string, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return sb.String(), nil
}
