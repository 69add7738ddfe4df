package template

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDirRender(t *testing.T) {
	c := qt.New(t)
	root := t.TempDir()
	mkdir(c, filepath.Join(root, "apache"))
	write(c, filepath.Join(root, "apache", "backend.conf.tmpl"),
		"ServerName {{.Domain}}\nProxyPass / http://{{.BackendHost}}:{{.BackendPort}}/\n")

	out, err := Dir{Root: root}.Render("apache/backend.conf.tmpl", map[string]any{
		"Domain":      "api.example.org",
		"BackendHost": "127.0.0.1",
		"BackendPort": 8000,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "ServerName api.example.org\nProxyPass / http://127.0.0.1:8000/\n")
}

func TestDirRenderMissingTemplate(t *testing.T) {
	c := qt.New(t)
	_, err := Dir{Root: t.TempDir()}.Render("apache/nope.tmpl", nil)
	c.Assert(err, qt.ErrorMatches, `template "apache/nope.tmpl": .*`)
}

func TestDirRenderMissingVariable(t *testing.T) {
	c := qt.New(t)
	root := t.TempDir()
	write(c, filepath.Join(root, "u.tmpl"), "User={{.User}}\n")

	_, err := Dir{Root: root}.Render("u.tmpl", map[string]any{})
	c.Assert(err, qt.IsNotNil)
}

func mkdir(c *qt.C, path string) {
	c.Assert(os.MkdirAll(path, 0o755), qt.IsNil)
}

func write(c *qt.C, path, content string) {
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
}
