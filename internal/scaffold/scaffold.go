// Package scaffold renders the boilerplate files the generate tasks and
// `jbish init` produce.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/template"
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidateName rejects names that would produce awkward paths or branch names.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid name %q: must match %s", name, nameRe)
	}
	return nil
}

// Generator writes scaffolded files under a project root.
type Generator struct {
	root string
}

// NewGenerator returns a generator rooted at dir.
func NewGenerator(dir string) *Generator {
	return &Generator{root: dir}
}

// Page renders a page stub plus its metadata sidecar and returns the paths
// written, relative to the project root.
func (g *Generator) Page(name, title string) ([]string, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if title == "" {
		title = name
	}

	data := map[string]string{"Name": name, "Title": title}
	files := map[string]*template.Template{
		filepath.Join("pages", name+".html"):      pageTmpl,
		filepath.Join("pages", name+".meta.json"): pageMetaTmpl,
	}
	return g.render(files, data)
}

// Agent renders an agent module stub: a manifest and a handler skeleton.
func (g *Generator) Agent(name, description string) ([]string, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Agent " + name
	}

	data := map[string]string{"Name": name, "Description": description}
	files := map[string]*template.Template{
		filepath.Join("agents", name, "agent.json"): agentManifestTmpl,
		filepath.Join("agents", name, "README.md"):  agentReadmeTmpl,
	}
	return g.render(files, data)
}

// InitProject writes the repo-level configuration files the linter checks.
// Existing files are left untouched so init is safe to re-run.
func (g *Generator) InitProject(projectName string) ([]string, error) {
	if err := ValidateName(projectName); err != nil {
		return nil, err
	}

	data := map[string]string{"Name": projectName}
	var written []string
	for rel, tmpl := range map[string]*template.Template{
		"jbish.json": projectJSONTmpl,
		"jbish.toml": projectTOMLTmpl,
	} {
		abs := filepath.Join(g.root, rel)
		if _, err := os.Stat(abs); err == nil {
			continue
		}
		if err := g.renderOne(rel, tmpl, data); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}

func (g *Generator) render(files map[string]*template.Template, data any) ([]string, error) {
	var written []string
	for rel, tmpl := range files {
		if err := g.renderOne(rel, tmpl, data); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}

func (g *Generator) renderOne(rel string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}

	abs := filepath.Join(g.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
