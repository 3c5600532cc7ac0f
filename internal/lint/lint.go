// Package lint checks a project's repo-level configuration: file existence
// plus field-equality rules across jbish.json and jbish.toml. Fix mode
// rewrites what it safely can; everything else stays a reported issue.
package lint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CurrentSchema is the config schema revision both files must agree on.
const CurrentSchema = 1

// Issue is one finding against the repository configuration.
type Issue struct {
	Path    string
	Message string
	Fixable bool
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Report is the outcome of a lint pass.
type Report struct {
	Checked int
	Issues  []Issue
	Fixed   []string
}

// Passed reports whether no issues remain.
func (r *Report) Passed() bool {
	return len(r.Issues) == 0
}

// Messages flattens the issues for event payloads.
func (r *Report) Messages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, i.String())
	}
	return out
}

// Linter checks one project root.
type Linter struct {
	root     string
	required []string
}

// New returns a linter for the project at root. required lists extra files
// that must exist beyond the built-in config checks.
func New(root string, required []string) *Linter {
	return &Linter{root: root, required: required}
}

// Check runs all checks without touching any file.
func (l *Linter) Check() (*Report, error) {
	return l.run(false)
}

// Fix runs all checks, rewriting fixable problems in place. Issues that were
// repaired are listed in Report.Fixed; whatever could not be repaired remains
// in Report.Issues.
func (l *Linter) Fix() (*Report, error) {
	return l.run(true)
}

func (l *Linter) run(fix bool) (*Report, error) {
	rep := &Report{}

	jsonCfg := l.checkJSON(rep, fix)
	l.checkTOML(rep, fix, jsonCfg)

	for _, rel := range l.required {
		rep.Checked++
		if _, err := os.Stat(filepath.Join(l.root, rel)); err != nil {
			rep.Issues = append(rep.Issues, Issue{Path: rel, Message: "required file is missing"})
		}
	}

	return rep, nil
}

// checkJSON validates jbish.json and returns its parsed form when readable.
func (l *Linter) checkJSON(rep *Report, fix bool) map[string]any {
	const rel = "jbish.json"
	rep.Checked++
	abs := filepath.Join(l.root, rel)

	raw, err := os.ReadFile(abs)
	if err != nil {
		rep.Issues = append(rep.Issues, Issue{Path: rel, Message: "config file is missing"})
		return nil
	}

	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		rep.Issues = append(rep.Issues, Issue{Path: rel, Message: fmt.Sprintf("not valid JSON: %v", err)})
		return nil
	}

	if name, _ := cfg["name"].(string); name == "" {
		rep.Issues = append(rep.Issues, Issue{Path: rel, Message: "name must be a non-empty string"})
	}

	if schema, ok := cfg["schema"].(float64); !ok || int(schema) != CurrentSchema {
		issue := Issue{Path: rel, Message: fmt.Sprintf("schema must equal %d", CurrentSchema), Fixable: true}
		if fix {
			cfg["schema"] = CurrentSchema
			if err := writeJSON(abs, cfg); err == nil {
				rep.Fixed = append(rep.Fixed, issue.String())
			} else {
				issue.Message = fmt.Sprintf("%s (rewrite failed: %v)", issue.Message, err)
				rep.Issues = append(rep.Issues, issue)
			}
		} else {
			rep.Issues = append(rep.Issues, issue)
		}
	}

	return cfg
}

// checkTOML validates jbish.toml against itself and the JSON config.
func (l *Linter) checkTOML(rep *Report, fix bool, jsonCfg map[string]any) {
	const rel = "jbish.toml"
	rep.Checked++
	abs := filepath.Join(l.root, rel)

	raw, err := os.ReadFile(abs)
	if err != nil {
		rep.Issues = append(rep.Issues, Issue{Path: rel, Message: "config file is missing"})
		return
	}

	var cfg map[string]any
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		rep.Issues = append(rep.Issues, Issue{Path: rel, Message: fmt.Sprintf("not valid TOML: %v", err)})
		return
	}

	dirty := false

	if schema, ok := cfg["schema"].(int64); !ok || schema != CurrentSchema {
		issue := Issue{Path: rel, Message: fmt.Sprintf("schema must equal %d", CurrentSchema), Fixable: true}
		if fix {
			cfg["schema"] = int64(CurrentSchema)
			dirty = true
			rep.Fixed = append(rep.Fixed, issue.String())
		} else {
			rep.Issues = append(rep.Issues, issue)
		}
	}

	jsonName, _ := jsonCfg["name"].(string)
	tomlName, _ := cfg["name"].(string)
	if jsonName != "" && tomlName != jsonName {
		issue := Issue{Path: rel, Message: fmt.Sprintf("name %q does not match jbish.json name %q", tomlName, jsonName), Fixable: true}
		if fix {
			cfg["name"] = jsonName
			dirty = true
			rep.Fixed = append(rep.Fixed, issue.String())
		} else {
			rep.Issues = append(rep.Issues, issue)
		}
	}

	if dirty {
		if err := writeTOML(abs, cfg); err != nil {
			rep.Issues = append(rep.Issues, Issue{Path: rel, Message: fmt.Sprintf("rewrite failed: %v", err)})
		}
	}
}

func writeJSON(path string, cfg map[string]any) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeTOML(path string, cfg map[string]any) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
