package launcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Script is one Lua automation script known to the runtime.
type Script struct {
	Name string
	Path string
}

// ScriptRegistry resolves named Lua scripts against a base directory.
type ScriptRegistry struct {
	baseDir string
	scripts map[string]Script
}

// NewScriptRegistry creates an empty registry rooted at baseDir.
func NewScriptRegistry(baseDir string) *ScriptRegistry {
	return &ScriptRegistry{
		baseDir: baseDir,
		scripts: make(map[string]Script),
	}
}

// Register adds a script by name, resolved relative to the base directory.
func (r *ScriptRegistry) Register(name, relativePath string) {
	path := relativePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, relativePath)
	}
	r.scripts[name] = Script{Name: name, Path: path}
}

// Get retrieves a script by name.
func (r *ScriptRegistry) Get(name string) (Script, error) {
	script, ok := r.scripts[name]
	if !ok {
		names := make([]string, 0, len(r.scripts))
		for n := range r.scripts {
			names = append(names, n)
		}
		sort.Strings(names)
		available := strings.Join(names, ", ")
		if available == "" {
			available = "<none>"
		}
		return Script{}, fmt.Errorf("unknown lua script %q: available scripts: %s", name, available)
	}
	return script, nil
}
