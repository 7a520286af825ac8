// Package rteheader maintains the generated RTE_Components.h header that
// exposes the RTE_define macros of every enabled component.
package rteheader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// DefaultFileName is the conventional name of the generated header.
const DefaultFileName = "RTE_Components.h"

// Entry is one registered component define.
type Entry struct {
	Group  string `yaml:"group"`
	Define string `yaml:"define"`
}

// IncludeRegistrar records the header's directory as an include path.
// Implementations must ignore directories that are already registered.
type IncludeRegistrar interface {
	EnsureInclude(dir string)
}

// Generator keeps the registry in first-enabled order and rewrites the
// header whenever it changes.
type Generator struct {
	path      string
	project   string
	entries   []Entry
	registrar IncludeRegistrar
}

// NewGenerator creates a generator writing to path.
func NewGenerator(path, project string) *Generator {
	return &Generator{path: path, project: project}
}

// SetRegistrar sets where the header directory is registered.
func (g *Generator) SetRegistrar(r IncludeRegistrar) {
	g.registrar = r
}

// Path returns the header file path.
func (g *Generator) Path() string {
	return g.path
}

// Enable registers a component define and reports whether the group is new.
// Re-enabling a group keeps its original position.
func (g *Generator) Enable(group, define string) bool {
	if g.Has(group) {
		return false
	}
	g.entries = append(g.entries, Entry{Group: group, Define: define})
	return true
}

// Disable removes a group and reports whether it was registered.
func (g *Generator) Disable(group string) bool {
	i := slices.IndexFunc(g.entries, func(e Entry) bool { return e.Group == group })
	if i < 0 {
		return false
	}
	g.entries = slices.Delete(g.entries, i, i+1)
	return true
}

// Has reports whether group is registered.
func (g *Generator) Has(group string) bool {
	return slices.ContainsFunc(g.entries, func(e Entry) bool { return e.Group == group })
}

// Reset clears the registry without touching the header.
func (g *Generator) Reset() {
	g.entries = nil
}

// Entries returns a copy of the registry.
func (g *Generator) Entries() []Entry {
	return slices.Clone(g.entries)
}

// Restore replaces the registry with persisted entries.
func (g *Generator) Restore(entries []Entry) {
	g.entries = slices.Clone(entries)
}

// Regenerate rewrites the header from the registry, or deletes it when the
// registry is empty.
func (g *Generator) Regenerate() error {
	if len(g.entries) == 0 {
		if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing header: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := NewEmitter(&buf).Emit(g.project, g.entries); err != nil {
		return fmt.Errorf("rendering header: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating header dir: %w", err)
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing header: %w", err)
	}

	if g.registrar != nil {
		g.registrar.EnsureInclude(dir)
	}
	return nil
}

// Check reports whether the header on disk matches the registry.
func (g *Generator) Check() (bool, error) {
	f, err := os.Open(g.path)
	if errors.Is(err, os.ErrNotExist) {
		return len(g.entries) == 0, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening header: %w", err)
	}
	defer f.Close()

	lines, err := Parse(f)
	if err != nil {
		return false, err
	}
	return slices.Equal(lines, defineLines(g.entries)), nil
}
