// Package deps stores the resolved include, library and define lists that
// installed components contribute to a project. Records are grouped per pack,
// plus the built-in toolchain group and the user's custom group.
package deps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

const (
	// BuiltinGroup holds the synthetic toolchain dependence.
	BuiltinGroup = "built-in"
	// ToolchainDep is the dependence carrying toolchain system paths.
	ToolchainDep = "toolchain"
	// CustomGroup holds user-maintained dependences.
	CustomGroup = "custom"
	// CustomDep is the default dependence of the custom group.
	CustomDep = "default"
)

// Dependence is one named include/lib/define record.
type Dependence struct {
	Name       string   `toml:"name"`
	IncList    []string `toml:"incList,omitempty"`
	LibList    []string `toml:"libList,omitempty"`
	DefineList []string `toml:"defineList,omitempty"`
}

// Group is an ordered set of dependences.
type Group struct {
	Name string        `toml:"name"`
	Deps []*Dependence `toml:"deps"`
}

// Store holds every dependency group of a project.
type Store struct {
	Groups []*Group `toml:"groups"`

	onChange func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// OnChange registers fn to run after every mutation.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Group returns the named group.
func (s *Store) Group(name string) (*Group, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// EnsureGroup returns the named group, creating it when missing.
func (s *Store) EnsureGroup(name string) *Group {
	if g, ok := s.Group(name); ok {
		return g
	}
	g := &Group{Name: name}
	s.Groups = append(s.Groups, g)
	s.changed()
	return g
}

// GroupNames lists group names in creation order.
func (s *Store) GroupNames() []string {
	names := make([]string, 0, len(s.Groups))
	for _, g := range s.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Lookup returns the dependence depName of group groupName.
func (s *Store) Lookup(groupName, depName string) (*Dependence, bool) {
	g, ok := s.Group(groupName)
	if !ok {
		return nil, false
	}
	return g.lookup(depName)
}

// Add creates the dependence in the group (creating the group as needed) or
// merges it into an existing record. It reports whether a record was created.
func (s *Store) Add(groupName string, dep Dependence) bool {
	g := s.EnsureGroup(groupName)

	if existing, ok := g.lookup(dep.Name); ok {
		if existing.merge(dep) {
			s.changed()
		}
		return false
	}

	g.Deps = append(g.Deps, &Dependence{
		Name:       dep.Name,
		IncList:    union(nil, dep.IncList),
		LibList:    union(nil, dep.LibList),
		DefineList: union(nil, dep.DefineList),
	})
	s.changed()
	return true
}

// Remove deletes a dependence and reports whether it existed.
func (s *Store) Remove(groupName, depName string) bool {
	g, ok := s.Group(groupName)
	if !ok {
		return false
	}
	i := slices.IndexFunc(g.Deps, func(d *Dependence) bool { return d.Name == depName })
	if i < 0 {
		return false
	}
	g.Deps = slices.Delete(g.Deps, i, i+1)
	s.changed()
	return true
}

// IsEmpty reports whether the group is missing or has no dependences.
func (s *Store) IsEmpty(groupName string) bool {
	g, ok := s.Group(groupName)
	return !ok || len(g.Deps) == 0
}

// RemoveGroup deletes a whole group and reports whether it existed.
func (s *Store) RemoveGroup(name string) bool {
	i := slices.IndexFunc(s.Groups, func(g *Group) bool { return g.Name == name })
	if i < 0 {
		return false
	}
	s.Groups = slices.Delete(s.Groups, i, i+1)
	s.changed()
	return true
}

// Merged unions every dependence of every group, in store order.
func (s *Store) Merged() Dependence {
	var all Dependence
	for _, g := range s.Groups {
		for _, d := range g.Deps {
			all.merge(*d)
		}
	}
	return all
}

func (g *Group) lookup(name string) (*Dependence, bool) {
	for _, d := range g.Deps {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// DepNames lists the dependence names of the group.
func (g *Group) DepNames() []string {
	names := make([]string, 0, len(g.Deps))
	for _, d := range g.Deps {
		names = append(names, d.Name)
	}
	return names
}

func (d *Dependence) merge(o Dependence) bool {
	n := len(d.IncList) + len(d.LibList) + len(d.DefineList)
	d.IncList = union(d.IncList, o.IncList)
	d.LibList = union(d.LibList, o.LibList)
	d.DefineList = union(d.DefineList, o.DefineList)
	return len(d.IncList)+len(d.LibList)+len(d.DefineList) != n
}

// union appends the entries of b missing from a, keeping first-seen order.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(slices.Clone(a), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Load reads a store from a TOML file. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dependencies: %w", err)
	}

	s := NewStore()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing dependencies %s: %w", path, err)
	}
	return s, nil
}

// Save writes the store to path as TOML.
func (s *Store) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding dependencies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing dependencies: %w", err)
	}
	return nil
}
