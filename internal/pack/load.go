package pack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelFileName is the serialized pack model inside a pack directory.
const ModelFileName = "pack.yaml"

// Load reads the pack model from dir/pack.yaml.
func Load(dir string) (*PackInfo, error) {
	f, err := os.Open(filepath.Join(dir, ModelFileName))
	if err != nil {
		return nil, fmt.Errorf("opening pack model: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading pack %s: %w", dir, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving pack dir: %w", err)
	}
	p.Dir = abs
	return p, nil
}

// Decode reads a pack model and validates it.
func Decode(r io.Reader) (*PackInfo, error) {
	var p PackInfo
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding pack model: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Conditions == nil {
		p.Conditions = make(map[string]*ConditionGroup)
	}
	return &p, nil
}

// Validate checks the invariants the resolver relies on.
func (p *PackInfo) Validate() error {
	if p.Vendor == "" || p.Name == "" {
		return fmt.Errorf("pack vendor and name are required")
	}

	seen := make(map[string]bool, len(p.Components))
	for i, c := range p.Components {
		if c == nil || c.GroupName == "" {
			return fmt.Errorf("component %d: groupName is required", i)
		}
		if seen[c.GroupName] {
			return fmt.Errorf("duplicate component groupName %q", c.GroupName)
		}
		seen[c.GroupName] = true
	}

	for name, g := range p.Conditions {
		if g == nil {
			return fmt.Errorf("condition %q is empty", name)
		}
	}
	return nil
}
