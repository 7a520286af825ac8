package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/yapm/internal/pack"
	"github.com/frederic-klein/yapm/internal/resolver"
	"github.com/frederic-klein/yapm/internal/rteheader"
	"github.com/frederic-klein/yapm/internal/vtree"
)

const (
	// StateDir holds everything yapm persists inside a project.
	StateDir = ".yapm"
	// StateFile is the project state inside StateDir.
	StateFile = "state.yaml"
	// DepsFile is the dependency store inside StateDir.
	DepsFile = "deps.toml"
)

// state is the persisted part of a project besides the dependency store.
type state struct {
	PackDir    string            `yaml:"packDir,omitempty"`
	Selector   *pack.Selector    `yaml:"selector,omitempty"`
	Toolchain  string            `yaml:"toolchain,omitempty"`
	AutoHeader *bool             `yaml:"autoHeader,omitempty"`
	Header     []rteheader.Entry `yaml:"header,omitempty"`
	Tree       *vtree.Tree       `yaml:"tree,omitempty"`
	Cache      *resolver.Cache   `yaml:"cache,omitempty"`
}

func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &state{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project state: %w", err)
	}

	var s state
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing project state %s: %w", path, err)
	}
	return &s, nil
}

func (s *state) save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding project state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing project state: %w", err)
	}
	return nil
}
