// Package toolchain describes the compilers a project can target.
package toolchain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownToolchain is returned by Lookup for names not in the registry.
var ErrUnknownToolchain = errors.New("unknown toolchain")

// Descriptor identifies a toolchain and the system paths every build with it needs.
type Descriptor struct {
	Category    string   `yaml:"category"`
	ID          string   `yaml:"name"`
	IncludeDirs []string `yaml:"includeDirs,omitempty"`
	LibDirs     []string `yaml:"libDirs,omitempty"`
	Defines     []string `yaml:"defines,omitempty"`
}

// CategoryName returns the compiler category, e.g. "ARMCC".
func (d *Descriptor) CategoryName() string { return d.Category }

// Name returns the compiler name, e.g. "AC6".
func (d *Descriptor) Name() string { return d.ID }

var builtin = map[string]Descriptor{
	"GCC": {
		Category:    "GCC",
		ID:          "GCC",
		IncludeDirs: []string{"${ToolchainRoot}/arm-none-eabi/include"},
		LibDirs:     []string{"${ToolchainRoot}/arm-none-eabi/lib"},
		Defines:     []string{"__GNUC__"},
	},
	"AC5": {
		Category:    "ARMCC",
		ID:          "AC5",
		IncludeDirs: []string{"${ToolchainRoot}/include"},
		LibDirs:     []string{"${ToolchainRoot}/lib"},
		Defines:     []string{"__CC_ARM"},
	},
	"AC6": {
		Category:    "ARMCC",
		ID:          "AC6",
		IncludeDirs: []string{"${ToolchainRoot}/include"},
		LibDirs:     []string{"${ToolchainRoot}/lib"},
		Defines:     []string{"__ARMCC_VERSION"},
	},
	"IAR": {
		Category:    "IAR",
		ID:          "IAR",
		IncludeDirs: []string{"${ToolchainRoot}/inc"},
		LibDirs:     []string{"${ToolchainRoot}/lib"},
		Defines:     []string{"__ICCARM__"},
	},
	"SDCC": {
		Category:    "SDCC",
		ID:          "SDCC",
		IncludeDirs: []string{"${ToolchainRoot}/include"},
		LibDirs:     []string{"${ToolchainRoot}/lib"},
		Defines:     []string{"__SDCC"},
	},
}

// Lookup returns a copy of the built-in descriptor named name (case-insensitive).
func Lookup(name string) (*Descriptor, error) {
	d, ok := builtin[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolchain, name)
	}
	d.IncludeDirs = append([]string(nil), d.IncludeDirs...)
	d.LibDirs = append([]string(nil), d.LibDirs...)
	d.Defines = append([]string(nil), d.Defines...)
	return &d, nil
}

// Names lists the built-in toolchains.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
