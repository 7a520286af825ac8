// Package index scans a packs directory for installed device-support packs.
// Each pack lives in its own directory holding a pack.yaml model; the
// directory is conventionally named "<Vendor>.<Name>".
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/multierr"

	"github.com/frederic-klein/yapm/internal/pack"
)

// ErrNotFound is returned when no indexed pack matches a lookup.
var ErrNotFound = errors.New("pack not found")

// Entry is one indexed pack.
type Entry struct {
	Vendor  string
	Name    string
	Version string
	Dir     string
}

// Key returns "<Vendor>.<Name>".
func (e Entry) Key() string {
	return e.Vendor + "." + e.Name
}

// PackIndex provides lookup for packs found under a directory.
type PackIndex struct {
	dir   string
	packs map[string]Entry
}

// NewPackIndex creates an index over dir. Call Load before looking packs up.
func NewPackIndex(dir string) *PackIndex {
	return &PackIndex{
		dir:   dir,
		packs: make(map[string]Entry),
	}
}

// Load scans the directory. A missing directory yields an empty index.
// Packs that fail to load are skipped and reported together; the valid
// ones stay available.
func (idx *PackIndex) Load() error {
	idx.packs = make(map[string]Entry)

	entries, err := os.ReadDir(idx.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading packs dir: %w", err)
	}

	var errs error
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		dir := filepath.Join(idx.dir, de.Name())
		if _, err := os.Stat(filepath.Join(dir, pack.ModelFileName)); err != nil {
			continue
		}

		p, err := pack.Load(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		e := Entry{Vendor: p.Vendor, Name: p.Name, Version: p.Version, Dir: p.Dir}
		if prev, dup := idx.packs[strings.ToLower(e.Key())]; dup {
			errs = multierr.Append(errs, fmt.Errorf("pack %s found in %s and %s", e.Key(), prev.Dir, e.Dir))
			continue
		}
		idx.packs[strings.ToLower(e.Key())] = e
	}
	return errs
}

// Lookup finds a pack by vendor and name, ignoring case.
func (idx *PackIndex) Lookup(vendor, name string) (Entry, bool) {
	e, ok := idx.packs[strings.ToLower(vendor+"."+name)]
	return e, ok
}

// Resolve maps a "<Vendor>.<Name>" key or a pack directory path to an entry.
func (idx *PackIndex) Resolve(ref string) (Entry, error) {
	if e, ok := idx.packs[strings.ToLower(ref)]; ok {
		return e, nil
	}

	if abs, err := filepath.Abs(ref); err == nil {
		for _, e := range idx.packs {
			if e.Dir == abs {
				return e, nil
			}
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// List returns every indexed pack, sorted by key.
func (idx *PackIndex) List() []Entry {
	return idx.Find("")
}

// Find returns the packs whose key matches a wildcard pattern such as
// "Keil.*" or "*STM32*", sorted by key. An empty pattern matches all.
func (idx *PackIndex) Find(pattern string) []Entry {
	pattern = strings.ToLower(pattern)
	var out []Entry
	for key, e := range idx.packs {
		if pattern != "" {
			if ok, err := doublestar.Match(pattern, key); err != nil || !ok {
				continue
			}
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key(), b.Key()) })
	return out
}

// Dir returns the scanned directory.
func (idx *PackIndex) Dir() string {
	return idx.dir
}
