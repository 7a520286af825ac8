// Package vtree is the project's virtual source tree: named folders holding
// file references, addressed by slash-separated paths that start at the
// tree's root name.
package vtree

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidPath is returned for paths outside the tree or with empty segments.
var ErrInvalidPath = errors.New("invalid virtual path")

// File references a file on disk.
type File struct {
	Path string `yaml:"path"`
}

// Folder is a virtual folder.
type Folder struct {
	Name    string    `yaml:"name"`
	Files   []File    `yaml:"files,omitempty"`
	Folders []*Folder `yaml:"folders,omitempty"`
}

// Tree is rooted at a single folder whose name prefixes every path.
type Tree struct {
	Root *Folder `yaml:"root"`
}

// New creates a tree with an empty root folder.
func New(rootName string) *Tree {
	return &Tree{Root: &Folder{Name: rootName}}
}

// Join builds a virtual path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func (t *Tree) split(path string) ([]string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] != t.Root.Name {
		return nil, fmt.Errorf("%w: %q is not under %q", ErrInvalidPath, path, t.Root.Name)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts[1:], nil
}

// Folder returns the folder at path.
func (t *Tree) Folder(path string) (*Folder, bool) {
	parts, err := t.split(path)
	if err != nil {
		return nil, false
	}
	f := t.Root
	for _, name := range parts {
		if f = f.child(name); f == nil {
			return nil, false
		}
	}
	return f, true
}

// AddFolder creates the folder at path and any missing parents. It reports
// whether the leaf folder was created.
func (t *Tree) AddFolder(path string) (*Folder, bool, error) {
	parts, err := t.split(path)
	if err != nil {
		return nil, false, err
	}
	f := t.Root
	created := false
	for _, name := range parts {
		c := f.child(name)
		if c == nil {
			c = &Folder{Name: name}
			f.Folders = append(f.Folders, c)
			created = true
		} else {
			created = false
		}
		f = c
	}
	return f, created, nil
}

// RemoveFolder deletes the folder at path and reports whether it existed.
// The root cannot be removed.
func (t *Tree) RemoveFolder(path string) bool {
	parts, err := t.split(path)
	if err != nil || len(parts) == 0 {
		return false
	}
	parent, ok := t.Folder(Join(append([]string{t.Root.Name}, parts[:len(parts)-1]...)...))
	if !ok {
		return false
	}
	leaf := parts[len(parts)-1]
	i := slices.IndexFunc(parent.Folders, func(f *Folder) bool { return f.Name == leaf })
	if i < 0 {
		return false
	}
	parent.Folders = slices.Delete(parent.Folders, i, i+1)
	return true
}

// AddFile adds a file reference to the folder at path, creating the folder.
func (t *Tree) AddFile(path string, file File) error {
	return t.AddFiles(path, []File{file})
}

// AddFiles adds file references to the folder at path, creating the folder.
// References already present are skipped.
func (t *Tree) AddFiles(path string, files []File) error {
	f, _, err := t.AddFolder(path)
	if err != nil {
		return err
	}
	for _, file := range files {
		if file.Path == "" {
			return fmt.Errorf("%w: empty file path in %q", ErrInvalidPath, path)
		}
	}
	for _, file := range files {
		if !slices.Contains(f.Files, file) {
			f.Files = append(f.Files, file)
		}
	}
	return nil
}

// SetFiles replaces the file references of the folder at path, creating
// the folder. Duplicate references are dropped. On error the folder is
// left unchanged.
func (t *Tree) SetFiles(path string, files []File) error {
	f, _, err := t.AddFolder(path)
	if err != nil {
		return err
	}
	var out []File
	for _, file := range files {
		if file.Path == "" {
			return fmt.Errorf("%w: empty file path in %q", ErrInvalidPath, path)
		}
		if !slices.Contains(out, file) {
			out = append(out, file)
		}
	}
	f.Files = out
	return nil
}

// IsEmpty reports whether the folder has neither files nor sub-folders.
func (f *Folder) IsEmpty() bool {
	return len(f.Files) == 0 && len(f.Folders) == 0
}

// FileCount counts files in the folder and all sub-folders.
func (f *Folder) FileCount() int {
	n := len(f.Files)
	for _, c := range f.Folders {
		n += c.FileCount()
	}
	return n
}

func (f *Folder) child(name string) *Folder {
	for _, c := range f.Folders {
		if c.Name == name {
			return c
		}
	}
	return nil
}
