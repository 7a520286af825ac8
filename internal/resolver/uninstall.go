package resolver

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/deps"
	"github.com/frederic-klein/yapm/internal/vtree"
)

// Uninstall removes one installed component. Components it pulled in stay.
func (r *Resolver) Uninstall(packName, group string) error {
	if !r.IsInstalled(packName, group) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, group)
	}
	return r.bus.Batch(func() error {
		r.uninstall(packName, group)
		return nil
	})
}

// RemoveAll uninstalls every component of a pack and drops its group.
func (r *Resolver) RemoveAll(packName string) error {
	return r.bus.Batch(func() error {
		var errs error
		for _, group := range r.Installed(packName) {
			if err := r.Uninstall(packName, group); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		r.dropPack(packName)
		return errs
	})
}

func (r *Resolver) uninstall(packName, group string) {
	r.tree.RemoveFolder(vtree.Join(r.tree.Root.Name, packName, group))
	r.store.Remove(packName, group)
	r.cache.Delete(packName, group)
	r.pruneGroup(packName)

	if r.header != nil && r.header.Disable(group) {
		r.regenerateHeader()
	}
	r.log.Debug("uninstalled component", zap.String("pack", packName), zap.String("component", group))
}

// pruneGroup drops a pack group that is empty or holds only the header
// include, together with its empty virtual folder.
func (r *Resolver) pruneGroup(packName string) {
	if g, ok := r.store.Group(packName); ok {
		names := g.DepNames()
		if len(names) == 0 || (len(names) == 1 && names[0] == HeaderDep) {
			r.store.RemoveGroup(packName)
		}
	}

	folder := vtree.Join(r.tree.Root.Name, packName)
	if f, ok := r.tree.Folder(folder); ok && f.IsEmpty() {
		r.tree.RemoveFolder(folder)
	}
}

// dropPack removes every trace of a pack: group, folder, cache and header entries.
func (r *Resolver) dropPack(packName string) {
	headerChanged := false
	if g, ok := r.store.Group(packName); ok && r.header != nil {
		for _, name := range g.DepNames() {
			if r.header.Disable(name) {
				headerChanged = true
			}
		}
	}
	r.store.RemoveGroup(packName)
	r.tree.RemoveFolder(vtree.Join(r.tree.Root.Name, packName))
	r.cache.DeletePack(packName)
	if headerChanged {
		r.regenerateHeader()
	}
}

// Refresh recreates the toolchain dependence when flushToolchain is set or
// when it is missing, makes sure the custom group exists, and prunes records
// that no longer match a component of the loaded pack.
func (r *Resolver) Refresh(flushToolchain bool) error {
	return r.bus.Batch(func() error {
		if _, ok := r.store.Lookup(deps.BuiltinGroup, deps.ToolchainDep); flushToolchain || !ok {
			r.store.Remove(deps.BuiltinGroup, deps.ToolchainDep)
			if tc := r.toolchain; tc != nil {
				r.store.Add(deps.BuiltinGroup, deps.Dependence{
					Name:       deps.ToolchainDep,
					IncList:    tc.IncludeDirs,
					LibList:    tc.LibDirs,
					DefineList: tc.Defines,
				})
			}
		}
		if _, ok := r.store.Lookup(deps.CustomGroup, deps.CustomDep); !ok {
			r.store.Add(deps.CustomGroup, deps.Dependence{Name: deps.CustomDep})
		}
		return r.prune()
	})
}

func (r *Resolver) prune() error {
	var errs error
	for _, name := range r.store.GroupNames() {
		if name == deps.BuiltinGroup || name == deps.CustomGroup {
			continue
		}
		if r.pack == nil || name != r.pack.Name {
			r.log.Info("dropping dependencies of unloaded pack", zap.String("pack", name))
			r.dropPack(name)
			continue
		}

		g, _ := r.store.Group(name)
		for _, depName := range g.DepNames() {
			if depName == HeaderDep || r.pack.HasComponent(depName) {
				continue
			}
			r.log.Info("dropping stale component", zap.String("pack", name), zap.String("component", depName))
			if err := r.Uninstall(name, depName); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		r.pruneGroup(name)
	}

	for _, name := range r.cache.Packs() {
		if r.pack == nil || name != r.pack.Name {
			r.cache.DeletePack(name)
		}
	}
	var stale []string
	for _, f := range r.tree.Root.Folders {
		if r.pack == nil || f.Name != r.pack.Name {
			stale = append(stale, f.Name)
		}
	}
	for _, name := range stale {
		r.tree.RemoveFolder(vtree.Join(r.tree.Root.Name, name))
	}
	return errs
}
