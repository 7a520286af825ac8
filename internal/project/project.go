// Package project ties a loaded pack, the selected device and toolchain,
// and the resolver's stores into one unit that is persisted between runs.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/config"
	"github.com/frederic-klein/yapm/internal/deps"
	"github.com/frederic-klein/yapm/internal/event"
	"github.com/frederic-klein/yapm/internal/index"
	"github.com/frederic-klein/yapm/internal/pack"
	"github.com/frederic-klein/yapm/internal/resolver"
	"github.com/frederic-klein/yapm/internal/rteheader"
	"github.com/frederic-klein/yapm/internal/toolchain"
	"github.com/frederic-klein/yapm/internal/vtree"
)

// Project is an open yapm project.
type Project struct {
	dir string
	cfg *config.Config
	log *zap.Logger

	index     *index.PackIndex
	pack      *pack.PackInfo
	selector  *pack.Selector
	device    *pack.Device
	toolchain *toolchain.Descriptor

	store    *deps.Store
	tree     *vtree.Tree
	cache    *resolver.Cache
	header   *rteheader.Generator
	bus      *event.Bus
	resolver *resolver.Resolver
}

// ComponentStatus is one row of the component listing.
type ComponentStatus struct {
	Group       string
	Class       string
	Description string
	Enabled     bool
	Installed   bool
	Expired     bool
}

// Open loads the configuration and persisted state of the project in dir.
// A saved pack that can no longer be loaded is dropped with a warning.
func Open(dir string, log *zap.Logger) (*Project, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, err
	}

	st, err := loadState(filepath.Join(abs, StateDir, StateFile))
	if err != nil {
		return nil, err
	}
	store, err := deps.Load(filepath.Join(abs, StateDir, DepsFile))
	if err != nil {
		return nil, err
	}

	tcName := cfg.Toolchain
	if st.Toolchain != "" {
		tcName = st.Toolchain
	}
	tc, err := toolchain.Lookup(tcName)
	if err != nil {
		return nil, err
	}

	p := &Project{
		dir:       abs,
		cfg:       cfg,
		log:       log,
		index:     index.NewPackIndex(cfg.PacksDir),
		toolchain: tc,
		store:     store,
		tree:      st.Tree,
		cache:     st.Cache,
		header:    rteheader.NewGenerator(filepath.Join(abs, cfg.Header.FileName), filepath.Base(abs)),
		bus:       event.NewBus(),
	}
	if p.tree == nil || p.tree.Root == nil {
		p.tree = vtree.New(cfg.DepsRoot)
	}
	if p.cache == nil {
		p.cache = resolver.NewCache()
	}
	p.header.Restore(st.Header)
	store.OnChange(func() { p.bus.Emit(event.DependenceChanged{}) })

	autoHeader := cfg.Header.AutoGenerate
	if st.AutoHeader != nil {
		autoHeader = *st.AutoHeader
	}
	p.resolver = resolver.NewResolver(resolver.Options{
		Store:      store,
		Tree:       p.tree,
		Header:     p.header,
		Cache:      p.cache,
		Bus:        p.bus,
		Logger:     log,
		AutoHeader: autoHeader,
	})

	if st.PackDir != "" {
		if pk, err := pack.Load(st.PackDir); err != nil {
			log.Warn("saved pack unavailable", zap.String("dir", st.PackDir), zap.Error(err))
		} else {
			p.pack = pk
		}
	}
	if p.pack != nil && st.Selector != nil {
		if dev, err := p.pack.Resolve(*st.Selector); err != nil {
			log.Warn("saved device unavailable", zap.Stringer("selector", *st.Selector), zap.Error(err))
		} else {
			sel := *st.Selector
			p.selector, p.device = &sel, dev
		}
	}
	p.retarget()
	p.resolver.RestoreEnabled()
	return p, nil
}

// Subscribe registers fn for every project event.
func (p *Project) Subscribe(fn func(event.Event)) {
	p.bus.Subscribe(fn)
}

// Dir returns the project root.
func (p *Project) Dir() string { return p.dir }

// Config returns the loaded configuration.
func (p *Project) Config() *config.Config { return p.cfg }

// Pack returns the loaded pack, or nil.
func (p *Project) Pack() *pack.PackInfo { return p.pack }

// Device returns the selected device, or nil.
func (p *Project) Device() *pack.Device { return p.device }

// Selector returns the selected device's selector, or nil.
func (p *Project) Selector() *pack.Selector { return p.selector }

// Toolchain returns the active toolchain.
func (p *Project) Toolchain() *toolchain.Descriptor { return p.toolchain }

// Dependencies returns the dependency store.
func (p *Project) Dependencies() *deps.Store { return p.store }

// Tree returns the virtual source tree.
func (p *Project) Tree() *vtree.Tree { return p.tree }

// Index rescans the packs directory and returns the local pack index.
// Packs that fail to load are logged and left out.
func (p *Project) Index() *index.PackIndex {
	if err := p.index.Load(); err != nil {
		p.log.Warn("some packs could not be indexed", zap.String("dir", p.index.Dir()), zap.Error(err))
	}
	return p.index
}

func (p *Project) retarget() {
	p.resolver.SetTarget(p.pack, p.device, p.toolchain)
}

// LoadPack loads a pack by "<Vendor>.<Name>" from the packs directory or by
// directory path. A failed load leaves the project without a pack.
func (p *Project) LoadPack(ref string) error {
	return p.bus.Batch(func() error {
		pk, err := p.openPack(ref)
		if err != nil {
			p.clearPack()
			return err
		}

		p.pack = pk
		p.selector, p.device = nil, nil
		p.retarget()
		err = p.resolver.Refresh(false)
		p.resolver.RefreshComponents()
		p.bus.Emit(event.PackageChanged{Pack: pk.Key()})
		p.log.Info("loaded pack", zap.String("pack", pk.Key()), zap.String("dir", pk.Dir))
		return err
	})
}

func (p *Project) openPack(ref string) (*pack.PackInfo, error) {
	if _, err := os.Stat(filepath.Join(ref, pack.ModelFileName)); err == nil {
		return pack.Load(ref)
	}
	e, err := p.Index().Resolve(ref)
	if err != nil {
		return nil, err
	}
	return pack.Load(e.Dir)
}

func (p *Project) clearPack() {
	p.pack = nil
	p.selector, p.device = nil, nil
	p.retarget()
	if err := p.resolver.Refresh(false); err != nil {
		p.log.Warn("pruning dependencies failed", zap.Error(err))
	}
	p.resolver.RefreshComponents()
	p.bus.Emit(event.PackageChanged{})
}

// UnloadPack uninstalls every component of the loaded pack and unloads it.
func (p *Project) UnloadPack() error {
	if p.pack == nil {
		return resolver.ErrNoPack
	}
	return p.bus.Batch(func() error {
		err := p.resolver.RemoveAll(p.pack.Name)
		p.clearPack()
		return err
	})
}

// SelectDevice makes sel the target device and reports the installed
// components the change invalidates.
func (p *Project) SelectDevice(sel pack.Selector) ([]event.Update, error) {
	if p.pack == nil {
		return nil, resolver.ErrNoPack
	}
	dev, err := p.pack.Resolve(sel)
	if err != nil {
		return nil, err
	}

	var updates []event.Update
	err = p.bus.Batch(func() error {
		prev := p.selector
		p.selector, p.device = &sel, dev
		p.retarget()
		p.bus.Emit(event.DeviceChanged{Previous: prev})
		updates = p.resolver.RefreshComponents()
		return nil
	})
	p.log.Info("selected device", zap.String("device", dev.Info.Name), zap.Stringer("selector", sel))
	return updates, err
}

// SelectDeviceByName selects the first device of the pack named name.
func (p *Project) SelectDeviceByName(name string) ([]event.Update, error) {
	if p.pack == nil {
		return nil, resolver.ErrNoPack
	}
	sel, ok := p.pack.FindDevice(name)
	if !ok {
		return nil, fmt.Errorf("%w: no device named %q", pack.ErrInvalidSelector, name)
	}
	return p.SelectDevice(sel)
}

// SetToolchain switches the active toolchain, rewrites the toolchain
// dependence and reports the installed components the change invalidates.
func (p *Project) SetToolchain(name string) ([]event.Update, error) {
	tc, err := toolchain.Lookup(name)
	if err != nil {
		return nil, err
	}

	var updates []event.Update
	err = p.bus.Batch(func() error {
		p.toolchain = tc
		p.retarget()
		err := p.resolver.Refresh(true)
		updates = p.resolver.RefreshComponents()
		return err
	})
	return updates, err
}

// Install installs the named components of the loaded pack. Every group is
// attempted; failures are returned together.
func (p *Project) Install(groups ...string) error {
	if p.pack == nil {
		return resolver.ErrNoPack
	}
	return p.bus.Batch(func() error {
		var errs error
		for _, g := range groups {
			errs = multierr.Append(errs, p.resolver.InstallGroup(p.pack.Name, g))
		}
		return errs
	})
}

// Uninstall removes the named components. Components they pulled in stay.
func (p *Project) Uninstall(groups ...string) error {
	if p.pack == nil {
		return resolver.ErrNoPack
	}
	return p.bus.Batch(func() error {
		var errs error
		for _, g := range groups {
			errs = multierr.Append(errs, p.resolver.Uninstall(p.pack.Name, g))
		}
		return errs
	})
}

// RemoveAll uninstalls every component of the loaded pack.
func (p *Project) RemoveAll() error {
	if p.pack == nil {
		return resolver.ErrNoPack
	}
	return p.resolver.RemoveAll(p.pack.Name)
}

// Refresh rebuilds the toolchain dependence when flushToolchain is set and
// prunes stale records.
func (p *Project) Refresh(flushToolchain bool) error {
	return p.resolver.Refresh(flushToolchain)
}

// Expired lists installed components whose install-time conditions no
// longer hold.
func (p *Project) Expired() []string {
	if p.pack == nil {
		return nil
	}
	return p.resolver.Expired(p.pack.Name)
}

// Check evaluates a named condition for the current target.
func (p *Project) Check(condition string) bool {
	return p.resolver.CheckCondition(condition)
}

// Requirements lists the component references a condition pulls in.
func (p *Project) Requirements(condition string) ([]string, error) {
	return p.resolver.Evaluator().Requirements(condition, p.toolchain)
}

// HeaderAutoGen reports whether the RTE header is generated.
func (p *Project) HeaderAutoGen() bool {
	return p.resolver.AutoHeader()
}

// SetHeaderAutoGen turns RTE header generation on or off.
func (p *Project) SetHeaderAutoGen(on bool) {
	_ = p.bus.Batch(func() error {
		p.resolver.SetAutoHeader(on)
		return nil
	})
}

// CheckHeader reports whether the header on disk matches the registry.
func (p *Project) CheckHeader() (bool, error) {
	return p.header.Check()
}

// HeaderPath returns where the RTE header is written.
func (p *Project) HeaderPath() string {
	return p.header.Path()
}

// Components lists every component of the loaded pack in pack order.
func (p *Project) Components() []ComponentStatus {
	if p.pack == nil {
		return nil
	}
	expired := make(map[string]bool)
	for _, g := range p.Expired() {
		expired[g] = true
	}

	out := make([]ComponentStatus, 0, len(p.pack.Components))
	for _, c := range p.pack.Components {
		out = append(out, ComponentStatus{
			Group:       c.GroupName,
			Class:       c.Class,
			Description: c.Description,
			Enabled:     p.resolver.Enabled(c.GroupName),
			Installed:   p.resolver.IsInstalled(p.pack.Name, c.GroupName),
			Expired:     expired[c.GroupName],
		})
	}
	return out
}

// Save persists the project state and the dependency store.
func (p *Project) Save() error {
	autoHeader := p.resolver.AutoHeader()
	st := &state{
		Selector:   p.selector,
		Toolchain:  p.toolchain.ID,
		AutoHeader: &autoHeader,
		Header:     p.header.Entries(),
		Tree:       p.tree,
		Cache:      p.cache,
	}
	if p.pack != nil {
		st.PackDir = p.pack.Dir
	}

	stateDir := filepath.Join(p.dir, StateDir)
	return multierr.Combine(
		st.save(filepath.Join(stateDir, StateFile)),
		p.store.Save(filepath.Join(stateDir, DepsFile)),
	)
}
