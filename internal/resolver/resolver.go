// Package resolver installs pack components into a project. Installing a
// component pulls in the components its condition requires, filters its
// files by their own conditions, registers them in the virtual tree and
// records the include, library and define lists in the dependency store.
package resolver

import (
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/condition"
	"github.com/frederic-klein/yapm/internal/deps"
	"github.com/frederic-klein/yapm/internal/event"
	"github.com/frederic-klein/yapm/internal/pack"
	"github.com/frederic-klein/yapm/internal/rteheader"
	"github.com/frederic-klein/yapm/internal/toolchain"
	"github.com/frederic-klein/yapm/internal/vtree"
)

// HeaderDep is the dependence that carries the generated header's directory.
const HeaderDep = "RTE_Components"

// Options wires a Resolver to the project it mutates.
type Options struct {
	Store      *deps.Store
	Tree       *vtree.Tree
	Header     *rteheader.Generator
	Cache      *Cache
	Bus        *event.Bus
	Logger     *zap.Logger
	AutoHeader bool
}

// Resolver installs and uninstalls components of the loaded pack.
type Resolver struct {
	pack      *pack.PackInfo
	eval      *condition.Evaluator
	toolchain *toolchain.Descriptor

	store      *deps.Store
	tree       *vtree.Tree
	header     *rteheader.Generator
	cache      *Cache
	bus        *event.Bus
	log        *zap.Logger
	autoHeader bool

	// enabled is derived from the component conditions on every target change.
	enabled map[string]bool
}

// NewResolver creates a resolver with no pack loaded.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		store:      opts.Store,
		tree:       opts.Tree,
		header:     opts.Header,
		cache:      opts.Cache,
		bus:        opts.Bus,
		log:        opts.Logger,
		autoHeader: opts.AutoHeader,
		eval:       condition.New(nil, nil),
		enabled:    make(map[string]bool),
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	if r.bus == nil {
		r.bus = event.NewBus()
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.header != nil {
		r.header.SetRegistrar(r)
	}
	return r
}

// SetTarget points the resolver at a pack, device and toolchain. A nil
// device means no device is selected. Enable states are not recomputed
// until RefreshComponents runs.
func (r *Resolver) SetTarget(p *pack.PackInfo, dev *pack.Device, tc *toolchain.Descriptor) {
	r.pack = p
	r.eval = condition.New(p, dev)
	r.toolchain = tc
}

// Evaluator returns the evaluator bound to the current target.
func (r *Resolver) Evaluator() *condition.Evaluator {
	return r.eval
}

// CheckCondition evaluates a named condition for the current target.
func (r *Resolver) CheckCondition(name string) bool {
	return r.eval.Check(name, r.toolchainOrNil())
}

// toolchainOrNil keeps a nil descriptor from becoming a non-nil interface.
func (r *Resolver) toolchainOrNil() condition.Toolchain {
	if r.toolchain == nil {
		return nil
	}
	return r.toolchain
}

// IsInstalled reports whether (packName, group) has a dependence record.
func (r *Resolver) IsInstalled(packName, group string) bool {
	if group == HeaderDep {
		return false
	}
	_, ok := r.store.Lookup(packName, group)
	return ok
}

// Installed lists installed group names of a pack in install order.
func (r *Resolver) Installed(packName string) []string {
	g, ok := r.store.Group(packName)
	if !ok {
		return nil
	}
	return slices.DeleteFunc(g.DepNames(), func(n string) bool { return n == HeaderDep })
}

func (r *Resolver) checkPack(packName string) error {
	if r.pack == nil {
		return ErrNoPack
	}
	if packName != r.pack.Name {
		return fmt.Errorf("%w: %s", ErrUnknownPack, packName)
	}
	return nil
}

// InstallGroup installs the pack component with the given group name.
func (r *Resolver) InstallGroup(packName, group string) error {
	if err := r.checkPack(packName); err != nil {
		return err
	}
	comp, ok := r.pack.Component(group)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, group)
	}
	return r.Install(packName, comp)
}

// Install installs comp and, transitively, the components its condition
// requires. The requested component is always (re)installed; requirements
// already installed are left alone.
func (r *Resolver) Install(packName string, comp *pack.Component) error {
	if err := r.checkPack(packName); err != nil {
		return err
	}
	return r.bus.Batch(func() error {
		in := &installer{r: r, pack: packName}
		return in.install(comp)
	})
}

// installer carries the pending stack of one Install call chain.
type installer struct {
	r       *Resolver
	pack    string
	pending []string
}

func (in *installer) install(comp *pack.Component) error {
	r := in.r
	in.pending = append(in.pending, comp.GroupName)
	defer func() { in.pending = in.pending[:len(in.pending)-1] }()

	reqs, err := r.eval.Requirements(comp.Condition, r.toolchainOrNil())
	if err != nil {
		return &InstallError{Pack: in.pack, Component: comp.GroupName, Err: err}
	}

	for _, ref := range reqs {
		dep, ok := r.pack.FindComponent(ref)
		if !ok {
			r.log.Warn("skipping requirement",
				zap.String("pack", in.pack),
				zap.String("component", comp.GroupName),
				zap.Error(fmt.Errorf("%w: %s", ErrMissingComponent, ref)))
			continue
		}
		if slices.Contains(in.pending, dep.GroupName) || r.IsInstalled(in.pack, dep.GroupName) {
			continue
		}
		if err := in.install(dep); err != nil {
			r.log.Warn("required component not installed",
				zap.String("pack", in.pack),
				zap.String("component", comp.GroupName),
				zap.String("requirement", dep.GroupName),
				zap.Error(err))
		}
	}

	return r.apply(r.plan(in.pack, comp))
}

// installPlan is everything one component install writes.
type installPlan struct {
	pack     string
	group    string
	files    []vtree.File
	dep      deps.Dependence
	observed map[string]bool
	define   string
}

func (r *Resolver) plan(packName string, comp *pack.Component) installPlan {
	tc := r.toolchainOrNil()
	p := installPlan{
		pack:     packName,
		group:    comp.GroupName,
		observed: make(map[string]bool),
		define:   comp.RTEDefine,
		dep:      deps.Dependence{Name: comp.GroupName, DefineList: slices.Clone(comp.DefineList)},
	}
	if comp.Condition != "" {
		p.observed[comp.Condition] = true
	}

	keep := func(items []pack.FileItem) []pack.FileItem {
		var out []pack.FileItem
		for _, it := range items {
			if it.IsTemplate() {
				continue
			}
			if it.Condition != "" {
				ok := r.eval.Check(it.Condition, tc)
				p.observed[it.Condition] = ok
				if !ok {
					continue
				}
			}
			out = append(out, it)
		}
		return out
	}

	headers := keep(comp.HeaderList)
	for _, list := range [][]pack.FileItem{keep(comp.AsmList), keep(comp.SourceList), headers, keep(comp.LinkerList)} {
		for _, it := range list {
			p.files = append(p.files, vtree.File{Path: r.packPath(it.Path)})
		}
	}
	for _, it := range keep(comp.LibList) {
		p.dep.LibList = append(p.dep.LibList, r.packPath(it.Path))
	}

	for _, inc := range comp.IncludeList {
		p.dep.IncList = appendUnique(p.dep.IncList, r.packPath(inc))
	}
	for _, h := range headers {
		p.dep.IncList = appendUnique(p.dep.IncList, filepath.Dir(r.packPath(h.Path)))
	}
	return p
}

// apply writes a plan: virtual files, then cache entry, then dependence.
// The folder's file list is replaced so a reinstall drops files whose
// condition no longer holds. Only the tree step can fail, and it is undone
// before returning.
func (r *Resolver) apply(p installPlan) error {
	packFolder := vtree.Join(r.tree.Root.Name, p.pack)
	folder := vtree.Join(packFolder, p.group)
	_, packExisted := r.tree.Folder(packFolder)
	_, existed := r.tree.Folder(folder)

	if err := r.tree.SetFiles(folder, p.files); err != nil {
		if !existed {
			r.tree.RemoveFolder(folder)
		}
		if !packExisted {
			r.tree.RemoveFolder(packFolder)
		}
		return &InstallError{Pack: p.pack, Component: p.group, Err: err}
	}

	r.cache.Put(p.pack, p.group, p.observed)
	r.store.Add(p.pack, p.dep)
	r.enabled[p.group] = true

	if r.autoHeader && r.header != nil && r.header.Enable(p.group, p.define) {
		r.regenerateHeader()
	}

	r.log.Debug("installed component",
		zap.String("pack", p.pack),
		zap.String("component", p.group),
		zap.Int("files", len(p.files)))
	return nil
}

// EnsureInclude registers the generated header's directory with the loaded
// pack's dependency group.
func (r *Resolver) EnsureInclude(dir string) {
	if r.pack == nil {
		return
	}
	r.store.Add(r.pack.Name, deps.Dependence{Name: HeaderDep, IncList: []string{dir}})
}

func (r *Resolver) regenerateHeader() {
	if err := r.header.Regenerate(); err != nil {
		r.log.Warn("failed to regenerate header", zap.String("path", r.header.Path()), zap.Error(err))
	}
}

func (r *Resolver) packPath(rel string) string {
	rel = filepath.FromSlash(rel)
	if r.pack == nil || r.pack.Dir == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.pack.Dir, rel)
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
