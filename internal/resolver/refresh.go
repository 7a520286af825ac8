package resolver

import (
	"maps"
	"slices"

	"github.com/frederic-klein/yapm/internal/deps"
	"github.com/frederic-klein/yapm/internal/event"
)

// Expired lists installed groups of a pack for which a condition that held
// at install time no longer holds.
func (r *Resolver) Expired(packName string) []string {
	tc := r.toolchainOrNil()
	var expired []string
	for _, group := range r.cache.Groups(packName) {
		observed, _ := r.cache.Get(packName, group)
		for _, cond := range slices.Sorted(maps.Keys(observed)) {
			if observed[cond] && !r.eval.Check(cond, tc) {
				expired = append(expired, group)
				break
			}
		}
	}
	return expired
}

// RefreshComponents recomputes every component's enable state for the
// current target. Installed components that became disabled are reported as
// Disabled and components with expired conditions as Expired, in a single
// ComponentUpdate event. Nothing is uninstalled. With header generation on,
// disabled components leave the header and re-enabled ones return to it.
func (r *Resolver) RefreshComponents() []event.Update {
	prev := r.enabled
	r.enabled = make(map[string]bool)
	if r.pack == nil {
		return nil
	}

	tc := r.toolchainOrNil()
	var disabled []event.Update
	for _, c := range r.pack.Components {
		on := r.eval.Check(c.Condition, tc)
		r.enabled[c.GroupName] = on

		was, known := prev[c.GroupName]
		if !on && (was || !known) && r.IsInstalled(r.pack.Name, c.GroupName) {
			disabled = append(disabled, event.Update{Name: c.GroupName, State: event.Disabled})
		}
	}

	var expired []event.Update
	for _, group := range r.Expired(r.pack.Name) {
		expired = append(expired, event.Update{Name: group, State: event.Expired})
	}

	if r.autoHeader && r.header != nil && r.syncHeader() {
		r.regenerateHeader()
	}

	updates := event.MergeUpdates(disabled, expired)
	r.bus.Emit(event.ComponentUpdate{Updates: updates})
	return updates
}

// Enabled reports the derived enable state of a component.
func (r *Resolver) Enabled(group string) bool {
	return r.enabled[group]
}

// AutoHeader reports whether header generation is on.
func (r *Resolver) AutoHeader() bool {
	return r.autoHeader
}

// SetAutoHeader turns header generation on or off. Turning it on rebuilds
// the registry from the enabled installed components in install order;
// turning it off deletes the header and its include record.
func (r *Resolver) SetAutoHeader(on bool) {
	r.autoHeader = on
	if r.header == nil {
		return
	}

	r.header.Reset()
	if !on {
		if r.pack != nil {
			r.store.Remove(r.pack.Name, HeaderDep)
			r.pruneGroup(r.pack.Name)
		}
		r.regenerateHeader()
		return
	}

	r.syncHeader()
	r.regenerateHeader()
}

// syncHeader rebuilds the registry from the enabled installed components in
// install order and reports whether it changed.
func (r *Resolver) syncHeader() bool {
	prev := r.header.Entries()
	r.header.Reset()
	if r.pack != nil {
		for _, group := range r.Installed(r.pack.Name) {
			comp, ok := r.pack.Component(group)
			if ok && r.enabled[group] {
				r.header.Enable(group, comp.RTEDefine)
			}
		}
	}
	return !slices.Equal(prev, r.header.Entries())
}

// RestoreEnabled seeds the enable map without reporting changes, for a
// project reopened from saved state.
func (r *Resolver) RestoreEnabled() {
	r.enabled = make(map[string]bool)
	if r.pack == nil {
		return
	}
	tc := r.toolchainOrNil()
	for _, c := range r.pack.Components {
		r.enabled[c.GroupName] = r.eval.Check(c.Condition, tc)
	}
}

// Dependencies exposes the store for read access.
func (r *Resolver) Dependencies() *deps.Store {
	return r.store
}
