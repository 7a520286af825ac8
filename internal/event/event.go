// Package event carries project change notifications. Mutations made inside
// a batch are coalesced and delivered once when the outermost batch ends.
package event

import (
	"github.com/frederic-klein/yapm/internal/pack"
)

// State is the reason a component is reported in a ComponentUpdate.
type State string

const (
	// Disabled means an installed component's own condition no longer holds.
	Disabled State = "Disabled"
	// Expired means a condition that held at install time no longer holds.
	Expired State = "Expired"
)

// Event is any change notification.
type Event interface {
	isEvent()
}

// Update is one component entry of a ComponentUpdate.
type Update struct {
	Name  string
	State State
}

// ComponentUpdate lists installed components invalidated by a device or toolchain change.
type ComponentUpdate struct {
	Updates []Update
}

// DeviceChanged is emitted when the selected device changes. Previous is nil
// when no device was selected before.
type DeviceChanged struct {
	Previous *pack.Selector
}

// PackageChanged is emitted when a pack is loaded or unloaded.
type PackageChanged struct {
	Pack string
}

// DependenceChanged is emitted when dependency records change.
type DependenceChanged struct{}

func (ComponentUpdate) isEvent()   {}
func (DeviceChanged) isEvent()     {}
func (PackageChanged) isEvent()    {}
func (DependenceChanged) isEvent() {}

// Bus delivers events to subscribers synchronously.
type Bus struct {
	subscribers []func(Event)
	depth       int
	pending     []Event
}

// NewBus creates a bus without subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every delivered event.
func (b *Bus) Subscribe(fn func(Event)) {
	b.subscribers = append(b.subscribers, fn)
}

// Emit delivers e now, or queues it when a batch is open.
func (b *Bus) Emit(e Event) {
	if b.depth > 0 {
		b.queue(e)
		return
	}
	b.deliver(e)
}

// Batch runs fn with notifications held back, then delivers the coalesced
// events once. Batches nest; only the outermost one delivers.
func (b *Bus) Batch(fn func() error) error {
	b.depth++
	defer func() {
		b.depth--
		if b.depth == 0 {
			pending := b.pending
			b.pending = nil
			for _, e := range pending {
				b.deliver(e)
			}
		}
	}()
	return fn()
}

func (b *Bus) deliver(e Event) {
	if u, ok := e.(ComponentUpdate); ok && len(u.Updates) == 0 {
		return
	}
	for _, fn := range b.subscribers {
		fn(e)
	}
}

// queue coalesces e with a pending event of the same kind.
func (b *Bus) queue(e Event) {
	for i, p := range b.pending {
		switch pe := p.(type) {
		case DependenceChanged:
			if _, ok := e.(DependenceChanged); ok {
				return
			}
		case PackageChanged:
			if ne, ok := e.(PackageChanged); ok {
				b.pending[i] = ne
				return
			}
		case DeviceChanged:
			// The first event knows the selector in effect before the batch.
			if _, ok := e.(DeviceChanged); ok {
				return
			}
		case ComponentUpdate:
			if ne, ok := e.(ComponentUpdate); ok {
				b.pending[i] = ComponentUpdate{Updates: MergeUpdates(pe.Updates, ne.Updates)}
				return
			}
		}
	}
	b.pending = append(b.pending, e)
}

// MergeUpdates unions update lists by component name; the first state seen
// for a name wins.
func MergeUpdates(lists ...[]Update) []Update {
	seen := make(map[string]bool)
	var out []Update
	for _, l := range lists {
		for _, u := range l {
			if seen[u.Name] {
				continue
			}
			seen[u.Name] = true
			out = append(out, u)
		}
	}
	return out
}
