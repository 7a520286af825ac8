package pack

import (
	"errors"
	"fmt"
	"strings"
)

// AttrTemplate marks file items that are user templates and never installed.
const AttrTemplate = "template"

// ErrInvalidSelector is returned when a Selector does not address a device in the pack.
var ErrInvalidSelector = errors.New("invalid device selector")

// PackInfo is the in-memory model of one device-support pack.
type PackInfo struct {
	Vendor     string                     `yaml:"vendor"`
	Name       string                     `yaml:"name"`
	Version    string                     `yaml:"version,omitempty"`
	Families   []*DeviceFamily            `yaml:"families"`
	Components []*Component               `yaml:"components"`
	Conditions map[string]*ConditionGroup `yaml:"conditions"`

	// Dir is the pack's root on local storage; file item paths are relative to it.
	Dir string `yaml:"-"`
}

// DeviceFamily groups devices sharing a vendor.
type DeviceFamily struct {
	Name        string        `yaml:"name"`
	Vendor      string        `yaml:"vendor"`
	Core        string        `yaml:"core,omitempty"`
	SubFamilies []*SubFamily  `yaml:"subFamilies,omitempty"`
	Devices     []*DeviceInfo `yaml:"devices,omitempty"`
}

// SubFamily is an optional grouping level below a family.
type SubFamily struct {
	Name    string        `yaml:"name"`
	Devices []*DeviceInfo `yaml:"devices"`
}

// DeviceInfo describes a single selectable device.
type DeviceInfo struct {
	Name   string `yaml:"name"`
	Vendor string `yaml:"vendor,omitempty"` // overrides the family vendor
	Core   string `yaml:"core,omitempty"`
	SVD    string `yaml:"svd,omitempty"`
}

// Selector identifies the active target. SubFamily is -1 for devices
// listed directly under the family.
type Selector struct {
	Family    int `yaml:"family"`
	SubFamily int `yaml:"subFamily"`
	Device    int `yaml:"device"`
}

// Device is a resolved selector: the device plus its effective vendor.
type Device struct {
	Info   *DeviceInfo
	Vendor string
	Family string
}

// FileItem is a single file of a component.
type FileItem struct {
	Path      string `yaml:"path"`
	Condition string `yaml:"condition,omitempty"`
	Attr      string `yaml:"attr,omitempty"`
}

// Component is an installable bundle of files; GroupName is the install key.
type Component struct {
	GroupName   string     `yaml:"groupName"`
	Class       string     `yaml:"class,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Condition   string     `yaml:"condition,omitempty"`
	RTEDefine   string     `yaml:"rteDefine,omitempty"`
	HeaderList  []FileItem `yaml:"headerList,omitempty"`
	SourceList  []FileItem `yaml:"sourceList,omitempty"`
	AsmList     []FileItem `yaml:"asmList,omitempty"`
	LibList     []FileItem `yaml:"libList,omitempty"`
	LinkerList  []FileItem `yaml:"linkerList,omitempty"`
	IncludeList []string   `yaml:"includeList,omitempty"`
	DefineList  []string   `yaml:"defineList,omitempty"`
}

// ConditionGroup is a named boolean rule: every Require entry must hold and,
// when Accept is non-empty, at least one Accept entry must fully match.
type ConditionGroup struct {
	Require []Condition `yaml:"require,omitempty"`
	Accept  []Condition `yaml:"accept,omitempty"`
}

// Condition is one entry of a require or accept list. Empty fields are unset.
type Condition struct {
	DeviceVendor     string `yaml:"deviceVendor,omitempty"`
	DeviceName       string `yaml:"deviceName,omitempty"`
	CompilerCategory string `yaml:"compilerCategory,omitempty"`
	CompilerName     string `yaml:"compilerName,omitempty"`
	Condition        string `yaml:"condition,omitempty"`
	Component        string `yaml:"component,omitempty"`
}

// String formats the selector as family/subfamily/device.
func (s Selector) String() string {
	return fmt.Sprintf("%d/%d/%d", s.Family, s.SubFamily, s.Device)
}

// Key returns the display key vendor.name, e.g. "Keil.STM32F1xx_DFP".
func (p *PackInfo) Key() string {
	return p.Vendor + "." + p.Name
}

// Resolve maps a selector to its device.
func (p *PackInfo) Resolve(sel Selector) (*Device, error) {
	if sel.Family < 0 || sel.Family >= len(p.Families) {
		return nil, fmt.Errorf("%w: family %d", ErrInvalidSelector, sel.Family)
	}
	fam := p.Families[sel.Family]

	devices := fam.Devices
	if sel.SubFamily >= 0 {
		if sel.SubFamily >= len(fam.SubFamilies) {
			return nil, fmt.Errorf("%w: subfamily %d", ErrInvalidSelector, sel.SubFamily)
		}
		devices = fam.SubFamilies[sel.SubFamily].Devices
	}
	if sel.Device < 0 || sel.Device >= len(devices) {
		return nil, fmt.Errorf("%w: device %d", ErrInvalidSelector, sel.Device)
	}

	info := devices[sel.Device]
	vendor := fam.Vendor
	if info.Vendor != "" {
		vendor = info.Vendor
	}
	return &Device{Info: info, Vendor: vendor, Family: fam.Name}, nil
}

// FindDevice returns the selector of the first device named name.
func (p *PackInfo) FindDevice(name string) (Selector, bool) {
	for fi, fam := range p.Families {
		for di, d := range fam.Devices {
			if strings.EqualFold(d.Name, name) {
				return Selector{Family: fi, SubFamily: -1, Device: di}, true
			}
		}
		for si, sub := range fam.SubFamilies {
			for di, d := range sub.Devices {
				if strings.EqualFold(d.Name, name) {
					return Selector{Family: fi, SubFamily: si, Device: di}, true
				}
			}
		}
	}
	return Selector{}, false
}

// Component returns the component with the given group name.
func (p *PackInfo) Component(groupName string) (*Component, bool) {
	for _, c := range p.Components {
		if c.GroupName == groupName {
			return c, true
		}
	}
	return nil, false
}

// FindComponent resolves a requirement reference to a component. A reference
// matches the group name exactly, then "<class>.<groupName>", then the part
// after the last dot (so "Device.ClockConfig" finds "ClockConfig").
func (p *PackInfo) FindComponent(ref string) (*Component, bool) {
	if c, ok := p.Component(ref); ok {
		return c, true
	}
	for _, c := range p.Components {
		if c.Class != "" && c.Class+"."+c.GroupName == ref {
			return c, true
		}
	}
	if i := strings.LastIndex(ref, "."); i >= 0 && i < len(ref)-1 {
		return p.Component(ref[i+1:])
	}
	return nil, false
}

// HasComponent reports whether groupName is part of the pack.
func (p *PackInfo) HasComponent(groupName string) bool {
	_, ok := p.Component(groupName)
	return ok
}

// Files returns every file item of the component across all lists.
func (c *Component) Files() []FileItem {
	var out []FileItem
	for _, l := range [][]FileItem{c.AsmList, c.SourceList, c.HeaderList, c.LinkerList, c.LibList} {
		out = append(out, l...)
	}
	return out
}

// IsTemplate reports whether the item is a user template.
func (f FileItem) IsTemplate() bool {
	return strings.EqualFold(f.Attr, AttrTemplate)
}
