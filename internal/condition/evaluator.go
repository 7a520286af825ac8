package condition

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/frederic-klein/yapm/internal/pack"
)

// criteriaCount is the score an accept entry needs to win.
const criteriaCount = 5

// Toolchain is the part of a toolchain descriptor conditions match against.
type Toolchain interface {
	CategoryName() string
	Name() string
}

// MismatchError reports the condition whose entry failed and why.
type MismatchError struct {
	Condition string
	Criterion string
	Want      string
	Have      string
}

func (e *MismatchError) Error() string {
	if e.Criterion == "" {
		return fmt.Sprintf("condition %q: no accept entry matched", e.Condition)
	}
	return fmt.Sprintf("condition %q: %s %q does not match %q", e.Condition, e.Criterion, e.Have, e.Want)
}

// Evaluator checks conditions of one pack for one device. It holds no
// per-evaluation state and is safe to reuse.
type Evaluator struct {
	conditions map[string]*pack.ConditionGroup
	device     *pack.Device
}

// visit memoizes one condition within a single top-level evaluation.
type visit struct {
	done bool
	reqs []string
	err  error
}

type guard map[string]*visit

// New creates an evaluator. A nil pack has no conditions; a nil device
// means no device is selected and every condition holds.
func New(p *pack.PackInfo, dev *pack.Device) *Evaluator {
	e := &Evaluator{device: dev}
	if p != nil {
		e.conditions = p.Conditions
	}
	return e
}

// Device returns the device the evaluator matches against, or nil.
func (e *Evaluator) Device() *pack.Device {
	return e.device
}

// Check reports whether the named condition holds. Unknown names hold.
func (e *Evaluator) Check(name string, tc Toolchain) bool {
	if name == "" || e.device == nil {
		return true
	}
	_, err := e.evaluate(name, tc, make(guard))
	return err == nil
}

// Requirements evaluates the named condition and returns the deduplicated
// component references it pulls in. A failing condition is reported as a
// *MismatchError naming the proximate failing condition.
func (e *Evaluator) Requirements(name string, tc Toolchain) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	reqs, err := e.evaluate(name, tc, make(guard))
	if err != nil {
		return nil, err
	}
	return dedupe(reqs), nil
}

func (e *Evaluator) evaluate(name string, tc Toolchain, g guard) ([]string, error) {
	if v, seen := g[name]; seen {
		if !v.done {
			return nil, nil
		}
		return v.reqs, v.err
	}

	group, ok := e.conditions[name]
	if !ok {
		g[name] = &visit{done: true}
		return nil, nil
	}

	v := &visit{}
	g[name] = v
	v.reqs, v.err = e.evaluateGroup(name, group, tc, g)
	v.done = true
	return v.reqs, v.err
}

func (e *Evaluator) evaluateGroup(name string, group *pack.ConditionGroup, tc Toolchain, g guard) ([]string, error) {
	var reqs []string

	for _, c := range group.Require {
		if err := e.matchEntry(name, c, tc); err != nil {
			return nil, err
		}
		if c.Condition != "" {
			sub, err := e.evaluate(c.Condition, tc, g)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, sub...)
		}
		if c.Component != "" {
			reqs = append(reqs, c.Component)
		}
	}

	if len(group.Accept) == 0 {
		return reqs, nil
	}

	for _, c := range group.Accept {
		score := 0
		if e.matchCategory(c.CompilerCategory, tc) {
			score++
		}
		if e.matchCompiler(c.CompilerName, tc) {
			score++
		}
		if e.matchVendor(c.DeviceVendor) {
			score++
		}
		if e.matchDeviceName(c.DeviceName) {
			score++
		}

		var sub []string
		if c.Condition == "" {
			score++
		} else if r, err := e.evaluate(c.Condition, tc, g); err == nil {
			sub = r
			score++
		}

		if score == criteriaCount {
			reqs = append(reqs, sub...)
			if c.Component != "" {
				reqs = append(reqs, c.Component)
			}
			return reqs, nil
		}
	}

	return nil, &MismatchError{Condition: name}
}

// matchEntry applies the four direct predicates of a require entry.
func (e *Evaluator) matchEntry(name string, c pack.Condition, tc Toolchain) error {
	switch {
	case !e.matchVendor(c.DeviceVendor):
		return &MismatchError{Condition: name, Criterion: "device vendor", Want: c.DeviceVendor, Have: e.device.Vendor}
	case !e.matchDeviceName(c.DeviceName):
		return &MismatchError{Condition: name, Criterion: "device name", Want: c.DeviceName, Have: e.device.Info.Name}
	case !e.matchCategory(c.CompilerCategory, tc):
		return &MismatchError{Condition: name, Criterion: "compiler category", Want: c.CompilerCategory, Have: tc.CategoryName()}
	case !e.matchCompiler(c.CompilerName, tc):
		return &MismatchError{Condition: name, Criterion: "compiler", Want: c.CompilerName, Have: tc.Name()}
	}
	return nil
}

func (e *Evaluator) matchVendor(want string) bool {
	if want == "" || e.device == nil {
		return true
	}
	return strings.EqualFold(vendorName(want), vendorName(e.device.Vendor))
}

func (e *Evaluator) matchDeviceName(pattern string) bool {
	if pattern == "" || e.device == nil {
		return true
	}
	ok, err := doublestar.Match(strings.ToUpper(pattern), strings.ToUpper(e.device.Info.Name))
	return err == nil && ok
}

// With no device selected every predicate holds, so evaluation only
// collects component references.
func (e *Evaluator) matchCategory(want string, tc Toolchain) bool {
	if want == "" || tc == nil || e.device == nil {
		return true
	}
	return strings.EqualFold(want, tc.CategoryName())
}

func (e *Evaluator) matchCompiler(want string, tc Toolchain) bool {
	if want == "" || tc == nil || e.device == nil {
		return true
	}
	return strings.EqualFold(want, tc.Name())
}

// vendorName strips the numeric vendor id, e.g. "STMicroelectronics:13".
func vendorName(v string) string {
	if i := strings.LastIndex(v, ":"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
