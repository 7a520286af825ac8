// Package condition evaluates named pack conditions against the selected
// device and toolchain.
//
// A condition group holds a require list, where every entry must hold, and
// an accept list, where the first entry matching all five criteria (compiler
// category, compiler name, device vendor, device name, nested condition)
// wins. An unset criterion counts as matched. Nested conditions are expanded
// at most once per top-level evaluation; a name reached again while it is
// still being evaluated counts as satisfied, which keeps self-referencing
// graphs finite.
package condition
