package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPack is returned when an operation needs a loaded pack.
	ErrNoPack = errors.New("no pack loaded")
	// ErrUnknownPack is returned for a pack name other than the loaded one.
	ErrUnknownPack = errors.New("pack not loaded")
	// ErrUnknownComponent is returned for a group name the pack does not define.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrMissingComponent marks a requirement no pack component satisfies.
	ErrMissingComponent = errors.New("required component not found in pack")
	// ErrNotInstalled is returned when uninstalling a component that is not installed.
	ErrNotInstalled = errors.New("component not installed")
)

// InstallError names the component whose install failed.
type InstallError struct {
	Pack      string
	Component string
	Err       error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing component %q of pack %q: %v", e.Component, e.Pack, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
