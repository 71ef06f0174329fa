package services

import "os"

// ActivityGate decides whether a raw input event counts as editing
// activity. It is a pure predicate with no side effects.
type ActivityGate struct{}

// NewActivityGate creates an activity gate
func NewActivityGate() *ActivityGate {
	return &ActivityGate{}
}

// IsCountableActivity returns true only when the target exists on the
// local filesystem as a regular, writable file. An unresolvable target
// is "not activity", never an error.
func (g *ActivityGate) IsCountableActivity(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if !info.Mode().IsRegular() {
		return false
	}

	// Read-only targets (generated code, library sources) don't count
	return info.Mode().Perm()&0o200 != 0
}
