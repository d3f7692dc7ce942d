package a11y

// SameElement reports whether two observations describe the same element.
//
// When both snapshots carry a handle, handle equality decides. Otherwise the
// match falls back to role, name and on-screen position, which can confuse
// two identical controls stacked at the same spot. Callers must treat the
// answer as best-effort.
func SameElement(a, b Snapshot) bool {
	if !a.Handle.IsZero() && !b.Handle.IsZero() {
		return a.Handle == b.Handle
	}
	return a.Role == b.Role &&
		a.Name == b.Name &&
		a.Bounds.X == b.Bounds.X &&
		a.Bounds.Y == b.Bounds.Y
}
