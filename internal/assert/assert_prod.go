//go:build !debug

package assert

// Invariant compiles to nothing without the debug tag.
func Invariant(ok bool, msg string) {}
