//go:build debug

package assert

import "fmt"

// Invariant panics when ok is false. Only builds tagged debug carry the check.
//
// Use it for conditions the code itself guarantees, never for input coming
// from storage or a ledger:
//
//	assert.Invariant(!state.LastIntegrationMessageID.IsNull(), "published state has an integration id")
func Invariant(ok bool, msg string) {
	if !ok {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s", msg))
	}
}
