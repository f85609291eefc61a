//go:build debug

package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvariant(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		Invariant(true, "holds")
	})
	require.PanicsWithValue(t, "INVARIANT VIOLATION: chain must fold", func() {
		Invariant(false, "chain must fold")
	})
	require.PanicsWithValue(t, "INVARIANT VIOLATION: ", func() {
		Invariant(false, "")
	})
}
