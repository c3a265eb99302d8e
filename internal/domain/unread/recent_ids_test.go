package unread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_recentIDs(t *testing.T) {
	ids := newRecentIDs(2)

	require.True(t, ids.add("a"))
	require.False(t, ids.add("a"))
	require.True(t, ids.add("b"))
	require.True(t, ids.add("c"))

	// "a" was pushed out by "c".
	require.True(t, ids.add("a"))
	require.False(t, ids.add("c"))
}
