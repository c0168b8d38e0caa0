package treeview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forktrace/internal/proctree"
)

func TestLiveView_ThrottlesRedraws(t *testing.T) {
	tree := proctree.New(1)
	tree.Node(tree.Root()).Command = "init"

	var out strings.Builder
	clock := time.Unix(0, 0)
	v := NewLiveView(&out)
	v.now = func() time.Time { return clock }

	require.NoError(t, v.Refresh(tree))
	frames := strings.Count(out.String(), clearScreen)
	assert.Equal(t, 1, frames)

	// Within the minimum interval: dropped.
	clock = clock.Add(10 * time.Millisecond)
	require.NoError(t, v.Refresh(tree))
	assert.Equal(t, 1, strings.Count(out.String(), clearScreen))

	// Past the interval: drawn.
	clock = clock.Add(DefaultRedrawInterval)
	require.NoError(t, v.Refresh(tree))
	assert.Equal(t, 2, strings.Count(out.String(), clearScreen))
}

func TestLiveView_FlushBypassesThrottle(t *testing.T) {
	tree := proctree.New(1)
	tree.Node(tree.Root()).Command = "init"

	var out strings.Builder
	clock := time.Unix(0, 0)
	v := NewLiveView(&out)
	v.now = func() time.Time { return clock }

	require.NoError(t, v.Refresh(tree))
	require.NoError(t, v.Flush(tree))

	assert.Equal(t, 2, strings.Count(out.String(), clearScreen))
	assert.True(t, strings.HasSuffix(out.String(), "init\n"))
}
