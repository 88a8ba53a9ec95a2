package sys

import (
	"testing"

	"github.com/stretchr/testify/require"

	sysapi "github.com/kframework/portablefs/sys"
)

func TestFileRegistry(t *testing.T) {
	var r FileRegistry

	h := sysapi.NewHandle("stdout")
	f := sysapi.NewWritable(h, nil)

	_, ok := r.Lookup(h)
	require.False(t, ok)

	require.True(t, r.Register(h, f))
	require.False(t, r.Register(h, f), "registered twice")
	require.False(t, r.Register(sysapi.NewHandle("stdout"), f), "file wraps another handle")
	require.False(t, r.Register(h, nil))

	got, ok := r.Lookup(h)
	require.True(t, ok)
	require.Same(t, f, got)

	// Identity, not value: a handle with the same name is a different resource.
	_, ok = r.Lookup(sysapi.NewHandle("stdout"))
	require.False(t, ok)

	r.Unregister(h)
	_, ok = r.Lookup(h)
	require.False(t, ok)
	require.Empty(t, r.files)

	r.Unregister(h) // no-op
}
