package pause

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGateFlagsAreIndependent(t *testing.T) {
	g := New()
	require.NoError(t, g.RequireTick())
	require.NoError(t, g.RequireBond())
	require.NoError(t, g.RequireUnbond())

	g.SetBond(true)
	require.NoError(t, g.RequireTick())
	require.ErrorIs(t, g.RequireBond(), ErrBondPaused)
	require.NoError(t, g.RequireUnbond())

	g.SetBond(false)
	require.NoError(t, g.RequireBond())
}

func TestGateSetReplacesAllFlags(t *testing.T) {
	g := New()
	g.Set(Flags{Tick: true, Unbond: true})

	require.ErrorIs(t, g.RequireTick(), ErrTickPaused)
	require.NoError(t, g.RequireBond())
	require.ErrorIs(t, g.RequireUnbond(), ErrUnbondPaused)
	require.Equal(t, Flags{Tick: true, Bond: false, Unbond: true}, g.Flags())
}
