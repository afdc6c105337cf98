package fn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionSomeIsSome(t *testing.T) {
	o := Some(7)

	require.True(t, o.IsSome())
	require.False(t, o.IsNone())
	require.Equal(t, 7, o.UnwrapOr(99))
}

func TestOptionNoneIsNone(t *testing.T) {
	o := None[int]()

	require.False(t, o.IsSome())
	require.True(t, o.IsNone())
	require.Equal(t, 99, o.UnwrapOr(99))
}

func TestOptionZeroValueIsNone(t *testing.T) {
	var o Option[string]

	require.True(t, o.IsNone())
	require.Equal(t, "default", o.UnwrapOr("default"))
}
