package bitvec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkvlabs/hived/internal/region"
)

func TestSetClearTest(t *testing.T) {
	r := make(region.Region, ByteLen(100))
	bv := New(r, 0)
	bv.Zero(100)

	require.False(t, bv.Test(5))
	bv.Set(5)
	require.True(t, bv.Test(5))
	require.False(t, bv.Test(4))
	require.False(t, bv.Test(6))

	bv.Clear(5)
	require.False(t, bv.Test(5))
}

func TestFlipTogglesAndReturnsNewValue(t *testing.T) {
	r := make(region.Region, ByteLen(8))
	bv := New(r, 0)
	bv.Zero(8)

	require.True(t, bv.Flip(3))
	require.True(t, bv.Test(3))
	require.False(t, bv.Flip(3))
	require.False(t, bv.Test(3))
}

func TestByteLenRoundsUp(t *testing.T) {
	require.Equal(t, 1, ByteLen(1))
	require.Equal(t, 1, ByteLen(8))
	require.Equal(t, 2, ByteLen(9))
}
