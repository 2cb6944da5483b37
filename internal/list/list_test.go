package list

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkvlabs/hived/internal/offset"
	"github.com/dkvlabs/hived/internal/region"
)

func TestEmptyAfterInit(t *testing.T) {
	r := make(region.Region, 64)
	Init(r, 0)
	require.True(t, Empty(r, 0))
}

func TestPushPopLIFO(t *testing.T) {
	r := make(region.Region, 64)
	Init(r, 0)

	Push(r, 0, 16)
	Push(r, 0, 32)
	require.False(t, Empty(r, 0))

	require.Equal(t, offset.Offset(32), Pop(r, 0))
	require.Equal(t, offset.Offset(16), Pop(r, 0))
	require.True(t, Empty(r, 0))
}

func TestRemoveFromMiddle(t *testing.T) {
	r := make(region.Region, 64)
	Init(r, 0)

	Push(r, 0, 16)
	Push(r, 0, 32)
	Push(r, 0, 48)

	Remove(r, 32)

	require.Equal(t, offset.Offset(48), Pop(r, 0))
	require.Equal(t, offset.Offset(16), Pop(r, 0))
	require.True(t, Empty(r, 0))
}

func TestPopEmptyPanics(t *testing.T) {
	r := make(region.Region, 64)
	Init(r, 0)
	require.Panics(t, func() { Pop(r, 0) })
}
