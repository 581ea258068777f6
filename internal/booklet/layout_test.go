package booklet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxFloorFor(t *testing.T) {
	l := DefaultLayout()
	cases := []struct {
		block string
		want  int
	}{
		{"A", 11},
		{"B", 9},
		{"C", 9},
		{"L", 11},
		{" b ", 9},
		{"k", 11},
	}
	for _, tc := range cases {
		t.Run(tc.block, func(t *testing.T) {
			got, err := l.MaxFloorFor(tc.block)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMaxFloorForUnknownBlock(t *testing.T) {
	l := DefaultLayout()
	for _, b := range []string{"I", "M", "Z", "", "AA"} {
		_, err := l.MaxFloorFor(b)
		assert.ErrorIs(t, err, ErrInvalidBlock, "block %q", b)
	}
}

func TestBlocksSorted(t *testing.T) {
	assert.Equal(t,
		[]string{"A", "B", "C", "D", "E", "F", "G", "H", "J", "K", "L"},
		DefaultLayout().Blocks())
}

func TestValidateLocation(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.ValidateLocation("A", 11, 6))
	require.NoError(t, l.ValidateLocation("b", 1, 1))

	assert.ErrorIs(t, l.ValidateLocation("I", 1, 1), ErrInvalidBlock)
	assert.ErrorIs(t, l.ValidateLocation("B", 10, 1), ErrInvalidFloor)
	assert.ErrorIs(t, l.ValidateLocation("A", 0, 1), ErrInvalidFloor)
	assert.ErrorIs(t, l.ValidateLocation("A", 1, 0), ErrInvalidQuarter)
	assert.ErrorIs(t, l.ValidateLocation("A", 1, 7), ErrInvalidQuarter)
}
