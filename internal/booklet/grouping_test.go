package booklet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

func TestGroupByBooklet(t *testing.T) {
	s := Scheme{TotalBooklets: 3, Capacity: 5}
	donations := []model.Donation{
		{BookletNumber: 1, SerialNumber: 1, Amount: 100},
		{BookletNumber: 1, SerialNumber: 5, Amount: 50.5},
		{BookletNumber: 3, SerialNumber: 12, Amount: 10},
		{BookletNumber: 9, SerialNumber: 99, Amount: 1000}, // outside the scheme
	}

	got := GroupByBooklet(s, donations)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, 1, first.BookletNumber)
	assert.Equal(t, Range{Start: 1, End: 5}, first.Range)
	assert.Equal(t, 150.5, first.TotalAmount)
	assert.Equal(t, 2, first.Used)
	assert.Equal(t, 3, first.Available)
	require.Len(t, first.Slots, 5)
	require.NotNil(t, first.Slots[0])
	assert.Equal(t, 1, first.Slots[0].SerialNumber)
	assert.Nil(t, first.Slots[1])
	require.NotNil(t, first.Slots[4])
	assert.Equal(t, 5, first.Slots[4].SerialNumber)

	assert.Zero(t, got[1].Used)
	assert.Equal(t, 5, got[1].Available)

	third := got[2]
	assert.Equal(t, Range{Start: 11, End: 15}, third.Range)
	require.NotNil(t, third.Slots[1])
	assert.Equal(t, 10.0, third.TotalAmount)
}

func TestGroupByBlock(t *testing.T) {
	l := DefaultLayout()
	donations := []model.Donation{
		{SerialNumber: 1, Block: "A", Floor: 11, QuarterNumber: 6, Amount: 500},
		{SerialNumber: 2, Block: "b", Floor: 9, QuarterNumber: 1, Amount: 200},
		{SerialNumber: 3, Block: "B", Floor: 10, QuarterNumber: 1, Amount: 999}, // floor beyond block B
		{SerialNumber: 4, Block: "I", Floor: 1, QuarterNumber: 1, Amount: 999},  // no such block
	}

	got := GroupByBlock(l, donations)
	require.Len(t, got, 11)

	a := got[0]
	assert.Equal(t, "A", a.Block)
	assert.Equal(t, 11, a.MaxFloor)
	require.Len(t, a.Floors, 11)
	require.Len(t, a.Floors[10].Quarters, 6)
	slot := a.Floors[10].Quarters[5]
	assert.Equal(t, 6, slot.QuarterNumber)
	require.NotNil(t, slot.Donation)
	assert.Equal(t, 1, slot.Donation.SerialNumber)
	assert.Equal(t, 500.0, a.TotalAmount)
	assert.Equal(t, 1, a.Occupied)

	b := got[1]
	assert.Equal(t, "B", b.Block)
	require.Len(t, b.Floors, 9)
	require.NotNil(t, b.Floors[8].Quarters[0].Donation)
	assert.Equal(t, 200.0, b.TotalAmount)
	assert.Equal(t, 1, b.Occupied)
}
