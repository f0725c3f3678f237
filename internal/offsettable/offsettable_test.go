package offsettable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillComputesOffsetsAndCompressedFlag(t *testing.T) {
	table := New(4)
	raw := []uint32{0, 100, 200 | 0x80000000}
	table.Fill(1000, raw, 1)

	e0, ok := table.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), e0.FileOffset)
	assert.False(t, e0.Compressed)

	e2, ok := table.Get(2)
	require.True(t, ok)
	assert.Equal(t, uint64(1200), e2.FileOffset)
	assert.True(t, e2.Compressed)
	assert.Equal(t, uint16(1), e2.SegmentID)
}

func TestCalculateLastOffsetUsesNextChunkDelta(t *testing.T) {
	table := New(0)
	table.Fill(0, []uint32{0, 100, 250}, 1)
	table.CalculateLastOffset(0, []SectionStart{{Offset: 400}})

	e0, _ := table.Get(0)
	e1, _ := table.Get(1)
	e2, _ := table.Get(2)
	assert.Equal(t, uint32(100), e0.StoredSize)
	assert.Equal(t, uint32(150), e1.StoredSize)
	assert.Equal(t, uint32(150), e2.StoredSize)
}

func TestSetRejectsOutOfSequenceIndex(t *testing.T) {
	table := New(0)
	err := table.Set(0, Entry{FileOffset: 10})
	require.NoError(t, err)
	err = table.Set(5, Entry{FileOffset: 20})
	assert.Error(t, err)
}

func TestCompareNilTable2CompensatesToSuccess(t *testing.T) {
	table := New(0)
	table.Fill(0, []uint32{0, 100}, 1)
	winner, err := Compare(table, nil, ErrorToleranceStrict)
	require.NoError(t, err)
	assert.Same(t, table, winner)
}

func TestCompareStrictFailsOnMismatch(t *testing.T) {
	a := New(0)
	a.Fill(0, []uint32{0, 100}, 1)
	b := New(0)
	b.Fill(0, []uint32{0, 150}, 1)

	_, err := Compare(a, b, ErrorToleranceStrict)
	assert.Error(t, err)
}

func TestCompareCompensatingPrefersHealthierSide(t *testing.T) {
	a := New(0)
	a.Fill(0, []uint32{0, 100}, 1)
	a.CalculateLastOffset(0, nil) // leaves the last stored size zero: less healthy

	b := New(0)
	b.Fill(0, []uint32{0, 100}, 1)
	b.CalculateLastOffset(0, []SectionStart{{Offset: 300}})

	winner, err := Compare(a, b, ErrorToleranceCompensate)
	require.NoError(t, err)
	assert.Same(t, b, winner)
}

func TestCompareCompensatingTiesFavorA(t *testing.T) {
	a := New(0)
	a.Fill(0, []uint32{0, 100}, 1)
	b := New(0)
	b.Fill(0, []uint32{0, 999}, 1) // differs, forcing the mismatch path, equal health (both zero)

	winner, err := Compare(a, b, ErrorToleranceCompensate)
	require.NoError(t, err)
	assert.Same(t, a, winner)
}
