package verify

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedProducesExpectedMD5(t *testing.T) {
	d := New(Options{CalculateMD5: true})
	d.Feed([]byte("hello "))
	d.Feed([]byte("world"))
	digests := d.Finalize()

	want := md5.Sum([]byte("hello world"))
	assert.Equal(t, want[:], digests["MD5"])
	_, hasSHA1 := digests["SHA1"]
	assert.False(t, hasSHA1)
}

func TestRecordChunkResultCoalescesContiguousRuns(t *testing.T) {
	d := New(Options{})
	d.RecordChunkResult(0, 10, true)
	d.RecordChunkResult(10, 10, true)
	d.RecordChunkResult(20, 10, false)
	d.RecordChunkResult(30, 5, true)

	errs := d.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, ChecksumError{StartSector: 0, SectorCount: 20}, errs[0])
	assert.Equal(t, ChecksumError{StartSector: 30, SectorCount: 5}, errs[1])
}

func TestCompareMatches(t *testing.T) {
	computed := Digests{"MD5": []byte{1, 2, 3}}
	stored := Digests{"MD5": []byte{1, 2, 3}}
	ok, err := Compare(computed, stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareDetectsMismatch(t *testing.T) {
	computed := Digests{"MD5": []byte{1, 2, 3}}
	stored := Digests{"MD5": []byte{9, 9, 9}}
	ok, err := Compare(computed, stored)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareErrorsWhenNothingToCompare(t *testing.T) {
	_, err := Compare(Digests{}, Digests{"MD5": []byte{1}})
	assert.Error(t, err)
}
