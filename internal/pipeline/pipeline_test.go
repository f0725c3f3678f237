package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawChunkRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{'Q'}, 32)

	writer := New(Options{})
	payload, compressed, err := writer.PrepareWriteChunk(raw, CompressionNone, false)
	require.NoError(t, err)
	assert.False(t, compressed)

	var buf bytes.Buffer
	_, err = writer.WriteChunk(&buf, payload)
	require.NoError(t, err)
	assert.Equal(t, Committed, writer.State())

	reader := New(Options{})
	checksum, processChecksum, err := reader.ReadChunk(bytes.NewReader(buf.Bytes()), 0, buf.Len(), false)
	require.NoError(t, err)
	assert.True(t, processChecksum)

	result, err := reader.PrepareReadChunk(len(raw), false, checksum, processChecksum)
	require.NoError(t, err)
	assert.False(t, result.Mismatch)
	assert.Equal(t, raw, result.Payload)
}

func TestCompressedChunkRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("hello world"), 50)

	writer := New(Options{})
	payload, compressed, err := writer.PrepareWriteChunk(raw, CompressionBest, false)
	require.NoError(t, err)
	require.True(t, compressed, "repetitive data should compress smaller than raw+checksum")

	reader := New(Options{})
	_, _, err = reader.ReadChunk(bytes.NewReader(payload), 0, len(payload), true)
	require.NoError(t, err)

	result, err := reader.PrepareReadChunk(len(raw), true, 0, false)
	require.NoError(t, err)
	assert.False(t, result.Mismatch)
	assert.Equal(t, raw, result.Payload)
}

func TestRawChunkChecksumMismatchWipesWhenConfigured(t *testing.T) {
	raw := bytes.Repeat([]byte{'Z'}, 16)
	writer := New(Options{})
	payload, _, err := writer.PrepareWriteChunk(raw, CompressionNone, false)
	require.NoError(t, err)
	payload[0] ^= 0xff // corrupt the raw payload without touching its trailer

	reader := New(Options{WipeChunkOnError: true})
	checksum, processChecksum, err := reader.ReadChunk(bytes.NewReader(payload), 0, len(payload), false)
	require.NoError(t, err)

	result, err := reader.PrepareReadChunk(len(raw), false, checksum, processChecksum)
	require.NoError(t, err)
	assert.True(t, result.Mismatch)
	assert.Equal(t, make([]byte, len(raw)), result.Payload)
}

func TestIncompressibleDataFallsBackToRaw(t *testing.T) {
	// Random-looking bytes that won't compress smaller than raw+checksum.
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i*167 + 13)
	}
	writer := New(Options{})
	_, compressed, err := writer.PrepareWriteChunk(raw, CompressionBest, false)
	require.NoError(t, err)
	assert.False(t, compressed, "low-redundancy data should not beat raw+checksum")
}

func TestCompressEmptyBlockCompressesRepeatedByteEvenAtNone(t *testing.T) {
	raw := bytes.Repeat([]byte{0}, 512)
	writer := New(Options{})
	_, compressed, err := writer.PrepareWriteChunk(raw, CompressionNone, true)
	require.NoError(t, err)
	assert.True(t, compressed)
}
