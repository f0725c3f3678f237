package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := &FileHeader{Signature: Magic, SegmentNumber: 3}
	decoded, err := DecodeFileHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, h.SegmentNumber, decoded.SegmentNumber)
	assert.Equal(t, Magic, decoded.Signature)
}

func TestFileHeaderRejectsBadSignature(t *testing.T) {
	buf := (&FileHeader{Signature: Magic}).Encode()
	buf[0] = 'X'
	_, err := DecodeFileHeader(buf)
	assert.Error(t, err)
}

func TestSectionHeaderRoundTrip(t *testing.T) {
	h := &SectionHeader{
		TypeTag:    NewSectionType("table"),
		NextOffset: 4096,
		Size:       512,
	}
	decoded, err := DecodeSectionHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, "table", decoded.TypeString())
	assert.Equal(t, h.NextOffset, decoded.NextOffset)
	assert.Equal(t, h.Size, decoded.Size)
}

func TestSectionHeaderDetectsChecksumCorruption(t *testing.T) {
	h := &SectionHeader{TypeTag: NewSectionType("next"), NextOffset: 13, Size: 76}
	buf := h.Encode()
	buf[40] ^= 0xff // corrupt a padding byte covered by the checksum
	_, err := DecodeSectionHeader(buf)
	assert.Error(t, err)
}

func TestTableHeaderRoundTrip(t *testing.T) {
	th := &TableHeader{NumberOfEntries: 5, BaseOffset: 1024}
	decoded, err := DecodeTableHeader(th.Encode())
	require.NoError(t, err)
	assert.Equal(t, th.NumberOfEntries, decoded.NumberOfEntries)
	assert.Equal(t, th.BaseOffset, decoded.BaseOffset)
}

func TestTableEntriesRoundTrip(t *testing.T) {
	entries := []uint32{0, 100, 200 | TableEntryCompressedFlag, 300}
	buf := EncodeTableEntries(entries)
	decoded, err := DecodeTableEntries(buf, uint32(len(entries)))
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestTableEntriesDetectsChecksumCorruption(t *testing.T) {
	buf := EncodeTableEntries([]uint32{1, 2, 3})
	buf[0] ^= 0xff
	_, err := DecodeTableEntries(buf, 3)
	assert.Error(t, err)
}

func TestDigestSectionRoundTrip(t *testing.T) {
	d := &DigestSection{}
	copy(d.MD5[:], []byte("0123456789abcdef"))
	copy(d.SHA1[:], []byte("0123456789abcdefghij"))
	decoded, err := DecodeDigestSection(d.Encode())
	require.NoError(t, err)
	assert.Equal(t, d.MD5, decoded.MD5)
	assert.Equal(t, d.SHA1, decoded.SHA1)
}

func TestGeometryRoundTrip(t *testing.T) {
	g := &Geometry{
		MediaType:       MediaTypeFixed,
		SectorsPerChunk: 64,
		BytesPerSector:  512,
		SectorCount:     2048,
		CompressionLevel: CompressionGood,
	}
	decoded, err := DecodeGeometry(g.Encode())
	require.NoError(t, err)
	assert.Equal(t, g.SectorsPerChunk, decoded.SectorsPerChunk)
	assert.Equal(t, g.BytesPerSector, decoded.BytesPerSector)
	assert.Equal(t, g.SectorCount, decoded.SectorCount)
	assert.Equal(t, uint64(2048*512), decoded.MediaSize())
	assert.Equal(t, uint32(64*512), decoded.ChunkSize())
}
