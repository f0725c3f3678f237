// Package wire holds the fixed, bit-exact on-disk layouts of an EWF segment
// file: the file header, the generic section header, and the typed section
// bodies the rest of the engine cares about (table/table2, digest/hash,
// volume/disk geometry). It performs no I/O beyond encoding to and decoding
// from byte slices and io.Reader/io.Writer — the section walk itself lives
// in internal/segment.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

// Magic is the 8-byte EWF segment file signature.
var Magic = [8]byte{'E', 'V', 'F', 0x09, 0x0d, 0x0a, 0xff, 0x00}

// FileHeaderSize is the size in bytes of the fixed segment file header.
const FileHeaderSize = 13

// FileHeader is the first 13 bytes of every segment file.
type FileHeader struct {
	Signature     [8]byte
	FieldsStart   uint8
	SegmentNumber uint16
	FieldsEnd     uint16
}

// Encode writes the header in its on-disk byte order.
func (h *FileHeader) Encode() []byte {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:8], h.Signature[:])
	buf[8] = h.FieldsStart
	binary.LittleEndian.PutUint16(buf[9:11], h.SegmentNumber)
	binary.LittleEndian.PutUint16(buf[11:13], h.FieldsEnd)
	return buf
}

// DecodeFileHeader parses the fixed 13-byte segment file header and
// validates the magic signature.
func DecodeFileHeader(buf []byte) (*FileHeader, error) {
	if len(buf) < FileHeaderSize {
		return nil, fmt.Errorf("short file header: %d bytes", len(buf))
	}
	h := &FileHeader{
		FieldsStart:   buf[8],
		SegmentNumber: binary.LittleEndian.Uint16(buf[9:11]),
		FieldsEnd:     binary.LittleEndian.Uint16(buf[11:13]),
	}
	copy(h.Signature[:], buf[0:8])
	if h.Signature != Magic {
		return nil, fmt.Errorf("bad segment file signature: % x", h.Signature)
	}
	return h, nil
}

// SectionHeaderSize is the size in bytes of the generic section header.
const SectionHeaderSize = 76

// SectionHeader precedes every section body. The checksum covers the
// header's first 72 bytes (everything but the checksum field itself).
type SectionHeader struct {
	TypeTag    [16]byte
	NextOffset uint64
	Size       uint64
	Padding    [40]byte
	Checksum   uint32
}

// TypeString returns the NUL-trimmed ASCII section type, e.g. "header",
// "table", "next", "done".
func (s *SectionHeader) TypeString() string {
	return string(bytes.TrimRight(s.TypeTag[:], "\x00"))
}

// Encode serializes the header and (re)computes its checksum.
func (s *SectionHeader) Encode() []byte {
	buf := make([]byte, SectionHeaderSize)
	copy(buf[0:16], s.TypeTag[:])
	binary.LittleEndian.PutUint64(buf[16:24], s.NextOffset)
	binary.LittleEndian.PutUint64(buf[24:32], s.Size)
	copy(buf[32:72], s.Padding[:])
	checksum := adler32.Checksum(buf[:72])
	binary.LittleEndian.PutUint32(buf[72:76], checksum)
	s.Checksum = checksum
	return buf
}

// DecodeSectionHeader parses a 76-byte section header and verifies its
// checksum covers the preceding 72 bytes.
func DecodeSectionHeader(buf []byte) (*SectionHeader, error) {
	if len(buf) < SectionHeaderSize {
		return nil, fmt.Errorf("short section header: %d bytes", len(buf))
	}
	s := &SectionHeader{
		NextOffset: binary.LittleEndian.Uint64(buf[16:24]),
		Size:       binary.LittleEndian.Uint64(buf[24:32]),
		Checksum:   binary.LittleEndian.Uint32(buf[72:76]),
	}
	copy(s.TypeTag[:], buf[0:16])
	copy(s.Padding[:], buf[32:72])
	want := adler32.Checksum(buf[:72])
	if s.Checksum != want {
		return nil, fmt.Errorf("section header checksum mismatch: stored %08x computed %08x", s.Checksum, want)
	}
	return s, nil
}

// NewSectionType builds a TypeTag from a short ASCII name, NUL-padded.
func NewSectionType(name string) [16]byte {
	var tag [16]byte
	copy(tag[:], name)
	return tag
}

// TableHeaderSize is the size in bytes of a table/table2 section's fixed
// header, preceding the entry array.
const TableHeaderSize = 24

// TableHeader is the fixed portion of a "table" or "table2" section.
type TableHeader struct {
	NumberOfEntries uint32
	Padding1        uint32
	BaseOffset      uint64
	Padding2        uint32
	Checksum        uint32
}

// Encode serializes the table header and computes its checksum over the
// preceding 20 bytes.
func (t *TableHeader) Encode() []byte {
	buf := make([]byte, TableHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], t.NumberOfEntries)
	binary.LittleEndian.PutUint32(buf[4:8], t.Padding1)
	binary.LittleEndian.PutUint64(buf[8:16], t.BaseOffset)
	binary.LittleEndian.PutUint32(buf[16:20], t.Padding2)
	checksum := adler32.Checksum(buf[:20])
	binary.LittleEndian.PutUint32(buf[20:24], checksum)
	t.Checksum = checksum
	return buf
}

// DecodeTableHeader parses a table header and verifies its checksum.
func DecodeTableHeader(buf []byte) (*TableHeader, error) {
	if len(buf) < TableHeaderSize {
		return nil, fmt.Errorf("short table header: %d bytes", len(buf))
	}
	t := &TableHeader{
		NumberOfEntries: binary.LittleEndian.Uint32(buf[0:4]),
		Padding1:        binary.LittleEndian.Uint32(buf[4:8]),
		BaseOffset:      binary.LittleEndian.Uint64(buf[8:16]),
		Padding2:        binary.LittleEndian.Uint32(buf[16:20]),
		Checksum:        binary.LittleEndian.Uint32(buf[20:24]),
	}
	want := adler32.Checksum(buf[:20])
	if t.Checksum != want {
		return nil, fmt.Errorf("table header checksum mismatch: stored %08x computed %08x", t.Checksum, want)
	}
	return t, nil
}

// TableEntryCompressedFlag is the high bit of each 32-bit table entry.
const TableEntryCompressedFlag = uint32(1) << 31

// EncodeTableEntries packs offsets (delta from BaseOffset, high bit set
// when the chunk is compressed) followed by the trailing checksum over the
// entry bytes.
func EncodeTableEntries(entries []uint32) []byte {
	buf := make([]byte, len(entries)*4+4)
	offset := 0
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[offset:offset+4], e)
		offset += 4
	}
	checksum := adler32.Checksum(buf[:offset])
	binary.LittleEndian.PutUint32(buf[offset:offset+4], checksum)
	return buf
}

// DecodeTableEntries parses n raw table entries and verifies the trailing
// checksum over their packed bytes.
func DecodeTableEntries(buf []byte, n uint32) ([]uint32, error) {
	need := int(n)*4 + 4
	if len(buf) < need {
		return nil, fmt.Errorf("short table entry array: need %d have %d", need, len(buf))
	}
	entries := make([]uint32, n)
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	dataLen := int(n) * 4
	stored := binary.LittleEndian.Uint32(buf[dataLen : dataLen+4])
	want := adler32.Checksum(buf[:dataLen])
	if stored != want {
		return nil, fmt.Errorf("table entry checksum mismatch: stored %08x computed %08x", stored, want)
	}
	return entries, nil
}

// DigestSectionSize is the size of the "digest" section body.
const DigestSectionSize = 80

// DigestSection carries the acquisition-computed MD5/SHA-1 of the whole
// media stream.
type DigestSection struct {
	MD5      [16]byte
	SHA1     [20]byte
	Padding  [40]byte
	Checksum uint32
}

// Encode serializes the digest section and computes its checksum.
func (d *DigestSection) Encode() []byte {
	buf := make([]byte, DigestSectionSize)
	copy(buf[0:16], d.MD5[:])
	copy(buf[16:36], d.SHA1[:])
	copy(buf[36:76], d.Padding[:])
	checksum := adler32.Checksum(buf[:76])
	binary.LittleEndian.PutUint32(buf[76:80], checksum)
	d.Checksum = checksum
	return buf
}

// DecodeDigestSection parses a digest section body.
func DecodeDigestSection(buf []byte) (*DigestSection, error) {
	if len(buf) < DigestSectionSize {
		return nil, fmt.Errorf("short digest section: %d bytes", len(buf))
	}
	d := &DigestSection{
		Checksum: binary.LittleEndian.Uint32(buf[76:80]),
	}
	copy(d.MD5[:], buf[0:16])
	copy(d.SHA1[:], buf[16:36])
	copy(d.Padding[:], buf[36:76])
	return d, nil
}

// HashSectionSize is the size of the legacy "hash" section body, laid out
// identically to DigestSection.
const HashSectionSize = DigestSectionSize

// HashSection is the older, EnCase-era equivalent of DigestSection.
type HashSection = DigestSection

// DecodeHashSection parses a "hash" section body.
func DecodeHashSection(buf []byte) (*HashSection, error) {
	return DecodeDigestSection(buf)
}
