// Package segment implements the section-walker and section-emitter over
// one open segment file, plus the file-descriptor pool that bounds how
// many segment files stay open at once. It drives section layout from
// internal/wire rather than parsing bytes directly.
package segment

import (
	"io"

	"github.com/lattice-forensics/goewf/internal/ewferr"
	"github.com/lattice-forensics/goewf/internal/wire"
)

// Section is one parsed section: its header plus the byte range of its
// body within the segment file (callers seek and read the body lazily,
// since bodies can be large — "sectors" sections span the bulk of a
// segment).
type Section struct {
	Header     wire.SectionHeader
	BodyOffset int64
	BodySize   int64
}

// Reader walks the section list of one open segment file, following
// next_offset until a "done" (or "next", for segments that chain into
// the following file) section ends the walk.
type Reader struct {
	r   io.ReadSeeker
	pos int64
}

// NewReader returns a Reader positioned to parse starting at the fixed
// file header.
func NewReader(r io.ReadSeeker) (*Reader, *wire.FileHeader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, ewferr.Wrap(err, ewferr.Io, "segment", "NewReader", "seeking to file header")
	}
	buf := make([]byte, wire.FileHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, nil, ewferr.Wrap(err, ewferr.Io, "segment", "NewReader", "reading file header")
	}
	fh, err := wire.DecodeFileHeader(buf)
	if err != nil {
		return nil, nil, ewferr.Wrap(err, ewferr.InvalidFormat, "segment", "NewReader", "decoding file header")
	}
	return &Reader{r: r, pos: wire.FileHeaderSize}, fh, nil
}

// Next parses the section header at the reader's current position and
// advances to the next section's header via NextOffset. It returns
// io.EOF once a "done" or "next" section has been consumed.
func (s *Reader) Next() (*Section, error) {
	if _, err := s.r.Seek(s.pos, io.SeekStart); err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "Next", "seeking to section header")
	}
	buf := make([]byte, wire.SectionHeaderSize)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "Next", "reading section header")
	}
	hdr, err := wire.DecodeSectionHeader(buf)
	if err != nil {
		return nil, ewferr.Wrap(err, ewferr.InvalidFormat, "segment", "Next", "decoding section header")
	}

	bodyOffset := s.pos + wire.SectionHeaderSize
	bodySize := int64(hdr.Size) - wire.SectionHeaderSize
	if bodySize < 0 {
		return nil, ewferr.New(ewferr.InvalidFormat, "segment", "Next", "section size smaller than its own header")
	}

	sec := &Section{Header: *hdr, BodyOffset: bodyOffset, BodySize: bodySize}

	switch hdr.TypeString() {
	case "done", "next":
		s.pos = int64(hdr.NextOffset)
		return sec, io.EOF
	default:
		if hdr.NextOffset == uint64(s.pos) {
			return nil, ewferr.New(ewferr.SequenceViolation, "segment", "Next", "section does not advance next_offset")
		}
		s.pos = int64(hdr.NextOffset)
		return sec, nil
	}
}

// ReadBody reads a section's full body given its Section descriptor.
func (s *Reader) ReadBody(sec *Section) ([]byte, error) {
	if _, err := s.r.Seek(sec.BodyOffset, io.SeekStart); err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "ReadBody", "seeking to section body")
	}
	buf := make([]byte, sec.BodySize)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "ReadBody", "reading section body")
	}
	return buf, nil
}

// Writer emits sections sequentially to an open segment file, tracking
// the running offset so each section's next_offset can be filled in
// before the header is flushed.
type Writer struct {
	w   io.WriteSeeker
	pos int64
}

// NewWriter writes the fixed file header and returns a Writer positioned
// to emit the first section.
func NewWriter(w io.WriteSeeker, segmentNumber uint16) (*Writer, error) {
	fh := &wire.FileHeader{Signature: wire.Magic, SegmentNumber: segmentNumber}
	if _, err := w.Write(fh.Encode()); err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "NewWriter", "writing file header")
	}
	return &Writer{w: w, pos: wire.FileHeaderSize}, nil
}

// WriteSection emits a section with the given type tag and body,
// computing next_offset as the position immediately following this
// section.
func (s *Writer) WriteSection(typeName string, body []byte) error {
	size := uint64(wire.SectionHeaderSize + len(body))
	hdr := &wire.SectionHeader{
		TypeTag:    wire.NewSectionType(typeName),
		NextOffset: uint64(s.pos) + size,
		Size:       size,
	}
	if _, err := s.w.Write(hdr.Encode()); err != nil {
		return ewferr.Wrap(err, ewferr.Io, "segment", "WriteSection", "writing section header")
	}
	if len(body) > 0 {
		if _, err := s.w.Write(body); err != nil {
			return ewferr.Wrap(err, ewferr.Io, "segment", "WriteSection", "writing section body")
		}
	}
	s.pos += int64(size)
	return nil
}

// Pos returns the writer's current file offset, the position the next
// section header will be written at.
func (s *Writer) Pos() int64 {
	return s.pos
}

// WriteDone emits the terminating "done" section, whose next_offset
// conventionally points back to itself.
func (s *Writer) WriteDone() error {
	hdr := &wire.SectionHeader{
		TypeTag:    wire.NewSectionType("done"),
		NextOffset: uint64(s.pos),
		Size:       wire.SectionHeaderSize,
	}
	if _, err := s.w.Write(hdr.Encode()); err != nil {
		return ewferr.Wrap(err, ewferr.Io, "segment", "WriteDone", "writing done section")
	}
	s.pos += wire.SectionHeaderSize
	return nil
}

// WriteNext emits a "next" section chaining to the following segment
// file, whose first byte starts at the writer's current position (the
// convention libewf uses for a stub next_offset resolved by the caller
// once the next file is known).
func (s *Writer) WriteNext() error {
	hdr := &wire.SectionHeader{
		TypeTag:    wire.NewSectionType("next"),
		NextOffset: uint64(s.pos),
		Size:       wire.SectionHeaderSize,
	}
	if _, err := s.w.Write(hdr.Encode()); err != nil {
		return ewferr.Wrap(err, ewferr.Io, "segment", "WriteNext", "writing next section")
	}
	s.pos += wire.SectionHeaderSize
	return nil
}
