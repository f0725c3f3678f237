package segment

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFile is a minimal in-memory io.ReadWriteSeeker for exercising Writer
// and Reader without touching the filesystem.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func TestWriterReaderRoundTrip(t *testing.T) {
	f := &memFile{}
	w, err := NewWriter(f, 1)
	require.NoError(t, err)

	require.NoError(t, w.WriteSection("header", []byte("hdrbody")))
	require.NoError(t, w.WriteSection("sectors", bytes.Repeat([]byte{'A'}, 64)))
	require.NoError(t, w.WriteDone())

	r, fh, err := NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), fh.SegmentNumber)

	sec1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "header", sec1.Header.TypeString())
	body1, err := r.ReadBody(sec1)
	require.NoError(t, err)
	assert.Equal(t, "hdrbody", string(body1))

	sec2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "sectors", sec2.Header.TypeString())

	sec3, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "done", sec3.Header.TypeString())
}

func TestSuffixSequence(t *testing.T) {
	s1, err := Suffix(1)
	require.NoError(t, err)
	assert.Equal(t, ".E01", s1)

	s99, err := Suffix(99)
	require.NoError(t, err)
	assert.Equal(t, ".E99", s99)

	s100, err := Suffix(100)
	require.NoError(t, err)
	assert.Equal(t, ".EAA", s100)
}

func TestSuffixRejectsOutOfRange(t *testing.T) {
	_, err := Suffix(0)
	assert.Error(t, err)
}
