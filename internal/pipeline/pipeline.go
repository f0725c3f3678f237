// Package pipeline implements the per-chunk read/write state machine: a
// prepare/commit split that lets compression and checksum work (CPU-bound)
// run independently of the surrounding I/O (disk-bound).
package pipeline

import (
	"bytes"
	"hash/adler32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/lattice-forensics/goewf/internal/ewferr"
)

// BufferState names where a chunk's payload currently lives in the
// Empty -> Raw -> Prepared -> Committed state machine.
type BufferState int

const (
	Empty BufferState = iota
	Raw
	Prepared
	Committed
)

// CompressionLevel selects the DEFLATE effort used on the write path.
type CompressionLevel int

const (
	CompressionNone CompressionLevel = iota
	CompressionFast
	CompressionBest
)

// Result is what a read-side prepare step produces: the chunk payload
// (possibly nominal-sized and zero-filled if wiped) and whether a checksum
// mismatch was found. The caller is responsible for turning Mismatch into
// a recorded checksum error range — PrepareReadChunk never returns an
// error for a mismatch; checksum failures are recovered locally.
type Result struct {
	Payload  []byte
	Mismatch bool
}

// Options configures one Pipeline instance. All fields are handle-scoped
// rather than process-global.
type Options struct {
	// WipeChunkOnError makes PrepareReadChunk return a zero-filled buffer
	// of the nominal size for a chunk whose checksum does not verify.
	WipeChunkOnError bool
}

// Pipeline owns the raw/compression buffer pair for one in-flight chunk
// operation, plus the handle-scoped options controlling its behavior.
type Pipeline struct {
	opts Options

	raw          []byte
	compression  []byte
	state        BufferState
	inCompressed bool // data_in_compression_buffer
}

// New returns a Pipeline with the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts, state: Empty}
}

// State returns the current buffer state, useful for tests asserting the
// state machine's transitions.
func (p *Pipeline) State() BufferState {
	return p.state
}

// ReadChunk reads storedSize bytes at fileOffset from r into the
// compression buffer — step 1 of the read path. For a raw chunk
// (compressed=false) it returns the checksum trailing the payload along
// with processChecksum=true (the checksum must still be verified explicitly);
// for a compressed chunk processChecksum is false, since the checksum is
// carried inside the decompressed stream's own trailer.
func (p *Pipeline) ReadChunk(r io.ReaderAt, fileOffset int64, storedSize int, compressed bool) (checksum uint32, processChecksum bool, err error) {
	buf := make([]byte, storedSize)
	if _, err := r.ReadAt(buf, fileOffset); err != nil {
		return 0, false, ewferr.Wrap(err, ewferr.Io, "pipeline", "ReadChunk", "reading stored chunk bytes")
	}
	p.compression = buf
	p.inCompressed = true
	p.state = Prepared
	if compressed {
		return 0, false, nil
	}
	if storedSize < 4 {
		return 0, true, ewferr.New(ewferr.InvalidFormat, "pipeline", "ReadChunk", "raw chunk shorter than its checksum trailer")
	}
	checksum = bufChecksum(buf[len(buf)-4:])
	return checksum, true, nil
}

func bufChecksum(trailer []byte) uint32 {
	return uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
}

// PrepareReadChunk completes the read path (step 2): it copies or
// decompresses the compression buffer into the raw buffer, verifies the
// checksum, and on mismatch either wipes the chunk (if WipeChunkOnError)
// or leaves the corrupt bytes in place — either way the call succeeds and
// signals the mismatch via Result.Mismatch, since a checksum failure is
// recovered locally, not propagated.
func (p *Pipeline) PrepareReadChunk(nominalSize int, compressed bool, storedChecksum uint32, processChecksum bool) (Result, error) {
	if p.state != Prepared || !p.inCompressed {
		return Result{}, ewferr.New(ewferr.InvalidArgument, "pipeline", "PrepareReadChunk", "no chunk bytes staged by ReadChunk")
	}

	var payload []byte
	mismatch := false

	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(p.compression))
		if err != nil {
			mismatch = true
		} else {
			defer zr.Close()
			decoded, err := io.ReadAll(zr)
			if err != nil {
				// zlib validates its own trailing Adler-32 on EOF; any
				// failure here is exactly a checksum mismatch.
				mismatch = true
			}
			payload = decoded
		}
	} else {
		if len(p.compression) < 4 {
			mismatch = true
		} else {
			payload = append([]byte(nil), p.compression[:len(p.compression)-4]...)
			if processChecksum {
				computed := adler32.Checksum(payload)
				if computed != storedChecksum {
					mismatch = true
				}
			}
		}
	}

	if mismatch {
		if p.opts.WipeChunkOnError {
			payload = make([]byte, nominalSize)
		} else if payload == nil {
			payload = make([]byte, nominalSize)
		}
	}
	if len(payload) < nominalSize && !mismatch {
		// Final chunk of the media: short reads are expected and are not
		// a mismatch.
	}

	p.raw = payload
	p.inCompressed = false
	p.state = Raw
	return Result{Payload: payload, Mismatch: mismatch}, nil
}

// PrepareWriteChunk completes the write-path compression decision: it
// compresses raw into the compression buffer when the caller requested
// compression, or when compressEmptyBlock is set and
// raw is a single repeated byte; on an equal compressed/raw size, raw
// wins. It returns the bytes to hand to WriteChunk and whether they are
// compressed.
func (p *Pipeline) PrepareWriteChunk(raw []byte, level CompressionLevel, compressEmptyBlock bool) (payload []byte, compressed bool, err error) {
	if p.state != Empty && p.state != Committed {
		return nil, false, ewferr.New(ewferr.InvalidArgument, "pipeline", "PrepareWriteChunk", "previous chunk not yet committed")
	}
	p.raw = raw
	p.state = Raw

	wantCompress := level != CompressionNone || (compressEmptyBlock && isRepeatedByte(raw))
	if !wantCompress {
		payload = appendChecksum(raw)
		p.state = Prepared
		p.inCompressed = false
		return payload, false, nil
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlibLevel(level))
	if err != nil {
		return nil, false, ewferr.Wrap(err, ewferr.Io, "pipeline", "PrepareWriteChunk", "creating deflate writer")
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, false, ewferr.Wrap(err, ewferr.Io, "pipeline", "PrepareWriteChunk", "compressing chunk")
	}
	if err := zw.Close(); err != nil {
		return nil, false, ewferr.Wrap(err, ewferr.Io, "pipeline", "PrepareWriteChunk", "closing deflate writer")
	}

	compressedBytes := buf.Bytes()
	if len(compressedBytes) >= len(raw)+4 {
		// Raw wins on a tie or when compression didn't help.
		payload = appendChecksum(raw)
		p.state = Prepared
		p.inCompressed = false
		return payload, false, nil
	}

	p.compression = compressedBytes
	p.state = Prepared
	p.inCompressed = true
	return compressedBytes, true, nil
}

func appendChecksum(raw []byte) []byte {
	checksum := adler32.Checksum(raw)
	out := make([]byte, len(raw)+4)
	copy(out, raw)
	out[len(raw)] = byte(checksum)
	out[len(raw)+1] = byte(checksum >> 8)
	out[len(raw)+2] = byte(checksum >> 16)
	out[len(raw)+3] = byte(checksum >> 24)
	return out
}

func isRepeatedByte(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	first := b[0]
	for _, c := range b[1:] {
		if c != first {
			return false
		}
	}
	return true
}

func zlibLevel(level CompressionLevel) int {
	switch level {
	case CompressionBest:
		return zlib.BestCompression
	case CompressionFast:
		return zlib.BestSpeed
	default:
		// CompressionNone only reaches here for an empty block
		// (compressEmptyBlock), which is still compressed.
		return zlib.DefaultCompression
	}
}

// WriteChunk writes the prepared payload at the writer's current position
// and transitions the buffer state to Committed (write step 2).
// Registration of the chunk in the offset table is the
// caller's responsibility (internal/segment / the media handle), since
// that also needs the resulting file offset.
func (p *Pipeline) WriteChunk(w io.Writer, payload []byte) (int, error) {
	if p.state != Prepared {
		return 0, ewferr.New(ewferr.InvalidArgument, "pipeline", "WriteChunk", "chunk not prepared")
	}
	n, err := w.Write(payload)
	if err != nil {
		return n, ewferr.Wrap(err, ewferr.Io, "pipeline", "WriteChunk", "writing chunk bytes")
	}
	p.state = Committed
	return n, nil
}

// Reset returns the pipeline to Empty, dropping any staged buffers.
func (p *Pipeline) Reset() {
	p.raw = nil
	p.compression = nil
	p.inCompressed = false
	p.state = Empty
}
