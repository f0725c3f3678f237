package ewf

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"crypto/sha1"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lattice-forensics/goewf/internal/chunkcache"
	"github.com/lattice-forensics/goewf/internal/ewferr"
	"github.com/lattice-forensics/goewf/internal/offsettable"
	"github.com/lattice-forensics/goewf/internal/pipeline"
	"github.com/lattice-forensics/goewf/internal/segment"
	"github.com/lattice-forensics/goewf/internal/wire"
)

// Mode is the lifecycle state of a MediaHandle: created empty,
// transitions to open-read or open-write, and returns to closed on
// release.
type Mode int

const (
	ModeClosed Mode = iota
	ModeRead
	ModeWrite
)

// ChecksumError is one contiguous run of sectors whose chunk failed its
// checksum when read.
type ChecksumError struct {
	StartSector uint64
	SectorCount uint64
}

// MediaHandle is the user-visible block-device abstraction over a set of
// segment files. It exclusively owns the offset table, the segment file
// pool, and the pipeline buffers for the duration it is open.
type MediaHandle struct {
	mu   sync.Mutex
	mode Mode
	cfg  config

	pool         *segment.FilePool
	segmentFiles []string // index i => segment number i+1's filename

	table        *offsettable.Table
	geometry     *wire.Geometry
	headerValues HeaderValues

	// Acquisition hashes, kept separate by the section they came from so
	// GetHashValue/GetNumberOfHashValues can apply real precedence: the
	// newer "digest" section wins over the legacy "hash" section when an
	// image carries both, regardless of which was encountered first while
	// walking the segment set.
	digestMD5  map[string][16]byte
	digestSHA1 map[string][20]byte
	legacyMD5  map[string][16]byte
	legacySHA1 map[string][20]byte

	cache *chunkcache.Cache
	pipe  *pipeline.Pipeline

	position uint64
	aborted  bool

	checksumErrors []ChecksumError
	pendingOpen    bool
	pendingStart   uint64
	pendingCount   uint64

	// write state
	writeBase           string
	writeSegNum         int
	writeFile           *os.File
	writeSeg            *segment.Writer
	writeRolloverAt     uint64
	tableFlushedTo      int    // index of the first table entry not yet written to a table/table2 section
	pendingSectors      []byte // chunk payloads accumulated for the not-yet-written "sectors" section
	pendingSectorsStart int64  // writer position the pending "sectors" section will be written at
	writeMD5            hash.Hash
	writeSHA1           hash.Hash
}

// Open parses an existing segment file set for reading, in segment order
// (filenames[0] must be the first segment). The offset table is built
// immediately by walking every table/table2 section.
func Open(filenames []string, opts ...Option) (*MediaHandle, error) {
	if len(filenames) == 0 {
		return nil, ewferr.New(ewferr.InvalidArgument, "ewf", "Open", "no segment filenames given")
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	h := &MediaHandle{
		mode:         ModeRead,
		cfg:          cfg,
		pool:         segment.NewFilePool(cfg.fileDescriptorCap),
		segmentFiles: append([]string(nil), filenames...),
		table:        offsettable.New(0),
		digestMD5:    make(map[string][16]byte),
		digestSHA1:   make(map[string][20]byte),
		legacyMD5:    make(map[string][16]byte),
		legacySHA1:   make(map[string][20]byte),
		cache:        chunkcache.New(cfg.chunkCacheSize),
		pipe:         pipeline.New(pipeline.Options{WipeChunkOnError: cfg.wipeChunkOnError}),
	}

	var table2 *offsettable.Table
	for segIdx, name := range filenames {
		if err := h.parseSegment(segIdx+1, name, &table2); err != nil {
			h.pool.Close()
			return nil, err
		}
	}

	merged, err := offsettable.Compare(h.table, table2, offsettable.ErrorToleranceCompensate)
	if err != nil {
		h.pool.Close()
		return nil, err
	}
	h.table = merged
	return h, nil
}

type sectionRecord struct {
	hdr        wire.SectionHeader
	bodyOffset int64
	bodySize   int64
	fileStart  int64
}

func (h *MediaHandle) parseSegment(segNum int, name string, table2 **offsettable.Table) error {
	f, err := h.pool.Get(name)
	if err != nil {
		return err
	}
	r, _, err := segment.NewReader(f)
	if err != nil {
		return err
	}

	var records []sectionRecord
	for {
		sec, err := r.Next()
		if sec != nil {
			records = append(records, sectionRecord{
				hdr:        sec.Header,
				bodyOffset: sec.BodyOffset,
				bodySize:   sec.BodySize,
				fileStart:  sec.BodyOffset - wire.SectionHeaderSize,
			})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	for _, rec := range records {
		switch rec.hdr.TypeString() {
		case SectionHeader, SectionHeader2:
			body, err := r.ReadBody(&segment.Section{Header: rec.hdr, BodyOffset: rec.bodyOffset, BodySize: rec.bodySize})
			if err != nil {
				return err
			}
			decompressed, err := zlibDecompress(body)
			if err != nil {
				return err
			}
			values, err := ParseHeaderValues(decompressed)
			if err != nil {
				return err
			}
			if h.headerValues == nil {
				h.headerValues = values
			} else {
				for k, v := range values {
					h.headerValues[k] = v
				}
			}

		case SectionVolume, SectionDisk:
			body, err := r.ReadBody(&segment.Section{Header: rec.hdr, BodyOffset: rec.bodyOffset, BodySize: rec.bodySize})
			if err != nil {
				return err
			}
			g, err := wire.DecodeGeometry(body)
			if err != nil {
				return err
			}
			h.geometry = g

		case SectionTable, SectionTable2:
			body, err := r.ReadBody(&segment.Section{Header: rec.hdr, BodyOffset: rec.bodyOffset, BodySize: rec.bodySize})
			if err != nil {
				return err
			}
			th, err := wire.DecodeTableHeader(body[:wire.TableHeaderSize])
			if err != nil {
				return err
			}
			raw, err := wire.DecodeTableEntries(body[wire.TableHeaderSize:], th.NumberOfEntries)
			if err != nil {
				return err
			}

			target := h.table
			if rec.hdr.TypeString() == SectionTable2 {
				if *table2 == nil {
					*table2 = offsettable.New(0)
				}
				target = *table2
			}
			firstNew := target.Len()
			target.Fill(th.BaseOffset, raw, uint16(segNum))

			var following []offsettable.SectionStart
			for _, other := range records {
				following = append(following, offsettable.SectionStart{Offset: uint64(other.fileStart)})
			}
			target.CalculateLastOffset(firstNew, following)

		case SectionDigest:
			body, err := r.ReadBody(&segment.Section{Header: rec.hdr, BodyOffset: rec.bodyOffset, BodySize: rec.bodySize})
			if err != nil {
				return err
			}
			d, err := wire.DecodeDigestSection(body)
			if err != nil {
				return err
			}
			h.digestMD5["MD5"] = d.MD5
			h.digestSHA1["SHA1"] = d.SHA1

		case SectionHash:
			body, err := r.ReadBody(&segment.Section{Header: rec.hdr, BodyOffset: rec.bodyOffset, BodySize: rec.bodySize})
			if err != nil {
				return err
			}
			d, err := wire.DecodeHashSection(body)
			if err != nil {
				return err
			}
			h.legacyMD5["MD5"] = d.MD5
			h.legacySHA1["SHA1"] = d.SHA1
		}
	}
	return nil
}

func zlibDecompress(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, ewferr.Wrap(err, ewferr.InvalidFormat, "ewf", "zlibDecompress", "opening deflate stream")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, ewferr.Wrap(err, ewferr.InvalidFormat, "ewf", "zlibDecompress", "reading deflate stream")
	}
	return out, nil
}

// Create opens a fresh segment file set for writing at baseName (e.g.
// "/path/to/image"; the first segment becomes "/path/to/image.E01").
func Create(baseName string, geometry wire.Geometry, headerValues HeaderValues, opts ...Option) (*MediaHandle, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	h := &MediaHandle{
		mode:            ModeWrite,
		cfg:             cfg,
		pool:            segment.NewFilePool(cfg.fileDescriptorCap),
		table:           offsettable.New(0),
		headerValues:    headerValues,
		geometry:        &geometry,
		cache:           chunkcache.New(cfg.chunkCacheSize),
		pipe:            pipeline.New(pipeline.Options{WipeChunkOnError: cfg.wipeChunkOnError}),
		writeBase:       baseName,
		writeRolloverAt: cfg.maximumSegmentSize,
		digestMD5:       make(map[string][16]byte),
		digestSHA1:      make(map[string][20]byte),
		legacyMD5:       make(map[string][16]byte),
		legacySHA1:      make(map[string][20]byte),
		writeMD5:        md5.New(),
		writeSHA1:       sha1.New(),
	}
	if err := h.rollSegment(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *MediaHandle) segmentName(segNum int) (string, error) {
	suffix, err := segment.Suffix(segNum)
	if err != nil {
		return "", err
	}
	return h.writeBase + suffix, nil
}

func (h *MediaHandle) rollSegment() error {
	if h.writeFile != nil {
		if err := h.finishCurrentSegment(true); err != nil {
			return err
		}
	}
	h.writeSegNum++
	name, err := h.segmentName(h.writeSegNum)
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return ewferr.Wrap(err, ewferr.Io, "ewf", "rollSegment", "creating segment file")
	}
	w, err := segment.NewWriter(f, uint16(h.writeSegNum))
	if err != nil {
		return err
	}
	h.writeFile = f
	h.writeSeg = w
	h.segmentFiles = append(h.segmentFiles, name)

	headerBody := h.encodeHeaderSection()
	if err := h.writeSeg.WriteSection(SectionHeader, headerBody); err != nil {
		return err
	}
	if err := h.writeSeg.WriteSection(SectionVolume, h.geometry.Encode()); err != nil {
		return err
	}
	return nil
}

func (h *MediaHandle) encodeHeaderSection() []byte {
	order := []string{"a", "c", "n", "e", "t", "av", "ov", "m", "u", "p", "md", "sn", "l", "pid"}
	raw := EncodeHeaderValues(h.headerValues, order)
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()
	return buf.Bytes()
}

func (h *MediaHandle) finishCurrentSegment(chained bool) error {
	if chained {
		if err := h.writeSeg.WriteNext(); err != nil {
			return err
		}
	} else {
		digest := &wire.DigestSection{}
		copy(digest.MD5[:], h.writeMD5.Sum(nil))
		copy(digest.SHA1[:], h.writeSHA1.Sum(nil))
		if err := h.writeSeg.WriteSection(SectionDigest, digest.Encode()); err != nil {
			return err
		}
		if err := h.writeSeg.WriteDone(); err != nil {
			return err
		}
	}
	return h.writeFile.Close()
}

// Close finalizes the current segment (writing digest and done sections
// on write, or releasing pooled descriptors on read) and releases all
// held resources.
func (h *MediaHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode == ModeClosed {
		return nil
	}
	var err error
	if h.mode == ModeWrite && h.writeFile != nil {
		if flushErr := h.flushPending(); flushErr != nil {
			err = flushErr
		} else {
			err = h.finishCurrentSegment(false)
		}
	}
	if poolErr := h.pool.Close(); err == nil {
		err = poolErr
	}
	h.mode = ModeClosed
	return err
}

// SignalAbort sets the handle's abort flag, mirroring libewf's abort flag.
// Verifier.Run checks the flag before each chunk and stops with an Aborted
// error; Read, Write, ReadChunk and WriteChunk do not consult it.
func (h *MediaHandle) SignalAbort() {
	h.mu.Lock()
	h.aborted = true
	h.mu.Unlock()
}

// Aborted reports whether SignalAbort has been called.
func (h *MediaHandle) Aborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// GetMediaSize returns the total logical media size in bytes.
func (h *MediaHandle) GetMediaSize() uint64 {
	if h.geometry == nil {
		return 0
	}
	return h.geometry.MediaSize()
}

// GetBytesPerSector returns the sector size used by this image.
func (h *MediaHandle) GetBytesPerSector() uint32 {
	if h.geometry == nil {
		return BytesPerSector
	}
	return h.geometry.BytesPerSector
}

// GetChunkSize returns the logical (uncompressed) size of one chunk.
func (h *MediaHandle) GetChunkSize() uint32 {
	if h.geometry == nil {
		return h.cfg.sectorsPerChunk * BytesPerSector
	}
	return h.geometry.ChunkSize()
}

// resolvedMD5 returns the stored MD5, preferring the newer "digest"
// section over the legacy "hash" section when an image carries both.
func (h *MediaHandle) resolvedMD5() ([16]byte, bool) {
	if v, ok := h.digestMD5["MD5"]; ok {
		return v, true
	}
	v, ok := h.legacyMD5["MD5"]
	return v, ok
}

// resolvedSHA1 returns the stored SHA-1, preferring the newer "digest"
// section over the legacy "hash" section when an image carries both.
func (h *MediaHandle) resolvedSHA1() ([20]byte, bool) {
	if v, ok := h.digestSHA1["SHA1"]; ok {
		return v, true
	}
	v, ok := h.legacySHA1["SHA1"]
	return v, ok
}

// GetNumberOfHashValues returns how many named acquisition hash values
// are stored, after resolving each algorithm's digest-section/hash-section
// precedence.
func (h *MediaHandle) GetNumberOfHashValues() int {
	n := 0
	if _, ok := h.resolvedMD5(); ok {
		n++
	}
	if _, ok := h.resolvedSHA1(); ok {
		n++
	}
	return n
}

// GetHashValue returns the stored hash for the named algorithm ("MD5" or
// "SHA1") as a lowercase hex string, and whether it was present. When an
// image carries both a "digest" and a legacy "hash" section, the "digest"
// section's value wins.
func (h *MediaHandle) GetHashValue(name string) (string, bool) {
	switch strings.ToUpper(name) {
	case "MD5":
		v, ok := h.resolvedMD5()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%x", v), true
	case "SHA1":
		v, ok := h.resolvedSHA1()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%x", v), true
	default:
		return "", false
	}
}

// GetNumberOfChecksumErrors returns the number of recorded checksum error
// ranges.
func (h *MediaHandle) GetNumberOfChecksumErrors() int {
	h.closePendingChecksumRun()
	return len(h.checksumErrors)
}

// GetChecksumError returns the i'th recorded checksum error range.
func (h *MediaHandle) GetChecksumError(i int) (ChecksumError, bool) {
	h.closePendingChecksumRun()
	if i < 0 || i >= len(h.checksumErrors) {
		return ChecksumError{}, false
	}
	return h.checksumErrors[i], true
}

// AppendChecksumError records that sectorCount sectors starting at
// startSector failed checksum verification, coalescing into the previous
// range when contiguous.
func (h *MediaHandle) AppendChecksumError(startSector, sectorCount uint64) {
	if h.pendingOpen && h.pendingStart+h.pendingCount == startSector {
		h.pendingCount += sectorCount
		return
	}
	h.closePendingChecksumRun()
	h.pendingOpen = true
	h.pendingStart = startSector
	h.pendingCount = sectorCount
}

func (h *MediaHandle) closePendingChecksumRun() {
	if !h.pendingOpen {
		return
	}
	h.checksumErrors = append(h.checksumErrors, ChecksumError{StartSector: h.pendingStart, SectorCount: h.pendingCount})
	h.pendingOpen = false
}

// checksumErrorsSnapshot returns a copy of every recorded checksum error
// range, for use by Verifier's reporting.
func (h *MediaHandle) checksumErrorsSnapshot() []ChecksumError {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closePendingChecksumRun()
	return append([]ChecksumError(nil), h.checksumErrors...)
}

// GetFilename returns the filename of the first (lowest-numbered)
// segment file.
func (h *MediaHandle) GetFilename() string {
	if len(h.segmentFiles) == 0 {
		return ""
	}
	return h.segmentFiles[0]
}

// GetFilenameOfCurrentOffset returns the segment filename containing the
// chunk at the handle's current seek position.
func (h *MediaHandle) GetFilenameOfCurrentOffset() (string, error) {
	chunkSize := uint64(h.GetChunkSize())
	if chunkSize == 0 {
		return "", ewferr.New(ewferr.InvalidArgument, "ewf", "GetFilenameOfCurrentOffset", "chunk size is zero")
	}
	chunkNumber := int(h.position / chunkSize)
	entry, ok := h.table.Get(chunkNumber)
	if !ok {
		return "", ewferr.New(ewferr.NotFound, "ewf", "GetFilenameOfCurrentOffset", "no chunk at current offset")
	}
	idx := int(entry.SegmentID) - 1
	if idx < 0 || idx >= len(h.segmentFiles) {
		return "", ewferr.New(ewferr.NotFound, "ewf", "GetFilenameOfCurrentOffset", "segment id out of range")
	}
	return h.segmentFiles[idx], nil
}

// Seek repositions the handle's current byte offset, following
// io.Seeker's whence convention.
func (h *MediaHandle) Seek(offset int64, whence int) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(h.position) + offset
	case io.SeekEnd:
		newPos = int64(h.GetMediaSize()) + offset
	default:
		return 0, ewferr.New(ewferr.InvalidArgument, "ewf", "Seek", "invalid whence")
	}
	if newPos < 0 {
		return 0, ewferr.New(ewferr.InvalidArgument, "ewf", "Seek", "negative resulting offset")
	}
	h.position = uint64(newPos)
	return h.position, nil
}

// Read fills buf starting at the handle's current position, advancing it
// by the number of bytes returned. It may span multiple chunks.
func (h *MediaHandle) Read(buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeRead {
		return 0, ewferr.New(ewferr.InvalidArgument, "ewf", "Read", "handle not open for reading")
	}
	chunkSize := uint64(h.GetChunkSize())
	mediaSize := h.GetMediaSize()
	if h.position >= mediaSize {
		return 0, io.EOF
	}

	total := 0
	for total < len(buf) && h.position < mediaSize {
		chunkNumber := h.position / chunkSize
		inChunk := h.position % chunkSize
		payload, err := h.readChunkPayloadLocked(int(chunkNumber))
		if err != nil {
			return total, err
		}
		if inChunk >= uint64(len(payload)) {
			break
		}
		n := copy(buf[total:], payload[inChunk:])
		total += n
		h.position += uint64(n)
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

func (h *MediaHandle) readChunkPayloadLocked(chunkNumber int) ([]byte, error) {
	payload, _, err := h.readChunkLocked(chunkNumber)
	return payload, err
}

// readChunkLocked fetches, decodes, and checksum-verifies chunkNumber,
// caching the result and recording any mismatch as a checksum error
// range. The caller must already hold h.mu.
func (h *MediaHandle) readChunkLocked(chunkNumber int) ([]byte, bool, error) {
	if entry, ok := h.cache.Get(uint64(chunkNumber)); ok {
		return entry.Payload, entry.Valid, nil
	}
	tableEntry, ok := h.table.Get(chunkNumber)
	if !ok {
		return nil, false, ewferr.New(ewferr.NotFound, "ewf", "readChunk", "no such chunk")
	}
	idx := int(tableEntry.SegmentID) - 1
	if idx < 0 || idx >= len(h.segmentFiles) {
		return nil, false, ewferr.New(ewferr.NotFound, "ewf", "readChunk", "segment id out of range")
	}
	f, err := h.pool.Get(h.segmentFiles[idx])
	if err != nil {
		return nil, false, err
	}

	nominal := int(h.GetChunkSize())
	storedChecksum, processChecksum, err := h.pipe.ReadChunk(f, int64(tableEntry.FileOffset), int(tableEntry.StoredSize), tableEntry.Compressed)
	if err != nil {
		return nil, false, err
	}
	result, err := h.pipe.PrepareReadChunk(nominal, tableEntry.Compressed, storedChecksum, processChecksum)
	if err != nil {
		return nil, false, err
	}

	if result.Mismatch {
		chunkSize := uint64(h.GetChunkSize())
		sectorsPerChunk := chunkSize / uint64(h.GetBytesPerSector())
		h.AppendChecksumError(uint64(chunkNumber)*sectorsPerChunk, sectorsPerChunk)
	}

	h.cache.Put(uint64(chunkNumber), chunkcache.Entry{Payload: result.Payload, Valid: !result.Mismatch})
	h.pipe.Reset()
	return result.Payload, !result.Mismatch, nil
}

// Write appends buf to the media stream at the handle's current position.
// goewf's write path is append-only: callers must write sequentially from
// the end of what has already been committed.
func (h *MediaHandle) Write(buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeWrite {
		return 0, ewferr.New(ewferr.InvalidArgument, "ewf", "Write", "handle not open for writing")
	}
	chunkSize := uint64(h.GetChunkSize())
	expected := uint64(h.table.Len()) * chunkSize
	if h.position != expected {
		return 0, ewferr.New(ewferr.SequenceViolation, "ewf", "Write", "write path is append-only; seek to the end before writing")
	}

	written := 0
	for written < len(buf) {
		end := written + int(chunkSize)
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[written:end]
		if err := h.writeChunkLocked(chunk); err != nil {
			return written, err
		}
		written += len(chunk)
		h.position += uint64(len(chunk))
	}
	return written, nil
}

// writeChunkLocked prepares one chunk and appends its payload to the
// pending "sectors" buffer, rolling over to a new segment first if the
// buffer has grown enough that flushing it now would exceed the
// configured maximum segment size. Chunks are never given their own
// section: consecutive chunks share one contiguous "sectors" section body
// so the offset table's deltas land exactly on chunk boundaries.
func (h *MediaHandle) writeChunkLocked(raw []byte) error {
	payload, compressed, err := h.pipe.PrepareWriteChunk(raw, h.cfg.compressionLevel, h.cfg.compressEmptyBlock)
	if err != nil {
		return err
	}
	h.writeMD5.Write(raw)
	h.writeSHA1.Write(raw)

	if len(h.pendingSectors) == 0 {
		h.pendingSectorsStart = h.writeSeg.Pos()
	} else if uint64(h.pendingSectorsStart)+wire.SectionHeaderSize+uint64(len(h.pendingSectors))+uint64(len(payload))+wire.SectionHeaderSize*2 > h.writeRolloverAt {
		if err := h.flushPending(); err != nil {
			return err
		}
		if err := h.rollSegment(); err != nil {
			return err
		}
		h.pendingSectorsStart = h.writeSeg.Pos()
	}

	fileOffset := uint64(h.pendingSectorsStart) + wire.SectionHeaderSize + uint64(len(h.pendingSectors))
	h.pendingSectors = append(h.pendingSectors, payload...)
	h.pipe.Reset()

	chunkNumber := h.table.Len()
	entry := offsettable.Entry{
		SegmentID:  uint16(h.writeSegNum),
		FileOffset: fileOffset,
		StoredSize: uint32(len(payload)),
		Compressed: compressed,
	}
	return h.table.Set(chunkNumber, entry)
}

// flushPending writes the buffered chunk payloads as a single contiguous
// "sectors" section, then writes a table/table2 section pair covering
// every chunk appended to the current segment since the last flush,
// advancing tableFlushedTo so a later flush doesn't re-emit already-
// written entries.
func (h *MediaHandle) flushPending() error {
	if len(h.pendingSectors) > 0 {
		if err := h.writeSeg.WriteSection(SectionSectors, h.pendingSectors); err != nil {
			return err
		}
		h.pendingSectors = nil
	}

	all := h.table.All()
	entries := all[h.tableFlushedTo:]
	if len(entries) == 0 {
		return nil
	}
	raw := make([]uint32, len(entries))
	baseOffset := entries[0].FileOffset
	for i, e := range entries {
		delta := uint32(e.FileOffset - baseOffset)
		if e.Compressed {
			delta |= wire.TableEntryCompressedFlag
		}
		raw[i] = delta
	}
	th := &wire.TableHeader{NumberOfEntries: uint32(len(raw)), BaseOffset: baseOffset}
	body := append(th.Encode(), wire.EncodeTableEntries(raw)...)
	if err := h.writeSeg.WriteSection(SectionTable, body); err != nil {
		return err
	}
	if err := h.writeSeg.WriteSection(SectionTable2, body); err != nil {
		return err
	}
	h.tableFlushedTo = len(all)
	return nil
}

// ReadChunk fetches and decodes chunkNumber, returning its payload and
// whether its checksum matched.
func (h *MediaHandle) ReadChunk(chunkNumber int) ([]byte, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readChunkLocked(chunkNumber)
}

// WriteChunk appends one chunk's raw bytes to the media stream,
// equivalent to Write with exactly GetChunkSize() bytes (or fewer, for
// the final chunk).
func (h *MediaHandle) WriteChunk(raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeWrite {
		return ewferr.New(ewferr.InvalidArgument, "ewf", "WriteChunk", "handle not open for writing")
	}
	if err := h.writeChunkLocked(raw); err != nil {
		return err
	}
	h.position += uint64(len(raw))
	return nil
}

// NumberOfChunks returns how many chunks the offset table currently
// defines.
func (h *MediaHandle) NumberOfChunks() int {
	return h.table.Len()
}

// Filenames returns the ordered list of this handle's segment filenames.
func (h *MediaHandle) Filenames() []string {
	return append([]string(nil), h.segmentFiles...)
}

// HeaderValues returns the parsed acquisition header key/value table.
func (h *MediaHandle) HeaderValues() HeaderValues {
	return h.headerValues
}

// sortedSegmentGlob is a convenience for driver code assembling a
// filename list from a directory listing; actual glob matching and
// multi-segment discovery policy are left to the caller.
func sortedSegmentGlob(dir, base string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "ewf", "sortedSegmentGlob", "listing directory")
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), base+".") {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}
