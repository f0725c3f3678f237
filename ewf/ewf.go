// Package ewf implements a reader/writer engine for the Expert Witness
// Compression Format: a segmented, chunked, checksummed container used in
// digital forensics to preserve bit-exact copies of storage media
// alongside acquisition metadata and integrity hashes. It exposes a
// block-device abstraction over a set of segment files — callers read or
// write at byte or chunk granularity and the engine transparently handles
// segmentation, per-chunk optional compression, per-chunk checksums,
// acquisition-time integrity hashing (MD5, SHA-1), and a verification
// workflow that re-reads the image and compares computed hashes against
// stored ones.
package ewf

import "github.com/lattice-forensics/goewf/internal/wire"

// Known section type tags.
const (
	SectionHeader  = "header"
	SectionHeader2 = "header2"
	SectionVolume  = "volume"
	SectionDisk    = "disk"
	SectionSectors = "sectors"
	SectionTable   = "table"
	SectionTable2  = "table2"
	SectionNext    = "next"
	SectionDone    = "done"
	SectionHash    = "hash"
	SectionError2  = "error2"
	SectionLtree   = "ltree"
	SectionSession = "session"
	SectionDigest  = "digest"
)

// BytesPerSector is the sector size a handle reports when it has no
// geometry to read the image's own value from.
const BytesPerSector = 512

// MediaType re-exports the geometry media-type codes under the package's
// own name, so callers never need to import internal/wire directly.
type MediaType = uint8

const (
	MediaTypeRemovable MediaType = wire.MediaTypeRemovable
	MediaTypeFixed      MediaType = wire.MediaTypeFixed
	MediaTypeOptical    MediaType = wire.MediaTypeOptical
	MediaTypeLogical    MediaType = wire.MediaTypeLogical
	MediaTypeRAM        MediaType = wire.MediaTypeRAM
)
