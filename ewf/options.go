package ewf

import "github.com/lattice-forensics/goewf/internal/pipeline"

// config holds everything a per-handle setter style API would expose as
// global setter functions (header codepage, maximum segment size,
// compression values, sectors per chunk, read-wipe-on-error) as one
// handle-scoped struct built through functional options instead.
type config struct {
	maximumSegmentSize uint64
	compressionLevel   pipeline.CompressionLevel
	compressEmptyBlock bool
	headerCodepage     string
	sectorsPerChunk    uint32
	wipeChunkOnError   bool
	fileDescriptorCap  int
	chunkCacheSize     int
}

// defaultConfig mirrors libewf's documented defaults: 64 sectors/chunk,
// 1.4GiB segments (the FAT-safe default), no compression.
func defaultConfig() config {
	return config{
		maximumSegmentSize: 1500 * 1024 * 1024,
		compressionLevel:   pipeline.CompressionNone,
		headerCodepage:     "ascii",
		sectorsPerChunk:    64,
		fileDescriptorCap:  0, // 0 => internal/segment.DefaultCapacity()
		chunkCacheSize:      0, // 0 => internal/chunkcache.DefaultSize
	}
}

// Option configures a MediaHandle at Open/Create time.
type Option func(*config)

// WithMaximumSegmentSize sets the size threshold (in bytes) at which the
// write path rolls over to a new segment file.
func WithMaximumSegmentSize(bytes uint64) Option {
	return func(c *config) { c.maximumSegmentSize = bytes }
}

// WithCompression sets the DEFLATE effort applied to written chunks, and
// whether an all-identical-byte chunk is compressed even at
// CompressionNone (the COMPRESS_EMPTY_BLOCK behavior).
func WithCompression(level pipeline.CompressionLevel, compressEmptyBlock bool) Option {
	return func(c *config) {
		c.compressionLevel = level
		c.compressEmptyBlock = compressEmptyBlock
	}
}

// WithHeaderCodepage stores a codepage name in the handle's configuration.
// Header sections written by Create are UTF-8 text whatever codepage is
// set, and decoding always follows the section's own BOM/UTF-16 marker.
func WithHeaderCodepage(codepage string) Option {
	return func(c *config) { c.headerCodepage = codepage }
}

// WithSectorsPerChunk sets the number of 512-byte sectors per chunk that
// GetChunkSize reports when the handle has no geometry. Create takes the
// caller's geometry and Open reads the image's own, so neither is changed
// by this option.
func WithSectorsPerChunk(n uint32) Option {
	return func(c *config) { c.sectorsPerChunk = n }
}

// WithWipeChunkOnError controls whether a chunk that fails checksum
// verification on read is replaced with a zero-filled buffer of the
// expected length (true) or returned with its corrupt bytes intact
// (false).
func WithWipeChunkOnError(wipe bool) Option {
	return func(c *config) { c.wipeChunkOnError = wipe }
}

// WithFileDescriptorLimit caps the number of segment files kept open
// simultaneously. 0 derives the cap from RLIMIT_NOFILE.
func WithFileDescriptorLimit(n int) Option {
	return func(c *config) { c.fileDescriptorCap = n }
}

// WithChunkCacheSize sets the number of decoded chunks cached in memory.
// 0 uses internal/chunkcache.DefaultSize.
func WithChunkCacheSize(n int) Option {
	return func(c *config) { c.chunkCacheSize = n }
}
