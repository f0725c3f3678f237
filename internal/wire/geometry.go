package wire

import (
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

// Media type codes.
const (
	MediaTypeRemovable = 0x00
	MediaTypeFixed     = 0x01
	MediaTypeOptical   = 0x03
	MediaTypeLogical   = 0x0e
	MediaTypeRAM       = 0x10
)

// Media flags.
const (
	MediaFlagImage    = 0x01
	MediaFlagPhysical = 0x02
	MediaFlagFastbloc = 0x04
	MediaFlagTableau  = 0x08
)

// Compression level codes.
const (
	CompressionNone = 0x00
	CompressionGood = 0x01
	CompressionBest = 0x02
)

// GeometrySectionSize is the size of the "disk"/"volume" section body used
// by this engine (the SMART/EWF long form).
const GeometrySectionSize = 1052

// Geometry is the media geometry carried by a "disk" or "volume" section:
// sector/chunk sizing plus the acquisition-time disk description.
type Geometry struct {
	MediaType                uint8
	reserved0                [3]byte
	ChunkCount                uint32
	SectorsPerChunk           uint32
	BytesPerSector            uint32
	SectorCount               uint64
	CHSCylinders              uint32
	CHSHeads                  uint32
	CHSSectors                uint32
	MediaFlags                uint8
	reserved1                 [3]byte
	PALMVolumeStartSector     uint32
	reserved2                 uint32
	SMARTLogsStartSector      uint32
	CompressionLevel          uint8
	reserved3                 [3]byte
	SectorErrorGranularity    uint32
	reserved4                 uint32
	SegmentFileSetIdentifier  [16]byte
	reserved5                 [963]byte
	Signature                 [5]byte
	Checksum                  uint32
}

// MediaSize is the media size in bytes implied by SectorCount*BytesPerSector.
func (g *Geometry) MediaSize() uint64 {
	return g.SectorCount * uint64(g.BytesPerSector)
}

// ChunkSize is the logical (uncompressed) size of one chunk in bytes.
func (g *Geometry) ChunkSize() uint32 {
	return g.SectorsPerChunk * g.BytesPerSector
}

// Encode serializes the geometry section body and computes its checksum.
func (g *Geometry) Encode() []byte {
	buf := make([]byte, GeometrySectionSize)
	buf[0] = g.MediaType
	binary.LittleEndian.PutUint32(buf[4:8], g.ChunkCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.SectorsPerChunk)
	binary.LittleEndian.PutUint32(buf[12:16], g.BytesPerSector)
	binary.LittleEndian.PutUint64(buf[16:24], g.SectorCount)
	binary.LittleEndian.PutUint32(buf[24:28], g.CHSCylinders)
	binary.LittleEndian.PutUint32(buf[28:32], g.CHSHeads)
	binary.LittleEndian.PutUint32(buf[32:36], g.CHSSectors)
	buf[36] = g.MediaFlags
	binary.LittleEndian.PutUint32(buf[40:44], g.PALMVolumeStartSector)
	binary.LittleEndian.PutUint32(buf[48:52], g.SMARTLogsStartSector)
	buf[52] = g.CompressionLevel
	binary.LittleEndian.PutUint32(buf[56:60], g.SectorErrorGranularity)
	copy(buf[64:80], g.SegmentFileSetIdentifier[:])
	copy(buf[1043:1048], []byte("SMART")[:5])
	checksum := adler32.Checksum(buf[:1048])
	binary.LittleEndian.PutUint32(buf[1048:1052], checksum)
	g.Checksum = checksum
	return buf
}

// DecodeGeometry parses a "disk"/"volume" section body.
func DecodeGeometry(buf []byte) (*Geometry, error) {
	if len(buf) < GeometrySectionSize {
		return nil, fmt.Errorf("short geometry section: %d bytes", len(buf))
	}
	g := &Geometry{
		MediaType:              buf[0],
		ChunkCount:              binary.LittleEndian.Uint32(buf[4:8]),
		SectorsPerChunk:         binary.LittleEndian.Uint32(buf[8:12]),
		BytesPerSector:          binary.LittleEndian.Uint32(buf[12:16]),
		SectorCount:             binary.LittleEndian.Uint64(buf[16:24]),
		CHSCylinders:            binary.LittleEndian.Uint32(buf[24:28]),
		CHSHeads:                binary.LittleEndian.Uint32(buf[28:32]),
		CHSSectors:              binary.LittleEndian.Uint32(buf[32:36]),
		MediaFlags:              buf[36],
		PALMVolumeStartSector:   binary.LittleEndian.Uint32(buf[40:44]),
		SMARTLogsStartSector:    binary.LittleEndian.Uint32(buf[48:52]),
		CompressionLevel:        buf[52],
		SectorErrorGranularity:  binary.LittleEndian.Uint32(buf[56:60]),
		Checksum:                binary.LittleEndian.Uint32(buf[1048:1052]),
	}
	copy(g.SegmentFileSetIdentifier[:], buf[64:80])
	copy(g.Signature[:], buf[1043:1048])
	return g, nil
}
