// Package verify implements the linear verification driver: it re-reads a
// media image chunk by chunk, folds every decompressed byte into rolling
// MD5 and SHA-1 digests, records checksum mismatches as sector ranges,
// and at the end compares the computed digests against whatever was
// stored in the image's acquisition hashes.
package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"

	"github.com/sirupsen/logrus"

	"github.com/lattice-forensics/goewf/internal/ewferr"
)

// ChecksumError is one contiguous run of sectors whose chunk failed its
// checksum verification.
type ChecksumError struct {
	StartSector uint64
	SectorCount uint64
}

// Digests is the finalized set of computed digests, keyed by algorithm
// name ("MD5", "SHA1") to match the acquisition hash-value table's naming.
type Digests map[string][]byte

// Driver accumulates rolling digests and checksum error ranges across a
// sequential pass over a media image. It holds no knowledge of chunk
// boundaries or compression — callers feed it decompressed chunk
// payloads and, separately, report checksum mismatches by sector range.
type Driver struct {
	md5         hash.Hash
	sha1        hash.Hash
	calcMD5     bool
	calcSHA1    bool
	errors      []ChecksumError
	bytesPerSec uint32
	log         *logrus.Entry

	// pendingStart/pendingCount accumulate a contiguous run of mismatched
	// chunks into a single ChecksumError.
	pendingStart uint64
	pendingCount uint64
	pendingOpen  bool
}

// Options selects which digests to compute, mirroring
// verification_handle_initialize(calculate_md5, calculate_sha1, ...).
type Options struct {
	CalculateMD5    bool
	CalculateSHA1   bool
	BytesPerSector  uint32
	Logger          *logrus.Logger
}

// New returns a Driver ready to consume chunks starting at sector 0.
func New(opts Options) *Driver {
	d := &Driver{
		calcMD5:     opts.CalculateMD5,
		calcSHA1:    opts.CalculateSHA1,
		bytesPerSec: opts.BytesPerSector,
	}
	if d.calcMD5 {
		d.md5 = md5.New()
	}
	if d.calcSHA1 {
		d.sha1 = sha1.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d.log = logger.WithField("component", "verify")
	return d
}

// Feed folds one chunk's decompressed payload into the running digests.
// It must be called in strictly increasing chunk order; mismatched
// chunks are still fed (the wiped/zeroed payload, per the pipeline's
// wipe-on-error policy) since the digest must cover the full media
// stream regardless of corruption.
func (d *Driver) Feed(payload []byte) {
	if d.md5 != nil {
		d.md5.Write(payload)
	}
	if d.sha1 != nil {
		d.sha1.Write(payload)
	}
}

// RecordChunkResult reports one chunk's checksum verification outcome.
// startSector is the first sector the chunk covers; sectorCount is the
// number of sectors in the chunk (the final chunk in a media may be
// short). Consecutive mismatched chunks coalesce into a single
// ChecksumError range.
func (d *Driver) RecordChunkResult(startSector, sectorCount uint64, mismatch bool) {
	if !mismatch {
		d.closePending()
		return
	}
	if d.pendingOpen && d.pendingStart+d.pendingCount == startSector {
		d.pendingCount += sectorCount
		return
	}
	d.closePending()
	d.pendingOpen = true
	d.pendingStart = startSector
	d.pendingCount = sectorCount
}

func (d *Driver) closePending() {
	if !d.pendingOpen {
		return
	}
	d.errors = append(d.errors, ChecksumError{StartSector: d.pendingStart, SectorCount: d.pendingCount})
	d.pendingOpen = false
}

// Errors returns the checksum error ranges accumulated so far, in the
// order they were recorded.
func (d *Driver) Errors() []ChecksumError {
	d.closePending()
	out := make([]ChecksumError, len(d.errors))
	copy(out, d.errors)
	return out
}

// Finalize closes any open checksum-error run and returns the computed
// digests. It does not itself decide pass/fail — comparing computed
// against stored acquisition hashes, and weighing in any checksum errors
// that were recorded, is the caller's responsibility.
func (d *Driver) Finalize() Digests {
	d.closePending()
	digests := make(Digests)
	if d.md5 != nil {
		digests["MD5"] = d.md5.Sum(nil)
	}
	if d.sha1 != nil {
		digests["SHA1"] = d.sha1.Sum(nil)
	}
	d.log.WithField("checksum_errors", len(d.errors)).Debug("verification pass complete")
	return digests
}

// Compare reports whether computed matches every digest present in
// stored; digests stored has that computed lacks (or vice versa) are
// ignored, since an image may carry only one of MD5/SHA-1.
func Compare(computed, stored Digests) (bool, error) {
	if len(computed) == 0 || len(stored) == 0 {
		return false, ewferr.New(ewferr.InvalidArgument, "verify", "Compare", "nothing to compare: no digests computed or stored")
	}
	matched := false
	for name, want := range stored {
		got, ok := computed[name]
		if !ok {
			continue
		}
		matched = true
		if !bytesEqual(got, want) {
			return false, nil
		}
	}
	return matched, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
