package ewf

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lattice-forensics/goewf/internal/ewferr"
	"github.com/lattice-forensics/goewf/internal/verify"
)

// Verifier drives a linear pass over an open MediaHandle, folding every
// chunk into rolling MD5/SHA-1 digests and comparing the result against
// the image's stored acquisition hashes. It wraps internal/verify.Driver,
// adding the handle-specific glue of turning chunk numbers into sector
// ranges and stored digests.
type Verifier struct {
	handle *MediaHandle
	driver *verify.Driver
	logger *logrus.Logger
}

// VerifierOptions selects which digests to compute during a verification
// pass.
type VerifierOptions struct {
	CalculateMD5  bool
	CalculateSHA1 bool
	Logger        *logrus.Logger
}

// NewVerifier returns a Verifier bound to handle. At least one of
// CalculateMD5/CalculateSHA1 should be set, or the pass computes nothing
// to compare.
func NewVerifier(handle *MediaHandle, opts VerifierOptions) *Verifier {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Verifier{
		handle: handle,
		logger: logger,
		driver: verify.New(verify.Options{
			CalculateMD5:   opts.CalculateMD5,
			CalculateSHA1:  opts.CalculateSHA1,
			BytesPerSector: handle.GetBytesPerSector(),
			Logger:         logger,
		}),
	}
}

// Result is the outcome of a completed verification pass.
type Result struct {
	ChecksumErrors []ChecksumError
	Computed       verify.Digests
	HashesMatch    bool
}

// Run reads every chunk of the bound handle in order, feeding each into
// the rolling digests and recording checksum mismatches, until the media
// is exhausted or SignalAbort is called.
func (v *Verifier) Run() (Result, error) {
	chunkSize := uint64(v.handle.GetChunkSize())
	sectorsPerChunk := chunkSize / uint64(v.handle.GetBytesPerSector())
	n := v.handle.NumberOfChunks()

	for i := 0; i < n; i++ {
		if v.handle.Aborted() {
			return Result{}, ewferr.New(ewferr.Aborted, "ewf", "Verifier.Run", "verification aborted")
		}
		payload, ok, err := v.handle.ReadChunk(i)
		if err != nil {
			return Result{}, err
		}
		v.driver.Feed(payload)
		v.driver.RecordChunkResult(uint64(i)*sectorsPerChunk, sectorsPerChunk, !ok)

		if i%256 == 0 {
			v.logger.WithFields(logrus.Fields{
				"chunk":       i,
				"of":          n,
				"component":   "verify",
			}).Debug("verification progress")
		}
	}

	computed := v.driver.Finalize()
	stored := make(verify.Digests)
	if md5hex, ok := v.handle.GetHashValue("MD5"); ok {
		stored["MD5"] = hexDecode(md5hex)
	}
	if sha1hex, ok := v.handle.GetHashValue("SHA1"); ok {
		stored["SHA1"] = hexDecode(sha1hex)
	}

	match := true
	if len(stored) > 0 {
		var err error
		match, err = verify.Compare(computed, stored)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{
		ChecksumErrors: v.handle.checksumErrorsSnapshot(),
		Computed:       computed,
		HashesMatch:    match,
	}, nil
}

func hexDecode(s string) []byte {
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// FprintChecksumErrors writes a human-readable report of every recorded
// checksum error range to w, one line per range, listing the segment files
// the range spans with consecutive identical filenames collapsed.
func (v *Verifier) FprintChecksumErrors(w io.Writer) error {
	errs := v.handle.checksumErrorsSnapshot()
	for _, e := range errs {
		filenames, err := v.filenamesForRange(e)
		if err != nil {
			return err
		}
		end := e.StartSector + e.SectorCount - 1
		if _, err := fmt.Fprintf(w, "sectors: %d - %d (%d) in segment file(s): %s\n",
			e.StartSector, end, e.SectorCount, joinUnique(filenames)); err != nil {
			return ewferr.Wrap(err, ewferr.Io, "ewf", "FprintChecksumErrors", "writing report")
		}
	}
	return nil
}

func (v *Verifier) filenamesForRange(e ChecksumError) ([]string, error) {
	chunkSize := uint64(v.handle.GetChunkSize())
	sectorsPerChunk := chunkSize / uint64(v.handle.GetBytesPerSector())
	if sectorsPerChunk == 0 {
		return nil, ewferr.New(ewferr.InvalidArgument, "ewf", "filenamesForRange", "sectors per chunk is zero")
	}
	startChunk := e.StartSector / sectorsPerChunk
	endChunk := (e.StartSector + e.SectorCount - 1) / sectorsPerChunk

	var names []string
	for c := startChunk; c <= endChunk; c++ {
		entry, ok := v.handle.table.Get(int(c))
		if !ok {
			continue
		}
		idx := int(entry.SegmentID) - 1
		if idx < 0 || idx >= len(v.handle.segmentFiles) {
			continue
		}
		names = append(names, v.handle.segmentFiles[idx])
	}
	return names, nil
}

func joinUnique(names []string) string {
	var out []string
	for _, n := range names {
		if len(out) == 0 || out[len(out)-1] != n {
			out = append(out, n)
		}
	}
	s := ""
	for i, n := range out {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}
