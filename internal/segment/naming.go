package segment

import (
	"github.com/lattice-forensics/goewf/internal/ewferr"
)

// maxSegmentNumber mirrors libewf's limit: 99 numeric suffixes (.E01-.E99)
// plus 26*26 two-letter suffixes per leading letter band (.EAA-.ZZZ),
// giving headroom far beyond any real acquisition's segment count.
const maxSegmentNumber = 99 + 26*26*22

// Suffix computes the EWF segment filename suffix for a 1-based segment
// number: ".E01".."E99", then ".EAA".."EZZ", ".FAA".."FZZ", and so on,
// mirroring libewf's segment numbering scheme. Filename globbing for
// multi-segment discovery is a separate concern left to callers; this is
// only the suffix an acquisition/write path needs to name the next file
// it creates.
func Suffix(segmentNumber int) (string, error) {
	if segmentNumber < 1 || segmentNumber > maxSegmentNumber {
		return "", ewferr.New(ewferr.InvalidArgument, "segment", "Suffix", "segment number out of range")
	}
	if segmentNumber <= 99 {
		return "." + "E" + twoDigits(segmentNumber), nil
	}
	n := segmentNumber - 100 // 0-based index into the two-letter bands
	band := n / (26 * 26)
	within := n % (26 * 26)
	first := byte('E' + band) // bands start at 'E'
	second := byte('A' + within/26)
	third := byte('A' + within%26)
	return "." + string(first) + string(second) + string(third), nil
}

func twoDigits(n int) string {
	digits := [10]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
	return string([]byte{digits[(n/10)%10], digits[n%10]})
}
