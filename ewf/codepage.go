package ewf

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/lattice-forensics/goewf/internal/ewferr"
)

// HeaderValues is the parsed "header"/"header2" category-3 key/value
// table: acquisition metadata such as examiner name, case number, and
// acquisition/system timestamps. Keys match the single/double-letter
// tags libewf's header strings use (a, c, n, e, t, av, ov, m, u, p, md,
// sn, l, pid, ...); callers needing a specific field look it up by tag.
type HeaderValues map[string]string

// decodeHeaderText converts a "header"/"header2" section's decompressed
// bytes to UTF-8, detecting a UTF-16 byte-order mark the way EnCase-era
// tools write it.
func decodeHeaderText(raw []byte) (string, error) {
	switch {
	case len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff:
		return decodeUTF16(raw, unicode.BigEndian)
	case len(raw) >= 2 && raw[0] == 0xff && raw[1] == 0xfe:
		return decodeUTF16(raw, unicode.LittleEndian)
	default:
		return string(raw), nil
	}
}

func decodeUTF16(raw []byte, endianness unicode.Endianness) (string, error) {
	enc := unicode.UTF16(endianness, unicode.ExpectBOM)
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", ewferr.Wrap(err, ewferr.InvalidFormat, "ewf", "decodeUTF16", "decoding header text")
	}
	return string(decoded), nil
}

// ParseHeaderValues parses a decompressed "header"/"header2" body into
// its category-3 flag/value table: line 0 is a format version, line 1 a
// category marker, line 2 tab-separated flags, line 3 their tab-separated
// values (additional category blocks, when present, repeat this
// four-line pattern and are merged in, later categories overriding
// earlier ones for any tag they share).
func ParseHeaderValues(raw []byte) (HeaderValues, error) {
	text, err := decodeHeaderText(raw)
	if err != nil {
		return nil, err
	}
	text = strings.TrimRight(text, "\x00")
	lines := strings.Split(text, "\n")

	values := make(HeaderValues)
	for i := 0; i+3 < len(lines); i += 4 {
		flags := strings.Split(strings.TrimRight(lines[i+2], "\r"), "\t")
		vals := strings.Split(strings.TrimRight(lines[i+3], "\r"), "\t")
		if len(flags) != len(vals) {
			return nil, ewferr.New(ewferr.InvalidFormat, "ewf", "ParseHeaderValues", "header flag/value column count mismatch")
		}
		for k, flag := range flags {
			values[flag] = vals[k]
		}
	}
	return values, nil
}

// EncodeHeaderValues serializes a HeaderValues table back into the
// four-line category-3 text block, UTF-8 encoded (the modern "header2"
// convention is UTF-16LE with a BOM; callers that need that form wrap
// this with their own transform.Bytes encode step via
// golang.org/x/text/encoding/unicode).
func EncodeHeaderValues(values HeaderValues, order []string) []byte {
	var flags, vals []string
	for _, tag := range order {
		v, ok := values[tag]
		if !ok {
			continue
		}
		flags = append(flags, tag)
		vals = append(vals, v)
	}
	var buf bytes.Buffer
	buf.WriteString("1\n")
	buf.WriteString("main\n")
	buf.WriteString(strings.Join(flags, "\t"))
	buf.WriteString("\n")
	buf.WriteString(strings.Join(vals, "\t"))
	buf.WriteString("\n")
	return buf.Bytes()
}
