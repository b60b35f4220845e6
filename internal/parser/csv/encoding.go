package csv

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding is a named text encoding used to decode sources and encode the
// report. Decoding always honors a leading byte order mark, so a UTF-8 or
// UTF-16 file with a BOM is read correctly whatever encoding was configured.
type Encoding struct {
	Name string
	enc  encoding.Encoding
}

// encodings maps canonical names (lowercase, no '-' or '_') to encodings.
// "ascii" follows the WHATWG label table and resolves to windows-1252.
var encodings = map[string]encoding.Encoding{
	"utf8":             unicode.UTF8,
	"utf8bom":          unicode.UTF8BOM,
	"unicode":          unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf16":            unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf16le":          unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"bigendianunicode": unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf16be":          unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf32":            utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"ascii":            charmap.Windows1252,
	"default":          charmap.Windows1252,
	"windows1252":      charmap.Windows1252,
	"latin1":           charmap.ISO8859_1,
	"iso88591":         charmap.ISO8859_1,
	"oem":              charmap.CodePage437,
	"cp437":            charmap.CodePage437,
}

// UTF8 is the default encoding.
var UTF8 = Encoding{Name: "utf8", enc: unicode.UTF8}

func canonicalEncodingName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	return strings.ReplaceAll(n, "_", "")
}

// LookupEncoding resolves an encoding by name. An empty name yields UTF8.
func LookupEncoding(name string) (Encoding, error) {
	n := canonicalEncodingName(name)
	if n == "" {
		return UTF8, nil
	}
	e, ok := encodings[n]
	if !ok {
		return Encoding{}, fmt.Errorf("unknown encoding %q (known: %s)", name, strings.Join(EncodingNames(), ", "))
	}
	return Encoding{Name: n, enc: e}, nil
}

// EncodingNames lists the accepted canonical names in sorted order.
func EncodingNames() []string {
	out := make([]string, 0, len(encodings))
	for k := range encodings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (e Encoding) encoding() encoding.Encoding {
	if e.enc == nil {
		return unicode.UTF8
	}
	return e.enc
}

// NewDecodingReader wraps r so that it yields UTF-8.
func (e Encoding) NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(e.encoding().NewDecoder()))
}

// NewEncodingWriter wraps w so that UTF-8 written to it is stored in e.
// The returned writer must be closed to flush trailing bytes.
func (e Encoding) NewEncodingWriter(w io.Writer) io.WriteCloser {
	return transform.NewWriter(w, e.encoding().NewEncoder())
}
