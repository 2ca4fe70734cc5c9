package dataset

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names, in the order they are tried.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
	EncodingISO88591    = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type candidate struct {
	name string
	enc  encoding.Encoding // nil means strict UTF-8
}

var encodingChain = []candidate{
	{name: EncodingUTF8},
	{name: EncodingWindows1252, enc: charmap.Windows1252},
	{name: EncodingISO88591, enc: charmap.ISO8859_1},
}

// decodeAs converts raw to UTF-8 text using c. A leading UTF-8 BOM is dropped.
func decodeAs(c candidate, raw []byte) (string, error) {
	if c.enc == nil {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid %s", c.name)
		}
		return string(raw), nil
	}
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.name, err)
	}
	return string(out), nil
}
