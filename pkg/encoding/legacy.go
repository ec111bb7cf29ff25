// Package encoding converts texture references written by legacy exporters
// into UTF-8 file paths.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Charset names a code page used by scene exporters for non-UTF-8 strings.
type Charset string

const (
	// Auto keeps valid UTF-8, otherwise tries EUC-KR then Windows-1252.
	Auto Charset = "auto"
	// Windows1252 is the western Windows code page.
	Windows1252 Charset = "cp1252"
	// EUCKR is the Korean code page.
	EUCKR Charset = "euc-kr"
)

// ParseCharset validates a charset name from configuration.
func ParseCharset(name string) (Charset, error) {
	switch c := Charset(strings.ToLower(strings.TrimSpace(name))); c {
	case "", Auto:
		return Auto, nil
	case Windows1252, "windows-1252":
		return Windows1252, nil
	case EUCKR, "euckr":
		return EUCKR, nil
	default:
		return "", fmt.Errorf("unknown charset %q", name)
	}
}

// ToUTF8 decodes data in the given charset. Valid UTF-8 input is returned
// unchanged regardless of charset.
func ToUTF8(data []byte, cs Charset) string {
	if utf8.Valid(data) {
		return string(data)
	}
	switch cs {
	case Windows1252:
		return decode(charmap.Windows1252, data)
	case EUCKR:
		return decode(korean.EUCKR, data)
	default:
		if s, ok := tryDecode(korean.EUCKR, data); ok {
			return s
		}
		return decode(charmap.Windows1252, data)
	}
}

// NormalizeRef cleans a texture reference: NUL padding is cut, the string is
// converted to UTF-8 and backslash separators become forward slashes.
func NormalizeRef(ref string, cs Charset) string {
	data := []byte(ref)
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	s := strings.TrimSpace(ToUTF8(data, cs))
	return strings.ReplaceAll(s, "\\", "/")
}

// TrimNullString removes trailing NUL bytes and converts to string.
func TrimNullString(data []byte) string {
	return string(bytes.TrimRight(data, "\x00"))
}

func decode(enc encoding.Encoding, data []byte) string {
	if s, ok := tryDecode(enc, data); ok {
		return s
	}
	return string(data)
}

func tryDecode(enc encoding.Encoding, data []byte) (string, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil || !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
