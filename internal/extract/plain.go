package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readPlain drops a leading byte order mark, normalizes line endings to \n and
// replaces invalid UTF-8 with U+FFFD.
func readPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	if strings.IndexByte(text, '\r') >= 0 {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	return text, nil
}
