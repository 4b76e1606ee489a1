package syntax

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	lineSeparator      = '\u2028'
	paragraphSeparator = '\u2029'
)

var simpleEscapes = map[byte]string{
	'n': "\n",
	't': "\t",
	'r': "\r",
	'b': "\b",
	'f': "\f",
	'v': "\v",
}

// StringValue returns the value of a string literal node: its content with escape
// sequences and line continuations resolved.
func StringValue(node *sitter.Node, source []byte) string {
	return DecodeString(StringContent(node, source))
}

// DecodeString resolves the escape sequences of a JavaScript string literal body.
// A malformed hexadecimal or Unicode escape is kept verbatim.
func DecodeString(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var builder strings.Builder
	builder.Grow(len(raw))
	for index := 0; index < len(raw); {
		if raw[index] != '\\' || index+1 == len(raw) {
			builder.WriteByte(raw[index])
			index++
			continue
		}
		decoded, consumed := decodeEscape(raw[index+1:])
		builder.WriteString(decoded)
		index += 1 + consumed
	}
	return builder.String()
}

// decodeEscape decodes the escape whose text, after the backslash, starts rest. It
// returns the decoded value and the number of bytes consumed from rest.
func decodeEscape(rest string) (string, int) {
	current := rest[0]
	if simple, ok := simpleEscapes[current]; ok {
		return simple, 1
	}
	switch current {
	case '\r':
		if len(rest) > 1 && rest[1] == '\n' {
			return "", 2
		}
		return "", 1
	case '\n':
		return "", 1
	case '0':
		if len(rest) == 1 || rest[1] < '0' || rest[1] > '9' {
			return "\x00", 1
		}
	case 'x':
		if value, ok := parseHex(rest[1:], 2); ok {
			return string(rune(value)), 3
		}
		return `\x`, 1
	case 'u':
		return decodeUnicodeEscape(rest)
	}
	character, width := utf8.DecodeRuneInString(rest)
	if character == lineSeparator || character == paragraphSeparator {
		return "", width
	}
	return rest[:width], width
}

// decodeUnicodeEscape handles \u{X...} and \uXXXX, joining a surrogate pair written
// as two consecutive escapes.
func decodeUnicodeEscape(rest string) (string, int) {
	if len(rest) > 1 && rest[1] == '{' {
		closing := strings.IndexByte(rest, '}')
		if closing > 2 {
			if value, ok := parseHex(rest[2:closing], closing-2); ok && value <= utf8.MaxRune {
				return string(rune(value)), closing + 1
			}
		}
		return `\u`, 1
	}
	unit, ok := parseHex(rest[1:], 4)
	if !ok {
		return `\u`, 1
	}
	if utf16.IsSurrogate(rune(unit)) && len(rest) >= 11 && rest[5] == '\\' && rest[6] == 'u' {
		if low, lowOK := parseHex(rest[7:], 4); lowOK {
			if combined := utf16.DecodeRune(rune(unit), rune(low)); combined != utf8.RuneError {
				return string(combined), 11
			}
		}
	}
	return string(rune(unit)), 5
}

func parseHex(text string, digits int) (uint64, bool) {
	if digits == 0 || len(text) < digits {
		return 0, false
	}
	value, parseErr := strconv.ParseUint(text[:digits], 16, 32)
	if parseErr != nil {
		return 0, false
	}
	return value, true
}
