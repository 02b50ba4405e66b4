// Package bytestring provides a string-like value type for data that is not
// necessarily valid UTF-8, such as HTTP header values, property payloads,
// and body fragments returned by the host.
package bytestring

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ByteString holds an owned, possibly-non-UTF-8 byte sequence. The zero
// value is an empty string. A nil ByteString and an empty ByteString
// compare equal.
type ByteString []byte

// New copies b into a fresh ByteString.
func New(b []byte) ByteString {
	out := make(ByteString, len(b))
	copy(out, b)
	return out
}

// FromString converts s without copying semantics visible to the caller.
func FromString(s string) ByteString {
	return ByteString(s)
}

// Bytes returns the underlying byte slice.
func (b ByteString) Bytes() []byte {
	return []byte(b)
}

// Len returns the length in bytes.
func (b ByteString) Len() int {
	return len(b)
}

// IsEmpty reports whether the string holds no bytes.
func (b ByteString) IsEmpty() bool {
	return len(b) == 0
}

// Equal reports byte-wise equality.
func (b ByteString) Equal(other ByteString) bool {
	return bytes.Equal(b, other)
}

// EqualString reports byte-wise equality against a Go string.
func (b ByteString) EqualString(s string) bool {
	return string(b) == s
}

// HasPrefix reports whether the string begins with prefix.
func (b ByteString) HasPrefix(prefix ByteString) bool {
	return bytes.HasPrefix(b, prefix)
}

// String renders the value for display, replacing invalid UTF-8 sequences
// with the Unicode replacement character.
func (b ByteString) String() string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// GoString renders the value as an escaped byte literal, keeping printable
// ASCII readable and hex-escaping everything else. Used by %#v and test
// diagnostics.
func (b ByteString) GoString() string {
	var sb strings.Builder
	sb.WriteString(`b"`)
	for _, c := range b {
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case 0:
			sb.WriteString(`\0`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Pair is a key-value entry of a header-like map.
type Pair struct {
	Key   ByteString
	Value ByteString
}

// PairsFromMap flattens m into sorted-insertion-free pairs. Order follows
// Go map iteration and is unspecified; hosts treat header maps as
// multimaps without ordering guarantees.
func PairsFromMap(m map[string]string) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: FromString(k), Value: FromString(v)})
	}
	return pairs
}
