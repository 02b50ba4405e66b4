package host

import (
	"encoding/binary"
	"fmt"

	"github.com/wasmgate/proxyguest/bytestring"
)

// Header maps cross the ABI in a packed binary form: a little-endian u32
// pair count, then per pair a u32 key length and u32 value length, then the
// NUL-terminated key and value bytes back to back.

// EncodeMap serializes pairs into the ABI map format.
func EncodeMap(pairs []bytestring.Pair) []byte {
	size := 4
	for _, p := range pairs {
		size += len(p.Key) + len(p.Value) + 10
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pairs)))
	for _, p := range pairs {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p.Key)))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p.Value)))
	}
	for _, p := range pairs {
		out = append(out, p.Key...)
		out = append(out, 0)
		out = append(out, p.Value...)
		out = append(out, 0)
	}
	return out
}

// DecodeMap parses the ABI map format. Empty input decodes to no pairs.
func DecodeMap(data []byte) ([]bytestring.Pair, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("map header truncated: %d bytes", len(data))
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	if count < 0 || 4+count*8 > len(data) {
		return nil, fmt.Errorf("map size table truncated: %d entries in %d bytes", count, len(data))
	}

	pairs := make([]bytestring.Pair, 0, count)
	p := 4 + count*8
	for n := 0; n < count; n++ {
		s := 4 + n*8
		keyLen := int(binary.LittleEndian.Uint32(data[s : s+4]))
		valLen := int(binary.LittleEndian.Uint32(data[s+4 : s+8]))
		// Each entry is followed by a NUL terminator.
		if p+keyLen+1 > len(data) || p+keyLen+1+valLen+1 > len(data) {
			return nil, fmt.Errorf("map entry %d truncated", n)
		}
		key := bytestring.New(data[p : p+keyLen])
		p += keyLen + 1
		value := bytestring.New(data[p : p+valLen])
		p += valLen + 1
		pairs = append(pairs, bytestring.Pair{Key: key, Value: value})
	}
	return pairs, nil
}

// EncodePropertyPath serializes a property path: segments joined by NUL
// bytes with no terminator. An empty path encodes to no bytes.
func EncodePropertyPath(path []string) []byte {
	if len(path) == 0 {
		return nil
	}
	size := 0
	for _, part := range path {
		size += len(part) + 1
	}
	out := make([]byte, 0, size-1)
	for i, part := range path {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, part...)
	}
	return out
}
