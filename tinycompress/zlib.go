// Package tinycompress produces zlib streams on targets where a real
// compressor does not fit. Data is emitted as stored DEFLATE blocks, which
// every inflater accepts.
package tinycompress

import (
	"errors"
	"hash/adler32"
)

// maxStored is the largest payload of one stored block.
const maxStored = 0xFFFF

var (
	ErrNotZlib   = errors.New("tinycompress: not a zlib stream")
	ErrBlockType = errors.New("tinycompress: only stored blocks are supported")
	ErrTruncated = errors.New("tinycompress: truncated stream")
	ErrChecksum  = errors.New("tinycompress: adler32 mismatch")
)

// ZlibSize returns the length AppendZlib produces for n input bytes.
func ZlibSize(n int) int {
	blocks := (n + maxStored - 1) / maxStored
	if blocks == 0 {
		blocks = 1
	}
	return 2 + blocks*5 + n + 4
}

// AppendZlib appends src to dst as a complete zlib stream.
func AppendZlib(dst, src []byte) []byte {
	// CMF 0x78: deflate, 32K window. FLG 0x9C: default level, no dictionary.
	dst = append(dst, 0x78, 0x9C)

	rest := src
	for {
		n := len(rest)
		final := byte(1)
		if n > maxStored {
			n = maxStored
			final = 0
		}
		length := uint16(n)
		dst = append(dst, final,
			byte(length), byte(length>>8),
			byte(^length), byte(^length>>8))
		dst = append(dst, rest[:n]...)
		rest = rest[n:]
		if final == 1 {
			break
		}
	}

	sum := adler32.Checksum(src)
	return append(dst, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
}

// IsZlib reports whether data starts with a zlib header.
func IsZlib(data []byte) bool {
	return len(data) >= 2 && data[0]&0x0F == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0
}

// Inflate decodes a stream made of stored blocks, as written by AppendZlib.
func Inflate(data []byte) ([]byte, error) {
	if !IsZlib(data) {
		return nil, ErrNotZlib
	}
	pos := 2
	var out []byte
	for {
		if pos+5 > len(data) {
			return nil, ErrTruncated
		}
		header := data[pos]
		if header>>1&0x3 != 0 {
			return nil, ErrBlockType
		}
		length := int(data[pos+1]) | int(data[pos+2])<<8
		nlength := int(data[pos+3]) | int(data[pos+4])<<8
		if length != ^nlength&0xFFFF {
			return nil, ErrNotZlib
		}
		pos += 5
		if pos+length > len(data) {
			return nil, ErrTruncated
		}
		out = append(out, data[pos:pos+length]...)
		pos += length
		if header&1 != 0 {
			break
		}
	}

	if pos+4 > len(data) {
		return nil, ErrTruncated
	}
	want := uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])
	if adler32.Checksum(out) != want {
		return nil, ErrChecksum
	}
	return out, nil
}
