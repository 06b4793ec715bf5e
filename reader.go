// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// reader wraps an immutable byte blob and exposes bounds- and
// overflow-checked little-endian primitive reads. It never panics and
// never returns a slice whose span exceeds len(b): every read is
// checked against the blob length before any offset arithmetic is
// trusted.
type reader struct {
	b []byte
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) len() uint32 {
	return uint32(len(r.b))
}

// inRange reports whether [offset, offset+width) lies entirely inside
// the blob, checking for unsigned overflow of offset+width first.
func (r *reader) inRange(offset, width uint32) bool {
	end := offset + width
	if end < offset {
		return false
	}
	return end <= uint32(len(r.b))
}

func (r *reader) u8(offset uint32) (uint8, error) {
	if !r.inRange(offset, 1) {
		return 0, errOutOfRange
	}
	return r.b[offset], nil
}

func (r *reader) u16(offset uint32) (uint16, error) {
	if !r.inRange(offset, 2) {
		return 0, errOutOfRange
	}
	return binary.LittleEndian.Uint16(r.b[offset:]), nil
}

func (r *reader) u32(offset uint32) (uint32, error) {
	if !r.inRange(offset, 4) {
		return 0, errOutOfRange
	}
	return binary.LittleEndian.Uint32(r.b[offset:]), nil
}

func (r *reader) u64(offset uint32) (uint64, error) {
	if !r.inRange(offset, 8) {
		return 0, errOutOfRange
	}
	return binary.LittleEndian.Uint64(r.b[offset:]), nil
}

func (r *reader) i32(offset uint32) (int32, error) {
	v, err := r.u32(offset)
	return int32(v), err
}

// bytes returns a borrowed view of count bytes starting at offset.
func (r *reader) bytes(offset, count uint32) ([]byte, error) {
	if !r.inRange(offset, count) {
		return nil, errOutOfRange
	}
	return r.b[offset : offset+count], nil
}

// slice is an alias of bytes kept to match the spec's naming for the
// two equivalent accessors.
func (r *reader) slice(offset, count uint32) ([]byte, error) {
	return r.bytes(offset, count)
}

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// utf16LP reads a 32-bit byte length at rva, then exactly that many
// bytes of UTF-16LE starting at rva+4, and decodes them. A decode
// failure (or out-of-range read) yields an empty string, never an
// error: string decoding is never allowed to fail the parser.
func (r *reader) utf16LP(rva uint32) string {
	length, err := r.u32(rva)
	if err != nil {
		return ""
	}
	raw, err := r.bytes(rva+4, length)
	if err != nil {
		return ""
	}
	out, err := utf16Decoder.Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

// utf16Fixed decodes at most maxBytes bytes of UTF-16LE starting at
// offset, stopping at the first 16-bit zero pair (or at the first
// out-of-range code unit).
func (r *reader) utf16Fixed(offset, maxBytes uint32) string {
	var units []byte
	for i := uint32(0); i+2 <= maxBytes; i += 2 {
		lo, err := r.u8(offset + i)
		if err != nil {
			break
		}
		hi, err := r.u8(offset + i + 1)
		if err != nil {
			break
		}
		if lo == 0 && hi == 0 {
			break
		}
		units = append(units, lo, hi)
	}
	if len(units) == 0 {
		return ""
	}
	out, err := utf16Decoder.Bytes(units)
	if err != nil {
		return ""
	}
	return string(out)
}

// asciiZ reads a NUL-terminated (or maxLen-bounded) ASCII/UTF-8 string
// at offset, as used by CodeView PDB filenames which run to the end of
// their record rather than being length-prefixed.
func (r *reader) asciiZ(offset, maxLen uint32) string {
	raw, err := r.bytes(offset, maxLen)
	if err != nil {
		// Fall back to whatever prefix is actually available.
		avail := r.len()
		if offset >= avail {
			return ""
		}
		raw = r.b[offset:avail]
	}
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// cursor is a stateful variant over the same blob, used where a stream
// decoder naturally advances through a sequence of fixed-width fields.
type cursor struct {
	r   *reader
	pos uint32
}

func newCursor(r *reader, start uint32) *cursor {
	return &cursor{r: r, pos: start}
}

func (c *cursor) seek(pos uint32) {
	if pos > c.r.len() {
		pos = c.r.len()
	}
	c.pos = pos
}

func (c *cursor) u8() (uint8, error) {
	v, err := c.r.u8(c.pos)
	if err == nil {
		c.pos++
	}
	return v, err
}

func (c *cursor) u16() (uint16, error) {
	v, err := c.r.u16(c.pos)
	if err == nil {
		c.pos += 2
	}
	return v, err
}

func (c *cursor) u32() (uint32, error) {
	v, err := c.r.u32(c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

func (c *cursor) u64() (uint64, error) {
	v, err := c.r.u64(c.pos)
	if err == nil {
		c.pos += 8
	}
	return v, err
}
