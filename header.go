// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MDMPMagic is the little-endian u32 value of the ASCII bytes "MDMP".
const MDMPMagic = 0x504D444D

// headerSize is the fixed size, in bytes, of the MiniDump header.
const headerSize = 32

// Header is the fixed 32-byte MiniDump file header.
type Header struct {
	Magic               uint32 `json:"magic"`
	Version              uint16 `json:"version"`
	ImplementationVersion uint16 `json:"implementation_version"`
	StreamCount          uint32 `json:"stream_count"`
	StreamDirectoryRVA   uint32 `json:"stream_directory_rva"`
	Checksum             uint32 `json:"checksum"`
	TimeDateStamp        uint32 `json:"time_date_stamp"`
	Flags                uint64 `json:"flags"`
}

// parseHeader validates the magic and decodes the fixed header. Together
// with parseDirectory it is one of the two decodes in the package allowed
// to produce a fatal error.
func parseHeader(r *reader) (Header, error) {
	var h Header
	if r.len() < headerSize {
		return h, ErrInvalidSignature
	}
	magic, err := r.u32(0)
	if err != nil || magic != MDMPMagic {
		return h, ErrInvalidSignature
	}

	h.Magic = magic
	if v, err := r.u16(4); err == nil {
		h.Version = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u16(6); err == nil {
		h.ImplementationVersion = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u32(8); err == nil {
		h.StreamCount = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u32(12); err == nil {
		h.StreamDirectoryRVA = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u32(16); err == nil {
		h.Checksum = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u32(20); err == nil {
		h.TimeDateStamp = v
	} else {
		return h, ErrInvalidHeader
	}
	if v, err := r.u64(24); err == nil {
		h.Flags = v
	} else {
		return h, ErrInvalidHeader
	}
	return h, nil
}
