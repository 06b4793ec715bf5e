// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"testing"
)

func utf16LPBytes(s string) []byte {
	b := make([]byte, 4, 4+2*len(s)+2)
	binary.LittleEndian.PutUint32(b, uint32(2*len(s)))
	for _, r := range s {
		cb := make([]byte, 2)
		binary.LittleEndian.PutUint16(cb, uint16(r))
		b = append(b, cb...)
	}
	return append(b, 0, 0)
}

func TestParseHandleDataV1(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:], 16) // SizeOfHeader
	binary.LittleEndian.PutUint32(header[4:], handleEntryV1Size)
	binary.LittleEndian.PutUint32(header[8:], 1) // count
	buf := append([]byte{}, header...)

	rec := make([]byte, handleEntryV1Size)
	binary.LittleEndian.PutUint64(rec[0:], 0x44)
	binary.LittleEndian.PutUint32(rec[24:], 3) // HandleCount
	buf = append(buf, rec...)

	r := newReader(buf)
	data, ok := parseHandleData(r, DirectoryEntry{RVA: 0}, MaxHandles)
	if !ok {
		t.Fatalf("parseHandleData() rejected a well-formed V1 stream")
	}
	if len(data.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(data.Entries))
	}
	if data.Entries[0].IsV2 {
		t.Errorf("IsV2 = true, want false for a 32-byte descriptor")
	}
	if data.Entries[0].Handle != 0x44 {
		t.Errorf("Handle = %#x, want 0x44", data.Entries[0].Handle)
	}
}

func TestParseHandleDataV2WithTypeName(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[4:], handleEntryV2MinSize)
	binary.LittleEndian.PutUint32(header[8:], 1)
	buf := append([]byte{}, header...)

	typeNameRVA := uint32(16 + handleEntryV2MinSize)
	rec := make([]byte, handleEntryV2MinSize)
	binary.LittleEndian.PutUint64(rec[0:], 0x88)
	binary.LittleEndian.PutUint32(rec[8:], typeNameRVA)
	binary.LittleEndian.PutUint32(rec[32:], 0xAABB) // ObjectInfoRVA
	buf = append(buf, rec...)
	buf = append(buf, utf16LPBytes("Event")...)

	r := newReader(buf)
	data, ok := parseHandleData(r, DirectoryEntry{RVA: 0}, MaxHandles)
	if !ok {
		t.Fatalf("parseHandleData() rejected a well-formed V2 stream")
	}
	if !data.Entries[0].IsV2 {
		t.Errorf("IsV2 = false, want true for a 40-byte descriptor")
	}
	if data.Entries[0].TypeName != "Event" {
		t.Errorf("TypeName = %q, want %q", data.Entries[0].TypeName, "Event")
	}
	if data.Entries[0].ObjectInfoRVA != 0xAABB {
		t.Errorf("ObjectInfoRVA = %#x, want 0xaabb", data.Entries[0].ObjectInfoRVA)
	}
}

func TestParseHandleDataRejectsUndersizedDescriptor(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[4:], handleEntryV1Size-1)
	binary.LittleEndian.PutUint32(header[8:], 1)
	r := newReader(header)
	if _, ok := parseHandleData(r, DirectoryEntry{RVA: 0}, MaxHandles); ok {
		t.Errorf("parseHandleData() accepted a descriptor smaller than the V1 size")
	}
}

func TestParseHandleDataRejectsExcessiveCount(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[4:], handleEntryV1Size)
	binary.LittleEndian.PutUint32(header[8:], MaxHandles+1)
	r := newReader(header)
	if _, ok := parseHandleData(r, DirectoryEntry{RVA: 0}, MaxHandles); ok {
		t.Errorf("parseHandleData() accepted a count over the cap")
	}
}

func TestHandleDataTypeHistogram(t *testing.T) {
	data := HandleData{Entries: []HandleEntry{
		{TypeName: "File"}, {TypeName: "File"}, {TypeName: "Event"}, {TypeName: "File"},
	}}
	hist := data.TypeHistogram()
	if len(hist) != 2 {
		t.Fatalf("len(hist) = %d, want 2", len(hist))
	}
	if hist[0].TypeName != "File" || hist[0].Count != 3 {
		t.Errorf("hist[0] = %+v, want {File 3}", hist[0])
	}
	if hist[1].TypeName != "Event" || hist[1].Count != 1 {
		t.Errorf("hist[1] = %+v, want {Event 1}", hist[1])
	}
}
