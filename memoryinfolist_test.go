// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"testing"
)

func TestParseMemoryInfoListSingleEntry(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[4:], memoryInfoEntrySize)
	binary.LittleEndian.PutUint64(header[8:], 1)
	buf := append([]byte{}, header...)

	rec := make([]byte, memoryInfoEntrySize)
	binary.LittleEndian.PutUint64(rec[0:], 0x7FF000000000)
	binary.LittleEndian.PutUint64(rec[24:], 0x1000)
	binary.LittleEndian.PutUint32(rec[32:], uint32(MemoryStateCommit))
	binary.LittleEndian.PutUint32(rec[36:], uint32(ProtectExecuteRead))
	binary.LittleEndian.PutUint32(rec[40:], uint32(MemoryTypeImage))
	buf = append(buf, rec...)

	r := newReader(buf)
	entries, ok := parseMemoryInfoList(r, DirectoryEntry{RVA: 0}, MaxMemoryInfoEntries)
	if !ok {
		t.Fatalf("parseMemoryInfoList() rejected a well-formed stream")
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.State != MemoryStateCommit {
		t.Errorf("State = %#x, want MemoryStateCommit", e.State)
	}
	if e.Protect != ProtectExecuteRead {
		t.Errorf("Protect = %#x, want ProtectExecuteRead", e.Protect)
	}
	if e.Type != MemoryTypeImage {
		t.Errorf("Type = %#x, want MemoryTypeImage", e.Type)
	}
}

func TestParseMemoryInfoListRejectsExcessiveCount(t *testing.T) {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[4:], memoryInfoEntrySize)
	binary.LittleEndian.PutUint64(header[8:], MaxMemoryInfoEntries+1)
	r := newReader(header)
	if _, ok := parseMemoryInfoList(r, DirectoryEntry{RVA: 0}, MaxMemoryInfoEntries); ok {
		t.Errorf("parseMemoryInfoList() accepted a count over the cap")
	}
}

func TestMemoryProtectionStringShortform(t *testing.T) {
	tests := []struct {
		p   MemoryProtection
		out string
	}{
		{ProtectReadOnly, "R"},
		{ProtectReadWrite, "RW"},
		{ProtectExecuteRead, "RX"},
		{ProtectExecuteReadWrite, "RWX"},
		{ProtectExecuteReadWrite | ProtectGuard, "RWX+G"},
		{ProtectReadWrite | ProtectNoCache | ProtectWriteCombine, "RW+NC+WC"},
		{ProtectNoAccess, "NA"},
		{0, "?"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.out {
			t.Errorf("MemoryProtection(%#x).String() = %q, want %q", uint32(tt.p), got, tt.out)
		}
	}
}
