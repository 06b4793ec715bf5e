// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"testing"
)

func TestParseUnloadedModuleListSingleEntry(t *testing.T) {
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[4:], unloadedModuleMinEntrySize)
	binary.LittleEndian.PutUint32(header[8:], 1)
	buf := append([]byte{}, header...)

	nameRVA := uint32(12 + unloadedModuleMinEntrySize)
	rec := make([]byte, unloadedModuleMinEntrySize)
	binary.LittleEndian.PutUint64(rec[0:], 0x180000000)
	binary.LittleEndian.PutUint32(rec[8:], 0x2000)
	binary.LittleEndian.PutUint32(rec[20:], nameRVA)
	buf = append(buf, rec...)
	buf = append(buf, utf16LPBytes(`C:\old\plugin.dll`)...)

	r := newReader(buf)
	modules, ok := parseUnloadedModuleList(r, DirectoryEntry{RVA: 0}, MaxUnloadedModules)
	if !ok {
		t.Fatalf("parseUnloadedModuleList() rejected a well-formed stream")
	}
	if len(modules) != 1 {
		t.Fatalf("len(modules) = %d, want 1", len(modules))
	}
	if modules[0].Base != 0x180000000 {
		t.Errorf("Base = %#x, want 0x180000000", modules[0].Base)
	}
	if modules[0].Name != `C:\old\plugin.dll` {
		t.Errorf("Name = %q, want %q", modules[0].Name, `C:\old\plugin.dll`)
	}
}

func TestParseUnloadedModuleListRejectsUndersizedEntry(t *testing.T) {
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[4:], unloadedModuleMinEntrySize-1)
	binary.LittleEndian.PutUint32(header[8:], 1)
	r := newReader(header)
	if _, ok := parseUnloadedModuleList(r, DirectoryEntry{RVA: 0}, MaxUnloadedModules); ok {
		t.Errorf("parseUnloadedModuleList() accepted an entry size below the minimum")
	}
}

func TestParseUnloadedModuleListRejectsExcessiveCount(t *testing.T) {
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[4:], unloadedModuleMinEntrySize)
	binary.LittleEndian.PutUint32(header[8:], MaxUnloadedModules+1)
	r := newReader(header)
	if _, ok := parseUnloadedModuleList(r, DirectoryEntry{RVA: 0}, MaxUnloadedModules); ok {
		t.Errorf("parseUnloadedModuleList() accepted a count over the cap")
	}
}
