// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MaxUnloadedModules is the hard cap on the number of entries decoded
// from the UnloadedModuleList stream, per invariant 2.
const MaxUnloadedModules = 10000

const unloadedModuleMinEntrySize = 24

// UnloadedModule is one decoded UnloadedModuleList entry (§3).
type UnloadedModule struct {
	Base          uint64 `json:"base"`
	Size          uint32 `json:"size"`
	Checksum      uint32 `json:"checksum"`
	TimeDateStamp uint32 `json:"time_date_stamp"`
	NameRVA       uint32 `json:"name_rva"`
	Name          string `json:"name"`
}

func parseUnloadedModuleList(r *reader, e DirectoryEntry, maxEntries uint32) ([]UnloadedModule, bool) {
	sizeOfHeader, err := r.u32(e.RVA)
	if err != nil {
		return nil, false
	}
	_ = sizeOfHeader
	sizeOfEntry, err := r.u32(e.RVA + 4)
	if err != nil {
		return nil, false
	}
	count, err := r.u32(e.RVA + 8)
	if err != nil {
		return nil, false
	}
	if count > maxEntries {
		return nil, false
	}
	if sizeOfEntry == 0 || sizeOfEntry < unloadedModuleMinEntrySize {
		return nil, false
	}

	out := make([]UnloadedModule, 0, count)
	base := e.RVA + 12
	for i := uint32(0); i < count; i++ {
		off := base + i*sizeOfEntry
		if !r.inRange(off, unloadedModuleMinEntrySize) {
			break
		}
		var m UnloadedModule
		if v, err := r.u64(off); err == nil {
			m.Base = v
		}
		if v, err := r.u32(off + 8); err == nil {
			m.Size = v
		}
		if v, err := r.u32(off + 12); err == nil {
			m.Checksum = v
		}
		if v, err := r.u32(off + 16); err == nil {
			m.TimeDateStamp = v
		}
		if v, err := r.u32(off + 20); err == nil {
			m.NameRVA = v
			m.Name = r.utf16LP(v)
		}
		out = append(out, m)
	}
	return out, true
}
