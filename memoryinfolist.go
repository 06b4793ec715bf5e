// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "strings"

// MaxMemoryInfoEntries is the hard cap on the number of entries decoded
// from the MemoryInfoList stream, per invariant 2.
const MaxMemoryInfoEntries = 1000000

// MemoryState is the closed enum of VirtualQuery-style region states.
type MemoryState uint32

const (
	MemoryStateCommit  MemoryState = 0x1000
	MemoryStateReserve MemoryState = 0x2000
	MemoryStateFree    MemoryState = 0x10000
)

// MemoryType is the closed enum of VirtualQuery-style region types.
type MemoryType uint32

const (
	MemoryTypeImage   MemoryType = 0x1000000
	MemoryTypeMapped  MemoryType = 0x40000
	MemoryTypePrivate MemoryType = 0x20000
)

// MemoryProtection is a bitmask wrapper over the Win32 page-protection
// constants, kept as a strong type (per the §9 design note) rather than
// a bare integer so the textual shortform can be isolated from the
// numeric decode.
type MemoryProtection uint32

const (
	ProtectNoAccess         MemoryProtection = 0x01
	ProtectReadOnly         MemoryProtection = 0x02
	ProtectReadWrite        MemoryProtection = 0x04
	ProtectWriteCopy        MemoryProtection = 0x08
	ProtectExecute          MemoryProtection = 0x10
	ProtectExecuteRead      MemoryProtection = 0x20
	ProtectExecuteReadWrite MemoryProtection = 0x40
	ProtectExecuteWriteCopy MemoryProtection = 0x80
	ProtectGuard            MemoryProtection = 0x100
	ProtectNoCache          MemoryProtection = 0x200
	ProtectWriteCombine     MemoryProtection = 0x400
)

// String renders the protection bitmask in the "RWX+G+NC+..." shortform
// described in §6/§9.
func (p MemoryProtection) String() string {
	var base string
	switch {
	case p&ProtectExecuteReadWrite != 0:
		base = "RWX"
	case p&ProtectExecuteWriteCopy != 0:
		base = "RWX(C)"
	case p&ProtectExecuteRead != 0:
		base = "RX"
	case p&ProtectExecute != 0:
		base = "X"
	case p&ProtectReadWrite != 0:
		base = "RW"
	case p&ProtectWriteCopy != 0:
		base = "RW(C)"
	case p&ProtectReadOnly != 0:
		base = "R"
	case p&ProtectNoAccess != 0:
		base = "NA"
	default:
		base = "?"
	}

	var suffixes []string
	if p&ProtectGuard != 0 {
		suffixes = append(suffixes, "G")
	}
	if p&ProtectNoCache != 0 {
		suffixes = append(suffixes, "NC")
	}
	if p&ProtectWriteCombine != 0 {
		suffixes = append(suffixes, "WC")
	}
	if len(suffixes) == 0 {
		return base
	}
	return base + "+" + strings.Join(suffixes, "+")
}

// MemoryInfo is one decoded MemoryInfoList entry (§3).
type MemoryInfo struct {
	Base          uint64           `json:"base"`
	AllocBase     uint64           `json:"alloc_base"`
	AllocProtect  MemoryProtection `json:"alloc_protect"`
	Size          uint64           `json:"size"`
	State         MemoryState      `json:"state"`
	Protect       MemoryProtection `json:"protect"`
	Type          MemoryType       `json:"type"`
}

const memoryInfoEntrySize = 48

func parseMemoryInfoList(r *reader, e DirectoryEntry, maxEntries uint64) ([]MemoryInfo, bool) {
	sizeOfHeader, err := r.u32(e.RVA)
	if err != nil {
		return nil, false
	}
	_ = sizeOfHeader
	sizeOfEntry, err := r.u32(e.RVA + 4)
	if err != nil {
		return nil, false
	}
	count, err := r.u64(e.RVA + 8)
	if err != nil {
		return nil, false
	}
	if count > maxEntries {
		return nil, false
	}
	if sizeOfEntry == 0 {
		return nil, false
	}

	entries := make([]MemoryInfo, 0, count)
	base := e.RVA + 16
	for i := uint64(0); i < count; i++ {
		off := base + uint32(i)*sizeOfEntry
		if !r.inRange(off, memoryInfoEntrySize) {
			break
		}
		var m MemoryInfo
		if v, err := r.u64(off); err == nil {
			m.Base = v
		}
		if v, err := r.u64(off + 8); err == nil {
			m.AllocBase = v
		}
		if v, err := r.u32(off + 16); err == nil {
			m.AllocProtect = MemoryProtection(v)
		}
		if v, err := r.u64(off + 24); err == nil {
			m.Size = v
		}
		if v, err := r.u32(off + 32); err == nil {
			m.State = MemoryState(v)
		}
		if v, err := r.u32(off + 36); err == nil {
			m.Protect = MemoryProtection(v)
		}
		if v, err := r.u32(off + 40); err == nil {
			m.Type = MemoryType(v)
		}
		entries = append(entries, m)
	}
	return entries, true
}
