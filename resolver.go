// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "fmt"

// moduleContaining returns the module whose [Base, End) range contains
// addr, or nil. End() saturates per invariant 5, so the comparison
// never overflows.
func moduleContaining(modules []ModuleInfo, addr uint64) *ModuleInfo {
	for i := range modules {
		m := &modules[i]
		if addr >= m.Base && addr < m.End() {
			return m
		}
	}
	return nil
}

// resolveAddress renders addr as "<shortName>+0x<hex>" when it falls
// inside a known module, else as a bare 16-hex-digit address.
func resolveAddress(modules []ModuleInfo, addr uint64) string {
	if m := moduleContaining(modules, addr); m != nil {
		return fmt.Sprintf("%s+0x%x", m.ShortName(), addr-m.Base)
	}
	return fmt.Sprintf("0x%016x", addr)
}

// readDumpMemory serves a read of n bytes at addr from the Memory64List
// (full-memory dumps) only. The MemoryList stream (StreamMemoryList) is
// not decoded, so a dump that captures memory only in a MemoryList
// yields no reads here.
func readDumpMemory(r *reader, mem64 *Memory64List, addr uint64, n uint32) ([]byte, bool) {
	if mem64 == nil {
		return nil, false
	}
	return mem64.ReadAt(r, addr, n)
}
