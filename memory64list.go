// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MaxMemory64Regions is the hard cap on the number of regions decoded
// from the Memory64List stream, per invariant 2.
const MaxMemory64Regions = 100000

const memory64DescriptorSize = 16

// MemoryRegion64 is one captured memory region, with its computed file
// offset (§3 invariant 4).
type MemoryRegion64 struct {
	Base       uint64 `json:"base"`
	Size       uint64 `json:"size"`
	FileOffset uint64 `json:"file_offset"`
}

// End returns the exclusive end virtual address, saturating on
// overflow.
func (m MemoryRegion64) End() uint64 {
	end := m.Base + m.Size
	if end < m.Base {
		return ^uint64(0)
	}
	return end
}

// Contains reports whether addr falls within [Base, End()).
func (m MemoryRegion64) Contains(addr uint64) bool {
	return addr >= m.Base && addr < m.End()
}

// Memory64List is the decoded Memory64List stream.
type Memory64List struct {
	Regions []MemoryRegion64 `json:"regions"`
}

// ReadAt returns up to n bytes starting at virtual address addr, or
// (nil, false) when no region contains addr. The returned slice is
// clamped to the region's remaining bytes.
func (l Memory64List) ReadAt(r *reader, addr uint64, n uint32) ([]byte, bool) {
	for _, region := range l.Regions {
		if !region.Contains(addr) {
			continue
		}
		offsetIntoRegion := addr - region.Base
		remaining := region.Size - offsetIntoRegion
		readLen := uint64(n)
		if readLen > remaining {
			readLen = remaining
		}
		if readLen > uint64(^uint32(0)) {
			readLen = uint64(^uint32(0))
		}
		fileOffset := region.FileOffset + offsetIntoRegion
		if fileOffset > uint64(r.len()) {
			return nil, false
		}
		b, err := r.bytes(uint32(fileOffset), uint32(readLen))
		if err != nil {
			return nil, false
		}
		return b, true
	}
	return nil, false
}

func parseMemory64List(r *reader, e DirectoryEntry, maxRegions uint64) (Memory64List, bool) {
	count, err := r.u64(e.RVA)
	if err != nil {
		return Memory64List{}, false
	}
	if count > maxRegions {
		return Memory64List{}, false
	}
	baseRVA, err := r.u64(e.RVA + 8)
	if err != nil {
		return Memory64List{}, false
	}

	list := Memory64List{Regions: make([]MemoryRegion64, 0, count)}
	fileOffset := baseRVA
	descBase := e.RVA + 16

	for i := uint64(0); i < count; i++ {
		off := descBase + uint32(i)*memory64DescriptorSize
		startVA, err := r.u64(off)
		if err != nil {
			break
		}
		size, err := r.u64(off + 8)
		if err != nil {
			break
		}

		list.Regions = append(list.Regions, MemoryRegion64{
			Base:       startVA,
			Size:       size,
			FileOffset: fileOffset,
		})

		next := fileOffset + size
		if next < fileOffset {
			// Overflow: stop iterating, keep regions parsed so far
			// (invariant 4).
			break
		}
		fileOffset = next
	}

	return list, true
}
