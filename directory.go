// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// StreamType identifies the kind of record a stream directory entry
// points to. Unknown values are preserved as StreamType(raw) — a tagged
// union with a catch-all "Other" variant, per the decision in §9: never
// decoded, only surfaced as a directory entry.
type StreamType uint32

// Known stream types. The parser decodes all of them except StreamUnused
// and StreamMemoryList, which are only surfaced as directory entries.
const (
	StreamUnused              StreamType = 0
	StreamThreadList          StreamType = 3
	StreamModuleList          StreamType = 4
	StreamMemoryList          StreamType = 5
	StreamException           StreamType = 6
	StreamSystemInfo          StreamType = 7
	StreamMemory64List        StreamType = 9
	StreamHandleData          StreamType = 12
	StreamUnloadedModuleList  StreamType = 14
	StreamMiscInfo            StreamType = 15
	StreamMemoryInfoList      StreamType = 16
	StreamThreadNames         StreamType = 24
)

// String returns a short mnemonic for known stream types and "Other"
// otherwise (StreamUnused included).
func (t StreamType) String() string {
	switch t {
	case StreamThreadList:
		return "ThreadList"
	case StreamModuleList:
		return "ModuleList"
	case StreamMemoryList:
		return "MemoryList"
	case StreamException:
		return "Exception"
	case StreamSystemInfo:
		return "SystemInfo"
	case StreamMemory64List:
		return "Memory64List"
	case StreamHandleData:
		return "HandleData"
	case StreamUnloadedModuleList:
		return "UnloadedModuleList"
	case StreamMiscInfo:
		return "MiscInfo"
	case StreamMemoryInfoList:
		return "MemoryInfoList"
	case StreamThreadNames:
		return "ThreadNames"
	default:
		return "Other"
	}
}

// directoryEntrySize is the fixed on-disk size of one stream directory
// entry: type(4) + size(4) + rva(4).
const directoryEntrySize = 12

// MaxDirectoryEntries is the hard cap on the number of stream directory
// entries the parser will ever read, per invariant 2.
const MaxDirectoryEntries = 1000

// DirectoryEntry is one record of the stream directory.
type DirectoryEntry struct {
	Type StreamType `json:"type"`
	Size uint32     `json:"size"`
	RVA  uint32     `json:"rva"`
}

// parseDirectory reads exactly header.StreamCount entries starting at
// header.StreamDirectoryRVA. The whole directory is rejected — a fatal
// error — if the count exceeds maxEntries, if the entries'
// range overflows, or if it runs past the end of the blob. Individual
// entries are never individually invalid at this stage: every field is
// a plain fixed-width integer.
func parseDirectory(r *reader, h Header, maxEntries uint32) ([]DirectoryEntry, error) {
	if h.StreamCount > maxEntries {
		return nil, ErrInvalidStreamDirectory
	}

	total := h.StreamCount * directoryEntrySize
	if h.StreamCount != 0 && total/h.StreamCount != directoryEntrySize {
		return nil, ErrInvalidStreamDirectory
	}
	if !r.inRange(h.StreamDirectoryRVA, total) {
		return nil, ErrInvalidStreamDirectory
	}

	entries := make([]DirectoryEntry, 0, h.StreamCount)
	for i := uint32(0); i < h.StreamCount; i++ {
		base := h.StreamDirectoryRVA + i*directoryEntrySize
		typ, err1 := r.u32(base)
		size, err2 := r.u32(base + 4)
		rva, err3 := r.u32(base + 8)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ErrInvalidStreamDirectory
		}
		entries = append(entries, DirectoryEntry{
			Type: StreamType(typ),
			Size: size,
			RVA:  rva,
		})
	}
	return entries, nil
}

// findStream returns the first directory entry of the given type, if any.
func findStream(entries []DirectoryEntry, t StreamType) (DirectoryEntry, bool) {
	for _, e := range entries {
		if e.Type == t {
			return e, true
		}
	}
	return DirectoryEntry{}, false
}
