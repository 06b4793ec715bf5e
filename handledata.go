// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "sort"

// MaxHandles is the hard cap on the number of entries decoded from the
// HandleData stream, per invariant 2.
const MaxHandles = 100000

// HandleEntry is one decoded HandleData entry. V1 records (32B) do not
// carry ObjectInfoRVA; V2 records (40B) do.
type HandleEntry struct {
	Handle       uint64 `json:"handle"`
	TypeName     string `json:"type_name"`
	ObjectName   string `json:"object_name"`
	Attributes   uint32 `json:"attributes"`
	GrantedAccess uint32 `json:"granted_access"`
	HandleCount  uint32 `json:"handle_count"`
	PointerCount uint32 `json:"pointer_count"`
	ObjectInfoRVA uint32 `json:"object_info_rva,omitempty"`
	IsV2         bool   `json:"is_v2"`
}

// HandleData is the decoded HandleData stream, with a summary histogram
// of type names by descending count.
type HandleData struct {
	Entries []HandleEntry `json:"entries"`
}

// TypeCount is one row of the handle type histogram.
type TypeCount struct {
	TypeName string
	Count    int
}

// TypeHistogram returns type names sorted by descending occurrence
// count.
func (h HandleData) TypeHistogram() []TypeCount {
	counts := map[string]int{}
	for _, e := range h.Entries {
		counts[e.TypeName]++
	}
	out := make([]TypeCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, TypeCount{TypeName: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].TypeName < out[j].TypeName
	})
	return out
}

const (
	handleEntryV1Size = 32
	handleEntryV2MinSize = 40
)

func parseHandleData(r *reader, e DirectoryEntry, maxHandles uint32) (HandleData, bool) {
	sizeOfHeader, err := r.u32(e.RVA)
	if err != nil {
		return HandleData{}, false
	}
	_ = sizeOfHeader
	sizeOfDescriptor, err := r.u32(e.RVA + 4)
	if err != nil {
		return HandleData{}, false
	}
	count, err := r.u32(e.RVA + 8)
	if err != nil {
		return HandleData{}, false
	}
	if count > maxHandles {
		return HandleData{}, false
	}
	if sizeOfDescriptor < handleEntryV1Size {
		return HandleData{}, false
	}
	isV2 := sizeOfDescriptor >= handleEntryV2MinSize

	data := HandleData{Entries: make([]HandleEntry, 0, count)}
	base := e.RVA + 16
	for i := uint32(0); i < count; i++ {
		off := base + i*sizeOfDescriptor
		if !r.inRange(off, sizeOfDescriptor) {
			break
		}
		var h HandleEntry
		h.IsV2 = isV2
		if v, err := r.u64(off); err == nil {
			h.Handle = v
		}
		if v, err := r.u32(off + 8); err == nil && v != 0 {
			h.TypeName = r.utf16LP(v)
		}
		if v, err := r.u32(off + 12); err == nil && v != 0 {
			h.ObjectName = r.utf16LP(v)
		}
		if v, err := r.u32(off + 16); err == nil {
			h.Attributes = v
		}
		if v, err := r.u32(off + 20); err == nil {
			h.GrantedAccess = v
		}
		if v, err := r.u32(off + 24); err == nil {
			h.HandleCount = v
		}
		if v, err := r.u32(off + 28); err == nil {
			h.PointerCount = v
		}
		if isV2 {
			if v, err := r.u32(off + 32); err == nil {
				h.ObjectInfoRVA = v
			}
		}
		data.Entries = append(data.Entries, h)
	}
	return data, true
}
