// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MaxThreadNames is the hard cap on the number of entries decoded from
// the ThreadNames stream.
const MaxThreadNames = 50000

// ThreadName is one decoded ThreadNames entry.
type ThreadName struct {
	ThreadID uint32 `json:"thread_id"`
	NameRVA  uint64 `json:"name_rva"`
	Name     string `json:"name"`
}

// canonicalThreadNameEntrySize is the authoritative Microsoft
// definition: ThreadId(u32) + RvaOfThreadName(u64), naturally 12 bytes.
const canonicalThreadNameEntrySize = 12

// alignedThreadNameEntrySize is the 8-byte-aligned variant seen in some
// producer revisions.
const alignedThreadNameEntrySize = 16

// threadNameEntryStride resolves the §9 open question: probe the
// canonical 12-byte stride first, and only fall back to the 16-byte
// aligned stride when the stream's declared size does not cleanly fit
// count canonical-sized entries but does fit count aligned-sized ones.
// Never assumes either size outright; an over-read is treated as a
// soft failure, per §9.
func threadNameEntryStride(streamSize, headerSize, count uint32) uint32 {
	if count == 0 || streamSize < headerSize {
		return canonicalThreadNameEntrySize
	}
	available := streamSize - headerSize
	canonicalTotal := count * canonicalThreadNameEntrySize
	if canonicalTotal == available {
		return canonicalThreadNameEntrySize
	}
	alignedTotal := count * alignedThreadNameEntrySize
	if alignedTotal == available {
		return alignedThreadNameEntrySize
	}
	return canonicalThreadNameEntrySize
}

func parseThreadNames(r *reader, e DirectoryEntry) ([]ThreadName, bool) {
	count, err := r.u32(e.RVA)
	if err != nil {
		return nil, false
	}
	if count > MaxThreadNames {
		return nil, false
	}

	stride := threadNameEntryStride(e.Size, 4, count)
	base := e.RVA + 4

	total := count * stride
	if count != 0 && total/count != stride {
		return nil, false
	}
	if !r.inRange(base, total) {
		return nil, false
	}

	out := make([]ThreadName, 0, count)
	for i := uint32(0); i < count; i++ {
		off := base + i*stride
		var t ThreadName
		if v, err := r.u32(off); err == nil {
			t.ThreadID = v
		} else {
			continue
		}
		if v, err := r.u64(off + 4); err == nil {
			t.NameRVA = v
			if v != 0 && v <= uint64(^uint32(0)) {
				t.Name = r.utf16LP(uint32(v))
			}
		}
		out = append(out, t)
	}
	return out, true
}
