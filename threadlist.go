// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MaxThreads is the hard cap on the number of threads decoded from the
// ThreadList stream, per invariant 2.
const MaxThreads = 10000

const threadInfoSize = 48

// MemoryDescriptor is the (startVA, size, rva) triple used for a
// thread's captured stack memory.
type MemoryDescriptor struct {
	StartVA uint64 `json:"start_va"`
	Size    uint32 `json:"size"`
	RVA     uint32 `json:"rva"`
}

// End returns the exclusive end virtual address of the descriptor,
// saturating on overflow.
func (m MemoryDescriptor) End() uint64 {
	end := m.StartVA + uint64(m.Size)
	if end < m.StartVA {
		return ^uint64(0)
	}
	return end
}

// Contains reports whether addr falls within [StartVA, End()).
func (m MemoryDescriptor) Contains(addr uint64) bool {
	return addr >= m.StartVA && addr < m.End()
}

// ThreadInfo is one decoded ThreadList entry (§3).
type ThreadInfo struct {
	ID            uint32             `json:"id"`
	SuspendCount  uint32              `json:"suspend_count"`
	PriorityClass uint32              `json:"priority_class"`
	Priority      uint32              `json:"priority"`
	TEB           uint64              `json:"teb"`
	Stack         MemoryDescriptor    `json:"stack"`
	ContextLoc    LocationDescriptor  `json:"context_location"`

	Context *ThreadContextAMD64 `json:"context,omitempty"`
}

func parseThreadList(r *reader, e DirectoryEntry, maxThreads uint32) ([]ThreadInfo, bool) {
	count, err := r.u32(e.RVA)
	if err != nil {
		return nil, false
	}
	if count > maxThreads {
		return nil, false
	}
	total := count * threadInfoSize
	if count != 0 && total/count != threadInfoSize {
		return nil, false
	}
	if !r.inRange(e.RVA+4, total) {
		return nil, false
	}

	threads := make([]ThreadInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		base := e.RVA + 4 + i*threadInfoSize
		var t ThreadInfo

		if v, err := r.u32(base); err == nil {
			t.ID = v
		} else {
			continue
		}
		if v, err := r.u32(base + 4); err == nil {
			t.SuspendCount = v
		}
		if v, err := r.u32(base + 8); err == nil {
			t.PriorityClass = v
		}
		if v, err := r.u32(base + 12); err == nil {
			t.Priority = v
		}
		if v, err := r.u64(base + 16); err == nil {
			t.TEB = v
		}
		if v, err := r.u64(base + 24); err == nil {
			t.Stack.StartVA = v
		}
		if v, err := r.u32(base + 32); err == nil {
			t.Stack.Size = v
		}
		if v, err := r.u32(base + 36); err == nil {
			t.Stack.RVA = v
		}
		if v, err := r.u32(base + 40); err == nil {
			t.ContextLoc.Size = v
		}
		if v, err := r.u32(base + 44); err == nil {
			t.ContextLoc.RVA = v
		}

		if t.ContextLoc.Size > 0 {
			if ctx, ok := parseThreadContextAMD64(r, t.ContextLoc.RVA); ok {
				t.Context = &ctx
			}
		}

		threads = append(threads, t)
	}
	return threads, true
}
