// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"testing"
)

func buildThreadList(id, contextSize, contextRVA uint32) []byte {
	b := make([]byte, 4+threadInfoSize)
	binary.LittleEndian.PutUint32(b[0:], 1)
	rec := b[4:]
	binary.LittleEndian.PutUint32(rec[0:], id)
	binary.LittleEndian.PutUint32(rec[4:], 1)             // SuspendCount
	binary.LittleEndian.PutUint64(rec[16:], 0x7FF000000000) // TEB
	binary.LittleEndian.PutUint64(rec[24:], 0x10000)       // Stack.StartVA
	binary.LittleEndian.PutUint32(rec[32:], 0x4000)        // Stack.Size
	binary.LittleEndian.PutUint32(rec[40:], contextSize)
	binary.LittleEndian.PutUint32(rec[44:], contextRVA)
	return b
}

func TestParseThreadListSingleEntryNoContext(t *testing.T) {
	buf := buildThreadList(4242, 0, 0)
	r := newReader(buf)
	threads, ok := parseThreadList(r, DirectoryEntry{RVA: 0}, MaxThreads)
	if !ok {
		t.Fatalf("parseThreadList() rejected a well-formed record")
	}
	if len(threads) != 1 {
		t.Fatalf("len(threads) = %d, want 1", len(threads))
	}
	th := threads[0]
	if th.ID != 4242 {
		t.Errorf("ID = %d, want 4242", th.ID)
	}
	if th.Stack.StartVA != 0x10000 || th.Stack.Size != 0x4000 {
		t.Errorf("Stack = %+v, unexpected", th.Stack)
	}
	if th.Context != nil {
		t.Errorf("Context should be nil when ContextLoc.Size == 0")
	}
}

func TestParseThreadListAttachesContext(t *testing.T) {
	buf := buildThreadList(7, threadContextAMD64Size, 0)
	buf = append(buf, make([]byte, threadContextAMD64Size)...)
	contextRVA := uint32(4 + threadInfoSize)
	binary.LittleEndian.PutUint32(buf[4+40:], threadContextAMD64Size)
	binary.LittleEndian.PutUint32(buf[4+44:], contextRVA)

	ctx := buf[contextRVA:]
	binary.LittleEndian.PutUint32(ctx[48:], contextFlagHasXMM)
	binary.LittleEndian.PutUint64(ctx[248:], 0x00007FF612340000) // RIP

	r := newReader(buf)
	threads, ok := parseThreadList(r, DirectoryEntry{RVA: 0}, MaxThreads)
	if !ok {
		t.Fatalf("parseThreadList() rejected a well-formed record")
	}
	if threads[0].Context == nil {
		t.Fatalf("Context should be populated when ContextLoc.Size > 0")
	}
	if threads[0].Context.RIP != 0x00007FF612340000 {
		t.Errorf("RIP = %#x, want 0x00007ff612340000", threads[0].Context.RIP)
	}
	if !threads[0].Context.HasXMM {
		t.Errorf("HasXMM = false, want true when CONTEXT_FLOATING_POINT is set")
	}
}

func TestParseThreadListRejectsExcessiveCount(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, MaxThreads+1)
	r := newReader(buf)
	if _, ok := parseThreadList(r, DirectoryEntry{RVA: 0}, MaxThreads); ok {
		t.Errorf("parseThreadList() accepted a count of %d, over the %d cap", MaxThreads+1, MaxThreads)
	}
}

func TestDecodeEFlags(t *testing.T) {
	flags := DecodeEFlags(1<<0 | 1<<6 | 1<<9)
	want := map[EFlag]bool{EFlagCF: true, EFlagZF: true, EFlagIF: true}
	if len(flags) != len(want) {
		t.Fatalf("DecodeEFlags() = %v, want 3 flags", flags)
	}
	for _, f := range flags {
		if !want[f] {
			t.Errorf("unexpected flag %v", f)
		}
	}
}

func TestParseThreadContextAMD64RejectsShortBuffer(t *testing.T) {
	r := newReader(make([]byte, threadContextAMD64Size-1))
	if _, ok := parseThreadContextAMD64(r, 0); ok {
		t.Errorf("parseThreadContextAMD64() accepted a buffer shorter than the fixed CONTEXT size")
	}
}

func TestMemoryDescriptorEndSaturatesOnOverflow(t *testing.T) {
	m := MemoryDescriptor{StartVA: ^uint64(0) - 4, Size: 0xFFFFFFFF}
	if got, want := m.End(), ^uint64(0); got != want {
		t.Errorf("End() = %#x, want %#x", got, want)
	}
}
