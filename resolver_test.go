// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "testing"

func TestModuleContaining(t *testing.T) {
	modules := []ModuleInfo{
		{Base: 0x140000000, Size: 0x1000},
		{Base: 0x150000000, Size: 0x2000},
	}
	if m := moduleContaining(modules, 0x150000500); m == nil || m.Base != 0x150000000 {
		t.Errorf("moduleContaining() = %+v, want the second module", m)
	}
	if m := moduleContaining(modules, 0x160000000); m != nil {
		t.Errorf("moduleContaining() = %+v, want nil for an unmapped address", m)
	}
}

func TestResolveAddress(t *testing.T) {
	modules := []ModuleInfo{{Base: 0x140000000, Size: 0x1000, Name: `C:\app\app.exe`}}
	if got, want := resolveAddress(modules, 0x140000123), "app.exe+0x123"; got != want {
		t.Errorf("resolveAddress() = %q, want %q", got, want)
	}
	if got, want := resolveAddress(modules, 0xDEADBEEF), "0x00000000deadbeef"; got != want {
		t.Errorf("resolveAddress() = %q, want %q", got, want)
	}
}

func TestReadDumpMemoryNilMemory64List(t *testing.T) {
	if _, ok := readDumpMemory(newReader(nil), nil, 0x1000, 4); ok {
		t.Errorf("readDumpMemory() with a nil Memory64List should report false")
	}
}
